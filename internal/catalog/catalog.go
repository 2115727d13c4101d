// Package catalog holds ore definitions and resolves the layered catalog:
// built-in defaults, then an optional catalog file, then host-authored ores.
package catalog

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/sahilm/fuzzy"
)

const (
	DefaultMaxSupply  = 1000
	DefaultStockLevel = 0.6
	MaxCrashDepth     = 0.9
)

var keyRE = regexp.MustCompile(`^[a-z0-9_]{1,32}$`)

// Ore is the static definition of one resource.
type Ore struct {
	Display        string    `toml:"display" json:"display"`
	Symbol         string    `toml:"symbol" json:"symbol"`
	BaseValueRange []float64 `toml:"base_value_range" json:"baseValueRange"`
	Demand         float64   `toml:"demand" json:"demand"`
	Commonness     float64   `toml:"commonness" json:"commonness"`
	Volatility     float64   `toml:"volatility" json:"volatility"`
	CrashDepth     float64   `toml:"crash_depth" json:"crashDepth"`
	Recovery       float64   `toml:"recovery" json:"recovery"`
	MaxSupply      float64   `toml:"max_supply" json:"maxSupply"`
	StockLevel     float64   `toml:"stock_level,omitempty" json:"stockLevel,omitempty"`
}

// Min is the base value at zero scarcity.
func (o Ore) Min() float64 { return o.BaseValueRange[0] }

// Max is the base value at full scarcity.
func (o Ore) Max() float64 { return o.BaseValueRange[1] }

// Defaults returns the built-in ore set.
func Defaults() map[string]Ore {
	return map[string]Ore{
		"coal":    {Display: "Coal", Symbol: "CO", BaseValueRange: []float64{10, 20}, Demand: 80, Commonness: 90, Volatility: 1.0, CrashDepth: 0.2, Recovery: 0.8, MaxSupply: 20000, StockLevel: 0.7},
		"iron":    {Display: "Iron", Symbol: "Fe", BaseValueRange: []float64{50, 120}, Demand: 60, Commonness: 70, Volatility: 1.2, CrashDepth: 0.25, Recovery: 0.7, MaxSupply: 10000, StockLevel: 0.6},
		"gold":    {Display: "Gold", Symbol: "Au", BaseValueRange: []float64{200, 800}, Demand: 40, Commonness: 30, Volatility: 1.6, CrashDepth: 0.35, Recovery: 0.6, MaxSupply: 5000, StockLevel: 0.8},
		"diamond": {Display: "Diamond", Symbol: "DI", BaseValueRange: []float64{1200, 8000}, Demand: 20, Commonness: 10, Volatility: 2.0, CrashDepth: 0.45, Recovery: 0.5, MaxSupply: 1000, StockLevel: 0.9},
	}
}

// NormalizeKey lowercases and trims a resource key.
func NormalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// ValidateKey reports whether key is usable as a resource identifier.
func ValidateKey(key string) error {
	if !keyRE.MatchString(key) {
		return fmt.Errorf("ore key %q must be 1-32 lowercase letters, digits or underscores", key)
	}
	return nil
}

// Normalize fills defaults and repairs out-of-range values. It fails only
// when the value range is unusable.
func Normalize(key string, o Ore) (Ore, error) {
	if err := ValidateKey(key); err != nil {
		return o, err
	}
	if len(o.BaseValueRange) != 2 {
		return o, fmt.Errorf("ore %s: base value range needs exactly two values", key)
	}
	lo, hi := o.BaseValueRange[0], o.BaseValueRange[1]
	if lo < 0 || hi < lo {
		return o, fmt.Errorf("ore %s: base value range [%g,%g] is invalid", key, lo, hi)
	}
	o.BaseValueRange = []float64{lo, hi}
	o.Display = strings.TrimSpace(o.Display)
	if o.Display == "" {
		o.Display = strings.ToUpper(key[:1]) + key[1:]
	}
	o.Symbol = strings.TrimSpace(o.Symbol)
	if o.Symbol == "" {
		n := 2
		if len(key) < n {
			n = len(key)
		}
		o.Symbol = strings.ToUpper(key[:n])
	}
	if o.MaxSupply <= 0 {
		o.MaxSupply = DefaultMaxSupply
	}
	if o.Volatility <= 0 {
		o.Volatility = 1
	}
	if o.Commonness <= 0 {
		o.Commonness = 50
	}
	if o.Demand <= 0 {
		o.Demand = 50
	}
	if o.Recovery <= 0 {
		o.Recovery = 0.5
	}
	if o.CrashDepth < 0 {
		o.CrashDepth = 0
	}
	if o.CrashDepth > MaxCrashDepth {
		o.CrashDepth = MaxCrashDepth
	}
	if o.StockLevel < 0 || o.StockLevel > 1 {
		o.StockLevel = 0
	}
	return o, nil
}

// Resolve merges layers in order; an entry in a later layer replaces the
// whole entry of an earlier one. Entries that fail normalisation are
// skipped and reported.
func Resolve(layers ...map[string]Ore) (map[string]Ore, []error) {
	out := make(map[string]Ore)
	var errs []error
	for _, layer := range layers {
		for rawKey, ore := range layer {
			key := NormalizeKey(rawKey)
			n, err := Normalize(key, ore)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			out[key] = n
		}
	}
	return out, errs
}

// Keys returns the sorted keys of a resolved catalog.
func Keys(ores map[string]Ore) []string {
	keys := make([]string, 0, len(ores))
	for k := range ores {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Suggest returns the closest known key for a mistyped one, or "".
func Suggest(key string, known []string) string {
	key = NormalizeKey(key)
	if key == "" || len(known) == 0 {
		return ""
	}
	matches := fuzzy.Find(key, known)
	if len(matches) == 0 {
		return ""
	}
	return matches[0].Str
}
