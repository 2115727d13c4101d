package game

import (
	mathrand "math/rand"
	"testing"
	"time"

	"oremarket/internal/catalog"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func flatOre(price float64) catalog.Ore {
	return catalog.Ore{
		BaseValueRange: []float64{price, price},
		Demand:         50,
		Commonness:     50,
		Volatility:     1,
		CrashDepth:     0.3,
		Recovery:       0.5,
		MaxSupply:      1000,
		StockLevel:     0.6,
	}
}

func testOptions(t *testing.T, ores map[string]catalog.Ore) Options {
	t.Helper()
	opts := Options{Rand: mathrand.New(mathrand.NewSource(7)), Now: epoch}
	if ores != nil {
		resolved, errs := catalog.Resolve(ores)
		if len(errs) > 0 {
			t.Fatalf("resolve test catalog: %v", errs)
		}
		opts.Ores = resolved
	}
	return opts
}

func newTestSim(t *testing.T, ores map[string]catalog.Ore) *Simulation {
	t.Helper()
	return New(testOptions(t, ores))
}

func eventKinds(events []Event) map[EventKind]int {
	out := make(map[EventKind]int)
	for _, ev := range events {
		out[ev.Kind]++
	}
	return out
}
