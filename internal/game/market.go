package game

import (
	"strings"
	"time"
)

type marketDynamics struct {
	NoiseScale    float64
	MeanReversion float64
	SpikeProb     float64
	SpikeScale    float64
	CrashProb     float64
}

// NormalizeRarity maps unknown modes to "normal".
func NormalizeRarity(mode string) string {
	switch m := strings.ToLower(strings.TrimSpace(mode)); m {
	case "calm", "wild":
		return m
	default:
		return "normal"
	}
}

func rarityParams(mode string) marketDynamics {
	switch NormalizeRarity(mode) {
	case "calm":
		return marketDynamics{
			NoiseScale:    0.7,
			MeanReversion: 0.03,
			SpikeProb:     0.01,
			SpikeScale:    0.15,
			CrashProb:     0.005,
		}
	case "wild":
		return marketDynamics{
			NoiseScale:    1.6,
			MeanReversion: 0.012,
			SpikeProb:     0.05,
			SpikeScale:    0.45,
			CrashProb:     0.03,
		}
	default:
		return marketDynamics{
			NoiseScale:    1.0,
			MeanReversion: 0.02,
			SpikeProb:     0.02,
			SpikeScale:    0.25,
			CrashProb:     0.01,
		}
	}
}

// Tick runs one market step: every resource's stock level takes a random
// walk with mean reversion, may trigger a spike or crash, and records its
// tier-1 price. Resources are visited in key order so a seeded run is
// reproducible.
func (s *Simulation) Tick(now time.Time) {
	s.Advance(now)
	params := rarityParams(s.state.Settings.Rarity)
	for _, key := range s.resourceKeys() {
		r := s.state.Resources[key]
		noise := (s.rng.Float64() - 0.5) * 0.06 * r.Volatility * params.NoiseScale
		revert := (TargetStock - r.StockLevel) * params.MeanReversion
		r.StockLevel = clamp(r.StockLevel+noise+revert, MinStockLevel, MaxStockLevel)
		if r.StockLevel < 0.05 {
			r.StockLevel = clamp(r.StockLevel+0.04*s.rng.Float64(), MinStockLevel, MaxStockLevel)
		}

		if s.rng.Float64() < params.SpikeProb {
			s.schedule(&Shock{
				Resource:  key,
				Shape:     ShapeDecay,
				Magnitude: params.SpikeScale * r.Volatility * (0.5 + s.rng.Float64()),
				Start:     now,
				Duration:  s.durationBetween(5*time.Second, 15*time.Second),
				Steps:     defaultShockSteps,
				Source:    "spike",
			})
		}
		if s.rng.Float64() < params.CrashProb {
			recovery := r.Recovery
			if recovery <= 0 {
				recovery = 0.5
			}
			s.schedule(&Shock{
				Resource:  key,
				Shape:     ShapeCrash,
				Magnitude: r.CrashDepth,
				Start:     now,
				Hold:      s.durationBetween(2*time.Second, 5*time.Second),
				Duration:  time.Duration(float64(20*time.Second) / recovery),
				Steps:     defaultShockSteps,
				Source:    "crash",
			})
		}
	}
	// Shocks starting now take effect in the same tick.
	s.Advance(now)
	for _, key := range s.resourceKeys() {
		r := s.state.Resources[key]
		r.pushHistory(Price(r, 1))
	}
	s.state.LastTick = now
}
