package game

import (
	mathrand "math/rand"
	"reflect"
	"testing"
	"time"
)

func TestTickKeepsMarketWithinBounds(t *testing.T) {
	for _, mode := range []string{"calm", "normal", "wild"} {
		sim := newTestSim(t, nil)
		sim.State().Settings.Rarity = mode
		now := epoch
		for i := 0; i < 3000; i++ {
			now = now.Add(time.Second)
			sim.Tick(now)
			for key, r := range sim.State().Resources {
				if r.StockLevel < MinStockLevel || r.StockLevel > MaxStockLevel {
					t.Fatalf("%s: %s stock %v out of bounds at tick %d", mode, key, r.StockLevel, i)
				}
				if r.EventMultiplier <= 0 {
					t.Fatalf("%s: %s multiplier %v not positive", mode, key, r.EventMultiplier)
				}
				if len(r.History) > MaxHistory {
					t.Fatalf("%s: %s history grew to %d", mode, key, len(r.History))
				}
			}
		}
		for key, r := range sim.State().Resources {
			if len(r.History) != MaxHistory {
				t.Fatalf("%s: %s history len=%d want %d", mode, key, len(r.History), MaxHistory)
			}
		}
	}
}

func TestTickIsReproducibleWithSeed(t *testing.T) {
	run := func() []ResourceView {
		opts := testOptions(t, nil)
		opts.Rand = mathrand.New(mathrand.NewSource(99))
		opts.Rarity = "wild"
		sim := New(opts)
		now := epoch
		for i := 0; i < 200; i++ {
			now = now.Add(500 * time.Millisecond)
			sim.Tick(now)
		}
		return sim.Market()
	}
	a, b := run(), run()
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("seeded runs diverged:\n%v\n%v", a, b)
	}
}

func TestTickRecordsTierOnePrice(t *testing.T) {
	sim := newTestSim(t, nil)
	sim.Tick(epoch.Add(time.Second))
	for key, r := range sim.State().Resources {
		if len(r.History) != 1 {
			t.Fatalf("%s history len=%d want 1", key, len(r.History))
		}
		if !approx(r.History[0], Price(r, 1)) {
			t.Fatalf("%s history sample %v != price %v", key, r.History[0], Price(r, 1))
		}
	}
	if !sim.State().LastTick.Equal(epoch.Add(time.Second)) {
		t.Fatalf("last tick not recorded")
	}
}

func TestNormalizeRarity(t *testing.T) {
	cases := map[string]string{
		"calm":    "calm",
		" WILD ":  "wild",
		"normal":  "normal",
		"chaotic": "normal",
		"":        "normal",
	}
	for in, want := range cases {
		if got := NormalizeRarity(in); got != want {
			t.Fatalf("NormalizeRarity(%q)=%q want %q", in, got, want)
		}
	}
}
