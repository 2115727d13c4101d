package game

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestExportImportRoundTrip(t *testing.T) {
	sim := newTestSim(t, nil)
	now := epoch
	for i := 0; i < 20; i++ {
		now = now.Add(time.Second)
		sim.Tick(now)
	}
	o, _ := sim.GenerateOrder(now, OrderRequest{})
	sim.AcceptOrder(now, o.ID)
	done, _ := sim.GenerateOrder(now, OrderRequest{})
	sim.AcceptOrder(now, done.ID)
	sim.CompleteOrder(now, done.ID)
	if _, err := sim.CreateCompany(now, "Ore Co"); err != nil {
		t.Fatalf("create company: %v", err)
	}
	if _, err := sim.Invest(now, InvestRequest{Resource: "gold", Amount: 2_000}); err != nil {
		t.Fatalf("invest: %v", err)
	}
	sim.Advance(now.Add(3 * time.Second))

	first, err := sim.Export()
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	other := newTestSim(t, nil)
	if err := other.Restore(first, now); err != nil {
		t.Fatalf("restore: %v", err)
	}
	second, err := other.Export()
	if err != nil {
		t.Fatalf("re-export: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatalf("round trip changed the state:\n%s\n---\n%s", first, second)
	}
	if len(other.Shocks()) == 0 {
		t.Fatalf("in-flight shocks were not restored")
	}
}

func TestRestoreRejectsGarbage(t *testing.T) {
	sim := newTestSim(t, nil)
	before, _ := sim.Export()
	for _, raw := range []string{"not json", "{}", "[]"} {
		err := sim.Restore([]byte(raw), epoch)
		if !errors.Is(err, ErrCorruptSnapshot) {
			t.Fatalf("%q: expected ErrCorruptSnapshot, got %v", raw, err)
		}
		if KindOf(err) != KindPersistence {
			t.Fatalf("%q: kind=%v", raw, KindOf(err))
		}
	}
	after, _ := sim.Export()
	if !bytes.Equal(before, after) {
		t.Fatalf("failed restore modified state")
	}
}

func TestRestoreRepairsFields(t *testing.T) {
	history := make([]float64, 100)
	for i := range history {
		history[i] = float64(i + 1)
	}
	doc := map[string]any{
		"player": map[string]any{"name": "", "xp": 500, "level": 0, "balance": 42},
		"resources": map[string]any{
			"coal":  map[string]any{"stockLevel": 7, "history": history},
			"relic": map[string]any{"baseMin": 5, "baseMax": 1, "stockLevel": -1},
		},
		"orders": []any{
			map[string]any{"id": "ok", "resource": "coal", "tier": 1, "qty": 10},
			map[string]any{"id": "ghost", "resource": "unobtainium", "tier": 1, "qty": 10},
			map[string]any{"id": "empty", "resource": "coal", "tier": 1, "qty": 0},
		},
		"investments": []any{
			map[string]any{"id": "i1", "resource": "coal", "qty": 0, "buyPrice": 3},
			map[string]any{"id": "i2", "resource": "coal", "qty": 4, "buyPrice": 3},
		},
		"settings": map[string]any{"tickMs": 10, "rarity": "extreme"},
	}
	raw, _ := json.Marshal(doc)
	sim := newTestSim(t, nil)
	if err := sim.Restore(raw, epoch); err != nil {
		t.Fatalf("restore: %v", err)
	}
	st := sim.State()
	if st.Player.Name != DefaultPlayer || st.Player.Level != sim.Curve().LevelFor(500) {
		t.Fatalf("player not repaired: %+v", st.Player)
	}
	coal := st.Resources["coal"]
	if coal.StockLevel != MaxStockLevel || len(coal.History) != MaxHistory || coal.History[0] != 41 {
		t.Fatalf("coal not repaired: stock=%v history=%d first=%v", coal.StockLevel, len(coal.History), coal.History[0])
	}
	if coal.BaseMin != 10 || coal.EventMultiplier != 1 {
		t.Fatalf("coal definition not reapplied: %+v", coal)
	}
	relic := st.Resources["relic"]
	if relic.MaxSupply != 1000 || relic.StockLevel != TargetStock || relic.BaseMin != 1 || relic.BaseMax != 5 {
		t.Fatalf("relic not repaired: %+v", relic)
	}
	if _, ok := st.Resources["diamond"]; !ok {
		t.Fatalf("missing catalog ore not seeded")
	}
	if len(st.Orders) != 1 || st.Orders[0].ID != "ok" {
		t.Fatalf("orders=%+v", st.Orders)
	}
	if len(st.Investments) != 1 || st.Investments[0].ID != "i2" {
		t.Fatalf("investments=%+v", st.Investments)
	}
	if st.Settings.TickMs != DefaultTickMs || st.Settings.Rarity != "normal" {
		t.Fatalf("settings=%+v", st.Settings)
	}
}

func TestRestoreBoundsShockSteps(t *testing.T) {
	doc := map[string]any{
		"player": map[string]any{"name": "Miner", "xp": 0, "balance": 100},
		"shocks": []any{
			map[string]any{
				"id": "sh_big", "resource": "coal", "shape": "decay", "magnitude": 0.5,
				"start": epoch, "duration": 1, "steps": int64(1_000_000_000_000_000),
			},
		},
	}
	raw, _ := json.Marshal(doc)
	sim := newTestSim(t, nil)
	if err := sim.Restore(raw, epoch); err != nil {
		t.Fatalf("restore: %v", err)
	}
	shocks := sim.Shocks()
	if len(shocks) != 1 || shocks[0].Steps > maxShockSteps {
		t.Fatalf("shock steps not bounded: %+v", shocks)
	}

	done := make(chan struct{})
	go func() {
		sim.Advance(epoch.Add(time.Second))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("advance did not finish on a restored shock")
	}
	if len(sim.Shocks()) != 0 || sim.State().Resources["coal"].EventMultiplier != 1 {
		t.Fatalf("expected the shock to expire after a second")
	}
}
