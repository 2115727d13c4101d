package game

import (
	"errors"
	"strings"
	"testing"
	"time"

	"oremarket/internal/catalog"
)

func TestTierUnlockLevels(t *testing.T) {
	want := []int{1, 1, 2, 3, 5, 8}
	for i, tier := range Tiers {
		if got := TierUnlockLevel(tier); got != want[i] {
			t.Fatalf("tier %v unlocks at %d want %d", tier, got, want[i])
		}
	}
	if got := UnlockedTiers(1); len(got) != 2 {
		t.Fatalf("level 1 tiers=%v", got)
	}
	if got := UnlockedTiers(8); len(got) != len(Tiers) {
		t.Fatalf("level 8 tiers=%v", got)
	}
}

func TestGenerateOrderValidation(t *testing.T) {
	sim := newTestSim(t, nil)
	cases := []struct {
		name string
		req  OrderRequest
		want error
	}{
		{"bad mode", OrderRequest{Mode: "guild"}, ErrInvalidMode},
		{"no company", OrderRequest{Mode: ModeCompany}, ErrNoCompany},
		{"locked tier", OrderRequest{Tier: 5}, ErrInvalidTier},
		{"unknown tier", OrderRequest{Tier: 3}, ErrInvalidTier},
		{"unknown ore", OrderRequest{Resource: "mithril"}, ErrUnknownResource},
	}
	for _, tc := range cases {
		_, err := sim.GenerateOrder(epoch, tc.req)
		if !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
		if KindOf(err) != KindValidation {
			t.Fatalf("%s: kind=%v want validation", tc.name, KindOf(err))
		}
	}
	if len(sim.State().Orders) != 0 {
		t.Fatalf("failed generation left %d orders", len(sim.State().Orders))
	}
}

func TestUnknownResourceSuggestsKey(t *testing.T) {
	sim := newTestSim(t, nil)
	_, err := sim.GenerateOrder(epoch, OrderRequest{Resource: "gld"})
	if err == nil || !strings.Contains(err.Error(), `"gold"`) {
		t.Fatalf("expected suggestion for gold, got %v", err)
	}
}

func TestGeneratedQuantitiesStayInBands(t *testing.T) {
	sim := newTestSim(t, nil)
	sim.State().Player.Balance = 1e6
	if _, err := sim.CreateCompany(epoch, "Deep Shaft"); err != nil {
		t.Fatalf("create company: %v", err)
	}
	sim.AddXP(1e6)
	for i := 0; i < 300; i++ {
		o, err := sim.GenerateOrder(epoch, OrderRequest{Mode: ModeSolo})
		if err != nil {
			t.Fatalf("solo: %v", err)
		}
		if o.Qty < MinSoloQty || o.Qty > MaxSoloQty {
			t.Fatalf("solo qty %d outside [%d,%d]", o.Qty, MinSoloQty, MaxSoloQty)
		}
		c, err := sim.GenerateOrder(epoch, OrderRequest{Mode: ModeCompany})
		if err != nil {
			t.Fatalf("company: %v", err)
		}
		if c.Qty < MinBulkQty || c.Qty > MaxBulkQty {
			t.Fatalf("company qty %d outside [%d,%d]", c.Qty, MinBulkQty, MaxBulkQty)
		}
		if c.OwnerType != OwnerCompany || c.CompanyID == "" {
			t.Fatalf("company order not owned by company: %+v", c)
		}
		if c.Total < 1 {
			t.Fatalf("total %v below 1", c.Total)
		}
	}
}

func TestNewOrdersArePrepended(t *testing.T) {
	sim := newTestSim(t, nil)
	first, _ := sim.GenerateOrder(epoch, OrderRequest{})
	second, _ := sim.GenerateOrder(epoch, OrderRequest{})
	if sim.State().Orders[0].ID != second.ID || sim.State().Orders[1].ID != first.ID {
		t.Fatalf("orders not newest first")
	}
}

func TestOrderLifecycle(t *testing.T) {
	sim := newTestSim(t, nil)
	o, err := sim.GenerateOrder(epoch, OrderRequest{Resource: "coal", Tier: 1})
	if err == nil {
		t.Fatalf("tier 1 should be locked at level 1")
	}
	o, err = sim.GenerateOrder(epoch, OrderRequest{Resource: "coal", Tier: 0.25})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := sim.CompleteOrder(epoch, o.ID); !errors.Is(err, ErrOrderNotAccepted) {
		t.Fatalf("complete pending: expected ErrOrderNotAccepted, got %v", err)
	}
	if err := sim.CancelOrder(o.ID); !errors.Is(err, ErrOrderNotAccepted) {
		t.Fatalf("cancel pending: expected ErrOrderNotAccepted, got %v", err)
	}
	if _, err := sim.AcceptOrder(epoch, o.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if o.LockedPrice != o.Total {
		t.Fatalf("locked price %v != total %v", o.LockedPrice, o.Total)
	}
	if _, err := sim.AcceptOrder(epoch, o.ID); !errors.Is(err, ErrOrderNotPending) {
		t.Fatalf("double accept: expected ErrOrderNotPending, got %v", err)
	}
	if _, err := sim.DeclineOrder(o.ID); !errors.Is(err, ErrOrderNotPending) {
		t.Fatalf("decline accepted: expected ErrOrderNotPending, got %v", err)
	}

	balance := sim.State().Player.Balance
	done, err := sim.CompleteOrder(epoch.Add(time.Minute), o.ID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if !done.Completed || done.FinalPayout <= 0 || done.CompletedAt == nil {
		t.Fatalf("completion not recorded: %+v", done)
	}
	if got := sim.State().Player.Balance - balance; !approx(got, done.FinalPayout) {
		t.Fatalf("balance grew by %v want %v", got, done.FinalPayout)
	}
	if sim.State().Player.XP < 1 {
		t.Fatalf("completion granted no xp")
	}
	if _, err := sim.CompleteOrder(epoch, o.ID); !errors.Is(err, ErrOrderCompleted) {
		t.Fatalf("double complete: expected ErrOrderCompleted, got %v", err)
	}
	if err := sim.CancelOrder(o.ID); !errors.Is(err, ErrOrderCompleted) {
		t.Fatalf("cancel completed: expected ErrOrderCompleted, got %v", err)
	}
	if KindOf(ErrOrderCompleted) != KindPrecondition {
		t.Fatalf("lifecycle errors should be preconditions")
	}
	if _, err := sim.AcceptOrder(epoch, "o_missing"); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestCancelRemovesAcceptedOrderWithoutEffect(t *testing.T) {
	sim := newTestSim(t, nil)
	o, _ := sim.GenerateOrder(epoch, OrderRequest{})
	sim.AcceptOrder(epoch, o.ID)
	p := *sim.State().Player
	if err := sim.CancelOrder(o.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if len(sim.State().Orders) != 0 {
		t.Fatalf("order not removed")
	}
	if sim.State().Player.Balance != p.Balance || sim.State().Player.XP != p.XP {
		t.Fatalf("cancel changed the player")
	}
}

func TestDeclineScenario(t *testing.T) {
	sim := newTestSim(t, nil)
	p := sim.State().Player
	p.Level = 5
	p.XP = 1_000
	sim.State().Orders = []*Order{{ID: "o1", Resource: "coal", Tier: 2, Qty: 50, OwnerType: OwnerPlayer}}
	lost, err := sim.DeclineOrder("o1")
	if err != nil {
		t.Fatalf("decline: %v", err)
	}
	if lost != 10 || p.XP != 990 {
		t.Fatalf("lost=%d xp=%d want 10 and 990", lost, p.XP)
	}
	if len(sim.State().Orders) != 0 {
		t.Fatalf("declined order still on the board")
	}
}

func TestDeclineNeverBelowZeroAndAtLeastOne(t *testing.T) {
	if got := DeclineXPLoss(0.1, 10, 50); got != 1 {
		t.Fatalf("loss=%d want floor of 1", got)
	}
	sim := newTestSim(t, nil)
	p := sim.State().Player
	p.XP = 3
	sim.State().Orders = []*Order{{ID: "o1", Resource: "coal", Tier: 5, Qty: 500, OwnerType: OwnerPlayer}}
	if _, err := sim.DeclineOrder("o1"); err != nil {
		t.Fatalf("decline: %v", err)
	}
	if p.XP != 0 {
		t.Fatalf("xp=%d want 0", p.XP)
	}
	if p.Level != 1 {
		t.Fatalf("level dropped to %d", p.Level)
	}
}

func TestCompanyOrderScenario(t *testing.T) {
	sim := newTestSim(t, map[string]catalog.Ore{"ore": flatOre(100)})
	c, err := sim.CreateCompany(epoch, "Pit Crew")
	if err != nil {
		t.Fatalf("create company: %v", err)
	}
	c.NetWorth = 30_000
	sim.Drain()
	sim.State().Orders = []*Order{{
		ID:        "o1",
		Resource:  "ore",
		Tier:      1,
		Qty:       100,
		Accepted:  true,
		OwnerType: OwnerCompany,
		CompanyID: c.ID,
	}}
	balance := sim.State().Player.Balance

	o, err := sim.CompleteOrder(epoch, "o1")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if o.FinalPayout != 30_000 {
		t.Fatalf("payout=%v want 30000", o.FinalPayout)
	}
	if c.NetWorth != 60_000 {
		t.Fatalf("company net worth=%v want 60000", c.NetWorth)
	}
	if sim.State().Player.Balance != balance {
		t.Fatalf("company payout leaked to player balance")
	}
	r := sim.State().Resources["ore"]
	if !approx(r.StockLevel, 0.6-0.25*100/1000.0) {
		t.Fatalf("stock=%v want 0.575", r.StockLevel)
	}
	if sim.State().Player.XP != 30 {
		t.Fatalf("xp=%d want 30", sim.State().Player.XP)
	}
	kinds := eventKinds(sim.Drain())
	if kinds[EventBulkComplete] != 1 || kinds[EventPFMilestone] != 1 {
		t.Fatalf("unexpected events %v", kinds)
	}
}

func TestCompanyOrderFallsBackToPlayerWhenCompanyGone(t *testing.T) {
	sim := newTestSim(t, map[string]catalog.Ore{"ore": flatOre(10)})
	sim.State().Orders = []*Order{{
		ID: "o1", Resource: "ore", Tier: 1, Qty: 10, Accepted: true,
		OwnerType: OwnerCompany, CompanyID: "c_gone",
	}}
	balance := sim.State().Player.Balance
	if _, err := sim.CompleteOrder(epoch, "o1"); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if got := sim.State().Player.Balance - balance; got != 100 {
		t.Fatalf("player credited %v want 100", got)
	}
}

func TestAutoOrderUsesUnlockedTiers(t *testing.T) {
	sim := newTestSim(t, nil)
	for i := 0; i < 100; i++ {
		o, err := sim.AutoOrder(epoch)
		if err != nil {
			t.Fatalf("auto order: %v", err)
		}
		if !tierUnlocked(o.Tier, 1) {
			t.Fatalf("auto order used locked tier %v", o.Tier)
		}
		if o.OwnerType != OwnerPlayer {
			t.Fatalf("company order without a company")
		}
	}
	if !sim.State().LastAutoOrder.Equal(epoch) {
		t.Fatalf("last auto order not recorded")
	}
}
