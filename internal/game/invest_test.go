package game

import (
	"errors"
	"testing"
	"time"

	"oremarket/internal/catalog"
)

func TestInvestScenario(t *testing.T) {
	sim := newTestSim(t, map[string]catalog.Ore{"ore": flatOre(20)})
	stock := sim.State().Resources["ore"].StockLevel
	inv, err := sim.Invest(epoch, InvestRequest{Resource: "ore", Amount: 5_000})
	if err != nil {
		t.Fatalf("invest: %v", err)
	}
	if inv.BuyPrice != 10 || inv.Qty != 500 {
		t.Fatalf("buy price=%v qty=%d want 10 and 500", inv.BuyPrice, inv.Qty)
	}
	if got := sim.State().Player.Balance; got != StarterBalance-5_000 {
		t.Fatalf("balance=%v want %v", got, StarterBalance-5_000)
	}
	if sim.State().Resources["ore"].StockLevel != stock {
		t.Fatalf("investment moved the stock level")
	}
	if len(sim.Shocks()) != 2 {
		t.Fatalf("expected spike and crash scheduled, got %d shocks", len(sim.Shocks()))
	}
	if em := sim.State().Resources["ore"].EventMultiplier; em <= 1 {
		t.Fatalf("spike not applied, multiplier=%v", em)
	}
	if kinds := eventKinds(sim.Drain()); kinds[EventInvestment] != 1 {
		t.Fatalf("expected investment event, got %v", kinds)
	}
}

func TestInvestValidationLeavesStateAlone(t *testing.T) {
	sim := newTestSim(t, map[string]catalog.Ore{"ore": flatOre(20)})
	cases := []struct {
		name string
		req  InvestRequest
		want error
	}{
		{"unknown ore", InvestRequest{Resource: "ruby", Amount: 100}, ErrUnknownResource},
		{"zero amount", InvestRequest{Resource: "ore", Amount: 0}, ErrInvalidAmount},
		{"negative amount", InvestRequest{Resource: "ore", Amount: -5}, ErrInvalidAmount},
		{"bad owner", InvestRequest{Resource: "ore", Amount: 100, Owner: "guild"}, ErrInvalidOwner},
		{"no company", InvestRequest{Resource: "ore", Amount: 100, Owner: OwnerCompany}, ErrNoCompany},
		{"below one unit", InvestRequest{Resource: "ore", Amount: 5}, ErrBelowOneUnit},
		{"too poor", InvestRequest{Resource: "ore", Amount: 1e9}, ErrInsufficientFunds},
	}
	for _, tc := range cases {
		if _, err := sim.Invest(epoch, tc.req); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
	if sim.State().Player.Balance != StarterBalance {
		t.Fatalf("failed investments changed balance to %v", sim.State().Player.Balance)
	}
	if len(sim.State().Investments) != 0 || len(sim.Shocks()) != 0 {
		t.Fatalf("failed investments left state behind")
	}
}

func TestSellAfterShocksSettle(t *testing.T) {
	sim := newTestSim(t, map[string]catalog.Ore{"ore": flatOre(20)})
	inv, err := sim.Invest(epoch, InvestRequest{Resource: "ore", Amount: 5_000})
	if err != nil {
		t.Fatalf("invest: %v", err)
	}
	sim.Advance(epoch.Add(2 * time.Minute))
	if em := sim.State().Resources["ore"].EventMultiplier; em != 1 {
		t.Fatalf("multiplier=%v want 1 once shocks expire", em)
	}
	if pl := sim.UnrealizedPL(inv); pl != 5_000 {
		t.Fatalf("unrealized=%v want 5000", pl)
	}
	proceeds, err := sim.SellInvestment(inv.ID)
	if err != nil {
		t.Fatalf("sell: %v", err)
	}
	if proceeds != 10_000 {
		t.Fatalf("proceeds=%v want 10000", proceeds)
	}
	if got := sim.State().Player.Balance; got != StarterBalance+5_000 {
		t.Fatalf("balance=%v want %v", got, StarterBalance+5_000)
	}
	if _, err := sim.SellInvestment(inv.ID); !errors.Is(err, ErrInvestmentNotFound) {
		t.Fatalf("expected ErrInvestmentNotFound, got %v", err)
	}
}

func TestSellRemovedResourceUsesBuyPrice(t *testing.T) {
	sim := newTestSim(t, map[string]catalog.Ore{"ore": flatOre(20), "coal": flatOre(5)})
	inv, _ := sim.Invest(epoch, InvestRequest{Resource: "ore", Amount: 1_000})
	sim.RemoveResource("ore")
	if len(sim.Shocks()) != 0 {
		t.Fatalf("shocks for removed resource still pending")
	}
	proceeds, err := sim.SellInvestment(inv.ID)
	if err != nil {
		t.Fatalf("sell: %v", err)
	}
	if proceeds != 1_000 {
		t.Fatalf("proceeds=%v want buy value 1000", proceeds)
	}
}

func TestCompanyInvestmentDoublesImpact(t *testing.T) {
	sim := newTestSim(t, map[string]catalog.Ore{"ore": flatOre(20)})
	c, err := sim.CreateCompany(epoch, "Bedrock")
	if err != nil {
		t.Fatalf("create company: %v", err)
	}
	c.NetWorth = 100_000
	inv, err := sim.Invest(epoch, InvestRequest{Resource: "ore", Amount: 60_000, Owner: OwnerCompany})
	if err != nil {
		t.Fatalf("invest: %v", err)
	}
	if inv.OwnerID != c.ID || c.NetWorth != 40_000 {
		t.Fatalf("company not debited: owner=%s net=%v", inv.OwnerID, c.NetWorth)
	}
	var spike, crash *Shock
	for _, sh := range sim.Shocks() {
		if sh.Shape == ShapeCrash {
			crash = sh
		} else {
			spike = sh
		}
	}
	if spike == nil || crash == nil {
		t.Fatalf("expected spike and crash")
	}
	if !approx(spike.Magnitude, 0.7) || !approx(crash.Magnitude, 0.5) {
		t.Fatalf("spike=%v crash=%v want 0.7 and 0.5", spike.Magnitude, crash.Magnitude)
	}
	if !crash.Start.Equal(epoch.Add(25*time.Second)) || crash.Duration != 30*time.Second {
		t.Fatalf("crash should start after the spike and recover over 30s: %+v", crash)
	}
}

func TestBands(t *testing.T) {
	cases := []struct {
		amount float64
		spike  float64
		crash  float64
	}{
		{4_999, 0.05, 0.05},
		{5_000, 0.15, 0.12},
		{49_999, 0.15, 0.12},
		{50_000, 0.35, 0.25},
	}
	for _, tc := range cases {
		b := bandFor(tc.amount)
		if b.Spike != tc.spike || b.Crash != tc.crash {
			t.Fatalf("amount %v: band %+v", tc.amount, b)
		}
	}
}
