package game

import "testing"

func TestPriceScenarioCoal(t *testing.T) {
	r := &Resource{Key: "coal", BaseMin: 10, BaseMax: 20, StockLevel: 0.7, EventMultiplier: 1}
	if got := Price(r, 1); !approx(got, 13) {
		t.Fatalf("price=%v want 13", got)
	}
	if got := Price(r, 2); !approx(got, 26) {
		t.Fatalf("tier 2 price=%v want 26", got)
	}
	r.EventMultiplier = 1.5
	if got := Price(r, 1); !approx(got, 19.5) {
		t.Fatalf("shocked price=%v want 19.5", got)
	}
}

func TestPriceMonotonicInScarcity(t *testing.T) {
	r := &Resource{BaseMin: 50, BaseMax: 120, EventMultiplier: 1}
	prev := 0.0
	for stock := 1.0; stock >= MinStockLevel; stock -= 0.01 {
		r.StockLevel = stock
		p := Price(r, 1)
		if p < prev {
			t.Fatalf("price fell from %v to %v as stock dropped to %v", prev, p, stock)
		}
		prev = p
	}
}

func TestPriceNeverBelowFloor(t *testing.T) {
	cases := []*Resource{
		{BaseMin: 0, BaseMax: 0, StockLevel: 0.5, EventMultiplier: 1},
		{BaseMin: 10, BaseMax: 20, StockLevel: 0.5, EventMultiplier: 0},
		{BaseMin: 10, BaseMax: 20, StockLevel: 0.5, EventMultiplier: 1e-9},
	}
	for i, r := range cases {
		if got := Price(r, 0.1); got < MinPrice {
			t.Fatalf("case %d: price=%v below floor", i, got)
		}
	}
}
