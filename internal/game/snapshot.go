package game

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"oremarket/internal/catalog"
)

func (s *Simulation) frozen() State {
	st := *s.state
	st.Shocks = s.sched.Pending()
	return st
}

// Snapshot encodes the full state, pending shocks included.
func (s *Simulation) Snapshot() ([]byte, error) {
	return json.Marshal(s.frozen())
}

// Export is Snapshot formatted for people.
func (s *Simulation) Export() ([]byte, error) {
	return json.MarshalIndent(s.frozen(), "", "  ")
}

// Restore replaces the state with a decoded snapshot after repairing it.
// On error the current state is left untouched.
func (s *Simulation) Restore(raw []byte, now time.Time) error {
	var st State
	if err := json.Unmarshal(raw, &st); err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	if st.Player == nil && st.Resources == nil && st.Orders == nil {
		return fmt.Errorf("%w: no game state found", ErrCorruptSnapshot)
	}
	s.state = &st
	s.sched = NewScheduler()
	s.repair(now)
	return nil
}

// repair fills defaults and clamps every field so a hand-edited or partly
// written snapshot still loads.
func (s *Simulation) repair(now time.Time) {
	st := s.state
	st.Version = stateVersion

	if st.Player == nil {
		st.Player = &Player{ID: newID("p"), Balance: StarterBalance}
	}
	p := st.Player
	if p.ID == "" {
		p.ID = newID("p")
	}
	if p.Name == "" {
		p.Name = s.opts.PlayerName
	}
	if !finite(p.Balance) {
		p.Balance = 0
	}
	if p.XP < 0 {
		p.XP = 0
	}
	if p.Level < 1 {
		p.Level = 1
	}
	p.Level = max(p.Level, s.curve.LevelFor(p.XP))

	if st.Resources == nil {
		st.Resources = make(map[string]*Resource)
	}
	for key, ore := range s.ores {
		if _, ok := st.Resources[key]; !ok {
			st.Resources[key] = newResource(key, ore)
		}
	}
	for key, r := range st.Resources {
		if r == nil {
			delete(st.Resources, key)
			continue
		}
		r.Key = key
		if ore, ok := s.ores[key]; ok {
			r.applyDefinition(ore)
		}
		repairResource(r)
	}

	orders := make([]*Order, 0, len(st.Orders))
	for _, o := range st.Orders {
		if o == nil || o.Qty <= 0 || o.Tier <= 0 {
			continue
		}
		if _, ok := st.Resources[o.Resource]; !ok {
			continue
		}
		if o.Completed {
			o.Accepted = true
		}
		if o.OwnerType != OwnerCompany {
			o.OwnerType = OwnerPlayer
		}
		orders = append(orders, o)
	}
	st.Orders = orders

	invs := make([]*Investment, 0, len(st.Investments))
	for _, inv := range st.Investments {
		if inv == nil || inv.Qty <= 0 || !finite(inv.BuyPrice) || inv.BuyPrice < 0 {
			continue
		}
		if inv.OwnerType != OwnerCompany {
			inv.OwnerType = OwnerPlayer
		}
		invs = append(invs, inv)
	}
	st.Investments = invs

	comps := make([]*Company, 0, len(st.Companies))
	for _, c := range st.Companies {
		if c == nil || c.ID == "" {
			continue
		}
		if c.Members == nil {
			c.Members = []string{}
		}
		if !finite(c.NetWorth) {
			c.NetWorth = -1
		}
		comps = append(comps, c)
	}
	st.Companies = comps
	if st.company(p.CompanyID) == nil {
		p.CompanyID = ""
	}

	if st.Settings.TickMs < MinTickInterval {
		st.Settings.TickMs = s.opts.TickMs
	}
	st.Settings.Rarity = NormalizeRarity(st.Settings.Rarity)
	if st.LastTick.IsZero() {
		st.LastTick = now
	}

	for _, sh := range st.Shocks {
		if sh == nil {
			continue
		}
		if _, ok := st.Resources[sh.Resource]; !ok {
			continue
		}
		s.schedule(sh)
	}
	st.Shocks = nil
	for key, r := range st.Resources {
		r.EventMultiplier = s.sched.Multiplier(key)
	}

	s.settleCompanies()
}

func repairResource(r *Resource) {
	if r.MaxSupply <= 0 || !finite(r.MaxSupply) {
		r.MaxSupply = catalog.DefaultMaxSupply
	}
	if r.BaseMax < r.BaseMin {
		r.BaseMin, r.BaseMax = r.BaseMax, r.BaseMin
	}
	if !finite(r.StockLevel) || r.StockLevel <= 0 {
		r.StockLevel = TargetStock
	}
	r.StockLevel = clamp(r.StockLevel, MinStockLevel, MaxStockLevel)
	if r.History == nil {
		r.History = []float64{}
	}
	if over := len(r.History) - MaxHistory; over > 0 {
		r.History = append([]float64(nil), r.History[over:]...)
	}
	kept := r.History[:0]
	for _, h := range r.History {
		if finite(h) {
			kept = append(kept, math.Max(h, MinPrice))
		}
	}
	r.History = kept
}
