package game

import (
	"fmt"
	"math"
	"time"

	"oremarket/internal/random"
)

// Tiers are the order size multipliers, smallest first.
var Tiers = []float64{0.1, 0.25, 0.5, 1, 2, 5}

// TierUnlockLevel is the player level at which tier becomes available.
func TierUnlockLevel(tier float64) int {
	return int(math.Max(1, math.Round(3*math.Log2(tier+1))))
}

// UnlockedTiers lists the tiers available at level.
func UnlockedTiers(level int) []float64 {
	out := make([]float64, 0, len(Tiers))
	for _, t := range Tiers {
		if TierUnlockLevel(t) <= level {
			out = append(out, t)
		}
	}
	return out
}

func tierUnlocked(tier float64, level int) bool {
	for _, t := range UnlockedTiers(level) {
		if t == tier {
			return true
		}
	}
	return false
}

// OrderRequest describes a manually generated order. Zero Tier picks one
// weighted toward the player's level; empty Resource draws one.
type OrderRequest struct {
	Mode     OrderMode `json:"mode"`
	Tier     float64   `json:"tier,omitempty"`
	Resource string    `json:"resource,omitempty"`
}

// pickTier favours tiers close to the player's level.
func (s *Simulation) pickTier() float64 {
	level := s.state.Player.Level
	unlocked := UnlockedTiers(level)
	candidates := make([]random.Weighted[float64], len(unlocked))
	for i, t := range unlocked {
		want := float64(TierUnlockLevel(t))
		factor := clamp((float64(level)-want)/(want+3), -1, 1)
		candidates[i] = random.Weighted[float64]{
			Value:  t,
			Weight: math.Max(0.1, (1/float64(i+1))*(1+1.5*factor)),
		}
	}
	t, _ := random.Pick(candidates, s.rng.Float64())
	return t
}

// pickResource draws a resource; common, well-stocked ores come up more
// often than scarce ones.
func (s *Simulation) pickResource() (*Resource, bool) {
	keys := s.resourceKeys()
	candidates := make([]random.Weighted[string], len(keys))
	for i, k := range keys {
		r := s.state.Resources[k]
		candidates[i] = random.Weighted[string]{
			Value:  k,
			Weight: (r.Commonness/100)*r.StockLevel + 0.2*s.rng.Float64(),
		}
	}
	key, ok := random.Pick(candidates, s.rng.Float64())
	if !ok {
		return nil, false
	}
	return s.state.Resources[key], true
}

func (s *Simulation) orderQty(r *Resource, tier float64, mode OrderMode) int64 {
	roll := s.rng.Float64()
	if mode == ModeCompany {
		base := math.Round(r.MaxSupply * 0.05)
		return int64(clamp(math.Round(base*(tier*2)*(0.8+roll*1.6)), MinBulkQty, MaxBulkQty))
	}
	m := 4.0
	switch {
	case tier <= 0.25:
		m = 1
	case tier <= 0.5:
		m = 2
	}
	base := math.Round(r.MaxSupply * 0.001)
	return int64(clamp(math.Round(base*m*(0.5+roll*2)), MinSoloQty, MaxSoloQty))
}

// GenerateOrder creates a pending order and prepends it to the board.
func (s *Simulation) GenerateOrder(now time.Time, req OrderRequest) (*Order, error) {
	mode := req.Mode
	if mode == "" {
		mode = ModeSolo
	}
	if mode != ModeSolo && mode != ModeCompany {
		return nil, ErrInvalidMode
	}
	p := s.state.Player
	if mode == ModeCompany && s.state.company(p.CompanyID) == nil {
		return nil, ErrNoCompany
	}
	if req.Tier != 0 && !tierUnlocked(req.Tier, p.Level) {
		return nil, fmt.Errorf("%w: %g unlocks at level %d", ErrInvalidTier, req.Tier, TierUnlockLevel(req.Tier))
	}

	var r *Resource
	if req.Resource != "" {
		var err error
		if r, err = s.Resource(req.Resource); err != nil {
			return nil, err
		}
	}
	tier := req.Tier
	if tier == 0 {
		tier = s.pickTier()
	}
	if r == nil {
		var ok bool
		if r, ok = s.pickResource(); !ok {
			return nil, ErrNoResources
		}
	}
	return s.placeOrder(now, r, tier, mode), nil
}

// AutoOrder generates an order with a uniformly drawn unlocked tier. Company
// scale is chosen a fifth of the time when the player has a company.
func (s *Simulation) AutoOrder(now time.Time) (*Order, error) {
	s.state.LastAutoOrder = now
	unlocked := UnlockedTiers(s.state.Player.Level)
	tier := unlocked[s.rng.Intn(len(unlocked))]
	mode := ModeSolo
	if s.rng.Float64() < 0.2 && s.state.company(s.state.Player.CompanyID) != nil {
		mode = ModeCompany
	}
	r, ok := s.pickResource()
	if !ok {
		return nil, ErrNoResources
	}
	return s.placeOrder(now, r, tier, mode), nil
}

func (s *Simulation) placeOrder(now time.Time, r *Resource, tier float64, mode OrderMode) *Order {
	qty := s.orderQty(r, tier, mode)
	unit := Price(r, tier)
	o := &Order{
		ID:            newID("o"),
		Resource:      r.Key,
		Tier:          tier,
		Qty:           qty,
		PriceAtCreate: unit,
		Total:         math.Max(1, math.Round(unit*float64(qty))),
		OwnerType:     OwnerPlayer,
		CreatedAt:     now,
	}
	if mode == ModeCompany {
		o.OwnerType = OwnerCompany
		o.CompanyID = s.state.Player.CompanyID
	}
	s.state.Orders = append([]*Order{o}, s.state.Orders...)
	return o
}

func (s *Simulation) order(id string) (int, *Order, error) {
	i := s.state.orderIndex(id)
	if i < 0 {
		return -1, nil, fmt.Errorf("%w: %s", ErrOrderNotFound, id)
	}
	return i, s.state.Orders[i], nil
}

// AcceptOrder commits to a pending order and locks its total.
func (s *Simulation) AcceptOrder(now time.Time, id string) (*Order, error) {
	_, o, err := s.order(id)
	if err != nil {
		return nil, err
	}
	if o.Accepted || o.Completed {
		return nil, ErrOrderNotPending
	}
	o.Accepted = true
	o.LockedPrice = o.Total
	at := now
	o.AcceptedAt = &at
	return o, nil
}

// CompleteOrder pays out an accepted order at the current price. Company
// orders are multiplied by the company's prosperity factor and credited to
// the company; if that company no longer exists the player is paid.
func (s *Simulation) CompleteOrder(now time.Time, id string) (*Order, error) {
	_, o, err := s.order(id)
	if err != nil {
		return nil, err
	}
	if o.Completed {
		return nil, ErrOrderCompleted
	}
	if !o.Accepted {
		return nil, ErrOrderNotAccepted
	}
	r, err := s.Resource(o.Resource)
	if err != nil {
		return nil, err
	}

	unit := Price(r, o.Tier)
	var comp *Company
	mult := 1.0
	if o.OwnerType == OwnerCompany {
		comp = s.state.company(o.CompanyID)
		mult = ProsperityFactor(comp)
	}
	payout := math.Round(unit * float64(o.Qty) * mult)

	p := s.state.Player
	if comp != nil {
		before := ProsperityFactor(comp)
		comp.NetWorth += payout
		s.emit(Event{Kind: EventBulkComplete, Company: comp.Name, Qty: o.Qty, Ore: o.Resource, Payout: payout})
		s.checkPFMilestone(comp, before)
	} else {
		p.Balance += payout
		s.emit(Event{Kind: EventOrderComplete, Player: p.Name, Qty: o.Qty, Ore: o.Resource, Tier: o.Tier, Payout: payout})
	}

	r.StockLevel = clamp(r.StockLevel-0.25*float64(o.Qty)/r.MaxSupply, MinStockLevel, MaxStockLevel)

	o.Completed = true
	at := now
	o.CompletedAt = &at
	o.FinalPayout = payout
	s.addXP(int64(math.Max(1, math.Round(payout/1000))))
	s.checkNetWorthMilestone()
	return o, nil
}

// DeclineXPLoss is the XP penalty for declining an order at level.
func DeclineXPLoss(tier float64, qty int64, level int) int64 {
	return int64(math.Max(1, math.Round(tier*float64(qty)/float64(level+5))))
}

// DeclineOrder removes a pending order and charges an XP penalty. It
// returns the XP lost.
func (s *Simulation) DeclineOrder(id string) (int64, error) {
	i, o, err := s.order(id)
	if err != nil {
		return 0, err
	}
	if o.Accepted || o.Completed {
		return 0, ErrOrderNotPending
	}
	p := s.state.Player
	loss := DeclineXPLoss(o.Tier, o.Qty, p.Level)
	p.XP = max(0, p.XP-loss)
	s.removeOrderAt(i)
	return loss, nil
}

// CancelOrder drops an accepted order with no penalty and no payout.
func (s *Simulation) CancelOrder(id string) error {
	i, o, err := s.order(id)
	if err != nil {
		return err
	}
	if o.Completed {
		return ErrOrderCompleted
	}
	if !o.Accepted {
		return ErrOrderNotAccepted
	}
	s.removeOrderAt(i)
	return nil
}

func (s *Simulation) removeOrderAt(i int) {
	s.state.Orders = append(s.state.Orders[:i], s.state.Orders[i+1:]...)
}
