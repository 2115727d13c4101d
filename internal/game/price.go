package game

// Scarcity is 1 - stockLevel clamped to [0,1].
func Scarcity(r *Resource) float64 {
	return clamp(1-r.StockLevel, 0, 1)
}

// Price is the per-unit price of r at a tier multiplier. It depends only on
// the resource's current state and is never below MinPrice.
func Price(r *Resource, tier float64) float64 {
	base := lerp(r.BaseMin, r.BaseMax, Scarcity(r))
	em := r.EventMultiplier
	if em <= 0 || !finite(em) {
		em = 1
	}
	p := base * tier * em
	if !finite(p) || p < MinPrice {
		return MinPrice
	}
	return p
}
