package random

// Weighted is one candidate in a weighted draw.
type Weighted[T any] struct {
	Value  T
	Weight float64
}

// Pick draws one candidate with probability proportional to its weight.
// Negative weights count as zero. When every weight is zero the first
// candidate is returned. roll must be in [0,1). ok is false only for an
// empty candidate list.
func Pick[T any](candidates []Weighted[T], roll float64) (value T, ok bool) {
	if len(candidates) == 0 {
		return value, false
	}
	sum := 0.0
	for _, c := range candidates {
		if c.Weight > 0 {
			sum += c.Weight
		}
	}
	if sum <= 0 {
		return candidates[0].Value, true
	}
	pick := roll * sum
	for _, c := range candidates {
		if c.Weight <= 0 {
			continue
		}
		pick -= c.Weight
		if pick < 0 {
			return c.Value, true
		}
	}
	// Rounding can leave pick at ~0 after the loop; the last positive
	// candidate owns that slice of the range.
	for i := len(candidates) - 1; i >= 0; i-- {
		if candidates[i].Weight > 0 {
			return candidates[i].Value, true
		}
	}
	return candidates[0].Value, true
}
