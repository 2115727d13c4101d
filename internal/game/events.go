package game

import (
	"container/heap"
	"sort"
	"time"
)

// ShockShape is the decay profile of a price shock.
type ShockShape string

const (
	// ShapeDecay starts at 1+Magnitude and falls linearly to 1 over Duration.
	ShapeDecay ShockShape = "decay"
	// ShapeCrash drops to 1-Magnitude, holds for Hold, then climbs linearly
	// back to 1 over Duration.
	ShapeCrash ShockShape = "crash"
)

const (
	defaultShockSteps = 10
	maxShockSteps     = 100
	minShockStep      = 10 * time.Millisecond
)

// Shock is one scheduled, self-expiring multiplier on a resource price.
type Shock struct {
	ID        string        `json:"id"`
	Resource  string        `json:"resource"`
	Shape     ShockShape    `json:"shape"`
	Magnitude float64       `json:"magnitude"`
	Start     time.Time     `json:"start"`
	Hold      time.Duration `json:"hold"`
	Duration  time.Duration `json:"duration"`
	Steps     int           `json:"steps"`
	Step      int           `json:"step"`
	Active    bool          `json:"active"`
	Factor    float64       `json:"factor"`
	NextAt    time.Time     `json:"nextAt"`
	Source    string        `json:"source"`

	seq   uint64
	index int
}

func (s *Shock) initialFactor() float64 {
	if s.Shape == ShapeCrash {
		return 1 - s.Magnitude
	}
	return 1 + s.Magnitude
}

func (s *Shock) stepInterval() time.Duration {
	return s.Duration / time.Duration(s.Steps)
}

func (s *Shock) rampStart() time.Time {
	if s.Shape == ShapeCrash {
		return s.Start.Add(s.Hold)
	}
	return s.Start
}

// fire advances the shock by one step and reports whether it has finished.
func (s *Shock) fire() bool {
	if !s.Active {
		s.Active = true
		s.Factor = s.initialFactor()
		s.NextAt = s.rampStart().Add(s.stepInterval())
		return false
	}
	s.Step++
	if s.Step >= s.Steps {
		s.Factor = 1
		return true
	}
	left := 1 - float64(s.Step)/float64(s.Steps)
	if s.Shape == ShapeCrash {
		s.Factor = 1 - s.Magnitude*left
	} else {
		s.Factor = 1 + s.Magnitude*left
	}
	s.NextAt = s.rampStart().Add(time.Duration(s.Step+1) * s.stepInterval())
	return false
}

type shockQueue []*Shock

func (q shockQueue) Len() int { return len(q) }

func (q shockQueue) Less(i, j int) bool {
	if q[i].NextAt.Equal(q[j].NextAt) {
		return q[i].seq < q[j].seq
	}
	return q[i].NextAt.Before(q[j].NextAt)
}

func (q shockQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *shockQueue) Push(x any) {
	s := x.(*Shock)
	s.index = len(*q)
	*q = append(*q, s)
}

func (q *shockQueue) Pop() any {
	old := *q
	n := len(old)
	s := old[n-1]
	old[n-1] = nil
	s.index = -1
	*q = old[:n-1]
	return s
}

// Scheduler keeps pending shocks ordered by their next fire time. It is
// advanced explicitly; nothing fires on its own.
type Scheduler struct {
	queue shockQueue
	seq   uint64
}

func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// Schedule queues a shock. Invalid shapes, non-positive durations and
// step counts too fine to fire are normalised rather than rejected.
func (sc *Scheduler) Schedule(s *Shock) {
	if s.Steps <= 0 {
		s.Steps = defaultShockSteps
	}
	if s.Duration <= 0 {
		s.Duration = time.Second
	}
	// A shock fires at most maxShockSteps times, at least minShockStep apart.
	if s.Steps > maxShockSteps {
		s.Steps = maxShockSteps
	}
	if s.Duration/time.Duration(s.Steps) < minShockStep {
		s.Steps = max(1, int(s.Duration/minShockStep))
		s.Duration = max(s.Duration, minShockStep)
	}
	if s.Hold < 0 {
		s.Hold = 0
	}
	if s.Shape != ShapeCrash {
		s.Shape = ShapeDecay
	}
	if s.Shape == ShapeCrash {
		s.Magnitude = clamp(s.Magnitude, 0, 0.99)
	} else if s.Magnitude < 0 {
		s.Magnitude = 0
	}
	if s.Step < 0 || s.Step >= s.Steps {
		s.Step = 0
		s.Active = false
	}
	if !s.Active {
		s.Factor = 1
		s.NextAt = s.Start
	}
	sc.seq++
	s.seq = sc.seq
	heap.Push(&sc.queue, s)
}

// Advance fires every shock due at or before now and returns the sorted
// keys of resources whose multiplier changed.
func (sc *Scheduler) Advance(now time.Time) []string {
	touched := make(map[string]struct{})
	for len(sc.queue) > 0 && !sc.queue[0].NextAt.After(now) {
		s := sc.queue[0]
		touched[s.Resource] = struct{}{}
		if s.fire() {
			heap.Pop(&sc.queue)
			continue
		}
		heap.Fix(&sc.queue, 0)
	}
	keys := make([]string, 0, len(touched))
	for k := range touched {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Multiplier is the product of all active shock factors on a resource.
// Factors are multiplied in sorted order so the result does not depend on
// heap layout.
func (sc *Scheduler) Multiplier(resource string) float64 {
	var factors []float64
	for _, s := range sc.queue {
		if s.Resource == resource && s.Active {
			factors = append(factors, s.Factor)
		}
	}
	sort.Float64s(factors)
	m := 1.0
	for _, f := range factors {
		m *= f
	}
	return m
}

// CancelResource drops every shock targeting resource.
func (sc *Scheduler) CancelResource(resource string) int {
	kept := sc.queue[:0]
	n := 0
	for _, s := range sc.queue {
		if s.Resource == resource {
			n++
			continue
		}
		kept = append(kept, s)
	}
	for i := len(kept); i < len(sc.queue); i++ {
		sc.queue[i] = nil
	}
	sc.queue = kept
	for i, s := range sc.queue {
		s.index = i
	}
	heap.Init(&sc.queue)
	return n
}

// Pending returns the queued shocks ordered by fire time.
func (sc *Scheduler) Pending() []*Shock {
	out := make([]*Shock, len(sc.queue))
	copy(out, sc.queue)
	sort.Slice(out, func(i, j int) bool { return shockQueue(out).Less(i, j) })
	return out
}

func (sc *Scheduler) Len() int { return len(sc.queue) }
