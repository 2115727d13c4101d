package game

import (
	"fmt"
	mathrand "math/rand"
	"sort"
	"time"

	"github.com/google/uuid"

	"oremarket/internal/catalog"
	"oremarket/internal/random"
)

// Options configures a new Simulation.
type Options struct {
	Rand       *mathrand.Rand
	Curve      XPCurve
	Ores       map[string]catalog.Ore
	Server     catalog.ServerData
	PlayerName string
	TickMs     int64
	Rarity     string
	Now        time.Time
}

// Simulation owns the whole market state. It is not safe for concurrent
// use; Service serialises access to it.
type Simulation struct {
	state  *State
	sched  *Scheduler
	rng    *mathrand.Rand
	curve  XPCurve
	ores   map[string]catalog.Ore
	server catalog.ServerData
	opts   Options
	events []Event
}

// New returns a simulation seeded with a fresh default state.
func New(opts Options) *Simulation {
	if opts.Rand == nil {
		opts.Rand = random.NewRand()
	}
	opts.Curve = ParseCurve(string(opts.Curve))
	if opts.PlayerName == "" {
		opts.PlayerName = DefaultPlayer
	}
	if opts.TickMs < MinTickInterval {
		opts.TickMs = DefaultTickMs
	}
	opts.Rarity = NormalizeRarity(opts.Rarity)
	if opts.Ores == nil {
		opts.Ores, _ = catalog.Resolve(catalog.Defaults())
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	s := &Simulation{
		rng:    opts.Rand,
		curve:  opts.Curve,
		ores:   opts.Ores,
		server: opts.Server,
		opts:   opts,
	}
	s.Reset(opts.Now)
	return s
}

// Reset replaces the state with a freshly seeded one.
func (s *Simulation) Reset(now time.Time) {
	s.state = &State{
		Version: stateVersion,
		Player: &Player{
			ID:      newID("p"),
			Name:    s.opts.PlayerName,
			Balance: StarterBalance,
			Level:   1,
		},
		Resources:   make(map[string]*Resource),
		Orders:      []*Order{},
		Companies:   []*Company{},
		Investments: []*Investment{},
		Settings: Settings{
			AutoTick:   true,
			AutoOrders: true,
			TickMs:     s.opts.TickMs,
			Rarity:     s.opts.Rarity,
		},
		LastTick: now,
	}
	s.sched = NewScheduler()
	for key, ore := range s.ores {
		s.state.Resources[key] = newResource(key, ore)
	}
}

// State exposes the current state for read-only views.
func (s *Simulation) State() *State { return s.state }

// Curve is the configured XP curve.
func (s *Simulation) Curve() XPCurve { return s.curve }

// Server is the placeholder multi-player listing.
func (s *Simulation) Server() catalog.ServerData { return s.server }

// Ores returns the resolved catalog the simulation was built with.
func (s *Simulation) Ores() map[string]catalog.Ore { return s.ores }

// Drain returns and clears the notifications emitted since the last call.
func (s *Simulation) Drain() []Event {
	out := s.events
	s.events = nil
	return out
}

func (s *Simulation) emit(ev Event) {
	s.events = append(s.events, ev)
}

// ApplyCatalog adds new ores and refreshes the definitions of existing ones
// while keeping their market state. Resources absent from ores are kept.
func (s *Simulation) ApplyCatalog(ores map[string]catalog.Ore) {
	s.ores = ores
	for key, ore := range ores {
		if r, ok := s.state.Resources[key]; ok {
			r.applyDefinition(ore)
			continue
		}
		s.state.Resources[key] = newResource(key, ore)
	}
}

// RemoveResource deletes a resource and cancels its pending shocks. Open
// orders and investments on it stay until they are resolved.
func (s *Simulation) RemoveResource(key string) bool {
	key = catalog.NormalizeKey(key)
	if _, ok := s.state.Resources[key]; !ok {
		return false
	}
	delete(s.state.Resources, key)
	delete(s.ores, key)
	s.sched.CancelResource(key)
	return true
}

// Resource looks up a resource, suggesting a close key on a miss.
func (s *Simulation) Resource(key string) (*Resource, error) {
	key = catalog.NormalizeKey(key)
	if r, ok := s.state.Resources[key]; ok {
		return r, nil
	}
	if sug := catalog.Suggest(key, s.resourceKeys()); sug != "" {
		return nil, fmt.Errorf("%w: %q (did you mean %q?)", ErrUnknownResource, key, sug)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownResource, key)
}

// PriceOf is the current per-unit price of a resource at a tier.
func (s *Simulation) PriceOf(key string, tier float64) (float64, error) {
	r, err := s.Resource(key)
	if err != nil {
		return 0, err
	}
	return Price(r, tier), nil
}

func (s *Simulation) resourceKeys() []string {
	keys := make([]string, 0, len(s.state.Resources))
	for k := range s.state.Resources {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Advance fires due shocks and refreshes the affected multipliers.
func (s *Simulation) Advance(now time.Time) {
	for _, key := range s.sched.Advance(now) {
		r, ok := s.state.Resources[key]
		if !ok {
			s.sched.CancelResource(key)
			continue
		}
		r.EventMultiplier = s.sched.Multiplier(key)
	}
}

// Shocks returns the pending shocks ordered by fire time.
func (s *Simulation) Shocks() []*Shock { return s.sched.Pending() }

func (s *Simulation) schedule(sh *Shock) {
	if sh.ID == "" {
		sh.ID = newID("sh")
	}
	s.sched.Schedule(sh)
}

// durationBetween draws a duration uniformly from [lo, hi).
func (s *Simulation) durationBetween(lo, hi time.Duration) time.Duration {
	return lo + time.Duration(s.rng.Float64()*float64(hi-lo))
}

func newID(prefix string) string {
	return prefix + "_" + uuid.NewString()
}
