package game

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net/url"
	"strings"
	"sync"
	"time"

	"oremarket/internal/catalog"
	"oremarket/internal/store"
)

// Notifier delivers events to a webhook. Implementations swallow failures.
type Notifier interface {
	Notify(ctx context.Context, url string, ev Event)
}

// ServiceConfig holds the loop cadences.
type ServiceConfig struct {
	FrameEvery     time.Duration
	AutoOrderEvery time.Duration
	AutosaveEvery  time.Duration
	NotifyTimeout  time.Duration
	Now            func() time.Time
}

// Service serialises access to a Simulation, persists it after every
// mutation and forwards its events to the notifier.
type Service struct {
	mu       sync.Mutex
	sim      *Simulation
	base     map[string]catalog.Ore
	host     map[string]catalog.Ore
	store    store.Store
	notifier Notifier
	log      *slog.Logger
	cfg      ServiceConfig
	webhook  string
	lastSave time.Time
	closed   bool
	wg       sync.WaitGroup
}

func NewService(st store.Store, notifier Notifier, logger *slog.Logger, opts Options, cfg ServiceConfig) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.FrameEvery <= 0 {
		cfg.FrameEvery = 250 * time.Millisecond
	}
	if cfg.AutoOrderEvery <= 0 {
		cfg.AutoOrderEvery = 10 * time.Second
	}
	if cfg.AutosaveEvery <= 0 {
		cfg.AutosaveEvery = 10 * time.Second
	}
	if cfg.NotifyTimeout <= 0 {
		cfg.NotifyTimeout = 10 * time.Second
	}
	if opts.Now.IsZero() {
		opts.Now = cfg.Now()
	}
	sim := New(opts)
	return &Service{
		sim:      sim,
		base:     maps.Clone(sim.Ores()),
		host:     make(map[string]catalog.Ore),
		store:    st,
		notifier: notifier,
		log:      logger,
		cfg:      cfg,
	}
}

// Load restores the host catalog, the webhook URL and the saved game. A
// corrupt save is replaced by a fresh game.
func (s *Service) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.cfg.Now()

	raw, err := s.store.Get(ctx, store.KeyHostOres)
	switch {
	case err == nil:
		var host map[string]catalog.Ore
		if err := json.Unmarshal(raw, &host); err != nil {
			s.log.Warn("host ores unreadable, ignoring", "err", err)
		} else {
			s.host = host
		}
	case errors.Is(err, store.ErrNotFound):
	case errors.Is(err, store.ErrCorrupt):
		s.log.Warn("host ores corrupt, ignoring", "err", err)
	default:
		return fmt.Errorf("load host ores: %w", err)
	}
	s.applyCatalogLocked()

	raw, err = s.store.Get(ctx, store.KeyWebhook)
	switch {
	case err == nil:
		s.webhook = strings.TrimSpace(string(raw))
	case errors.Is(err, store.ErrNotFound), errors.Is(err, store.ErrCorrupt):
	default:
		return fmt.Errorf("load webhook: %w", err)
	}

	raw, err = s.store.Get(ctx, store.KeyProgress)
	switch {
	case err == nil:
		if err := s.sim.Restore(raw, now); err != nil {
			s.log.Warn("saved game unreadable, starting fresh", "err", err)
			s.sim.Reset(now)
		}
	case errors.Is(err, store.ErrNotFound):
		s.log.Info("no saved game, starting fresh")
	case errors.Is(err, store.ErrCorrupt):
		s.log.Warn("saved game corrupt, starting fresh", "err", err)
		s.sim.Reset(now)
	default:
		return fmt.Errorf("load game: %w", err)
	}
	s.sim.Drain()
	return s.saveLocked(ctx, now)
}

func (s *Service) applyCatalogLocked() {
	resolved, errs := catalog.Resolve(s.base, s.host)
	for _, err := range errs {
		s.log.Warn("skipping invalid ore", "err", err)
	}
	s.sim.ApplyCatalog(resolved)
}

func (s *Service) saveLocked(ctx context.Context, now time.Time) error {
	raw, err := s.sim.Snapshot()
	if err != nil {
		return fmt.Errorf("encode game: %w", err)
	}
	if err := s.store.Put(ctx, store.KeyProgress, raw); err != nil {
		return fmt.Errorf("save game: %w", err)
	}
	s.lastSave = now
	return nil
}

// mutate runs fn under the lock, then saves and notifies. A failed save is
// logged, the mutation stands.
func (s *Service) mutate(ctx context.Context, action string, fn func(now time.Time) error) error {
	s.mu.Lock()
	now := s.cfg.Now()
	s.sim.Advance(now)
	if err := fn(now); err != nil {
		s.mu.Unlock()
		return err
	}
	s.sim.settleCompanies()
	if err := s.saveLocked(ctx, now); err != nil {
		s.log.Error("persist failed", "action", action, "err", err)
	}
	events := s.sim.Drain()
	s.dispatchLocked(events)
	s.mu.Unlock()

	s.log.Debug("state mutated", "action", action, "events", len(events))
	return nil
}

// dispatchLocked hands events to the notifier in the background. Events
// raised after Run has shut down are dropped.
func (s *Service) dispatchLocked(events []Event) {
	hook := s.webhook
	if s.closed || s.notifier == nil || hook == "" || len(events) == 0 {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for _, ev := range events {
			ctx, cancel := context.WithTimeout(context.Background(), s.cfg.NotifyTimeout)
			s.notifier.Notify(ctx, hook, ev)
			cancel()
		}
	}()
}

// Wait blocks until in-flight notifications have been handed off.
func (s *Service) Wait() { s.wg.Wait() }

func (s *Service) read(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sim.Advance(s.cfg.Now())
	fn()
}

func (s *Service) Dashboard() (out Dashboard) {
	s.read(func() { out = s.sim.Dashboard() })
	return out
}

func (s *Service) Market() (out []ResourceView) {
	s.read(func() { out = s.sim.Market() })
	return out
}

func (s *Service) ResourceDetail(key string) (out ResourceView, err error) {
	s.read(func() { out, err = s.sim.ResourceDetail(key) })
	return out, err
}

func (s *Service) Orders() (out []OrderView) {
	s.read(func() { out = s.sim.Orders() })
	return out
}

func (s *Service) Investments() (out []InvestmentView) {
	s.read(func() { out = s.sim.Investments() })
	return out
}

func (s *Service) Companies() (out []CompanyListing) {
	s.read(func() { out = s.sim.Companies() })
	return out
}

func (s *Service) Leaderboard() (out Leaderboard) {
	s.read(func() { out = s.sim.Leaderboard() })
	return out
}

func (s *Service) Settings() (out Settings) {
	s.read(func() { out = s.sim.State().Settings })
	return out
}

// Tick runs one market step on demand.
func (s *Service) Tick(ctx context.Context) ([]ResourceView, error) {
	var out []ResourceView
	err := s.mutate(ctx, "tick", func(now time.Time) error {
		s.sim.Tick(now)
		out = s.sim.Market()
		return nil
	})
	return out, err
}

func (s *Service) GenerateOrder(ctx context.Context, req OrderRequest) (OrderView, error) {
	var out OrderView
	err := s.mutate(ctx, "order.generate", func(now time.Time) error {
		o, err := s.sim.GenerateOrder(now, req)
		if err != nil {
			return err
		}
		out = s.sim.orderView(o)
		return nil
	})
	return out, err
}

func (s *Service) AcceptOrder(ctx context.Context, id string) (OrderView, error) {
	var out OrderView
	err := s.mutate(ctx, "order.accept", func(now time.Time) error {
		o, err := s.sim.AcceptOrder(now, id)
		if err != nil {
			return err
		}
		out = s.sim.orderView(o)
		return nil
	})
	return out, err
}

func (s *Service) CompleteOrder(ctx context.Context, id string) (OrderView, error) {
	var out OrderView
	err := s.mutate(ctx, "order.complete", func(now time.Time) error {
		o, err := s.sim.CompleteOrder(now, id)
		if err != nil {
			return err
		}
		out = s.sim.orderView(o)
		return nil
	})
	return out, err
}

func (s *Service) DeclineOrder(ctx context.Context, id string) (int64, error) {
	var lost int64
	err := s.mutate(ctx, "order.decline", func(time.Time) error {
		var err error
		lost, err = s.sim.DeclineOrder(id)
		return err
	})
	return lost, err
}

func (s *Service) CancelOrder(ctx context.Context, id string) error {
	return s.mutate(ctx, "order.cancel", func(time.Time) error {
		return s.sim.CancelOrder(id)
	})
}

func (s *Service) Invest(ctx context.Context, req InvestRequest) (Investment, error) {
	var out Investment
	err := s.mutate(ctx, "invest.buy", func(now time.Time) error {
		inv, err := s.sim.Invest(now, req)
		if err != nil {
			return err
		}
		out = *inv
		return nil
	})
	return out, err
}

func (s *Service) SellInvestment(ctx context.Context, id string) (float64, error) {
	var proceeds float64
	err := s.mutate(ctx, "invest.sell", func(time.Time) error {
		var err error
		proceeds, err = s.sim.SellInvestment(id)
		return err
	})
	return proceeds, err
}

func (s *Service) CreateCompany(ctx context.Context, name string) (Company, error) {
	var out Company
	err := s.mutate(ctx, "company.create", func(now time.Time) error {
		c, err := s.sim.CreateCompany(now, name)
		if err != nil {
			return err
		}
		out = *c
		return nil
	})
	return out, err
}

func (s *Service) JoinCompany(ctx context.Context, id string) (Company, error) {
	var out Company
	err := s.mutate(ctx, "company.join", func(now time.Time) error {
		c, err := s.sim.JoinCompany(now, id)
		if err != nil {
			return err
		}
		out = *c
		return nil
	})
	return out, err
}

func (s *Service) LeaveCompany(ctx context.Context) error {
	return s.mutate(ctx, "company.leave", func(time.Time) error {
		return s.sim.LeaveCompany()
	})
}

func (s *Service) Transfer(ctx context.Context, id string, amount float64) (Company, error) {
	var out Company
	err := s.mutate(ctx, "company.transfer", func(now time.Time) error {
		c, err := s.sim.Transfer(now, id, amount)
		if err != nil {
			return err
		}
		out = *c
		return nil
	})
	return out, err
}

func (s *Service) DissolveCompany(ctx context.Context, id string) error {
	return s.mutate(ctx, "company.dissolve", func(time.Time) error {
		return s.sim.DissolveCompany(id)
	})
}

func (s *Service) UpdateSettings(ctx context.Context, patch SettingsPatch) (Settings, error) {
	var out Settings
	err := s.mutate(ctx, "settings", func(time.Time) error {
		var err error
		out, err = s.sim.UpdateSettings(patch)
		return err
	})
	return out, err
}

// ExportCatalog renders the resolved catalog as TOML.
func (s *Service) ExportCatalog() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return catalog.Export(s.sim.Ores())
}

// SetHostOre adds or replaces a host-authored ore and persists the host
// layer.
func (s *Service) SetHostOre(ctx context.Context, key string, ore catalog.Ore) (ResourceView, error) {
	key = catalog.NormalizeKey(key)
	if err := catalog.ValidateKey(key); err != nil {
		return ResourceView{}, fmt.Errorf("%w: %v", ErrInvalidOre, err)
	}
	n, err := catalog.Normalize(key, ore)
	if err != nil {
		return ResourceView{}, fmt.Errorf("%w: %v", ErrInvalidOre, err)
	}
	var out ResourceView
	err = s.mutate(ctx, "host.set_ore", func(time.Time) error {
		next := maps.Clone(s.host)
		if next == nil {
			next = make(map[string]catalog.Ore)
		}
		next[key] = n
		if err := s.saveHostLocked(ctx, next); err != nil {
			return err
		}
		s.host = next
		s.applyCatalogLocked()
		var rerr error
		out, rerr = s.sim.ResourceDetail(key)
		return rerr
	})
	return out, err
}

// RemoveHostOre drops a host-authored ore. A built-in ore of the same key
// reverts to its built-in definition; otherwise the resource is removed.
func (s *Service) RemoveHostOre(ctx context.Context, key string) error {
	key = catalog.NormalizeKey(key)
	return s.mutate(ctx, "host.remove_ore", func(time.Time) error {
		if _, ok := s.host[key]; !ok {
			return fmt.Errorf("%w: %q is not a host ore", ErrUnknownResource, key)
		}
		next := maps.Clone(s.host)
		delete(next, key)
		if err := s.saveHostLocked(ctx, next); err != nil {
			return err
		}
		s.host = next
		if _, builtin := s.base[key]; !builtin {
			s.sim.RemoveResource(key)
		}
		s.applyCatalogLocked()
		return nil
	})
}

// saveHostLocked persists host before it is committed to s.host, so a failed
// write leaves the live catalog unchanged.
func (s *Service) saveHostLocked(ctx context.Context, host map[string]catalog.Ore) error {
	raw, err := json.Marshal(host)
	if err != nil {
		return fmt.Errorf("encode host ores: %w", err)
	}
	if err := s.store.Put(ctx, store.KeyHostOres, raw); err != nil {
		return fmt.Errorf("save host ores: %w", err)
	}
	return nil
}

// ExportState returns the full game as indented JSON.
func (s *Service) ExportState() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sim.Export()
}

// ImportState replaces the game wholesale. Malformed input leaves the
// current game untouched.
func (s *Service) ImportState(ctx context.Context, raw []byte) error {
	return s.mutate(ctx, "state.import", func(now time.Time) error {
		return s.sim.Restore(raw, now)
	})
}

// Reset wipes the game to a freshly seeded one.
func (s *Service) Reset(ctx context.Context) error {
	return s.mutate(ctx, "state.reset", func(now time.Time) error {
		s.sim.Reset(now)
		return nil
	})
}

// SetWebhook stores the notification URL.
func (s *Service) SetWebhook(ctx context.Context, raw string) error {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
		return fmt.Errorf("%w: webhook must be an http(s) URL", ErrInvalidSettings)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Put(ctx, store.KeyWebhook, []byte(raw)); err != nil {
		return err
	}
	s.webhook = raw
	return nil
}

// ClearWebhook disables notifications.
func (s *Service) ClearWebhook(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Delete(ctx, store.KeyWebhook); err != nil {
		return err
	}
	s.webhook = ""
	return nil
}

// Webhook reports whether a notification URL is configured.
func (s *Service) Webhook() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.webhook
}

// Step runs one frame of the loop: due shocks fire, and the market ticks,
// orders arrive and the game saves when their intervals have elapsed.
func (s *Service) Step(ctx context.Context) {
	s.mu.Lock()
	now := s.cfg.Now()
	st := s.sim.State()
	s.sim.Advance(now)

	changed := false
	tickEvery := time.Duration(st.Settings.TickMs) * time.Millisecond
	if st.Settings.AutoTick && now.Sub(st.LastTick) >= tickEvery {
		s.sim.Tick(now)
		changed = true
	}
	if st.Settings.AutoOrders && now.Sub(st.LastAutoOrder) >= s.cfg.AutoOrderEvery {
		if _, err := s.sim.AutoOrder(now); err != nil {
			s.log.Warn("auto order failed", "err", err)
		} else {
			changed = true
		}
	}
	if changed || now.Sub(s.lastSave) >= s.cfg.AutosaveEvery {
		s.sim.settleCompanies()
		if err := s.saveLocked(ctx, now); err != nil {
			s.log.Error("autosave failed", "err", err)
		}
	}
	s.dispatchLocked(s.sim.Drain())
	s.mu.Unlock()
}

// Run drives Step every frame until ctx is cancelled, then saves once more.
func (s *Service) Run(ctx context.Context) error {
	s.log.Info("simulation loop started", "frame_every", s.cfg.FrameEvery.String())
	ticker := time.NewTicker(s.cfg.FrameEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.mu.Lock()
			s.closed = true
			err := s.saveLocked(context.Background(), s.cfg.Now())
			s.mu.Unlock()
			s.Wait()
			if err != nil {
				s.log.Error("final save failed", "err", err)
			}
			return nil
		case <-ticker.C:
			s.Step(ctx)
		}
	}
}
