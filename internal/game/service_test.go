package game

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"oremarket/internal/catalog"
	"oremarket/internal/store"
)

type recordingNotifier struct {
	mu     sync.Mutex
	urls   []string
	events []Event
}

func (r *recordingNotifier) Notify(_ context.Context, url string, ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.urls = append(r.urls, url)
	r.events = append(r.events, ev)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Add(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestService(t *testing.T, st store.Store, n Notifier, clock *fakeClock) *Service {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	svc := NewService(st, n, logger, testOptions(t, nil), ServiceConfig{Now: clock.Now})
	if err := svc.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	return svc
}

func TestServicePersistsAcrossLoads(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	clock := &fakeClock{now: epoch}
	svc := newTestService(t, mem, nil, clock)
	if _, err := svc.Invest(ctx, InvestRequest{Resource: "coal", Amount: 1_000}); err != nil {
		t.Fatalf("invest: %v", err)
	}

	again := newTestService(t, mem, nil, clock)
	if got := len(again.Investments()); got != 1 {
		t.Fatalf("investments after reload=%d want 1", got)
	}
	if got := again.Dashboard().Player.Balance; got != StarterBalance-1_000 {
		t.Fatalf("balance after reload=%v", got)
	}
}

func TestServiceFallsBackOnCorruptSave(t *testing.T) {
	mem := store.NewMemory()
	if err := mem.Put(context.Background(), store.KeyProgress, []byte("{{{")); err != nil {
		t.Fatalf("seed: %v", err)
	}
	svc := newTestService(t, mem, nil, &fakeClock{now: epoch})
	if got := svc.Dashboard().Player.Balance; got != StarterBalance {
		t.Fatalf("expected fresh game, balance=%v", got)
	}
}

func TestServiceHostOres(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	clock := &fakeClock{now: epoch}
	svc := newTestService(t, mem, nil, clock)

	if _, err := svc.SetHostOre(ctx, "Bad Key!", catalog.Ore{BaseValueRange: []float64{1, 2}}); !errors.Is(err, ErrInvalidOre) {
		t.Fatalf("expected ErrInvalidOre, got %v", err)
	}
	if _, err := svc.SetHostOre(ctx, "mithril", catalog.Ore{BaseValueRange: []float64{9, 1}}); !errors.Is(err, ErrInvalidOre) {
		t.Fatalf("expected ErrInvalidOre for inverted range, got %v", err)
	}
	v, err := svc.SetHostOre(ctx, "mithril", catalog.Ore{Display: "Mithril", BaseValueRange: []float64{500, 900}})
	if err != nil {
		t.Fatalf("set ore: %v", err)
	}
	if v.Key != "mithril" || v.Price < 500 {
		t.Fatalf("unexpected view %+v", v)
	}

	again := newTestService(t, mem, nil, clock)
	if _, err := again.ResourceDetail("mithril"); err != nil {
		t.Fatalf("host ore lost on reload: %v", err)
	}
	if err := again.RemoveHostOre(ctx, "coal"); !errors.Is(err, ErrUnknownResource) {
		t.Fatalf("expected built-in ore to be protected, got %v", err)
	}
	if err := again.RemoveHostOre(ctx, "mithril"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := again.ResourceDetail("mithril"); !errors.Is(err, ErrUnknownResource) {
		t.Fatalf("removed ore still listed: %v", err)
	}
}

// failingStore rejects writes to one key.
type failingStore struct {
	*store.Memory
	key string
}

func (f *failingStore) Put(ctx context.Context, key string, value []byte) error {
	if key == f.key {
		return errors.New("disk full")
	}
	return f.Memory.Put(ctx, key, value)
}

func TestServiceHostOreRolledBackOnSaveFailure(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	clock := &fakeClock{now: epoch}
	svc := newTestService(t, mem, nil, clock)
	if _, err := svc.SetHostOre(ctx, "adamant", catalog.Ore{BaseValueRange: []float64{50, 80}}); err != nil {
		t.Fatalf("seed host ore: %v", err)
	}

	svc.store = &failingStore{Memory: mem, key: store.KeyHostOres}
	if _, err := svc.SetHostOre(ctx, "mithril", catalog.Ore{BaseValueRange: []float64{500, 900}}); err == nil {
		t.Fatal("expected save failure")
	}
	if _, err := svc.ResourceDetail("mithril"); !errors.Is(err, ErrUnknownResource) {
		t.Fatalf("unsaved ore went live: %v", err)
	}
	for _, r := range svc.Market() {
		if r.Key == "mithril" {
			t.Fatal("unsaved ore listed on the market")
		}
	}
	if _, ok := svc.host["mithril"]; ok {
		t.Fatal("unsaved ore kept in host layer")
	}

	if err := svc.RemoveHostOre(ctx, "adamant"); err == nil {
		t.Fatal("expected save failure on remove")
	}
	if _, err := svc.ResourceDetail("adamant"); err != nil {
		t.Fatalf("ore removed despite failed save: %v", err)
	}
	if _, ok := svc.host["adamant"]; !ok {
		t.Fatal("host layer dropped ore despite failed save")
	}
}

func TestServiceNotifiesConfiguredWebhook(t *testing.T) {
	ctx := context.Background()
	rec := &recordingNotifier{}
	svc := newTestService(t, store.NewMemory(), rec, &fakeClock{now: epoch})

	if _, err := svc.CreateCompany(ctx, "Silent Co"); err != nil {
		t.Fatalf("create: %v", err)
	}
	svc.Wait()
	if len(rec.events) != 0 {
		t.Fatalf("notified without a webhook: %v", rec.events)
	}

	if err := svc.SetWebhook(ctx, "ftp://nope"); !errors.Is(err, ErrInvalidSettings) {
		t.Fatalf("expected ErrInvalidSettings, got %v", err)
	}
	if err := svc.SetWebhook(ctx, "https://example.com/hook"); err != nil {
		t.Fatalf("set webhook: %v", err)
	}
	if _, err := svc.Transfer(ctx, svc.Dashboard().Player.CompanyID, 500); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	svc.Wait()
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.events) != 1 || rec.events[0].Kind != EventTransfer || rec.urls[0] != "https://example.com/hook" {
		t.Fatalf("events=%+v urls=%v", rec.events, rec.urls)
	}
}

func TestServiceStopsNotifyingAfterShutdown(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	rec := &recordingNotifier{}
	clock := &fakeClock{now: epoch}
	svc := newTestService(t, mem, rec, clock)
	if err := svc.SetWebhook(ctx, "https://example.com/hook"); err != nil {
		t.Fatalf("set webhook: %v", err)
	}
	if _, err := svc.CreateCompany(ctx, "Late Co"); err != nil {
		t.Fatalf("create: %v", err)
	}
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = svc.Run(runCtx)
	}()
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.Transfer(ctx, svc.Dashboard().Player.CompanyID, 10)
		}()
	}
	cancel()
	<-done
	wg.Wait()
	svc.Wait()
	rec.mu.Lock()
	before := len(rec.events)
	rec.mu.Unlock()

	if _, err := svc.Transfer(ctx, svc.Dashboard().Player.CompanyID, 10); err != nil {
		t.Fatalf("transfer after shutdown: %v", err)
	}
	svc.Wait()
	rec.mu.Lock()
	after := len(rec.events)
	rec.mu.Unlock()
	if after != before {
		t.Fatalf("notified %d events after shutdown", after-before)
	}

	again := newTestService(t, mem, nil, clock)
	if got, want := again.Dashboard().Player.Balance, svc.Dashboard().Player.Balance; got != want {
		t.Fatalf("balance after reload=%v want %v", got, want)
	}
}

func TestServiceStepRunsLoop(t *testing.T) {
	clock := &fakeClock{now: epoch}
	svc := newTestService(t, store.NewMemory(), nil, clock)
	clock.Add(11 * time.Second)
	svc.Step(context.Background())

	if len(svc.Orders()) != 1 {
		t.Fatalf("expected one auto order, got %d", len(svc.Orders()))
	}
	d, err := svc.ResourceDetail("coal")
	if err != nil {
		t.Fatalf("detail: %v", err)
	}
	if len(d.History) != 1 {
		t.Fatalf("expected one tick, history=%d", len(d.History))
	}

	off := false
	if _, err := svc.UpdateSettings(context.Background(), SettingsPatch{AutoTick: &off, AutoOrders: &off}); err != nil {
		t.Fatalf("settings: %v", err)
	}
	clock.Add(time.Minute)
	svc.Step(context.Background())
	if len(svc.Orders()) != 1 {
		t.Fatalf("auto orders ran while disabled")
	}
}

func TestServiceImportAndReset(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, store.NewMemory(), nil, &fakeClock{now: epoch})
	if err := svc.ImportState(ctx, []byte("nope")); KindOf(err) != KindPersistence {
		t.Fatalf("expected persistence error, got %v", err)
	}
	if _, err := svc.Invest(ctx, InvestRequest{Resource: "iron", Amount: 500}); err != nil {
		t.Fatalf("invest: %v", err)
	}
	raw, err := svc.ExportState()
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if err := svc.Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if len(svc.Investments()) != 0 {
		t.Fatalf("reset kept investments")
	}
	if err := svc.ImportState(ctx, raw); err != nil {
		t.Fatalf("import: %v", err)
	}
	if len(svc.Investments()) != 1 {
		t.Fatalf("import lost investments")
	}
}

func TestUpdateSettingsValidation(t *testing.T) {
	sim := newTestSim(t, nil)
	short := int64(100)
	if _, err := sim.UpdateSettings(SettingsPatch{TickMs: &short}); !errors.Is(err, ErrInvalidSettings) {
		t.Fatalf("expected ErrInvalidSettings, got %v", err)
	}
	bad := "chaos"
	if _, err := sim.UpdateSettings(SettingsPatch{Rarity: &bad}); !errors.Is(err, ErrInvalidSettings) {
		t.Fatalf("expected ErrInvalidSettings, got %v", err)
	}
	wild := "Wild"
	got, err := sim.UpdateSettings(SettingsPatch{Rarity: &wild})
	if err != nil || got.Rarity != "wild" {
		t.Fatalf("rarity=%q err=%v", got.Rarity, err)
	}
}
