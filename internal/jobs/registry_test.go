package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func noop(context.Context) error { return nil }

func TestRegisterRejectsDuplicatesAndBadSchedules(t *testing.T) {
	t.Parallel()

	r := NewRegistry(zerolog.Nop())
	if err := r.Register("cleanup", "0 0 * * * *", noop); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if err := r.Register("cleanup", "0 30 * * * *", noop); !errors.Is(err, ErrDuplicateJob) {
		t.Fatalf("expected ErrDuplicateJob, got %v", err)
	}
	if err := r.Register("broken", "every hour", noop); err == nil {
		t.Fatal("expected unparsable schedule to fail")
	}
	if got := len(r.List()); got != 1 {
		t.Fatalf("expected failed registrations to leave one job, got %d", got)
	}
}

func TestListPreservesRegistrationOrder(t *testing.T) {
	t.Parallel()

	r := NewRegistry(zerolog.Nop())
	names := []string{"zeta", "alpha", "mid"}
	for _, name := range names {
		if err := r.Register(name, "0 0 * * * *", noop); err != nil {
			t.Fatalf("Register returned error: %v", err)
		}
	}

	infos := r.List()
	for i, info := range infos {
		if info.Name != names[i] || !info.Enabled || info.LastRun != nil || info.Schedule != "0 0 * * * *" {
			t.Fatalf("unexpected job %d: %+v", i, info)
		}
	}
}

func TestToggle(t *testing.T) {
	t.Parallel()

	r := NewRegistry(zerolog.Nop())
	if err := r.Register("cleanup", "0 0 * * * *", noop); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	if r.Toggle("unknown", true) {
		t.Fatal("expected toggling an unknown job to return false")
	}
	if len(r.List()) != 1 || !r.List()[0].Enabled {
		t.Fatal("expected registry to be unchanged")
	}

	if !r.Toggle("cleanup", false) {
		t.Fatal("expected toggling a known job to return true")
	}
	if r.List()[0].Enabled {
		t.Fatal("expected job to be disabled")
	}
}

func TestRunManually(t *testing.T) {
	t.Parallel()

	r := NewRegistry(zerolog.Nop())
	fixed := time.Date(2026, 1, 5, 3, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return fixed }

	var calls atomic.Int32
	if err := r.Register("counting", "0 0 * * * *", func(context.Context) error {
		calls.Add(1)
		return nil
	}); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if err := r.Register("failing", "0 0 * * * *", func(context.Context) error {
		return errors.New("store unavailable")
	}); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if err := r.Register("panicking", "0 0 * * * *", func(context.Context) error {
		panic("boom")
	}); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	ctx := context.Background()
	if r.RunManually(ctx, "unknown") {
		t.Fatal("expected unknown job to return false")
	}

	r.Toggle("counting", false)
	if !r.RunManually(ctx, "counting") || calls.Load() != 1 {
		t.Fatalf("expected disabled job to run manually, calls=%d", calls.Load())
	}
	if !r.RunManually(ctx, "failing") {
		t.Fatal("expected failing job to report invocation")
	}
	if !r.RunManually(ctx, "panicking") {
		t.Fatal("expected panicking job to report invocation")
	}

	for _, info := range r.List() {
		if info.LastRun == nil || !info.LastRun.Equal(fixed) {
			t.Fatalf("expected last run to be recorded for %s, got %v", info.Name, info.LastRun)
		}
	}
}

func TestScheduledFiringRespectsEnabledFlag(t *testing.T) {
	t.Parallel()

	r := NewRegistry(zerolog.Nop())
	var calls atomic.Int32
	if err := r.Register("counting", "0 0 * * * *", func(context.Context) error {
		calls.Add(1)
		return nil
	}); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	j := r.byName["counting"]

	r.fire(j)
	if calls.Load() != 1 {
		t.Fatalf("expected enabled job to run, calls=%d", calls.Load())
	}

	r.Toggle("counting", false)
	r.fire(j)
	if calls.Load() != 1 {
		t.Fatalf("expected disabled job to be skipped, calls=%d", calls.Load())
	}
	if r.List()[0].LastRun == nil {
		t.Fatal("expected last run from the enabled firing")
	}
}

func TestStartStop(t *testing.T) {
	t.Parallel()

	r := NewRegistry(zerolog.Nop())
	if err := r.Register("cleanup", "0 0 * * * *", noop); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	r.Start()

	select {
	case <-r.Stop().Done():
	case <-time.After(time.Second):
		t.Fatal("expected Stop to finish promptly")
	}
}
