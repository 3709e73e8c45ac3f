package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrSnakeDoc/tabgate/internal/domain"
	"github.com/MrSnakeDoc/tabgate/internal/logger"
	"github.com/MrSnakeDoc/tabgate/internal/registry"
)

type stubEngine struct{ n int32 }

func (e *stubEngine) CreateContext(ctx context.Context, userID string) (string, error) {
	return fmt.Sprintf("ctx-%d", atomic.AddInt32(&e.n, 1)), nil
}

func (e *stubEngine) ReleaseContext(ctx context.Context, handle string) error { return nil }

type stubTokens struct {
	calls int32
	n     int64
	err   error
}

func (s *stubTokens) ExpireTokens(ctx context.Context) (int64, error) {
	atomic.AddInt32(&s.calls, 1)
	return s.n, s.err
}

func TestGarbageCollector_Collect(t *testing.T) {
	log := logger.New("error", false)
	reg := registry.New(&stubEngine{}, nil, log, nil, registry.Options{IdleTimeout: 30 * time.Minute})

	now := time.Now()
	reg.SetClock(func() time.Time { return now })

	idle, err := reg.CreateContext(context.Background(), "u1")
	if err != nil {
		t.Fatalf("CreateContext failed: %v", err)
	}
	now = now.Add(20 * time.Minute)
	active, err := reg.CreateContext(context.Background(), "u1")
	if err != nil {
		t.Fatalf("CreateContext failed: %v", err)
	}
	now = now.Add(15 * time.Minute) // idle is 35m old, active 15m

	tokens := &stubTokens{n: 3}
	gc := NewGarbageCollector(reg, tokens, log, time.Hour)

	if err := gc.Collect(context.Background()); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	if reg.Count() != 1 {
		t.Errorf("Expected 1 context after GC, got %d", reg.Count())
	}
	if err := reg.Validate(active.ID, "u1"); err != nil {
		t.Errorf("Active context was incorrectly removed: %v", err)
	}
	if kind := domain.KindOf(reg.Validate(idle.ID, "u1")); kind != domain.KindNotFound {
		t.Errorf("Idle context was not removed, Validate kind = %s", kind)
	}
	if tokens.calls != 1 {
		t.Errorf("ExpireTokens called %d times, want 1", tokens.calls)
	}
}

func TestGarbageCollector_TokenFailure(t *testing.T) {
	log := logger.New("error", false)
	gc := NewGarbageCollector(nil, &stubTokens{err: errors.New("database is locked")}, log, time.Hour)

	if err := gc.Collect(context.Background()); err == nil {
		t.Error("Collect should report the token failure")
	}
}

func TestGarbageCollector_StartStop(t *testing.T) {
	log := logger.New("error", false)
	tokens := &stubTokens{}
	gc := NewGarbageCollector(nil, tokens, log, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := gc.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for atomic.LoadInt32(&tokens.calls) < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	gc.Stop()

	if calls := atomic.LoadInt32(&tokens.calls); calls < 3 {
		t.Errorf("Expected at least 3 collections, got %d", calls)
	}
}
