package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/MrSnakeDoc/tabgate/internal/logger"
)

const (
	// DefaultGCInterval is how often idle contexts and stale idempotency
	// keys are collected.
	DefaultGCInterval = time.Minute
)

// ContextSweeper reclaims idle browser contexts.
type ContextSweeper interface {
	Sweep(ctx context.Context) int
}

// TokenExpirer drops idempotency keys past their retention window.
type TokenExpirer interface {
	ExpireTokens(ctx context.Context) (int64, error)
}

// GarbageCollector periodically reclaims idle contexts and expires
// idempotency keys.
type GarbageCollector struct {
	contexts ContextSweeper
	tokens   TokenExpirer
	logger   logger.Logger
	interval time.Duration
	stopCh   chan struct{}
}

// NewGarbageCollector creates a new garbage collector. tokens may be nil.
func NewGarbageCollector(
	contexts ContextSweeper,
	tokens TokenExpirer,
	log logger.Logger,
	interval time.Duration,
) *GarbageCollector {
	if interval <= 0 {
		interval = DefaultGCInterval
	}

	return &GarbageCollector{
		contexts: contexts,
		tokens:   tokens,
		logger:   log,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic garbage collection process
func (gc *GarbageCollector) Start(ctx context.Context) error {
	// Run immediately on start
	if err := gc.Collect(ctx); err != nil {
		gc.logger.Warn("initial garbage collection failed",
			logger.Error(err))
	}

	ticker := time.NewTicker(gc.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := gc.Collect(ctx); err != nil {
					gc.logger.Error("garbage collection failed",
						logger.Error(err))
				}
			case <-gc.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the garbage collector
func (gc *GarbageCollector) Stop() {
	close(gc.stopCh)
}

// Collect destroys contexts idle past the registry threshold and clears
// expired idempotency keys. A token failure does not stop the sweep.
func (gc *GarbageCollector) Collect(ctx context.Context) error {
	swept := 0
	if gc.contexts != nil {
		swept = gc.contexts.Sweep(ctx)
	}

	var expired int64
	var err error
	if gc.tokens != nil {
		expired, err = gc.tokens.ExpireTokens(ctx)
		if err != nil {
			err = fmt.Errorf("expire idempotency keys: %w", err)
		}
	}

	if swept > 0 || expired > 0 {
		gc.logger.Info("garbage collection completed",
			logger.Int("contexts_reclaimed", swept),
			logger.Int64("tokens_expired", expired))
	} else {
		gc.logger.Debug("nothing to garbage collect")
	}

	return err
}
