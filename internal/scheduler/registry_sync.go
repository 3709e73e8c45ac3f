package scheduler

import (
	"context"
	"fmt"

	"github.com/MrSnakeDoc/tabgate/internal/domain"
	"github.com/MrSnakeDoc/tabgate/internal/logger"
)

// HandleSource lists the contexts mirrored before the last shutdown.
type HandleSource interface {
	GetAllHandles(ctx context.Context) ([]domain.ContextHandle, error)
}

// HandleRestorer re-registers mirrored contexts.
type HandleRestorer interface {
	Restore(handles []domain.ContextHandle) int
}

// RegistrySyncer restores the session registry from Redis on startup so
// contexts still held by the engine stay reachable after a restart.
type RegistrySyncer struct {
	source   HandleSource
	registry HandleRestorer
	logger   logger.Logger
}

// NewRegistrySyncer creates a new registry syncer
func NewRegistrySyncer(
	source HandleSource,
	reg HandleRestorer,
	log logger.Logger,
) *RegistrySyncer {
	return &RegistrySyncer{
		source:   source,
		registry: reg,
		logger:   log,
	}
}

// Sync loads mirrored handles and registers them.
func (rs *RegistrySyncer) Sync(ctx context.Context) error {
	rs.logger.Info("restoring browser contexts from redis")

	handles, err := rs.source.GetAllHandles(ctx)
	if err != nil {
		return fmt.Errorf("load mirrored contexts: %w", err)
	}

	if len(handles) == 0 {
		rs.logger.Info("no browser contexts found in redis")
		return nil
	}

	restored := rs.registry.Restore(handles)

	rs.logger.Info("restored browser contexts from redis",
		logger.Int("found", len(handles)),
		logger.Int("restored", restored))

	return nil
}
