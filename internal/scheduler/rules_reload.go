package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/MrSnakeDoc/tabgate/internal/logger"
	"github.com/MrSnakeDoc/tabgate/internal/sources/rules"
)

// DefaultReloadInterval is how often the rules file is read again.
const DefaultReloadInterval = time.Hour

// RulesReloader keeps the tracking rules in sync with the rules file.
type RulesReloader struct {
	loader        *rules.Loader
	holder        *rules.Holder
	logger        logger.Logger
	interval      time.Duration
	stopCh        chan struct{}
	manualTrigger chan struct{}
}

// NewRulesReloader creates a new rules reloader. With an empty rulesFile
// the built-in rules stay in force.
func NewRulesReloader(
	rulesFile string,
	holder *rules.Holder,
	log logger.Logger,
	interval time.Duration,
	manualTrigger chan struct{},
) *RulesReloader {
	if interval <= 0 {
		interval = DefaultReloadInterval
	}
	var loader *rules.Loader
	if rulesFile != "" {
		loader = rules.NewLoader(rulesFile)
	}
	return &RulesReloader{
		loader:        loader,
		holder:        holder,
		logger:        log,
		interval:      interval,
		stopCh:        make(chan struct{}),
		manualTrigger: manualTrigger,
	}
}

// Start loads the rules once and then reloads them periodically and on
// manual triggers.
func (rr *RulesReloader) Start(ctx context.Context) error {
	// Load immediately on start
	if err := rr.Reload(ctx); err != nil {
		return fmt.Errorf("initial reload failed: %w", err)
	}

	ticker := time.NewTicker(rr.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := rr.Reload(ctx); err != nil {
					rr.logger.Error("failed to reload rules",
						logger.Error(err))
				}
			case <-rr.manualTrigger:
				rr.logger.Info("manual reload triggered")
				if err := rr.Reload(ctx); err != nil {
					rr.logger.Error("failed to reload rules",
						logger.Error(err))
				}
			case <-rr.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the reloader
func (rr *RulesReloader) Stop() {
	close(rr.stopCh)
}

// Reload reads the rules file and swaps the rules in force. On failure
// the previous rules are kept.
func (rr *RulesReloader) Reload(ctx context.Context) error {
	if rr.loader == nil {
		rr.logger.Debug("no rules file configured, using built-in rules")
		return nil
	}

	rr.logger.Info("reloading tracking rules",
		logger.String("file", rr.loader.Path()))

	cfg, err := rr.loader.Load()
	if err != nil {
		return fmt.Errorf("failed to load rules: %w", err)
	}

	set, err := rules.Map(cfg)
	if err != nil {
		return fmt.Errorf("failed to map rules: %w", err)
	}

	rr.holder.Set(set)

	rr.logger.Info("tracking rules loaded",
		logger.Int("params", len(set.Tracking.Params)),
		logger.Int("prefixes", len(set.Tracking.Prefixes)),
		logger.Int("search_engines", len(set.SearchEngines)))

	return nil
}
