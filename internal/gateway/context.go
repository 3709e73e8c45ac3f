package gateway

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/tabgate/internal/domain"
	"github.com/MrSnakeDoc/tabgate/internal/logger"
	"github.com/hashicorp/go-retryablehttp"
)

const (
	DefaultRetryMin = 250 * time.Millisecond
	DefaultRetryMax = 2 * time.Second
)

// ContextGateway opens and closes browser contexts on behalf of a user.
type ContextGateway struct {
	registry Registry
	log      logger.Logger
	retryMin time.Duration
	retryMax time.Duration
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewContextGateway creates a gateway. retryMin and retryMax bound the
// backoff of the single retry; zero values use the defaults.
func NewContextGateway(reg Registry, log logger.Logger, retryMin, retryMax time.Duration) *ContextGateway {
	if retryMin <= 0 {
		retryMin = DefaultRetryMin
	}
	if retryMax < retryMin {
		retryMax = max(DefaultRetryMax, retryMin)
	}
	return &ContextGateway{
		registry: reg,
		log:      log,
		retryMin: retryMin,
		retryMax: retryMax,
		sleep:    sleepCtx,
	}
}

// OpenContext allocates a context for userID. A transient engine failure
// is retried exactly once; quota and auth failures are not.
func (g *ContextGateway) OpenContext(ctx context.Context, userID string) (domain.ContextHandle, error) {
	h, err := g.registry.CreateContext(ctx, userID)
	if err == nil || !domain.Retryable(err) {
		return h, err
	}

	wait := retryablehttp.DefaultBackoff(g.retryMin, g.retryMax, 1, nil)
	g.log.Warn("context creation failed, retrying once",
		logger.String("user_id", userID),
		logger.Duration("backoff", wait),
		logger.Error(err))

	if serr := g.sleep(ctx, wait); serr != nil {
		return domain.ContextHandle{}, err
	}
	return g.registry.CreateContext(ctx, userID)
}

// CloseContext destroys a context owned by userID.
func (g *ContextGateway) CloseContext(ctx context.Context, handle, userID string) error {
	if userID == "" {
		return domain.E(domain.KindUnauthorized, "authentication required", nil)
	}
	return g.registry.DestroyOwned(ctx, handle, userID)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
