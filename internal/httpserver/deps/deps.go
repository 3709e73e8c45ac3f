package deps

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/tabgate/internal/gateway"
	"github.com/MrSnakeDoc/tabgate/internal/history"
	"github.com/MrSnakeDoc/tabgate/internal/logger"
	"github.com/MrSnakeDoc/tabgate/internal/metrics"
	"github.com/MrSnakeDoc/tabgate/internal/registry"
	"github.com/MrSnakeDoc/tabgate/internal/sources/rules"
	redisstore "github.com/MrSnakeDoc/tabgate/internal/store/redis"
	"github.com/MrSnakeDoc/tabgate/internal/userdata"
)

// Pinger is anything /readyz and /infra can probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Deps struct {
	Logger    logger.Logger
	StartTime time.Time
	Version   string
	Commit    string
	BuildDate string
	GoVersion string
	TimeNow   func() time.Time // for testing, defaults to time.Now

	// Access restrictions
	AllowedHosts   []string // Host headers allowed on the ops endpoints
	AllowedCIDRS   []string // IPs allowed on healthz/readyz/infra/metrics/reload
	AllowedOrigins []string // CORS origins for the API
	TrustProxy     bool     // true if running behind a trusted reverse proxy (e.g., cloudflared)

	// Auth
	JWTSecret string
	JWTIssuer string

	// API rate limit (per user)
	RateLimitBurst     int
	RateLimitPerMinute int
	RequestTimeout     time.Duration

	// Core
	Registry   *registry.Registry
	Contexts   *gateway.ContextGateway
	Navigation *gateway.NavigationGateway
	Recorder   *history.Recorder
	Reader     *history.Reader
	Bookmarks  *userdata.Bookmarks
	Settings   *userdata.Settings
	Profiles   *userdata.Profiles
	Rules      *rules.Holder
	Metrics    *metrics.Metrics

	// Infrastructure probes
	Redis    *redisstore.Store // registry mirror and token cache, nil in some tests
	Database Pinger
	Engine   Pinger

	ReloadTrigger chan struct{} // Channel to trigger a manual rules reload
}

// Now returns d.TimeNow() or time.Now().
func (d Deps) Now() time.Time {
	if d.TimeNow != nil {
		return d.TimeNow()
	}
	return time.Now()
}
