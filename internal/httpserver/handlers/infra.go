package handlers

import (
	"context"
	"net/http"

	"github.com/MrSnakeDoc/tabgate/internal/httpserver/deps"
)

type componentStatus struct {
	OK             bool             `json:"ok"`
	LiveContexts   *int             `json:"live_contexts,omitempty"`
	Users          *int             `json:"users,omitempty"`
	MirroredByUser map[string]int64 `json:"mirrored_by_user,omitempty"`
	TrackingParams *int             `json:"tracking_params,omitempty"`
	Mode           string           `json:"mode,omitempty"`
	Impact         string           `json:"impact,omitempty"`
	Error          string           `json:"error,omitempty"`
}

type infraResponse struct {
	Mode       string                     `json:"mode"`
	Components map[string]componentStatus `json:"components"`
}

// Infra reports the state of every component the service depends on.
func Infra(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
		defer cancel()

		live := d.Registry.Count()
		users := d.Registry.Users()
		params := len(d.Rules.Current().Tracking.Params)

		components := map[string]componentStatus{
			"registry": {
				OK:           true,
				LiveContexts: &live,
				Users:        &users,
			},
			"rules": {
				OK:             true,
				TrackingParams: &params,
			},
			"database": checkPinger(ctx, d.Database, "history-and-settings-unavailable"),
			"engine":   checkPinger(ctx, d.Engine, "navigation-unavailable"),
			"redis":    checkRedis(ctx, d),
		}

		writeJSON(w, http.StatusOK, infraResponse{
			Mode:       determineMode(components),
			Components: components,
		})
	}
}

func determineMode(components map[string]componentStatus) string {
	if db, ok := components["database"]; ok && !db.OK {
		return "critical"
	}
	if engine, ok := components["engine"]; ok && !engine.OK {
		return "critical"
	}
	// Redis down = degraded (no restart recovery, no token cache)
	if redis, ok := components["redis"]; ok && !redis.OK {
		return "degraded"
	}
	return "operational"
}

func checkPinger(ctx context.Context, p deps.Pinger, impact string) componentStatus {
	if p == nil {
		return componentStatus{OK: false, Impact: impact, Error: "not initialized"}
	}
	if err := p.Ping(ctx); err != nil {
		return componentStatus{OK: false, Impact: impact, Error: "unreachable"}
	}
	return componentStatus{OK: true}
}

func checkRedis(ctx context.Context, d deps.Deps) componentStatus {
	if d.Redis == nil {
		return componentStatus{
			OK:     false,
			Mode:   "degraded",
			Impact: "contexts-lost-on-restart",
			Error:  "client not initialized",
		}
	}

	if err := d.Redis.Ping(ctx); err != nil {
		return componentStatus{
			OK:     false,
			Mode:   "degraded",
			Impact: "contexts-lost-on-restart",
			Error:  "timeout",
		}
	}

	status := componentStatus{OK: true, Mode: "optimal"}
	if stats, err := d.Redis.ContextStats(ctx); err == nil {
		status.MirroredByUser = stats
	}
	return status
}
