package gateway

import (
	"context"
	"errors"
	"time"

	"github.com/MrSnakeDoc/tabgate/internal/domain"
	"github.com/MrSnakeDoc/tabgate/internal/engine"
	"github.com/MrSnakeDoc/tabgate/internal/logger"
	"github.com/MrSnakeDoc/tabgate/internal/metrics"
)

const (
	DefaultNavigateTimeout = 30 * time.Second
	DefaultHistoryTimeout  = 5 * time.Second
)

// NavigateInput is one navigation request.
type NavigateInput struct {
	Handle         string
	UserID         string
	URL            string
	WaitUntil      string
	IdempotencyKey string
}

// NavigationResult describes the loaded page. HistoryErr is set when the
// navigation succeeded but could not be recorded in history.
type NavigationResult struct {
	URL        string
	Title      string
	Favicon    string
	History    *domain.HistoryEntry
	HistoryErr error
}

// NavigationOptions configures a NavigationGateway.
type NavigationOptions struct {
	NavigateTimeout time.Duration
	HistoryTimeout  time.Duration
}

// NavigationGateway drives a page load in an existing context and reports
// it to the history listener.
type NavigationGateway struct {
	registry Registry
	engine   Navigator
	settings domain.SettingsStore
	rules    RulesProvider
	listener NavigationListener
	log      logger.Logger
	metrics  *metrics.Metrics
	opts     NavigationOptions
	now      func() time.Time
}

// NewNavigationGateway wires a gateway. settings, rules and listener may
// be nil: defaults apply and nothing is recorded.
func NewNavigationGateway(
	reg Registry,
	nav Navigator,
	settings domain.SettingsStore,
	rules RulesProvider,
	listener NavigationListener,
	log logger.Logger,
	m *metrics.Metrics,
	opts NavigationOptions,
) *NavigationGateway {
	if opts.NavigateTimeout <= 0 {
		opts.NavigateTimeout = DefaultNavigateTimeout
	}
	if opts.HistoryTimeout <= 0 {
		opts.HistoryTimeout = DefaultHistoryTimeout
	}
	if rules == nil {
		rules = StaticRules(domain.DefaultRuleSet())
	}
	return &NavigationGateway{
		registry: reg,
		engine:   nav,
		settings: settings,
		rules:    rules,
		listener: listener,
		log:      log,
		metrics:  m,
		opts:     opts,
		now:      time.Now,
	}
}

// Navigate validates ownership of in.Handle, loads the normalized URL and
// records the visit. Nothing reaches the engine unless the handle is live
// and owned by in.UserID.
func (g *NavigationGateway) Navigate(ctx context.Context, in NavigateInput) (NavigationResult, error) {
	start := g.now()

	if err := g.registry.Validate(in.Handle, in.UserID); err != nil {
		g.metrics.Navigation(string(domain.KindOf(err)), 0)
		return NavigationResult{}, err
	}

	settings := g.settingsFor(ctx, in.UserID)
	rules := g.rules.Current()
	target, err := domain.NormalizeURL(in.URL, settings, rules.Tracking, rules.SearchEngines)
	if err != nil {
		g.metrics.Navigation(string(domain.KindOf(err)), 0)
		return NavigationResult{}, err
	}

	// detached: a caller that goes away must not abort a load half way
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.opts.NavigateTimeout)
	page, err := g.engine.Navigate(nctx, engine.NavigateRequest{
		Handle:    in.Handle,
		URL:       target,
		WaitUntil: in.WaitUntil,
		Options: engine.NavigateOptions{
			ZoomLevel:  settings.DefaultZoomLevel,
			JavaScript: settings.EnableJavaScript,
			Cookies:    settings.EnableCookies,
			Adblock:    settings.EnableAdblock,
		},
	})
	cancel()
	elapsed := g.now().Sub(start).Seconds()

	if err != nil {
		if errors.Is(err, engine.ErrContextGone) {
			g.registry.MarkDead(in.Handle)
			err = domain.E(domain.KindEngineUnavailable, "browser context is gone", err)
		}
		g.metrics.Navigation(string(domain.KindOf(err)), elapsed)
		g.log.Warn("navigation failed",
			logger.String("handle", in.Handle),
			logger.String("user_id", in.UserID),
			logger.Error(err))
		return NavigationResult{}, err
	}

	if terr := g.registry.Touch(in.Handle); terr != nil {
		g.log.Debug("context vanished during navigation", logger.String("handle", in.Handle))
	}

	if ctx.Err() != nil {
		g.metrics.Navigation("abandoned", elapsed)
		return NavigationResult{}, domain.E(domain.KindTimeout, "navigation abandoned by caller", ctx.Err())
	}

	// the engine reports the URL after redirects, which may carry tracking
	// parameters again
	finalURL := page.URL
	if settings.EnableTrackingProtection {
		finalURL = domain.StripTrackingURL(finalURL, rules.Tracking)
	}

	res := NavigationResult{
		URL:     finalURL,
		Title:   page.Title,
		Favicon: page.Favicon,
	}
	g.metrics.Navigation("ok", elapsed)

	if g.listener == nil {
		return res, nil
	}

	hctx, hcancel := context.WithTimeout(context.WithoutCancel(ctx), g.opts.HistoryTimeout)
	defer hcancel()
	entry, herr := g.listener.OnNavigation(hctx, domain.NavigationEvent{
		UserID:         in.UserID,
		Handle:         in.Handle,
		URL:            res.URL,
		Title:          res.Title,
		Favicon:        res.Favicon,
		IdempotencyKey: in.IdempotencyKey,
		At:             g.now(),
	})
	if herr != nil {
		g.log.Warn("navigation not recorded in history",
			logger.String("user_id", in.UserID),
			logger.Error(herr))
		res.HistoryErr = herr
		return res, nil
	}
	res.History = &entry
	return res, nil
}

func (g *NavigationGateway) settingsFor(ctx context.Context, userID string) domain.Settings {
	if g.settings == nil {
		return domain.DefaultSettings(userID)
	}
	s, err := g.settings.Get(ctx, userID)
	if err != nil {
		g.log.Warn("settings lookup failed, using defaults",
			logger.String("user_id", userID),
			logger.Error(err))
		return domain.DefaultSettings(userID)
	}
	if s == nil {
		return domain.DefaultSettings(userID)
	}
	return *s
}
