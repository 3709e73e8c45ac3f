package rules

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/MrSnakeDoc/tabgate/internal/domain"
)

// Map converts a parsed rules file into the rule set used by URL
// normalization. Search engine entries override the URL prefix of a known
// engine; unknown engine names are rejected.
func Map(cfg Config) (domain.RuleSet, error) {
	set := domain.DefaultRuleSet()

	extend := cfg.Tracking.ExtendDefaults == nil || *cfg.Tracking.ExtendDefaults
	tracking := domain.TrackingRules{Params: map[string]struct{}{}}
	if extend {
		for p := range set.Tracking.Params {
			tracking.Params[p] = struct{}{}
		}
		tracking.Prefixes = append(tracking.Prefixes, set.Tracking.Prefixes...)
	}
	for _, p := range cfg.Tracking.Params {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			tracking.Params[p] = struct{}{}
		}
	}
	for _, p := range cfg.Tracking.Prefixes {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			tracking.Prefixes = append(tracking.Prefixes, p)
		}
	}
	set.Tracking = tracking

	engines := make(map[domain.SearchEngine]string, len(domain.DefaultSearchEngines))
	for k, v := range domain.DefaultSearchEngines {
		engines[k] = v
	}
	for name, prefix := range cfg.SearchEngines {
		engine := domain.SearchEngine(strings.ToLower(strings.TrimSpace(name)))
		if _, ok := domain.DefaultSearchEngines[engine]; !ok {
			return domain.RuleSet{}, fmt.Errorf("unknown search engine %q", name)
		}
		u, err := url.Parse(prefix)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return domain.RuleSet{}, fmt.Errorf("invalid url for search engine %q: %q", name, prefix)
		}
		engines[engine] = prefix
	}
	set.SearchEngines = engines

	return set, nil
}
