package domain

import (
	"net/url"
	"strings"
)

// TrackingRules lists query parameters removed from URLs when tracking
// protection is enabled. Names are compared case-insensitively.
type TrackingRules struct {
	Params   map[string]struct{}
	Prefixes []string
}

// DefaultTrackingRules is used when no rules file is configured.
func DefaultTrackingRules() TrackingRules {
	names := []string{
		"fbclid", "gclid", "dclid", "gbraid", "wbraid", "msclkid", "mc_cid", "mc_eid",
		"igshid", "yclid", "twclid", "ttclid", "_ga", "_gl", "_hsenc", "_hsmi",
		"mkt_tok", "oly_anon_id", "oly_enc_id", "vero_id", "rb_clickid", "s_cid",
	}
	params := make(map[string]struct{}, len(names))
	for _, n := range names {
		params[n] = struct{}{}
	}
	return TrackingRules{
		Params:   params,
		Prefixes: []string{"utm_", "pk_", "hsa_"},
	}
}

// RuleSet is everything URL normalization depends on besides the user's
// settings.
type RuleSet struct {
	Tracking      TrackingRules
	SearchEngines map[SearchEngine]string
}

// DefaultRuleSet returns the built-in tracking rules and search engines.
func DefaultRuleSet() RuleSet {
	return RuleSet{
		Tracking:      DefaultTrackingRules(),
		SearchEngines: DefaultSearchEngines,
	}
}

// Matches reports whether the query parameter name is a tracking parameter.
func (r TrackingRules) Matches(name string) bool {
	name = strings.ToLower(name)
	if _, ok := r.Params[name]; ok {
		return true
	}
	for _, p := range r.Prefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// NormalizeURL turns user input into the URL handed to the engine.
//
//   - "https://x.y/..." is kept (http and https only)
//   - "x.y/path" or "localhost:3000" gets an https:// scheme
//   - anything else becomes a search on the user's default engine
//
// With tracking protection on, tracking parameters are removed while the
// order of the remaining parameters is preserved.
func NormalizeURL(raw string, s Settings, rules TrackingRules, engines map[SearchEngine]string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", E(KindInvalidArgument, "url is required", nil)
	}

	switch {
	case strings.Contains(raw, "://"):
	case looksLikeHost(raw):
		raw = "https://" + raw
	default:
		return SearchURL(engines, s.DefaultSearchEngine, raw), nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", E(KindInvalidArgument, "url is malformed", err)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", E(KindInvalidArgument, "only http and https urls are supported", nil)
	}
	if u.Host == "" {
		return "", E(KindInvalidArgument, "url has no host", nil)
	}
	u.Scheme = scheme

	if s.EnableTrackingProtection && u.RawQuery != "" {
		u.RawQuery = StripTracking(u.RawQuery, rules)
	}

	return u.String(), nil
}

// StripTracking removes tracking parameters from a raw query string.
func StripTracking(rawQuery string, rules TrackingRules) string {
	parts := strings.Split(rawQuery, "&")
	kept := parts[:0]
	for _, p := range parts {
		if p == "" {
			continue
		}
		name := p
		if i := strings.IndexByte(p, '='); i >= 0 {
			name = p[:i]
		}
		if unescaped, err := url.QueryUnescape(name); err == nil {
			name = unescaped
		}
		if rules.Matches(name) {
			continue
		}
		kept = append(kept, p)
	}
	return strings.Join(kept, "&")
}

// StripTrackingURL removes tracking parameters from an absolute URL. A URL
// that does not parse is returned unchanged.
func StripTrackingURL(raw string, rules TrackingRules) string {
	u, err := url.Parse(raw)
	if err != nil || u.RawQuery == "" {
		return raw
	}
	u.RawQuery = StripTracking(u.RawQuery, rules)
	return u.String()
}

func looksLikeHost(s string) bool {
	if strings.ContainsAny(s, " \t\n") {
		return false
	}
	host := s
	if i := strings.IndexAny(host, "/?#"); i >= 0 {
		host = host[:i]
	}
	if host == "" {
		return false
	}
	if strings.HasPrefix(host, "localhost") {
		return true
	}
	if i := strings.LastIndexByte(host, ':'); i > 0 {
		host = host[:i]
	}
	dot := strings.LastIndexByte(host, '.')
	return dot > 0 && dot < len(host)-1
}
