package domain

import (
	"fmt"
	"net/url"
	"time"
)

// SearchEngine names a supported default search engine.
type SearchEngine string

const (
	SearchGoogle     SearchEngine = "google"
	SearchBing       SearchEngine = "bing"
	SearchDuckDuckGo SearchEngine = "duckduckgo"
	SearchBrave      SearchEngine = "brave"
)

// DefaultSearchEngines maps each engine to its query URL prefix.
// The query is appended URL-escaped.
var DefaultSearchEngines = map[SearchEngine]string{
	SearchGoogle:     "https://www.google.com/search?q=",
	SearchBing:       "https://www.bing.com/search?q=",
	SearchDuckDuckGo: "https://duckduckgo.com/?q=",
	SearchBrave:      "https://search.brave.com/search?q=",
}

const (
	DefaultZoomLevel = 100
	MinZoomLevel     = 25
	MaxZoomLevel     = 500
)

// Settings is the per-user browser configuration. There is at most one
// row per user; it is upserted on every change.
type Settings struct {
	UserID                   string       `json:"user_id"`
	DefaultSearchEngine      SearchEngine `json:"default_search_engine"`
	DefaultZoomLevel         int          `json:"default_zoom_level"`
	EnableJavaScript         bool         `json:"enable_javascript"`
	EnableCookies            bool         `json:"enable_cookies"`
	EnableAdblock            bool         `json:"enable_adblock"`
	EnableTrackingProtection bool         `json:"enable_tracking_protection"`
	CreatedAt                time.Time    `json:"created_at"`
	UpdatedAt                time.Time    `json:"updated_at"`
}

// DefaultSettings returns the settings applied when a user never saved any.
func DefaultSettings(userID string) Settings {
	return Settings{
		UserID:                   userID,
		DefaultSearchEngine:      SearchGoogle,
		DefaultZoomLevel:         DefaultZoomLevel,
		EnableJavaScript:         true,
		EnableCookies:            true,
		EnableAdblock:            false,
		EnableTrackingProtection: true,
	}
}

// SettingsPatch holds the optional fields of a settings update.
type SettingsPatch struct {
	DefaultSearchEngine      *SearchEngine `json:"default_search_engine"`
	DefaultZoomLevel         *int          `json:"default_zoom_level"`
	EnableJavaScript         *bool         `json:"enable_javascript"`
	EnableCookies            *bool         `json:"enable_cookies"`
	EnableAdblock            *bool         `json:"enable_adblock"`
	EnableTrackingProtection *bool         `json:"enable_tracking_protection"`
}

// Apply validates p and copies its set fields onto s.
func (p SettingsPatch) Apply(s *Settings) error {
	if p.DefaultSearchEngine != nil {
		if _, ok := DefaultSearchEngines[*p.DefaultSearchEngine]; !ok {
			return E(KindInvalidArgument, fmt.Sprintf("unknown search engine %q", *p.DefaultSearchEngine), nil)
		}
		s.DefaultSearchEngine = *p.DefaultSearchEngine
	}
	if p.DefaultZoomLevel != nil {
		z := *p.DefaultZoomLevel
		if z < MinZoomLevel || z > MaxZoomLevel {
			return E(KindInvalidArgument, fmt.Sprintf("zoom level must be between %d and %d", MinZoomLevel, MaxZoomLevel), nil)
		}
		s.DefaultZoomLevel = z
	}
	if p.EnableJavaScript != nil {
		s.EnableJavaScript = *p.EnableJavaScript
	}
	if p.EnableCookies != nil {
		s.EnableCookies = *p.EnableCookies
	}
	if p.EnableAdblock != nil {
		s.EnableAdblock = *p.EnableAdblock
	}
	if p.EnableTrackingProtection != nil {
		s.EnableTrackingProtection = *p.EnableTrackingProtection
	}
	return nil
}

// SearchURL builds the search URL for query on the given engine, falling
// back to Google for unknown engines.
func SearchURL(engines map[SearchEngine]string, engine SearchEngine, query string) string {
	prefix, ok := engines[engine]
	if !ok {
		prefix = DefaultSearchEngines[SearchGoogle]
	}
	return prefix + url.QueryEscape(query)
}
