package domain

import (
	"net/url"
	"sort"
	"strings"
)

const (
	scoreExact     = 300.0
	scorePrefix    = 75.0
	scoreSubstring = 50.0
	scoreFuzzy     = 25.0
	scorePosition  = 10.0

	// host matches count a bit less than title matches
	hostWeight = 0.8
)

// BookmarkMatch is a bookmark with its relevance for a query.
type BookmarkMatch struct {
	Bookmark Bookmark `json:"bookmark"`
	Score    float64  `json:"score"`
}

// ScoreBookmark returns how well query matches the bookmark title or the
// host of its URL. Zero means no match.
func ScoreBookmark(query string, b Bookmark) float64 {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return 0.0
	}

	titleScore := scoreText(query, strings.ToLower(b.Title))

	hostScore := 0.0
	if u, err := url.Parse(b.URL); err == nil && u.Host != "" {
		host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
		hostScore = scoreText(query, host) * hostWeight
	}

	if hostScore > titleScore {
		return hostScore
	}
	return titleScore
}

func scoreText(query, text string) float64 {
	if text == "" {
		return 0.0
	}
	if query == text {
		return scoreExact
	}
	if strings.HasPrefix(text, query) {
		return scorePrefix
	}
	if idx := strings.Index(text, query); idx >= 0 {
		// earlier substrings rank higher
		return scoreSubstring + scorePosition*(1.0-float64(idx)/float64(len(text)))
	}

	if words := strings.Fields(query); len(words) > 1 {
		all := true
		for _, w := range words {
			if !strings.Contains(text, w) {
				all = false
				break
			}
		}
		if all {
			return scoreFuzzy
		}
	}

	if sim := similarity(query, text); sim > 0.5 {
		return scoreFuzzy * sim
	}
	return 0.0
}

// similarity is the ratio of query runes that appear anywhere in text.
func similarity(query, text string) float64 {
	if query == "" || text == "" {
		return 0.0
	}
	matches, total := 0, 0
	for _, c := range query {
		total++
		if strings.ContainsRune(text, c) {
			matches++
		}
	}
	return float64(matches) / float64(total)
}

// SearchBookmarks ranks bookmarks against query, best first. Bookmarks
// that do not match are dropped; ties keep their input order.
func SearchBookmarks(query string, bookmarks []Bookmark) []BookmarkMatch {
	matches := make([]BookmarkMatch, 0, len(bookmarks))
	for _, b := range bookmarks {
		score := ScoreBookmark(query, b)
		if score == 0.0 {
			continue
		}
		matches = append(matches, BookmarkMatch{Bookmark: b, Score: score})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	return matches
}
