package domain

import "time"

// HistoryEntry is one visited page of one user.
//
// Entries are append-only: created by the recorder after a successful
// navigation (or an explicit POST /history), never mutated, and removed
// only when the user clears their history.
type HistoryEntry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	URL       string    `json:"url"`
	Title     *string   `json:"title"`
	Favicon   *string   `json:"favicon"`
	VisitedAt time.Time `json:"visited_at"`
}

// NavigationEvent is emitted by the navigation gateway once the engine
// confirmed a navigation. The history recorder consumes it.
type NavigationEvent struct {
	UserID         string
	Handle         string
	URL            string
	Title          string
	Favicon        string
	IdempotencyKey string
	At             time.Time
}

// StringPtr returns nil for an empty string, &s otherwise.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
