package domain

import "time"

// Bookmark is a URL saved explicitly by a user.
// Navigation never creates, updates or deletes bookmarks.
type Bookmark struct {
	// ─────────────────────────────
	// Identity (immutable)
	// ─────────────────────────────

	// ID is a random UUID assigned on creation.
	ID string `json:"id"`

	// UserID is the owner. Every mutation is filtered on it.
	UserID string `json:"user_id"`

	// ─────────────────────────────
	// Content (user editable)
	// ─────────────────────────────

	// URL is the bookmarked address.
	URL string `json:"url"`

	// Title is the label shown in the UI. Required.
	Title string `json:"title"`

	// Favicon is an optional icon URL.
	Favicon *string `json:"favicon"`

	// Folder groups bookmarks. Nil means the root folder.
	Folder *string `json:"folder"`

	// ─────────────────────────────
	// Metadata
	// ─────────────────────────────

	// CreatedAt is set once on creation.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is bumped on any mutation.
	UpdatedAt time.Time `json:"updated_at"`
}

// BookmarkPatch holds the optional fields of an update. Nil means
// "leave unchanged".
type BookmarkPatch struct {
	URL     *string `json:"url"`
	Title   *string `json:"title"`
	Favicon *string `json:"favicon"`
	Folder  *string `json:"folder"`
}

// Apply copies the set fields of p onto b.
func (p BookmarkPatch) Apply(b *Bookmark) {
	if p.URL != nil {
		b.URL = *p.URL
	}
	if p.Title != nil {
		b.Title = *p.Title
	}
	if p.Favicon != nil {
		b.Favicon = StringPtr(*p.Favicon)
	}
	if p.Folder != nil {
		b.Folder = StringPtr(*p.Folder)
	}
}
