package domain

import "time"

// ContextHandle is the registry's record of one isolated browser context
// allocated by the external engine.
//
// The handle ID is opaque: it is whatever the engine returned.
type ContextHandle struct {
	// ─────────────────────────────
	// Identity (immutable)
	// ─────────────────────────────

	// ID is the engine-issued context identifier.
	ID string `json:"handle"`

	// UserID is the owner. Only the owner may act on the handle.
	UserID string `json:"userId"`

	// ─────────────────────────────
	// Activity
	// ─────────────────────────────

	// CreatedAt is when the engine confirmed the context.
	CreatedAt time.Time `json:"createdAt"`

	// LastActivityAt is bumped on every successful navigation.
	LastActivityAt time.Time `json:"lastActivityAt"`

	// ─────────────────────────────
	// Liveness
	// ─────────────────────────────

	// Live is false once the handle was destroyed, reclaimed or reported
	// gone by the engine.
	Live bool `json:"live"`
}

// IdleFor returns how long the handle has been inactive at now.
func (h ContextHandle) IdleFor(now time.Time) time.Duration {
	return now.Sub(h.LastActivityAt)
}
