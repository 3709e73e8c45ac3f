package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/MrSnakeDoc/tabgate/internal/domain"
)

// Compile-time interface satisfaction check.
var _ domain.HistoryStore = (*HistoryRepo)(nil)

// HistoryRepo is the SQLite implementation of domain.HistoryStore.
type HistoryRepo struct {
	db *DB
}

// NewHistoryRepo creates a new HistoryRepo backed by the given DB.
func NewHistoryRepo(db *DB) *HistoryRepo {
	return &HistoryRepo{db: db}
}

const historyColumns = `id, user_id, url, title, favicon, visited_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHistory(row rowScanner) (domain.HistoryEntry, error) {
	var (
		e         domain.HistoryEntry
		title     sql.NullString
		favicon   sql.NullString
		visitedAt int64
	)
	if err := row.Scan(&e.ID, &e.UserID, &e.URL, &title, &favicon, &visitedAt); err != nil {
		return domain.HistoryEntry{}, err
	}
	e.Title = stringPtr(title)
	e.Favicon = stringPtr(favicon)
	e.VisitedAt = fromNanos(visitedAt)
	return e, nil
}

// Insert appends an entry in a single writer transaction. The transaction
// covers the token lookup, the visited_at clamp and the insert, so two
// concurrent inserts for a user can neither both win a token nor reorder
// visited_at.
func (r *HistoryRepo) Insert(ctx context.Context, in domain.HistoryInsert) (domain.HistoryEntry, bool, error) {
	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return domain.HistoryEntry{}, false, fmt.Errorf("begin history insert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	e := in.Entry
	now := toNanos(e.VisitedAt)

	if in.Token != "" {
		existing, err := scanHistory(tx.QueryRowContext(ctx, `
			SELECT `+historyColumns+`
			FROM browser_history
			WHERE user_id = ? AND idempotency_key = ? AND idempotency_expires_at > ?
		`, e.UserID, in.Token, now))
		if err == nil {
			return existing, false, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return domain.HistoryEntry{}, false, fmt.Errorf("lookup idempotency key: %w", err)
		}

		// an expired token may still sit on an old row until the GC runs
		if _, err := tx.ExecContext(ctx, `
			UPDATE browser_history
			SET idempotency_key = NULL, idempotency_expires_at = NULL
			WHERE user_id = ? AND idempotency_key = ?
		`, e.UserID, in.Token); err != nil {
			return domain.HistoryEntry{}, false, fmt.Errorf("release expired idempotency key: %w", err)
		}
	}

	var last sql.NullInt64
	if err := tx.QueryRowContext(ctx,
		`SELECT MAX(visited_at) FROM browser_history WHERE user_id = ?`, e.UserID,
	).Scan(&last); err != nil {
		return domain.HistoryEntry{}, false, fmt.Errorf("read last visit: %w", err)
	}
	if last.Valid && last.Int64 > now {
		now = last.Int64
	}
	e.VisitedAt = fromNanos(now)

	var token sql.NullString
	var expires sql.NullInt64
	if in.Token != "" {
		token = sql.NullString{String: in.Token, Valid: true}
		expires = sql.NullInt64{Int64: toNanos(in.TokenExpiresAt), Valid: true}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO browser_history (id, user_id, url, title, favicon, visited_at, idempotency_key, idempotency_expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.UserID, e.URL, nullString(e.Title), nullString(e.Favicon), now, token, expires); err != nil {
		return domain.HistoryEntry{}, false, fmt.Errorf("insert history entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return domain.HistoryEntry{}, false, fmt.Errorf("commit history insert: %w", err)
	}
	return e, true, nil
}

// Get returns one entry of userID.
func (r *HistoryRepo) Get(ctx context.Context, userID, id string) (domain.HistoryEntry, error) {
	e, err := scanHistory(r.db.Reader.QueryRowContext(ctx, `
		SELECT `+historyColumns+`
		FROM browser_history
		WHERE user_id = ? AND id = ?
	`, userID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.HistoryEntry{}, domain.E(domain.KindNotFound, "history entry not found", nil)
	}
	if err != nil {
		return domain.HistoryEntry{}, fmt.Errorf("get history entry %s: %w", id, err)
	}
	return e, nil
}

// List returns the newest entries of userID first. Entries sharing a
// visited_at are ordered by insertion, newest first.
func (r *HistoryRepo) List(ctx context.Context, userID string, limit int) ([]domain.HistoryEntry, error) {
	rows, err := r.db.Reader.QueryContext(ctx, `
		SELECT `+historyColumns+`
		FROM browser_history
		WHERE user_id = ?
		ORDER BY visited_at DESC, seq DESC
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list history for %s: %w", userID, err)
	}
	defer rows.Close()

	entries := make([]domain.HistoryEntry, 0, limit)
	for rows.Next() {
		e, err := scanHistory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history rows: %w", err)
	}
	return entries, nil
}

// Clear deletes every entry of userID and returns how many were removed.
func (r *HistoryRepo) Clear(ctx context.Context, userID string) (int64, error) {
	res, err := r.db.Writer.ExecContext(ctx, `DELETE FROM browser_history WHERE user_id = ?`, userID)
	if err != nil {
		return 0, fmt.Errorf("clear history for %s: %w", userID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("clear history rows affected: %w", err)
	}
	return n, nil
}

// ExpireTokens drops idempotency keys whose window ended at or before now.
func (r *HistoryRepo) ExpireTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.Writer.ExecContext(ctx, `
		UPDATE browser_history
		SET idempotency_key = NULL, idempotency_expires_at = NULL
		WHERE idempotency_key IS NOT NULL AND idempotency_expires_at <= ?
	`, toNanos(now))
	if err != nil {
		return 0, fmt.Errorf("expire idempotency keys: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("expire idempotency keys rows affected: %w", err)
	}
	return n, nil
}
