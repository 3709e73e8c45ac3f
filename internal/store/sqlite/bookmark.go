package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/MrSnakeDoc/tabgate/internal/domain"
)

// Compile-time interface satisfaction check.
var _ domain.BookmarkStore = (*BookmarkRepo)(nil)

// BookmarkRepo is the SQLite implementation of domain.BookmarkStore.
type BookmarkRepo struct {
	db *DB
}

// NewBookmarkRepo creates a new BookmarkRepo backed by the given DB.
func NewBookmarkRepo(db *DB) *BookmarkRepo {
	return &BookmarkRepo{db: db}
}

const bookmarkColumns = `id, user_id, url, title, favicon, folder, created_at, updated_at`

func scanBookmark(row rowScanner) (domain.Bookmark, error) {
	var (
		b                    domain.Bookmark
		favicon, folder      sql.NullString
		createdAt, updatedAt int64
	)
	if err := row.Scan(&b.ID, &b.UserID, &b.URL, &b.Title, &favicon, &folder, &createdAt, &updatedAt); err != nil {
		return domain.Bookmark{}, err
	}
	b.Favicon = stringPtr(favicon)
	b.Folder = stringPtr(folder)
	b.CreatedAt = fromNanos(createdAt)
	b.UpdatedAt = fromNanos(updatedAt)
	return b, nil
}

// List returns the bookmarks of userID, newest first. A non-nil folder
// restricts the result to that folder.
func (r *BookmarkRepo) List(ctx context.Context, userID string, folder *string) ([]domain.Bookmark, error) {
	query := `SELECT ` + bookmarkColumns + ` FROM browser_bookmarks WHERE user_id = ?`
	args := []any{userID}
	if folder != nil {
		query += ` AND folder = ?`
		args = append(args, *folder)
	}
	query += ` ORDER BY created_at DESC, id`

	rows, err := r.db.Reader.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list bookmarks for %s: %w", userID, err)
	}
	defer rows.Close()

	bookmarks := []domain.Bookmark{}
	for rows.Next() {
		b, err := scanBookmark(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bookmark row: %w", err)
		}
		bookmarks = append(bookmarks, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bookmark rows: %w", err)
	}
	return bookmarks, nil
}

// Get returns one bookmark of userID.
func (r *BookmarkRepo) Get(ctx context.Context, userID, id string) (domain.Bookmark, error) {
	b, err := scanBookmark(r.db.Reader.QueryRowContext(ctx,
		`SELECT `+bookmarkColumns+` FROM browser_bookmarks WHERE user_id = ? AND id = ?`,
		userID, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Bookmark{}, domain.E(domain.KindNotFound, "bookmark not found", nil)
	}
	if err != nil {
		return domain.Bookmark{}, fmt.Errorf("get bookmark %s: %w", id, err)
	}
	return b, nil
}

// Create inserts a new bookmark.
func (r *BookmarkRepo) Create(ctx context.Context, b domain.Bookmark) error {
	_, err := r.db.Writer.ExecContext(ctx, `
		INSERT INTO browser_bookmarks (`+bookmarkColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, b.ID, b.UserID, b.URL, b.Title, nullString(b.Favicon), nullString(b.Folder),
		toNanos(b.CreatedAt), toNanos(b.UpdatedAt))
	if err != nil {
		return fmt.Errorf("create bookmark %s: %w", b.ID, err)
	}
	return nil
}

// Update replaces the editable fields of a bookmark owned by b.UserID.
func (r *BookmarkRepo) Update(ctx context.Context, b domain.Bookmark) error {
	res, err := r.db.Writer.ExecContext(ctx, `
		UPDATE browser_bookmarks
		SET url = ?, title = ?, favicon = ?, folder = ?, updated_at = ?
		WHERE id = ? AND user_id = ?
	`, b.URL, b.Title, nullString(b.Favicon), nullString(b.Folder), toNanos(b.UpdatedAt), b.ID, b.UserID)
	if err != nil {
		return fmt.Errorf("update bookmark %s: %w", b.ID, err)
	}
	return expectOneRow(res, "bookmark not found")
}

// Delete removes a bookmark owned by userID.
func (r *BookmarkRepo) Delete(ctx context.Context, userID, id string) error {
	res, err := r.db.Writer.ExecContext(ctx,
		`DELETE FROM browser_bookmarks WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete bookmark %s: %w", id, err)
	}
	return expectOneRow(res, "bookmark not found")
}

func expectOneRow(res sql.Result, notFound string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return domain.E(domain.KindNotFound, notFound, nil)
	}
	return nil
}
