package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/MrSnakeDoc/tabgate/internal/domain"
)

// Compile-time interface satisfaction check.
var _ domain.ProfileStore = (*ProfileRepo)(nil)

// ProfileRepo is the SQLite implementation of domain.ProfileStore.
type ProfileRepo struct {
	db *DB
}

// NewProfileRepo creates a new ProfileRepo backed by the given DB.
func NewProfileRepo(db *DB) *ProfileRepo {
	return &ProfileRepo{db: db}
}

// Get retrieves a profile by id. Returns (nil, nil) when none exists.
func (r *ProfileRepo) Get(ctx context.Context, id string) (*domain.Profile, error) {
	const query = `
		SELECT id, username, full_name, email, organization, birthdate, created_at, updated_at
		FROM profiles
		WHERE id = ?
	`

	var (
		p                                        domain.Profile
		fullName, email, organization, birthdate sql.NullString
		createdAt, updatedAt                     int64
	)
	err := r.db.Reader.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.Username, &fullName, &email, &organization, &birthdate, &createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get profile %s: %w", id, err)
	}

	p.FullName = stringPtr(fullName)
	p.Email = stringPtr(email)
	p.Organization = stringPtr(organization)
	p.Birthdate = stringPtr(birthdate)
	p.CreatedAt = fromNanos(createdAt)
	p.UpdatedAt = fromNanos(updatedAt)
	return &p, nil
}

// Upsert inserts or updates a profile. created_at is kept from the first
// insert.
func (r *ProfileRepo) Upsert(ctx context.Context, p domain.Profile) error {
	const query = `
		INSERT INTO profiles (id, username, full_name, email, organization, birthdate, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			username = excluded.username,
			full_name = excluded.full_name,
			email = excluded.email,
			organization = excluded.organization,
			birthdate = excluded.birthdate,
			updated_at = excluded.updated_at
	`

	_, err := r.db.Writer.ExecContext(ctx, query,
		p.ID, p.Username, nullString(p.FullName), nullString(p.Email),
		nullString(p.Organization), nullString(p.Birthdate),
		toNanos(p.CreatedAt), toNanos(p.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert profile %s: %w", p.ID, err)
	}
	return nil
}
