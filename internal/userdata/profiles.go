package userdata

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/MrSnakeDoc/tabgate/internal/domain"
)

// ProfileInput is the editable part of a profile.
type ProfileInput struct {
	Username     string  `json:"username"`
	FullName     *string `json:"full_name"`
	Email        *string `json:"email"`
	Organization *string `json:"organization"`
	Birthdate    *string `json:"birthdate"`
}

// Profiles manages the profile of each user. The profile id is the user
// id.
type Profiles struct {
	store domain.ProfileStore
	now   func() time.Time
}

func NewProfiles(store domain.ProfileStore) *Profiles {
	return &Profiles{store: store, now: time.Now}
}

// Get returns the profile of userID.
func (p *Profiles) Get(ctx context.Context, userID string) (domain.Profile, error) {
	if err := requireUser(userID); err != nil {
		return domain.Profile{}, err
	}
	prof, err := p.store.Get(ctx, userID)
	if err != nil {
		return domain.Profile{}, storeErr(err, "profile unavailable")
	}
	if prof == nil {
		return domain.Profile{}, domain.E(domain.KindNotFound, "profile not found", nil)
	}
	return *prof, nil
}

// Upsert creates or replaces the profile of userID.
func (p *Profiles) Upsert(ctx context.Context, userID string, in ProfileInput) (domain.Profile, error) {
	if err := requireUser(userID); err != nil {
		return domain.Profile{}, err
	}

	prof := domain.Profile{
		ID:           userID,
		Username:     strings.TrimSpace(in.Username),
		FullName:     trimmed(in.FullName),
		Email:        trimmed(in.Email),
		Organization: trimmed(in.Organization),
		Birthdate:    trimmed(in.Birthdate),
	}
	if prof.Username == "" {
		return domain.Profile{}, domain.E(domain.KindInvalidArgument, "username is required", nil)
	}
	if prof.Email != nil {
		if _, err := mail.ParseAddress(*prof.Email); err != nil {
			return domain.Profile{}, domain.E(domain.KindInvalidArgument, "email is invalid", nil)
		}
	}
	if prof.Birthdate != nil {
		if _, err := time.Parse(time.DateOnly, *prof.Birthdate); err != nil {
			return domain.Profile{}, domain.E(domain.KindInvalidArgument, "birthdate must be YYYY-MM-DD", nil)
		}
	}

	existing, err := p.store.Get(ctx, userID)
	if err != nil {
		return domain.Profile{}, storeErr(err, "profile unavailable")
	}
	now := p.now().UTC()
	prof.CreatedAt = now
	if existing != nil {
		prof.CreatedAt = existing.CreatedAt
	}
	prof.UpdatedAt = now

	if err := p.store.Upsert(ctx, prof); err != nil {
		return domain.Profile{}, storeErr(err, "profile could not be saved")
	}
	return prof, nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	return domain.StringPtr(strings.TrimSpace(*s))
}
