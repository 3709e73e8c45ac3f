package userdata

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MrSnakeDoc/tabgate/internal/domain"
)

// BookmarkInput is the body of a bookmark creation.
type BookmarkInput struct {
	URL     string  `json:"url"`
	Title   string  `json:"title"`
	Favicon *string `json:"favicon"`
	Folder  *string `json:"folder"`
}

// Bookmarks manages the bookmarks of each user.
type Bookmarks struct {
	store domain.BookmarkStore
	now   func() time.Time
	newID func() string
}

func NewBookmarks(store domain.BookmarkStore) *Bookmarks {
	return &Bookmarks{
		store: store,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// List returns the bookmarks of userID, optionally restricted to folder.
func (b *Bookmarks) List(ctx context.Context, userID string, folder *string) ([]domain.Bookmark, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	list, err := b.store.List(ctx, userID, folder)
	if err != nil {
		return nil, storeErr(err, "bookmarks unavailable")
	}
	return list, nil
}

// Search ranks the bookmarks of userID against query.
func (b *Bookmarks) Search(ctx context.Context, userID, query string) ([]domain.BookmarkMatch, error) {
	list, err := b.List(ctx, userID, nil)
	if err != nil {
		return nil, err
	}
	return domain.SearchBookmarks(query, list), nil
}

// Create saves a new bookmark for userID.
func (b *Bookmarks) Create(ctx context.Context, userID string, in BookmarkInput) (domain.Bookmark, error) {
	if err := requireUser(userID); err != nil {
		return domain.Bookmark{}, err
	}

	now := b.now().UTC()
	bm := domain.Bookmark{
		ID:        b.newID(),
		UserID:    userID,
		URL:       strings.TrimSpace(in.URL),
		Title:     strings.TrimSpace(in.Title),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if in.Favicon != nil {
		bm.Favicon = domain.StringPtr(strings.TrimSpace(*in.Favicon))
	}
	if in.Folder != nil {
		bm.Folder = domain.StringPtr(strings.TrimSpace(*in.Folder))
	}
	if err := validateBookmark(bm); err != nil {
		return domain.Bookmark{}, err
	}

	if err := b.store.Create(ctx, bm); err != nil {
		return domain.Bookmark{}, storeErr(err, "bookmark could not be saved")
	}
	return bm, nil
}

// Update applies patch to a bookmark of userID. A bookmark of another
// user is reported as NotFound.
func (b *Bookmarks) Update(ctx context.Context, userID, id string, patch domain.BookmarkPatch) (domain.Bookmark, error) {
	if err := requireUser(userID); err != nil {
		return domain.Bookmark{}, err
	}
	bm, err := b.store.Get(ctx, userID, id)
	if err != nil {
		return domain.Bookmark{}, storeErr(err, "bookmarks unavailable")
	}

	patch.Apply(&bm)
	bm.URL = strings.TrimSpace(bm.URL)
	bm.Title = strings.TrimSpace(bm.Title)
	if err := validateBookmark(bm); err != nil {
		return domain.Bookmark{}, err
	}
	bm.UpdatedAt = b.now().UTC()

	if err := b.store.Update(ctx, bm); err != nil {
		return domain.Bookmark{}, storeErr(err, "bookmark could not be saved")
	}
	return bm, nil
}

// Delete removes a bookmark of userID.
func (b *Bookmarks) Delete(ctx context.Context, userID, id string) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	if err := b.store.Delete(ctx, userID, id); err != nil {
		return storeErr(err, "bookmark could not be deleted")
	}
	return nil
}

func validateBookmark(b domain.Bookmark) error {
	if b.Title == "" {
		return domain.E(domain.KindInvalidArgument, "title is required", nil)
	}
	if !validHTTPURL(b.URL) {
		return domain.E(domain.KindInvalidArgument, "url must be an absolute http or https url", nil)
	}
	return nil
}
