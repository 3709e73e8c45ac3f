// Package userdata holds the per-user records that are edited explicitly:
// bookmarks, browser settings and the profile. Every operation is scoped
// to the caller's user id.
package userdata

import (
	"net/url"
	"strings"

	"github.com/MrSnakeDoc/tabgate/internal/domain"
)

// storeErr passes classified errors through and turns anything else into
// StoreUnavailable.
func storeErr(err error, msg string) error {
	if domain.KindOf(err) != domain.KindInternal {
		return err
	}
	return domain.E(domain.KindStoreUnavailable, msg, err)
}

func requireUser(userID string) error {
	if userID == "" {
		return domain.E(domain.KindUnauthorized, "authentication required", nil)
	}
	return nil
}

func validHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	s := strings.ToLower(u.Scheme)
	return s == "http" || s == "https"
}
