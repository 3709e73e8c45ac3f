package domain

import "time"

// Profile is the public identity of a user. ID equals the authenticated
// user id.
type Profile struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	FullName     *string   `json:"full_name"`
	Email        *string   `json:"email"`
	Organization *string   `json:"organization"`
	Birthdate    *string   `json:"birthdate"` // YYYY-MM-DD
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
