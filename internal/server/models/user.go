// Package models defines the server-side data models persisted in, and read
// from, the database.
package models

import "time"

// User is the full credential record. It never leaves the service layer:
// handlers only ever see PublicUser.
type User struct {
	ID           string
	Username     string
	Email        string
	Fullname     string
	Avatar       string
	CoverImage   string
	PasswordHash string
	// RefreshToken is the single refresh token value currently accepted for
	// this user; empty when logged out.
	RefreshToken string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PublicUser is the sanitized view of a user: no password, no refresh token.
type PublicUser struct {
	ID           string    `json:"_id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	Fullname     string    `json:"fullname"`
	Avatar       string    `json:"avatar"`
	CoverImage   string    `json:"coverImage"`
	WatchHistory []string  `json:"watchHistory"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Public returns the sanitized view of u. Watch history is not part of the
// credential record and is left empty.
func (u *User) Public() *PublicUser {
	return &PublicUser{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		Fullname:     u.Fullname,
		Avatar:       u.Avatar,
		CoverImage:   u.CoverImage,
		WatchHistory: []string{},
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

// UserLookup selects a user by username OR email; empty fields are ignored.
type UserLookup struct {
	Username string
	Email    string
}

// IsEmpty reports whether no criterion is set.
func (l UserLookup) IsEmpty() bool {
	return l.Username == "" && l.Email == ""
}
