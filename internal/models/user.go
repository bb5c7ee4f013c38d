package models

import "time"

// User is a profile record mirrored from the identity provider.
// The external id is the provider's stable subject; all other entities
// reference users by the local serial id.
type User struct {
	ID         int       `db:"id" json:"id"`
	ExternalID string    `db:"external_id" json:"-"`
	Name       string    `db:"name" json:"name"`
	Email      string    `db:"email" json:"email"`
	AvatarURL  string    `db:"avatar_url" json:"avatar_url"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
