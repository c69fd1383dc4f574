// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a provisioned user account.
//
// The identity provider is the source of truth for who the user is; we only
// mirror its claims. The primary external identifier is the token's subject
// (a stable opaque string). We still generate our own internal string ID
// (xid) for consistency with Task and to avoid tying our primary keys to a
// third party's identifier scheme.
//
// WHY Email/Name/ImageURL as plain strings (not *string)?
// The provider may omit any of these claims. We use the empty string as the
// zero value rather than nullable pointers — simpler to work with and safe
// to display. The UNIQUE constraint on subject in the DB ensures one
// external identity maps to exactly one account.
type User struct {
	ID        string    `json:"id"        db:"id"`
	Subject   string    `json:"subject"   db:"subject"` // Identity provider's stable user identifier
	Email     string    `json:"email"     db:"email"`   // May be empty if the provider omits it
	Name      string    `json:"name"      db:"name"`    // Display name
	ImageURL  string    `json:"imageUrl"  db:"image_url"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}
