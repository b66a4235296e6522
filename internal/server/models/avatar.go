package models

// Avatar links an account to its stored profile image. UserID is unique,
// enforcing the one-to-one relation; Name is the blob storage key and URL the
// public-facing path.
type Avatar struct {
	ID     int64
	UserID int64
	Name   string
	URL    string
}
