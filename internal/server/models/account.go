// Package models defines the persisted data structures shared by repositories
// and services on the server side.
package models

// Account is a registered user. Username and email are globally unique;
// uniqueness is enforced by the database, not only by application checks.
type Account struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	Roles        []string
}

// HasAnyRole reports whether the account holds at least one of the given roles.
// An empty required set always passes.
func (a *Account) HasAnyRole(roles ...string) bool {
	if len(roles) == 0 {
		return true
	}
	for _, required := range roles {
		for _, have := range a.Roles {
			if have == required {
				return true
			}
		}
	}
	return false
}
