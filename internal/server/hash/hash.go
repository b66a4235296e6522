// Package hash provides the password hashing capability consumed by the
// account service. The production implementation is bcrypt.
package hash

import "golang.org/x/crypto/bcrypt"

// Hasher is a slow, salted one-way password hash.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
}

// Bcrypt implements Hasher using golang.org/x/crypto/bcrypt.
type Bcrypt struct {
	cost int
}

// NewBcrypt constructs a bcrypt hasher. A non-positive cost falls back to
// bcrypt.DefaultCost.
func NewBcrypt(cost int) *Bcrypt {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	return &Bcrypt{cost: cost}
}

func (b *Bcrypt) Hash(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), b.cost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

func (b *Bcrypt) Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
