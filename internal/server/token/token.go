// Package token generates the opaque credentials used for sessions and blob
// storage keys. Tokens are drawn from a fixed 64-character alphabet using a
// cryptographically secure random source.
package token

import (
	"crypto/rand"
	"fmt"
)

// Alphabet holds the characters a token may contain. Its length is exactly 64,
// so a random byte masked with 0x3f maps to it without modulo bias.
const Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"

const (
	// SessionTokenLength is the fixed length of access and refresh tokens.
	SessionTokenLength = 256
	// StorageKeyLength is the length of generated blob storage keys.
	StorageKeyLength = 32
)

// Generator produces opaque random tokens of a requested length.
type Generator struct{}

func NewGenerator() *Generator { return &Generator{} }

// Generate returns a random string of exactly 'length' characters from
// Alphabet. It returns an error if the random source fails or the length is
// not positive.
func (g *Generator) Generate(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("token length must be positive, got %d", length)
	}

	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("reading random bytes: %w", err)
	}
	for i, b := range buf {
		buf[i] = Alphabet[int(b)&0x3f]
	}
	return string(buf), nil
}
