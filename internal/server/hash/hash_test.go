package hash

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcrypt_RoundTrip(t *testing.T) {
	h := NewBcrypt(bcrypt.MinCost)

	hashed, err := h.Hash("Secret1!")
	require.NoError(t, err)
	require.NotEqual(t, "Secret1!", hashed)

	require.True(t, h.Verify("Secret1!", hashed))
	require.False(t, h.Verify("wrong", hashed))
}

func TestBcrypt_HashesDiffer(t *testing.T) {
	h := NewBcrypt(bcrypt.MinCost)

	a, err := h.Hash("same-password")
	require.NoError(t, err)
	b, err := h.Hash("same-password")
	require.NoError(t, err)
	require.NotEqual(t, a, b, "bcrypt salts must differ per hash")
}

func TestNewBcrypt_DefaultCost(t *testing.T) {
	h := NewBcrypt(0)
	require.Equal(t, bcrypt.DefaultCost, h.cost)
}
