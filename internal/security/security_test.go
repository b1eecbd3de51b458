package security_test

import (
	"testing"

	"github.com/dom/document-viewer/internal/security"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHasher_HashAndVerify(t *testing.T) {
	h := security.NewHasher(bcrypt.MinCost)

	hash, err := h.Hash("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", hash)

	assert.True(t, h.Verify("correct horse", hash))
	assert.False(t, h.Verify("wrong horse", hash))
	assert.False(t, h.Verify("correct horse", "not-a-bcrypt-hash"))

	again, err := h.Hash("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, hash, again, "hashes must be salted")
}

func TestNewHasher_ClampsCost(t *testing.T) {
	assert.Equal(t, security.PasswordCost, security.NewHasher(0).Cost)
	assert.Equal(t, bcrypt.MinCost, security.NewHasher(1).Cost)
	assert.Equal(t, bcrypt.MaxCost, security.NewHasher(99).Cost)
}

func TestNewSessionToken(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		tok, err := security.NewSessionToken()
		require.NoError(t, err)
		assert.Len(t, tok, security.TokenBytes*2)
		_, dup := seen[tok]
		assert.False(t, dup)
		seen[tok] = struct{}{}
	}
}

func TestHashToken(t *testing.T) {
	a := security.HashToken("abc")
	assert.Len(t, a, 64)
	assert.Equal(t, a, security.HashToken("abc"))
	assert.NotEqual(t, a, security.HashToken("abd"))
}
