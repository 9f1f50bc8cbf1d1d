package users

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, salt, err := hashPassword("correct horse")
	require.NoError(t, err)
	assert.NotContains(t, hash, "correct horse")

	ok, err := verifyPassword("correct horse", salt, hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = verifyPassword("battery staple", salt, hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHashPasswordUsesFreshSalt(t *testing.T) {
	h1, s1, err := hashPassword("same")
	require.NoError(t, err)
	h2, s2, err := hashPassword("same")
	require.NoError(t, err)
	assert.NotEqual(t, s1, s2)
	assert.NotEqual(t, h1, h2)
}

func TestVerifyPasswordRejectsCorruptEncoding(t *testing.T) {
	_, err := verifyPassword("x", "%%%", "AAAA")
	assert.Error(t, err)
	_, err = verifyPassword("x", "AAAA", "%%%")
	assert.Error(t, err)
}
