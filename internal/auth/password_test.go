package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastParams = Params{Memory: 1024, Iterations: 1, Parallelism: 1, KeyLen: 16, SaltLen: 8}

func TestHashVerify(t *testing.T) {
	h, err := HashPassword("secret-123")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(h, "$argon2id$v=19$m=32768,t=2,p=1$"))
	assert.True(t, VerifyPassword(h, "secret-123"))
	assert.False(t, VerifyPassword(h, "wrong"))
}

func TestCustomParamsAreSelfDescribing(t *testing.T) {
	h, err := fastParams.Hash("barangay-pass")
	require.NoError(t, err)
	assert.True(t, VerifyPassword(h, "barangay-pass"))

	other, err := fastParams.Hash("barangay-pass")
	require.NoError(t, err)
	assert.NotEqual(t, h, other, "salt must differ per hash")
}

func TestVerifyRejectsMalformedHashes(t *testing.T) {
	for _, encoded := range []string{
		"",
		"plaintext",
		"$bcrypt$v=19$m=1024,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=18$m=1024,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=1024,t=1,p=0$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=1024,t=1,p=1$!!$aGFzaA",
		"$argon2id$v=19$m=1024,t=1,p=1$c2FsdA$",
	} {
		assert.False(t, VerifyPassword(encoded, "pw"), encoded)
	}
}

func TestHashRejectsEmptyPassword(t *testing.T) {
	_, err := fastParams.Hash("")
	require.Error(t, err)
}

func TestCheckPasswordPolicy(t *testing.T) {
	require.ErrorIs(t, CheckPasswordPolicy("short"), ErrWeakPassword)
	require.ErrorIs(t, CheckPasswordPolicy(strings.Repeat("x", MaxPasswordLength+1)), ErrWeakPassword)
	require.NoError(t, CheckPasswordPolicy("long-enough"))
}

func TestOpaqueTokens(t *testing.T) {
	raw, hash, err := NewOpaqueToken()
	require.NoError(t, err)
	assert.Len(t, raw, 43)
	assert.Equal(t, HashToken(raw), hash)
	assert.Len(t, hash, 64)

	raw2, _, err := NewOpaqueToken()
	require.NoError(t, err)
	assert.NotEqual(t, raw, raw2)

	csrf, err := NewCSRFToken()
	require.NoError(t, err)
	assert.Len(t, csrf, 32)
}
