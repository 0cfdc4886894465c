package accounts_test

import (
	"strings"
	"testing"

	accounts "github.com/goliatone/go-accounts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestPBKDF2HasherRoundTrip(t *testing.T) {
	hasher := accounts.NewPBKDF2Hasher()

	passwords := []string{"Secret1!", "", "pässwörd with spaces", strings.Repeat("x", 200)}
	for _, password := range passwords {
		for _, iterations := range []int{1, 10, testIterations} {
			digest, err := hasher.Hash(password, iterations)
			require.NoError(t, err)

			assert.True(t, hasher.Verify(password, digest))
			assert.False(t, hasher.Verify(password+"x", digest))
			assert.Equal(t, iterations, accounts.DigestIterations(digest))
		}
	}
}

func TestPBKDF2HasherSaltsEveryDigest(t *testing.T) {
	hasher := accounts.NewPBKDF2Hasher()

	first, err := hasher.Hash("Secret1!", testIterations)
	require.NoError(t, err)
	second, err := hasher.Hash("Secret1!", testIterations)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.True(t, strings.HasPrefix(first, "$pbkdf2-sha256$i=1000$"))
}

func TestPBKDF2HasherDefaultIterations(t *testing.T) {
	digest, err := accounts.NewPBKDF2Hasher().Hash("Secret1!", 0)
	require.NoError(t, err)
	assert.Equal(t, accounts.DefaultHashIterations, accounts.DigestIterations(digest))
}

func TestPBKDF2HasherRejectsMalformedDigests(t *testing.T) {
	hasher := accounts.NewPBKDF2Hasher()

	digests := []string{
		"",
		"plaintext",
		"$pbkdf2-sha256$i=0$c2FsdA$a2V5",
		"$pbkdf2-sha256$i=abc$c2FsdA$a2V5",
		"$pbkdf2-sha256$1000$c2FsdA$a2V5",
		"$pbkdf2-sha256$i=1000$!!!$a2V5",
		"$pbkdf2-sha256$i=1000$c2FsdA$",
		"$md5$i=1000$c2FsdA$a2V5",
	}

	for _, digest := range digests {
		assert.False(t, hasher.Verify("Secret1!", digest), digest)
		assert.Zero(t, accounts.DigestIterations(digest), digest)
	}
}

func TestPBKDF2HasherVerifiesBcrypt(t *testing.T) {
	legacy, err := bcrypt.GenerateFromPassword([]byte("Secret1!"), bcrypt.MinCost)
	require.NoError(t, err)

	hasher := accounts.NewPBKDF2Hasher()
	assert.True(t, hasher.Verify("Secret1!", string(legacy)))
	assert.False(t, hasher.Verify("Secret2!", string(legacy)))
	assert.Zero(t, accounts.DigestIterations(string(legacy)))
}
