package accounts

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/pbkdf2"
)

const (
	// DefaultHashIterations is used when a caller asks for zero iterations
	DefaultHashIterations = 100_000

	pbkdf2Scheme  = "pbkdf2-sha256"
	pbkdf2SaltLen = 16
	pbkdf2KeyLen  = 32
)

// PBKDF2Hasher produces self describing digests:
//
//	$pbkdf2-sha256$i=<iterations>$<salt>$<key>
//
// salt and key are unpadded standard base64. Verify also accepts bcrypt
// digests so accounts created with older hashes keep working.
type PBKDF2Hasher struct{}

var _ CredentialHasher = PBKDF2Hasher{}

// NewPBKDF2Hasher returns the default CredentialHasher
func NewPBKDF2Hasher() PBKDF2Hasher {
	return PBKDF2Hasher{}
}

// Hash derives a digest for plaintext using the given iteration count
func (PBKDF2Hasher) Hash(plaintext string, iterations int) (string, error) {
	if iterations <= 0 {
		iterations = DefaultHashIterations
	}

	salt := make([]byte, pbkdf2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	key := pbkdf2.Key([]byte(plaintext), salt, iterations, pbkdf2KeyLen, sha256.New)

	return fmt.Sprintf("$%s$i=%d$%s$%s",
		pbkdf2Scheme,
		iterations,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether plaintext matches digest
func (PBKDF2Hasher) Verify(plaintext, digest string) bool {
	if isBcryptDigest(digest) {
		return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
	}

	iterations, salt, expected, ok := parsePBKDF2Digest(digest)
	if !ok {
		return false
	}

	key := pbkdf2.Key([]byte(plaintext), salt, iterations, len(expected), sha256.New)
	return subtle.ConstantTimeCompare(key, expected) == 1
}

// DigestIterations returns the iteration count embedded in a PBKDF2 digest.
// It returns 0 for anything else.
func DigestIterations(digest string) int {
	iterations, _, _, ok := parsePBKDF2Digest(digest)
	if !ok {
		return 0
	}
	return iterations
}

func parsePBKDF2Digest(digest string) (int, []byte, []byte, bool) {
	// "", scheme, i=N, salt, key
	parts := strings.Split(digest, "$")
	if len(parts) != 5 || parts[0] != "" || parts[1] != pbkdf2Scheme {
		return 0, nil, nil, false
	}

	if !strings.HasPrefix(parts[2], "i=") {
		return 0, nil, nil, false
	}
	iterations, err := strconv.Atoi(strings.TrimPrefix(parts[2], "i="))
	if err != nil || iterations <= 0 {
		return 0, nil, nil, false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[3])
	if err != nil || len(salt) == 0 {
		return 0, nil, nil, false
	}

	key, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(key) == 0 {
		return 0, nil, nil, false
	}

	return iterations, salt, key, true
}

func isBcryptDigest(digest string) bool {
	return strings.HasPrefix(digest, "$2a$") ||
		strings.HasPrefix(digest, "$2b$") ||
		strings.HasPrefix(digest, "$2y$")
}
