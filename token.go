package accounts

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
)

// DefaultKeySize is the number of random bytes behind a verification key
const DefaultKeySize = 32

var uglyBase64 = strings.NewReplacer("+", "", "/", "", "=", "")

// RandomTokenCodec renders random bytes as base64 and strips the characters
// that are unsafe in a URL path. The result is never decoded, only compared.
type RandomTokenCodec struct {
	// Size is the number of random bytes, defaults to DefaultKeySize
	Size int
}

var _ TokenCodec = RandomTokenCodec{}

// NewRandomTokenCodec returns a codec using DefaultKeySize bytes per key
func NewRandomTokenCodec() RandomTokenCodec {
	return RandomTokenCodec{Size: DefaultKeySize}
}

// GenerateOpaqueKey returns a new URL safe key
func (c RandomTokenCodec) GenerateOpaqueKey() (string, error) {
	size := c.Size
	// keep at least 128 bits after stripping
	if size < 16 {
		size = DefaultKeySize
	}

	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}

	return StripUglyBase64(base64.StdEncoding.EncodeToString(buf)), nil
}

// NormalizeKey trims whitespace around a key read back from a link
func (RandomTokenCodec) NormalizeKey(key string) string {
	return strings.TrimSpace(key)
}

// StripUglyBase64 removes '+', '/' and '=' from s
func StripUglyBase64(s string) string {
	return uglyBase64.Replace(s)
}
