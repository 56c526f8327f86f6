// Package isrc validates International Standard Recording Codes and derives the
// deterministic document identifier used as the index primary key.
package isrc

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Length is the number of characters of an ISRC.
const Length = 12

// Namespace is mixed into every identifier so ids of other entity kinds hashed the
// same way cannot collide with track ids. Changing it re-keys the whole index.
const Namespace = "trackindex:isrc:"

// ErrInvalidIdentifier reports a string that is not 12 alphanumeric characters.
var ErrInvalidIdentifier = errors.New("invalid ISRC")

// Valid reports whether s is exactly 12 ASCII letters or digits, in any case.
func Valid(s string) bool {
	if len(s) != Length {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9', c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z':
		default:
			return false
		}
	}
	return true
}

// Normalize trims s, upper-cases it and validates the result.
func Normalize(s string) (string, error) {
	n := strings.ToUpper(strings.TrimSpace(s))
	if !Valid(n) {
		return "", fmt.Errorf("%w: %q", ErrInvalidIdentifier, s)
	}
	return n, nil
}

// DeriveID returns the UUID-formatted first 128 bits of SHA-256(Namespace + ISRC).
// The same ISRC in any case always yields the same id.
func DeriveID(s string) (string, error) {
	n, err := Normalize(s)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256([]byte(Namespace + n))
	id, err := uuid.FromBytes(sum[:16])
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidIdentifier, err)
	}
	return id.String(), nil
}

// MustDeriveID is DeriveID for ISRCs already known to be valid. It panics otherwise.
func MustDeriveID(s string) string {
	id, err := DeriveID(s)
	if err != nil {
		panic(err)
	}
	return id
}
