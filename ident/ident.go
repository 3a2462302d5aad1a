// Package ident generates the short random tokens and composite identifiers
// used for dispatch ids and subscription ids. It is pure and stateless.
package ident

import (
	"crypto/rand"
	"fmt"
	"strings"
	"time"
)

// Delimiter joins the parts of a composite id.
const Delimiter = "::"

// TokenLength is the length of the random token appended to composites.
const TokenLength = 8

const alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// MakeID returns a random lowercase-alphanumeric string of the given length.
// It fails only for lengths below 1.
func MakeID(length int) (string, error) {
	if length < 1 {
		return "", fmt.Errorf("invalid id length %d: expected a number greater than 0", length)
	}

	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		// Fall back to clock-derived bytes if crypto/rand fails.
		now := time.Now().UnixNano()
		for i := range b {
			b[i] = byte(now >> (uint(i%8) * 8))
		}
	}
	for i, c := range b {
		b[i] = alphabet[int(c)%len(alphabet)]
	}
	return string(b), nil
}

// MakeComposite joins the parts and a trailing random token with the
// delimiter, e.g. MakeComposite("log", "error") -> "log::error::4e42a851".
func MakeComposite(parts ...string) string {
	token, _ := MakeID(TokenLength)
	joined := make([]string, 0, len(parts)+1)
	joined = append(joined, parts...)
	joined = append(joined, token)
	return strings.Join(joined, Delimiter)
}

// ParseComposite breaks a composite id back into its parts.
func ParseComposite(id string) []string {
	return strings.Split(id, Delimiter)
}
