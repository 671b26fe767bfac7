// Package token mints access tokens for sessions. Tokens are the only
// credential embedded in a deep link, so they come from crypto/rand,
// never from a sequential id.
package token

import (
	"crypto/rand"
	"fmt"
)

const alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Length is the number of characters in a minted token.
const Length = 36

// Mint returns a new random token of Length characters.
func Mint() (string, error) {
	buf := make([]byte, Length)
	_, err := rand.Read(buf)
	if err != nil {
		return "", fmt.Errorf("reading random bytes: %w", err)
	}

	for i, b := range buf {
		buf[i] = alphabet[int(b)%len(alphabet)]
	}

	return string(buf), nil
}

// Valid reports whether s looks like a token this package could have minted.
// Used to reject malformed deep-link arguments before touching the store.
func Valid(s string) bool {
	if len(s) < 8 || len(s) > 64 {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}
