package id

import (
	"crypto/rand"
	"encoding/hex"
	"regexp"
)

var hex32 = regexp.MustCompile(`^[a-f0-9]{32}$`)

// NewID32 returns exactly 32 lowercase hex characters (no separators/prefixes),
// used as request correlation ids.
func NewID32() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// Valid reports whether s is a well-formed 32-char lowercase hex id.
func Valid(s string) bool { return hex32.MatchString(s) }
