// Package hexid generates short random hex identifiers for request
// correlation and record file names.
package hexid

import (
	"crypto/rand"
	"encoding/hex"
)

// maxEchoLen caps how much of a caller-supplied id is trusted.
const maxEchoLen = 64

// New returns an 8-character lowercase hex string.
func New() string {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic("hexid: crypto/rand failed: " + err.Error())
	}
	return hex.EncodeToString(b[:])
}

// OrNew returns incoming when it is a plausible request id (letters,
// digits, '-' and '_', at most 64 of them) and a fresh id otherwise.
func OrNew(incoming string) string {
	if incoming == "" || len(incoming) > maxEchoLen {
		return New()
	}
	for _, c := range incoming {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
		default:
			return New()
		}
	}
	return incoming
}
