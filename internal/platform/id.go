package platform

import (
	"crypto/rand"

	"github.com/google/uuid"
)

const shortIDAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
const shortIDLength = 10

// NewID returns a time-ordered UUID. Lexicographic order matches
// creation order, which cursor pagination and the activity feed rely
// on.
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// NewToken returns a prefixed random token, used for API keys and
// OAuth state nonces.
func NewToken(prefix string) string {
	b := make([]byte, shortIDLength*2)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand: " + err.Error())
	}
	for i := range b {
		b[i] = shortIDAlphabet[b[i]%byte(len(shortIDAlphabet))]
	}
	return prefix + string(b)
}
