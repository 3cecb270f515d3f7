package uid

import (
	"strings"

	"github.com/google/uuid"
)

// storeNamespace scopes name-based store IDs.
var storeNamespace = uuid.MustParse("5b0f7c52-8f4e-4a57-9a43-62d7c0e3b1a4")

// New generates a random identifier.
func New() string {
	return uuid.New().String()
}

// ForStore derives a stable identifier from a store slug, so every backend
// and every reseed assigns the same ID to the same store.
func ForStore(slug string) string {
	return uuid.NewSHA1(storeNamespace, []byte(strings.ToLower(strings.TrimSpace(slug)))).String()
}

// Canonical returns id in lowercase hyphenated form. ok is false when id is
// not a UUID.
func Canonical(id string) (string, bool) {
	u, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return "", false
	}
	return u.String(), true
}
