package uid

import (
	"strings"

	"github.com/google/uuid"
)

// UUID generates RFC 9562 UUID strings.
type UUID struct{}

// NewUUID returns a UUID generator.
func NewUUID() *UUID {
	return &UUID{}
}

// Generate returns a new time-ordered UUID string.
func (u *UUID) Generate() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString() // fallback: uuidV4
	}
	return id.String()
}

// DefaultTokenLength is the length of a HexToken when none is configured.
const DefaultTokenLength = 12

// HexToken generates short lowercase hex strings cut from a random (v4)
// UUID, so every character carries entropy.
type HexToken struct {
	length int
}

// NewHexToken returns a generator of tokens with the given length, clamped
// to [8, 32].
func NewHexToken(length int) *HexToken {
	switch {
	case length <= 0:
		length = DefaultTokenLength
	case length < 8:
		length = 8
	case length > 32:
		length = 32
	}
	return &HexToken{length: length}
}

// Generate returns a new token.
func (h *HexToken) Generate() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return raw[:h.length]
}
