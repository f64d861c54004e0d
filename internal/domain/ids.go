package domain

import (
	"strings"

	"github.com/google/uuid"
)

// Identifier prefixes.
const (
	PrefixUser    = "user"
	PrefixChat    = "chat"
	PrefixMessage = "msg"
)

// NewID returns a short prefixed identifier such as "msg_3f9a1c2b7d4e".
func NewID(prefix string) string {
	return prefix + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}
