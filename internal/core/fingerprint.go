package core

import (
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

const fingerprintPrefix = "chat_response:"

// Fingerprint derives the response cache key for a message and the context it
// would be sent with.
func Fingerprint(message string, history []Turn) string {
	d := xxhash.New()
	d.WriteString(normalizeMessage(message))
	for _, turn := range history {
		d.WriteString("\x1e")
		d.WriteString(turn.Text)
	}
	return fingerprintPrefix + strconv.FormatUint(d.Sum64(), 16) + ":" + strconv.Itoa(len(history))
}

// normalizeMessage trims and collapses whitespace; case is preserved.
func normalizeMessage(message string) string {
	return strings.Join(strings.Fields(message), " ")
}
