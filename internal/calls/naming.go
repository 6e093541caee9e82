package calls

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

// RoomPrefix marks telephony rooms. The agent only accepts jobs for rooms
// carrying it.
const RoomPrefix = "call-"

const identityPrefix = "caller-"

// NewRoomName returns call-<unix-millis>-<12 hex>. The random suffix keeps
// names unique across calls landing in the same millisecond.
func NewRoomName(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return fmt.Sprintf("%s%d-%s", RoomPrefix, now.UnixMilli(), suffix)
}

// ParticipantIdentity derives a stable identity from the caller number:
// "+1 (555) 123-4567" and "+15551234567" both become "caller-15551234567".
func ParticipantIdentity(from string) string {
	var b strings.Builder
	b.Grow(len(identityPrefix) + len(from))
	b.WriteString(identityPrefix)
	for _, r := range from {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		}
	}
	if b.Len() == len(identityPrefix) {
		b.WriteString("anonymous")
	}
	return b.String()
}

// FormatPhone renders NANP numbers as "+1 (555) 123-4567". Anything else
// is returned unchanged.
func FormatPhone(number string) string {
	n := strings.TrimSpace(number)
	if len(n) != 12 || !strings.HasPrefix(n, "+1") {
		return number
	}
	d := n[2:]
	for _, r := range d {
		if r < '0' || r > '9' {
			return number
		}
	}
	return fmt.Sprintf("+1 (%s) %s-%s", d[:3], d[3:6], d[6:])
}
