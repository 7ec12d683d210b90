package session

import (
	cryptorand "crypto/rand"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

var idSanitizer = regexp.MustCompile(`[^a-zA-Z0-9\-]`)
var ulidEntropy = ulid.Monotonic(cryptorand.Reader, 0)

// NewID returns a unique, time-ordered session ID prefixed with base. The
// base is sanitized so the ID stays safe inside bus subjects and URLs.
func NewID(base string) string {
	base = strings.TrimSpace(base)
	if base == "" {
		base = "session"
	}
	base = strings.ToLower(strings.ReplaceAll(base, " ", "-"))
	base = idSanitizer.ReplaceAllString(base, "-")
	base = strings.Trim(base, "-")
	if base == "" {
		base = "session"
	}

	id := ulid.MustNew(ulid.Timestamp(time.Now()), ulidEntropy).String()
	return fmt.Sprintf("%s-%s", base, strings.ToLower(id))
}
