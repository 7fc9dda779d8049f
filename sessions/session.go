package sessions

import (
	"time"

	"github.com/jrsteele09/syllabus-tracker/identity"
)

// Session is the single local sign-in of a profile.
type Session struct {
	User      identity.Identity // Identity issued at login
	ExpiresAt time.Time         // Session is invalid at or after this instant
}

// ValidAt reports whether the session is still usable at now.
func (s Session) ValidAt(now time.Time) bool {
	return s.ExpiresAt.After(now)
}
