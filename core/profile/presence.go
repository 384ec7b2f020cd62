package profile

import (
	"fmt"
	"time"
)

// PresenceWindow is the fixed recency threshold classifying a user as online.
const PresenceWindow = 5 * time.Minute

var NowFunc = time.Now // mockable

// IsOnline reports whether lastSeen falls within the presence window of now.
// It is evaluated on demand; displayed status can go stale between renders.
func IsOnline(lastSeen time.Time) bool {
	return IsOnlineAt(lastSeen, NowFunc())
}

func IsOnlineAt(lastSeen, now time.Time) bool {
	if lastSeen.IsZero() {
		return false
	}
	return now.Sub(lastSeen) <= PresenceWindow
}

// Describe returns "Online", a relative "last seen" phrase, or "Offline"
// when the user was never seen.
func Describe(lastSeen time.Time) string {
	return DescribeAt(lastSeen, NowFunc())
}

func DescribeAt(lastSeen, now time.Time) string {
	if lastSeen.IsZero() {
		return "Offline"
	}
	if IsOnlineAt(lastSeen, now) {
		return "Online"
	}

	elapsed := now.Sub(lastSeen)
	switch {
	case elapsed < time.Hour:
		return fmt.Sprintf("last seen %d minutes ago", int(elapsed.Minutes()))
	case elapsed < 24*time.Hour:
		hrs := int(elapsed.Hours())
		if hrs == 1 {
			return "last seen 1 hour ago"
		}
		return fmt.Sprintf("last seen %d hours ago", hrs)
	case elapsed < 48*time.Hour:
		return "last seen yesterday"
	default:
		return "last seen " + lastSeen.Format("Jan 2")
	}
}
