package profile

import "time"

// Fallback display texts for absent data; missing profiles are expected
// absence, never errors.
const (
	UnknownDisplayName = "Unknown"
	UnknownUsername    = "User"
)

// Profile is the externally-owned account metadata record. It is created on
// signup by the auth provider and updated opportunistically (profile edit,
// presence heartbeat); the chat core treats it as a read-mostly cache entry.
type Profile struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name,omitempty"`
	Username    string    `json:"username,omitempty"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	LastSeenAt  time.Time `json:"last_seen_at,omitempty"` // UTC; zero when never seen
}

// DisplayLabel returns the best human-readable name for the profile.
func (p Profile) DisplayLabel() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	if p.Username != "" {
		return p.Username
	}
	return UnknownUsername
}
