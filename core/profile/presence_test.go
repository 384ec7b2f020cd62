package profile

import (
	"testing"
	"time"
)

func TestIsOnlineAt(t *testing.T) {
	now := time.Date(2021, 6, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		lastSeen time.Time
		want     bool
	}{
		{"just under the window", now.Add(-PresenceWindow + time.Second), true},
		{"exactly at the window", now.Add(-PresenceWindow), true},
		{"just past the window", now.Add(-PresenceWindow - time.Second), false},
		{"never seen", time.Time{}, false},
		{"seen in the future", now.Add(time.Minute), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsOnlineAt(tt.lastSeen, now); got != tt.want {
				t.Errorf("IsOnlineAt() = %v; want %v", got, tt.want)
			}
		})
	}
}

func TestDescribeAt(t *testing.T) {
	now := time.Date(2021, 6, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		lastSeen time.Time
		want     string
	}{
		{"never seen", time.Time{}, "Offline"},
		{"within the window", now.Add(-2 * time.Minute), "Online"},
		{"minutes ago", now.Add(-10 * time.Minute), "last seen 10 minutes ago"},
		{"one hour ago", now.Add(-90 * time.Minute), "last seen 1 hour ago"},
		{"hours ago", now.Add(-5 * time.Hour), "last seen 5 hours ago"},
		{"yesterday", now.Add(-30 * time.Hour), "last seen yesterday"},
		{"dated", now.Add(-80 * time.Hour), "last seen Jun 12"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DescribeAt(tt.lastSeen, now); got != tt.want {
				t.Errorf("DescribeAt() = %q; want %q", got, tt.want)
			}
		})
	}
}
