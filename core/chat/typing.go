package chat

import (
	"sort"
	"sync"
	"time"
)

// TypingTTL clears a typing indicator after composer inactivity.
const TypingTTL = 2 * time.Second

// TypingSet holds the ephemeral per-(container, user) typing state.
// Entries are overwritten on each keystroke-debounce cycle; there is no
// history and nothing is persisted beyond the indicator row.
type TypingSet struct {
	mutex  sync.Mutex
	byUser map[string]time.Time
}

func NewTypingSet() *TypingSet {
	return &TypingSet{byUser: make(map[string]time.Time)}
}

func (ts *TypingSet) Set(userID string, at time.Time) {
	ts.mutex.Lock()
	defer ts.mutex.Unlock()

	ts.byUser[userID] = at
}

// ActiveUsers returns the users whose indicator is within TTL of now,
// sorted for stable rendering; expired entries are pruned on the way.
func (ts *TypingSet) ActiveUsers(now time.Time, excludeUserID string) []string {
	ts.mutex.Lock()
	defer ts.mutex.Unlock()

	var active []string
	for id, at := range ts.byUser {
		if now.Sub(at) > TypingTTL {
			delete(ts.byUser, id)
			continue
		}
		if id != excludeUserID {
			active = append(active, id)
		}
	}
	sort.Strings(active)
	return active
}
