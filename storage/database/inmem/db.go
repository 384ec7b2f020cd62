package inmemdb

import (
	"sync"

	"github.com/darasa-app/gumzo/core/chat"
	"github.com/darasa-app/gumzo/core/group"
	"github.com/darasa-app/gumzo/core/profile"
)

// DB is an in-memory stand-in for the platform's database, used by tests
// and local development runs.
type DB struct {
	message *messageTable
	profile *profileTable
	group   *groupTable
}

func NewDB() *DB {
	return &DB{
		message: &messageTable{
			messages: make(map[string][]*chat.Message),
			typing:   make(map[string]map[string]typingEntry),
			pins:     make(map[string][]*chat.PinnedMessage),
		},
		profile: &profileTable{table: make(map[string]*profile.Profile)},
		group: &groupTable{
			groups:        make(map[string]*group.Group),
			members:       make(map[string][]*group.Member),
			invitations:   make(map[string]*group.Invitation),
			conversations: make(map[string]*group.Conversation),
		},
	}
}

type messageTable struct {
	mutex    sync.RWMutex
	messages map[string][]*chat.Message // container topic -> ordered messages
	typing   map[string]map[string]typingEntry
	pins     map[string][]*chat.PinnedMessage
}

type profileTable struct {
	mutex sync.RWMutex
	table map[string]*profile.Profile
}

type groupTable struct {
	mutex         sync.RWMutex
	groups        map[string]*group.Group
	members       map[string][]*group.Member
	invitations   map[string]*group.Invitation
	conversations map[string]*group.Conversation
}
