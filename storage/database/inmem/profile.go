package inmemdb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/darasa-app/gumzo/core/profile"
)

type ProfileRepository struct {
	db *profileTable

	// Calls counts batched lookups; tests assert cache hits keep it flat.
	Calls int
}

var _ profile.Repository = (*ProfileRepository)(nil)

func NewProfileRepository(db *DB) *ProfileRepository {
	return &ProfileRepository{db: db.profile}
}

// Seed inserts or replaces a profile directly, bypassing the repository
// interface. Test fixture helper.
func (repo *ProfileRepository) Seed(profs ...profile.Profile) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, p := range profs {
		stored := p
		repo.db.table[p.ID] = &stored
	}
}

func (repo *ProfileRepository) GetProfilesByID(_ context.Context, ids []string) ([]profile.Profile, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	repo.Calls++
	profs := make([]profile.Profile, 0, len(ids))
	for _, id := range ids {
		if p, ok := repo.db.table[id]; ok {
			profs = append(profs, *p)
		}
	}
	return profs, nil
}

func (repo *ProfileRepository) SearchProfiles(_ context.Context, partial string, scopeIDs []string, limit int) ([]profile.Profile, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var scope map[string]bool
	if scopeIDs != nil {
		scope = make(map[string]bool, len(scopeIDs))
		for _, id := range scopeIDs {
			scope[id] = true
		}
	}

	var profs []profile.Profile
	for _, p := range repo.db.table {
		if scope != nil && !scope[p.ID] {
			continue
		}
		if strings.HasPrefix(strings.ToLower(p.Username), partial) ||
			strings.HasPrefix(strings.ToLower(p.DisplayName), partial) {
			profs = append(profs, *p)
		}
	}
	sort.Slice(profs, func(i, j int) bool { return profs[i].Username < profs[j].Username })

	if len(profs) > limit {
		profs = profs[:limit]
	}
	return profs, nil
}

func (repo *ProfileRepository) TouchLastSeen(_ context.Context, id string, at time.Time) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if p, ok := repo.db.table[id]; ok {
		p.LastSeenAt = at
	}
	return nil
}
