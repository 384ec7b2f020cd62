package profile

import (
	"context"
	"errors"
	"time"

	"github.com/darasa-app/gumzo/core"
)

var ErrNotFound = errors.New("profile not found")

// SearchLimit caps mention-autocomplete results.
const SearchLimit = 5

type (
	Repository interface {
		GetProfilesByID(ctx context.Context, ids []string) ([]Profile, error)
		// SearchProfiles does a case-insensitive prefix match on username or
		// display name, restricted to scopeIDs when non-nil.
		SearchProfiles(ctx context.Context, partial string, scopeIDs []string, limit int) ([]Profile, error)
		TouchLastSeen(ctx context.Context, id string, at time.Time) error
	}

	Service struct {
		repo  Repository
		cache *Cache
	}
)

func NewService(repo Repository, cache *Cache) *Service {
	return &Service{repo: repo, cache: cache}
}

// Resolve fetches display metadata for the given id set in one batched
// lookup, serving repeat ids from the shared cache. Missing profiles are
// simply absent from the result; callers fall back to Unknown labels.
func (svc *Service) Resolve(ctx context.Context, ids []string) (map[string]Profile, error) {
	resolved := make(map[string]Profile, len(ids))
	var missing []string
	seen := make(map[string]bool, len(ids))

	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		if p, ok := svc.cache.Get(id); ok {
			resolved[id] = p
		} else {
			missing = append(missing, id)
		}
	}

	if len(missing) > 0 {
		fetched, err := svc.repo.GetProfilesByID(ctx, missing)
		if err != nil {
			return nil, err
		}
		svc.cache.Put(fetched...)
		for _, p := range fetched {
			resolved[p.ID] = p
		}
	}
	return resolved, nil
}

// Get resolves a single profile, falling back to an Unknown placeholder
// (stale references are expected absence, not failures).
func (svc *Service) Get(ctx context.Context, id string) Profile {
	resolved, err := svc.Resolve(ctx, []string{id})
	if err != nil {
		return Profile{ID: id, DisplayName: UnknownDisplayName}
	}
	if p, ok := resolved[id]; ok {
		return p
	}
	return Profile{ID: id, DisplayName: UnknownDisplayName}
}

// Search finds up to SearchLimit profiles matching the partial username,
// restricted to scopeIDs when given (group member scoping).
func (svc *Service) Search(ctx context.Context, partial string, scopeIDs []string) ([]Profile, error) {
	partial = core.CleanString(partial, true /* lower */)
	if partial == "" {
		return nil, nil
	}
	return svc.repo.SearchProfiles(ctx, partial, scopeIDs, SearchLimit)
}

// Heartbeat opportunistically bumps the user's last-seen timestamp.
func (svc *Service) Heartbeat(ctx context.Context, id string) error {
	now := NowFunc().UTC()
	if err := svc.repo.TouchLastSeen(ctx, id, now); err != nil {
		return err
	}
	if p, ok := svc.cache.Get(id); ok {
		p.LastSeenAt = now
		svc.cache.Put(p)
	}
	return nil
}
