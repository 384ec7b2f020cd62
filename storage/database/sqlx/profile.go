package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/darasa-app/gumzo/core/profile"
)

type profileRepository struct {
	db *sqlx.DB
}

var _ profile.Repository = (*profileRepository)(nil) // interface compliance check

func NewProfileRepository(db *sqlx.DB) *profileRepository {
	return &profileRepository{db: db}
}

type profileRow struct {
	ID          string      `db:"id"`
	DisplayName null.String `db:"display_name"`
	Username    null.String `db:"username"`
	AvatarURL   null.String `db:"avatar_url"`
	LastSeenAt  null.Time   `db:"last_seen_at"`
}

func (repo profileRepository) unrow(row profileRow) profile.Profile {
	return profile.Profile{
		ID:          row.ID,
		DisplayName: row.DisplayName.String,
		Username:    row.Username.String,
		AvatarURL:   row.AvatarURL.String,
		LastSeenAt:  row.LastSeenAt.Time,
	}
}

func (repo profileRepository) unrowSlice(rows []profileRow) []profile.Profile {
	profs := make([]profile.Profile, 0, len(rows))
	for _, row := range rows {
		profs = append(profs, repo.unrow(row))
	}
	return profs
}

func (repo profileRepository) GetProfilesByID(ctx context.Context, ids []string) ([]profile.Profile, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	q, args, err := sqlx.In(
		"SELECT id, display_name, username, avatar_url, last_seen_at FROM profiles WHERE id IN (?)", ids)
	if err != nil {
		return nil, errors.Wrap(err, "building profiles query")
	}

	var rows []profileRow
	if err = repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "querying profiles")
	}
	return repo.unrowSlice(rows), nil
}

func (repo profileRepository) SearchProfiles(ctx context.Context, partial string, scopeIDs []string, limit int) ([]profile.Profile, error) {
	q := `SELECT id, display_name, username, avatar_url, last_seen_at FROM profiles
		WHERE (username ILIKE ? OR display_name ILIKE ?)`
	args := []interface{}{partial + "%", partial + "%"}

	if scopeIDs != nil {
		if len(scopeIDs) == 0 {
			return nil, nil
		}
		q += " AND id IN (?)"
		args = append(args, scopeIDs)
	}
	q += " ORDER BY username LIMIT ?"
	args = append(args, limit)

	q, args, err := sqlx.In(q, args...)
	if err != nil {
		return nil, errors.Wrap(err, "building profile search query")
	}

	var rows []profileRow
	if err = repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "searching profiles")
	}
	return repo.unrowSlice(rows), nil
}

func (repo profileRepository) TouchLastSeen(ctx context.Context, id string, at time.Time) error {
	q := "UPDATE profiles SET last_seen_at = $1 WHERE id = $2"
	if _, err := repo.db.ExecContext(ctx, q, at.UTC(), id); err != nil {
		return errors.Wrap(err, "touching last seen")
	}
	return nil
}
