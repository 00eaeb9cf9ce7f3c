// Package settingrepo manages repository layer of back-office settings.
package settingrepo

import (
	"context"
	"database/sql"

	"github.com/caribfx/bureau/internal/domain"
	"github.com/caribfx/bureau/pkg/dbpkg"
	"github.com/caribfx/bureau/pkg/errorspkg"

	"github.com/rs/zerolog"
)

// RepoPGS facilitates setting repository layer logic.
type RepoPGS struct {
	db dbpkg.SQLInterface
}

// NewRepoPGS returns setting RepoPGS.
func NewRepoPGS(db dbpkg.SQLInterface) *RepoPGS {
	return &RepoPGS{
		db: db,
	}
}

const upsertQuery = `
INSERT INTO
    settings (key, value)
VALUES
    ($1, $2)
ON CONFLICT (key) DO UPDATE
SET value = EXCLUDED.value, updated_at = now()
RETURNING key, value, updated_at
`

// Upsert writes the value under the key, creating the setting if it does not
// exist yet, and returns the stored setting.
func (r *RepoPGS) Upsert(ctx context.Context, key, value string) (domain.Setting, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, upsertQuery, key, value)

	var s domain.Setting

	err := row.Scan(
		&s.Key,
		&s.Value,
		&s.UpdatedAt,
	)

	if err != nil {
		l.Error().Err(err).Send()
		return s, errorspkg.ErrInternal
	}

	return s, nil
}

const getQuery = `
SELECT
	key, value, updated_at
FROM settings
WHERE key = $1
`

// Get returns the setting for the given key.
func (r *RepoPGS) Get(ctx context.Context, key string) (domain.Setting, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, getQuery, key)

	var s domain.Setting

	err := row.Scan(
		&s.Key,
		&s.Value,
		&s.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return s, domain.ErrSettingNotFound
		}

		l.Error().Err(err).Send()

		return s, errorspkg.ErrInternal
	}

	return s, nil
}

const listQuery = `
SELECT
	key, value, updated_at
FROM settings
ORDER BY key
`

// List returns all settings ordered by key.
func (r *RepoPGS) List(ctx context.Context) ([]domain.Setting, error) {
	l := zerolog.Ctx(ctx)

	rows, err := r.db.QueryContext(ctx, listQuery)
	if err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}
	defer rows.Close()

	items := []domain.Setting{}

	for rows.Next() {
		var s domain.Setting
		if err := rows.Scan(&s.Key, &s.Value, &s.UpdatedAt); err != nil {
			l.Error().Err(err).Send()
			return nil, errorspkg.ErrInternal
		}

		items = append(items, s)
	}

	if err := rows.Err(); err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}

	return items, nil
}

const deleteQuery = `
DELETE FROM settings
WHERE key = $1
`

// Delete removes the setting for the given key.
func (r *RepoPGS) Delete(ctx context.Context, key string) error {
	l := zerolog.Ctx(ctx)

	res, err := r.db.ExecContext(ctx, deleteQuery, key)
	if err != nil {
		l.Error().Err(err).Send()
		return errorspkg.ErrInternal
	}

	affected, err := res.RowsAffected()
	if err != nil {
		l.Error().Err(err).Send()
		return errorspkg.ErrInternal
	}

	if affected == 0 {
		return domain.ErrSettingNotFound
	}

	return nil
}
