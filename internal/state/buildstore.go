package state

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Build is one recorded image build: the full inputs key mapped to the
// image it produced, plus enough metadata for list/clean to be useful
// without talking to the daemon.
type Build struct {
	InputsKey  string
	ImageID    string
	Tag        string
	Project    string
	BaseImage  string
	Entrypoint string
	CreatedAt  time.Time
	LastUsed   time.Time
}

type BuildStore struct {
	db *DB
}

// NewBuildStore creates the store and ensures the table exists.
func NewBuildStore(ctx context.Context, database *DB) (*BuildStore, error) {
	if database == nil {
		return nil, fmt.Errorf("buildstore: database is required")
	}
	s := &BuildStore{db: database}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

var defaultBuildStore *BuildStore

func DefaultBuildStore(ctx context.Context) (*BuildStore, error) {
	if defaultBuildStore == nil {
		db, err := OpenDefault(ctx)
		if err != nil {
			return nil, err
		}
		defaultBuildStore, err = NewBuildStore(ctx, db)
		if err != nil {
			return nil, err
		}
	}

	return defaultBuildStore, nil
}

func (s *BuildStore) ensureSchema(ctx context.Context) error {
	const createTable = `
CREATE TABLE IF NOT EXISTS builds (
	inputs_key TEXT PRIMARY KEY,
	image_id   TEXT NOT NULL,
	tag        TEXT NOT NULL,
	project    TEXT NOT NULL,
	base_image TEXT NOT NULL,
	entrypoint TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	last_used  INTEGER NOT NULL
);
`
	_, err := s.db.Raw().ExecContext(ctx, createTable)
	if err != nil {
		return fmt.Errorf("buildstore: ensure schema: %w", err)
	}
	return nil
}

// GetByKey returns the build record for the given inputs key and bumps its
// last_used. found == false means "no row".
func (s *BuildStore) GetByKey(ctx context.Context, inputsKey string) (b Build, found bool, err error) {
	const q = `
SELECT inputs_key, image_id, tag, project, base_image, entrypoint, created_at, last_used
FROM builds
WHERE inputs_key = ?
`
	row := s.db.Raw().QueryRowContext(ctx, q, inputsKey)

	var createdAtUnix, lastUsedUnix int64
	err = row.Scan(
		&b.InputsKey, &b.ImageID, &b.Tag,
		&b.Project, &b.BaseImage, &b.Entrypoint,
		&createdAtUnix, &lastUsedUnix,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return Build{}, false, nil
		}
		return Build{}, false, fmt.Errorf("buildstore: get: %w", err)
	}

	b.CreatedAt = time.Unix(createdAtUnix, 0).UTC()
	b.LastUsed = time.Unix(lastUsedUnix, 0).UTC()

	_ = s.Touch(ctx, inputsKey)

	return b, true, nil
}

// Upsert records a build. An existing row for the same inputs key gets its
// image and metadata replaced and last_used bumped.
func (s *BuildStore) Upsert(ctx context.Context, b Build) error {
	const stmt = `
INSERT INTO builds (inputs_key, image_id, tag, project, base_image, entrypoint, created_at, last_used)
VALUES (?, ?, ?, ?, ?, ?, strftime('%s','now'), strftime('%s','now'))
ON CONFLICT(inputs_key) DO UPDATE SET
  image_id   = excluded.image_id,
  tag        = excluded.tag,
  project    = excluded.project,
  base_image = excluded.base_image,
  entrypoint = excluded.entrypoint,
  last_used  = strftime('%s','now');
`

	_, err := s.db.Raw().ExecContext(ctx, stmt,
		b.InputsKey, b.ImageID, b.Tag, b.Project, b.BaseImage, b.Entrypoint)
	if err != nil {
		return fmt.Errorf("buildstore: upsert: %w", err)
	}
	return nil
}

// Touch updates last_used for a given inputs key if it exists.
// No-op if the row doesn't exist.
func (s *BuildStore) Touch(ctx context.Context, inputsKey string) error {
	const stmt = `
UPDATE builds
SET last_used = strftime('%s','now')
WHERE inputs_key = ?;
`
	if _, err := s.db.Raw().ExecContext(ctx, stmt, inputsKey); err != nil {
		return fmt.Errorf("buildstore: touch: %w", err)
	}
	return nil
}

// Delete removes the record for the given inputs key, if any.
func (s *BuildStore) Delete(ctx context.Context, inputsKey string) error {
	const stmt = `DELETE FROM builds WHERE inputs_key = ?`
	if _, err := s.db.Raw().ExecContext(ctx, stmt, inputsKey); err != nil {
		return fmt.Errorf("buildstore: delete: %w", err)
	}
	return nil
}

// List returns all recorded builds, most recently used first.
func (s *BuildStore) List(ctx context.Context) ([]Build, error) {
	const q = `
SELECT inputs_key, image_id, tag, project, base_image, entrypoint, created_at, last_used
FROM builds
ORDER BY last_used DESC;
`
	rows, err := s.db.Raw().QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("buildstore: list: %w", err)
	}
	defer rows.Close()

	var builds []Build
	for rows.Next() {
		var b Build
		var createdAtUnix, lastUsedUnix int64
		err := rows.Scan(
			&b.InputsKey, &b.ImageID, &b.Tag,
			&b.Project, &b.BaseImage, &b.Entrypoint,
			&createdAtUnix, &lastUsedUnix,
		)
		if err != nil {
			return nil, fmt.Errorf("buildstore: list scan: %w", err)
		}
		b.CreatedAt = time.Unix(createdAtUnix, 0).UTC()
		b.LastUsed = time.Unix(lastUsedUnix, 0).UTC()
		builds = append(builds, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("buildstore: list rows: %w", err)
	}

	return builds, nil
}

// DeleteAll wipes every build record and returns how many rows were removed.
func (s *BuildStore) DeleteAll(ctx context.Context) (int64, error) {
	res, err := s.db.Raw().ExecContext(ctx, `DELETE FROM builds`)
	if err != nil {
		return 0, fmt.Errorf("buildstore: delete all: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
