package pgpatrol

import (
	"context"

	"github.com/pkg/errors"
)

func (s *Storage) initSchema(ctx context.Context) error {
	stmts := []string{
		`
CREATE TABLE IF NOT EXISTS firms (
  id BIGSERIAL PRIMARY KEY,
  name TEXT NOT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
		`
CREATE TABLE IF NOT EXISTS projects (
  id BIGSERIAL PRIMARY KEY,
  name TEXT NOT NULL,
  latitude DOUBLE PRECISION NOT NULL,
  longitude DOUBLE PRECISION NOT NULL,
  firm_id BIGINT NOT NULL REFERENCES firms(id) ON DELETE CASCADE,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
		`
CREATE TABLE IF NOT EXISTS periods (
  id BIGSERIAL PRIMARY KEY,
  name TEXT NOT NULL,
  duration_seconds BIGINT NOT NULL
)`,
		`
CREATE TABLE IF NOT EXISTS checkpoints (
  id BIGSERIAL PRIMARY KEY,
  name TEXT NOT NULL,
  latitude DOUBLE PRECISION NOT NULL,
  longitude DOUBLE PRECISION NOT NULL,
  project_id BIGINT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
  period_id BIGINT NULL REFERENCES periods(id),
  deleted BOOLEAN NOT NULL DEFAULT FALSE
)`,
		`CREATE INDEX IF NOT EXISTS idx_checkpoints_project ON checkpoints(project_id) WHERE NOT deleted`,
		`
CREATE TABLE IF NOT EXISTS devices (
  id BIGSERIAL PRIMARY KEY,
  name TEXT NOT NULL DEFAULT '',
  code TEXT NOT NULL UNIQUE,
  firm_id BIGINT NULL REFERENCES firms(id) ON DELETE SET NULL,
  project_id BIGINT NULL REFERENCES projects(id) ON DELETE SET NULL
)`,
		// Visits are append-only. checkpoint_id stays valid across checkpoint
		// soft-deletes, hence no CASCADE.
		`
CREATE TABLE IF NOT EXISTS visits (
  id BIGSERIAL PRIMARY KEY,
  device_id BIGINT NOT NULL REFERENCES devices(id) ON DELETE CASCADE,
  checkpoint_id BIGINT NULL REFERENCES checkpoints(id),
  project_id BIGINT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
  latitude DOUBLE PRECISION NOT NULL,
  longitude DOUBLE PRECISION NOT NULL,
  status TEXT NOT NULL DEFAULT '',
  timestamp TIMESTAMPTZ NOT NULL,
  distance DOUBLE PRECISION NOT NULL DEFAULT 0,
  visit_status BOOLEAN NOT NULL DEFAULT FALSE,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
		`CREATE INDEX IF NOT EXISTS idx_visits_checkpoint_ts ON visits(checkpoint_id, timestamp, id)`,
	}

	for _, q := range stmts {
		if _, err := s.db.Exec(ctx, q); err != nil {
			return errors.Wrap(err, "init schema")
		}
	}
	return nil
}
