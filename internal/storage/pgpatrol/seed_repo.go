package pgpatrol

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
	"github.com/takipteyim/patrolbox/internal/models"
)

func (s *Storage) CreateFirm(ctx context.Context, name string) (*models.Firm, error) {
	f := models.Firm{Name: name}
	err := s.db.QueryRow(ctx, `
INSERT INTO firms (name) VALUES ($1) RETURNING id, created_at
`, name).Scan(&f.ID, &f.CreatedAt)
	if err != nil {
		return nil, errors.Wrap(err, "insert firm")
	}
	return &f, nil
}

func (s *Storage) CreateProject(ctx context.Context, name string, lat, lng float64, firmID uint64) (*models.Project, error) {
	p := models.Project{Name: name, Latitude: lat, Longitude: lng, FirmID: firmID}
	err := s.db.QueryRow(ctx, `
INSERT INTO projects (name, latitude, longitude, firm_id)
VALUES ($1,$2,$3,$4)
RETURNING id, created_at
`, name, lat, lng, firmID).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return nil, errors.Wrap(err, "insert project")
	}
	return &p, nil
}

func (s *Storage) CreatePeriod(ctx context.Context, name string, durationSeconds int64) (*models.Period, error) {
	p := models.Period{Name: name, DurationSeconds: durationSeconds}
	err := s.db.QueryRow(ctx, `
INSERT INTO periods (name, duration_seconds) VALUES ($1,$2) RETURNING id
`, name, durationSeconds).Scan(&p.ID)
	if err != nil {
		return nil, errors.Wrap(err, "insert period")
	}
	return &p, nil
}

// ResetAll wipes every entity, children first. Administrative reset used by
// the seeder only.
func (s *Storage) ResetAll(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, q := range []string{
		`DELETE FROM visits`,
		`DELETE FROM devices`,
		`DELETE FROM checkpoints`,
		`DELETE FROM periods`,
		`DELETE FROM projects`,
		`DELETE FROM firms`,
	} {
		if _, err := tx.Exec(ctx, q); err != nil {
			return errors.Wrap(err, "reset data")
		}
	}

	return errors.Wrap(tx.Commit(ctx), "commit tx")
}
