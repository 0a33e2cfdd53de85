package pgpatrol

import (
	"context"

	"github.com/pkg/errors"
	"github.com/takipteyim/patrolbox/internal/models"
)

// ListActiveCheckpoints returns the non-deleted checkpoints of a project with
// their periods populated, in insertion order.
func (s *Storage) ListActiveCheckpoints(ctx context.Context, projectID uint64) ([]*models.Checkpoint, error) {
	rows, err := s.db.Query(ctx, `
SELECT
  c.id, c.name, c.latitude, c.longitude, c.project_id, c.period_id,
  p.name, p.duration_seconds
FROM checkpoints c
LEFT JOIN periods p ON p.id = c.period_id
WHERE c.project_id = $1
  AND NOT c.deleted
ORDER BY c.id
`, projectID)
	if err != nil {
		return nil, errors.Wrap(err, "select checkpoints")
	}
	defer rows.Close()

	var out []*models.Checkpoint
	for rows.Next() {
		var c models.Checkpoint
		var periodName *string
		var periodDuration *int64
		if err := rows.Scan(
			&c.ID, &c.Name, &c.Latitude, &c.Longitude, &c.ProjectID, &c.PeriodID,
			&periodName, &periodDuration,
		); err != nil {
			return nil, errors.Wrap(err, "scan checkpoint")
		}
		if c.PeriodID != nil && periodName != nil && periodDuration != nil {
			c.Period = &models.Period{
				ID:              *c.PeriodID,
				Name:            *periodName,
				DurationSeconds: *periodDuration,
			}
		}
		out = append(out, &c)
	}

	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

func (s *Storage) CreateCheckpoint(ctx context.Context, name string, lat, lng float64, projectID, periodID uint64) (*models.Checkpoint, error) {
	c := models.Checkpoint{Name: name, Latitude: lat, Longitude: lng, ProjectID: projectID, PeriodID: &periodID}
	err := s.db.QueryRow(ctx, `
INSERT INTO checkpoints (name, latitude, longitude, project_id, period_id)
VALUES ($1,$2,$3,$4,$5)
RETURNING id
`, name, lat, lng, projectID, periodID).Scan(&c.ID)
	if err != nil {
		return nil, errors.Wrap(err, "insert checkpoint")
	}
	return &c, nil
}

// SoftDeleteCheckpoint hides a checkpoint from matching and reporting while
// keeping its visits referentially intact.
func (s *Storage) SoftDeleteCheckpoint(ctx context.Context, checkpointID uint64) error {
	_, err := s.db.Exec(ctx, `UPDATE checkpoints SET deleted = TRUE WHERE id = $1`, checkpointID)
	return errors.Wrap(err, "soft delete checkpoint")
}
