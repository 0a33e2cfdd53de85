package pgpatrol

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
	"github.com/takipteyim/patrolbox/internal/models"
)

// FindDeviceByCode resolves a device by its exact matching key. Returns
// (nil, nil) when no device has the code.
func (s *Storage) FindDeviceByCode(ctx context.Context, code string) (*models.Device, error) {
	var d models.Device
	var firmID *uint64
	err := s.db.QueryRow(ctx, `
SELECT id, name, code, firm_id, project_id
FROM devices
WHERE code = $1
`, code).Scan(&d.ID, &d.Name, &d.Code, &firmID, &d.ProjectID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "select device")
	}
	if firmID != nil {
		d.FirmID = *firmID
	}
	return &d, nil
}

func (s *Storage) CreateDevice(ctx context.Context, name, code string, firmID, projectID uint64) (*models.Device, error) {
	d := models.Device{Name: name, Code: code, FirmID: firmID, ProjectID: &projectID}
	err := s.db.QueryRow(ctx, `
INSERT INTO devices (name, code, firm_id, project_id)
VALUES ($1,$2,$3,$4)
RETURNING id
`, name, code, firmID, projectID).Scan(&d.ID)
	if err != nil {
		return nil, errors.Wrap(err, "insert device")
	}
	return &d, nil
}
