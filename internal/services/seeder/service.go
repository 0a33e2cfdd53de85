package seeder

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"
	"github.com/takipteyim/patrolbox/internal/models"
)

// DemoDeviceCode is the patrol device the demo dataset revolves around.
const DemoDeviceCode = "5551234567"

var ErrNoUsableCheckpoints = errors.New("no checkpoints with a defined period")

type Repository interface {
	ResetAll(ctx context.Context) error
	CreateFirm(ctx context.Context, name string) (*models.Firm, error)
	CreateProject(ctx context.Context, name string, lat, lng float64, firmID uint64) (*models.Project, error)
	CreatePeriod(ctx context.Context, name string, durationSeconds int64) (*models.Period, error)
	CreateCheckpoint(ctx context.Context, name string, lat, lng float64, projectID, periodID uint64) (*models.Checkpoint, error)
	CreateDevice(ctx context.Context, name, code string, firmID, projectID uint64) (*models.Device, error)

	FindDeviceByCode(ctx context.Context, code string) (*models.Device, error)
	ListActiveCheckpoints(ctx context.Context, projectID uint64) ([]*models.Checkpoint, error)
	DeleteAllVisits(ctx context.Context) error
	InsertVisits(ctx context.Context, visits []models.VisitCreateInput) (int, error)
}

type Config struct {
	WindowHours          int
	ViolationProbability float64
}

type Service struct {
	repo Repository
	cfg  Config
	r    Rand
	now  func() time.Time
}

func New(repo Repository, cfg Config, r Rand) *Service {
	if cfg.WindowHours <= 0 {
		cfg.WindowHours = 24
	}
	if cfg.ViolationProbability <= 0 {
		cfg.ViolationProbability = DefaultViolationProbability
	}
	return &Service{repo: repo, cfg: cfg, r: r, now: func() time.Time { return time.Now().UTC() }}
}

// source returns the injected fixed source, or a fresh one per call.
// Rand sources are not safe for concurrent use, so concurrent seed
// requests must never share one.
func (s *Service) source() Rand {
	if s.r != nil {
		return s.r
	}
	return NewRand(time.Now().UnixNano())
}

type SeedResult struct {
	VisitsCreated int `json:"visits_created"`
}

// FullSeed wipes every entity and rebuilds the demo dataset from scratch:
// one firm, one project, four periods, three checkpoints and one device,
// then a visit history for the requested scenario.
func (s *Service) FullSeed(ctx context.Context, scenario Scenario) (*SeedResult, error) {
	slog.Info("starting full seed", "scenario", string(scenario))

	if err := s.repo.ResetAll(ctx); err != nil {
		return nil, errors.Wrap(err, "reset data")
	}

	firm, err := s.repo.CreateFirm(ctx, "TEKMER SELALE")
	if err != nil {
		return nil, errors.Wrap(err, "create firm")
	}
	project, err := s.repo.CreateProject(ctx, "Guvenlik", 40.8590341, 29.3162565, firm.ID)
	if err != nil {
		return nil, errors.Wrap(err, "create project")
	}

	periods := map[string]*models.Period{}
	for _, p := range []struct {
		name    string
		seconds int64
	}{
		{"15 dakika", 900},
		{"30 dakika", 1800},
		{"1 saat", 3600},
		{"2 saat", 7200},
	} {
		period, err := s.repo.CreatePeriod(ctx, p.name, p.seconds)
		if err != nil {
			return nil, errors.Wrap(err, "create period")
		}
		periods[p.name] = period
	}

	var checkpoints []*models.Checkpoint
	for _, c := range []struct {
		name       string
		lat, lng   float64
		periodName string
	}{
		{"Merkez", 40.85902364102, 29.316840338888, "2 saat"},
		{"Kutup", 40.858406939973, 29.316330719175, "30 dakika"},
		{"Giris", 40.859628164763, 29.31726949233, "1 saat"},
	} {
		period := periods[c.periodName]
		cp, err := s.repo.CreateCheckpoint(ctx, c.name, c.lat, c.lng, project.ID, period.ID)
		if err != nil {
			return nil, errors.Wrap(err, "create checkpoint")
		}
		cp.Period = period
		checkpoints = append(checkpoints, cp)
	}

	device, err := s.repo.CreateDevice(ctx, "Guvenlik Cihazi", DemoDeviceCode, firm.ID, project.ID)
	if err != nil {
		return nil, errors.Wrap(err, "create device")
	}

	return s.generateFor(ctx, device, checkpoints, scenario)
}

// RegenerateVisits keeps the entity graph and replaces only the visit
// history of the demo device's project.
func (s *Service) RegenerateVisits(ctx context.Context, scenario Scenario) (*SeedResult, error) {
	device, err := s.repo.FindDeviceByCode(ctx, DemoDeviceCode)
	if err != nil {
		return nil, errors.Wrap(err, "find demo device")
	}
	if device == nil {
		return nil, errors.Errorf("demo device %s not found, run a full seed first", DemoDeviceCode)
	}
	if device.ProjectID == nil {
		return nil, errors.Errorf("demo device %s has no project", DemoDeviceCode)
	}

	checkpoints, err := s.repo.ListActiveCheckpoints(ctx, *device.ProjectID)
	if err != nil {
		return nil, errors.Wrap(err, "list checkpoints")
	}

	usable := checkpoints[:0]
	for _, cp := range checkpoints {
		if cp.Period != nil && cp.Period.DurationSeconds > 0 {
			usable = append(usable, cp)
		}
	}
	if len(usable) == 0 {
		return nil, ErrNoUsableCheckpoints
	}

	if err := s.repo.DeleteAllVisits(ctx); err != nil {
		return nil, errors.Wrap(err, "delete old visits")
	}

	return s.generateFor(ctx, device, usable, scenario)
}

func (s *Service) generateFor(ctx context.Context, device *models.Device, checkpoints []*models.Checkpoint, scenario Scenario) (*SeedResult, error) {
	end := s.now()
	start := end.Add(-time.Duration(s.cfg.WindowHours) * time.Hour)
	r := s.source()

	total := 0
	for _, cp := range checkpoints {
		visits := GenerateVisits(cp, device, scenario, start, end, s.cfg.ViolationProbability, r)
		n, err := s.repo.InsertVisits(ctx, visits)
		if err != nil {
			return nil, errors.Wrapf(err, "insert visits for checkpoint %d", cp.ID)
		}
		total += n
	}

	slog.Info("seed finished", "scenario", string(scenario), "visits_created", total)
	return &SeedResult{VisitsCreated: total}, nil
}
