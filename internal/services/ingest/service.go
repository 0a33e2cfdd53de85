package ingest

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/pkg/errors"
	"github.com/takipteyim/patrolbox/internal/broker/messages"
	"github.com/takipteyim/patrolbox/internal/geo"
	"github.com/takipteyim/patrolbox/internal/models"
)

// DefaultThresholdMeters is the maximum distance for a ping to count as
// satisfying a checkpoint.
const DefaultThresholdMeters = 50.0

var (
	ErrDeviceNotFound   = errors.New("device not found")
	ErrDeviceUnassigned = errors.New("device is not associated with any project")
	ErrMalformedPing    = errors.New("malformed ping")
)

// AttachPolicy decides what happens to a ping whose nearest checkpoint is
// beyond the threshold.
type AttachPolicy string

const (
	// AttachWithinThreshold attaches the checkpoint only when the ping is
	// within the threshold; otherwise the visit is recorded unattached with
	// distance 0. This is the request/response transport's behavior.
	AttachWithinThreshold AttachPolicy = "within_threshold"
	// AttachNearestAlways attaches the nearest checkpoint regardless of
	// distance and lets visit_status carry the outcome. This is the
	// message-bus transport's behavior.
	AttachNearestAlways AttachPolicy = "nearest_always"
)

func ParseAttachPolicy(s string) (AttachPolicy, error) {
	switch AttachPolicy(s) {
	case AttachWithinThreshold, AttachNearestAlways:
		return AttachPolicy(s), nil
	case "":
		return AttachWithinThreshold, nil
	}
	return "", errors.Errorf("unknown attach policy %q", s)
}

type Repository interface {
	// FindDeviceByCode returns (nil, nil) when no device matches.
	FindDeviceByCode(ctx context.Context, code string) (*models.Device, error)
	ListActiveCheckpoints(ctx context.Context, projectID uint64) ([]*models.Checkpoint, error)
	CreateVisit(ctx context.Context, in models.VisitCreateInput) (*models.Visit, error)
}

type Producer interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

// Ping is one raw location report, regardless of which transport carried it.
// A zero Timestamp means "use processing time".
type Ping struct {
	DeviceCode string
	Lat        float64
	Lng        float64
	Status     string
	Timestamp  time.Time
}

type Config struct {
	Topic           string // visit.created topic; empty disables publishing
	Aliases         map[string]string
	Policy          AttachPolicy
	ThresholdMeters float64
}

type Service struct {
	repo     Repository
	producer Producer
	cfg      Config
	now      func() time.Time
}

func New(repo Repository, producer Producer, cfg Config) *Service {
	if cfg.Policy == "" {
		cfg.Policy = AttachWithinThreshold
	}
	if cfg.ThresholdMeters <= 0 {
		cfg.ThresholdMeters = DefaultThresholdMeters
	}
	return &Service{repo: repo, producer: producer, cfg: cfg, now: func() time.Time { return time.Now().UTC() }}
}

// Ingest resolves the device, matches the ping against the project's active
// checkpoints and persists exactly one visit. A project without checkpoints,
// or a beyond-threshold ping under the within_threshold policy, still records
// an unattached visit: a ping with no reachable checkpoint is evidence the
// device is active.
func (s *Service) Ingest(ctx context.Context, p Ping) (*models.Visit, error) {
	if p.DeviceCode == "" {
		return nil, errors.Wrap(ErrMalformedPing, "device code is missing")
	}
	point := geo.Point{Lat: p.Lat, Lng: p.Lng}
	if !point.Valid() {
		return nil, errors.Wrapf(ErrMalformedPing, "coordinates out of range (%f, %f)", p.Lat, p.Lng)
	}

	code := p.DeviceCode
	if alias, ok := s.cfg.Aliases[code]; ok {
		code = alias
	}

	device, err := s.repo.FindDeviceByCode(ctx, code)
	if err != nil {
		return nil, errors.Wrap(err, "find device")
	}
	if device == nil {
		return nil, errors.Wrapf(ErrDeviceNotFound, "code %s", code)
	}
	if device.ProjectID == nil {
		return nil, errors.Wrapf(ErrDeviceUnassigned, "code %s", code)
	}

	checkpoints, err := s.repo.ListActiveCheckpoints(ctx, *device.ProjectID)
	if err != nil {
		return nil, errors.Wrap(err, "list checkpoints")
	}

	nearest, distance := geo.Nearest(point, checkpoints)
	withinThreshold := nearest != nil && distance <= s.cfg.ThresholdMeters

	in := models.VisitCreateInput{
		DeviceID:  device.ID,
		ProjectID: *device.ProjectID, // always derived from the device, never from the caller
		Latitude:  p.Lat,
		Longitude: p.Lng,
		Status:    p.Status,
		Timestamp: p.Timestamp,
	}
	if in.Timestamp.IsZero() {
		in.Timestamp = s.now()
	}

	switch s.cfg.Policy {
	case AttachNearestAlways:
		if nearest != nil {
			in.CheckpointID = &nearest.ID
			in.Distance = distance
		}
		in.VisitStatus = withinThreshold
	default: // AttachWithinThreshold
		if withinThreshold {
			in.CheckpointID = &nearest.ID
			in.Distance = distance
			in.VisitStatus = true
		}
	}

	visit, err := s.repo.CreateVisit(ctx, in)
	if err != nil {
		return nil, errors.Wrap(err, "persist visit")
	}

	s.publishVisitCreated(ctx, code, visit)

	return visit, nil
}

// publishVisitCreated is best-effort: the visit is already durable, a broker
// hiccup must not fail the ingest.
func (s *Service) publishVisitCreated(ctx context.Context, deviceCode string, v *models.Visit) {
	if s.producer == nil || s.cfg.Topic == "" {
		return
	}
	msg := messages.VisitCreated{
		VisitID:      v.ID,
		DeviceID:     v.DeviceID,
		DeviceCode:   deviceCode,
		ProjectID:    v.ProjectID,
		CheckpointID: v.CheckpointID,
		Latitude:     v.Latitude,
		Longitude:    v.Longitude,
		Distance:     v.Distance,
		VisitStatus:  v.VisitStatus,
		Timestamp:    v.Timestamp,
	}
	b, err := json.Marshal(msg)
	if err != nil {
		slog.Error("marshal visit.created", "err", err)
		return
	}
	if err := s.producer.Publish(ctx, s.cfg.Topic, []byte(deviceCode), b); err != nil {
		slog.Error("publish visit.created", "err", err, "visit_id", v.ID)
	}
}
