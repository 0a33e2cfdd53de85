package patrolapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	"github.com/takipteyim/patrolbox/internal/middleware"
	"github.com/takipteyim/patrolbox/internal/models"
	"github.com/takipteyim/patrolbox/internal/services/ingest"
	"github.com/takipteyim/patrolbox/internal/services/report"
	"github.com/takipteyim/patrolbox/internal/services/seeder"
)

type IngestService interface {
	Ingest(ctx context.Context, p ingest.Ping) (*models.Visit, error)
}

type ReportService interface {
	ProjectReport(ctx context.Context, projectID uint64, start, end time.Time) ([]report.CheckpointReport, error)
}

type SeederService interface {
	FullSeed(ctx context.Context, scenario seeder.Scenario) (*seeder.SeedResult, error)
	RegenerateVisits(ctx context.Context, scenario seeder.Scenario) (*seeder.SeedResult, error)
}

type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error)
}

type Options struct {
	AllowedIPs         []string
	RateLimitPerMinute int64
	ReportWindow       time.Duration
}

type API struct {
	ingestSvc IngestService
	report    ReportService
	seeder    SeederService
	rl        RateLimiter
	opts      Options
	now       func() time.Time
}

func New(ingestSvc IngestService, reportSvc ReportService, seederSvc SeederService, rl RateLimiter, opts Options) *API {
	if opts.ReportWindow <= 0 {
		opts.ReportWindow = 12 * time.Hour
	}
	return &API{
		ingestSvc: ingestSvc,
		report:    reportSvc,
		seeder:    seederSvc,
		rl:        rl,
		opts:      opts,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Router builds the API route tree. The ingest endpoint sits behind the IP
// allow-list; the rest of the surface is internal-facing.
func (a *API) Router() chi.Router {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.With(middleware.IPAllowlist(a.opts.AllowedIPs)).Post("/ingest", a.handleIngest)
		r.Get("/projects/{projectID}/report", a.handleProjectReport)
		r.Post("/seed/full/{scenario}", a.handleSeedFull)
		r.Post("/seed/visits/{scenario}", a.handleSeedVisits)
	})

	return r
}

// ingestRequest mirrors the field names the tracker hardware sends.
type ingestRequest struct {
	DeviceCode string   `json:"loc_cihaz_id"`
	Lat        *float64 `json:"loc_lat"`
	Lng        *float64 `json:"loc_lng"`
	Status     *int64   `json:"loc_status"`
	Time       string   `json:"loc_time"`
}

type visitResponse struct {
	ID           uint64    `json:"id"`
	DeviceID     uint64    `json:"device_id"`
	CheckpointID *uint64   `json:"checkpoint_id"`
	ProjectID    uint64    `json:"project_id"`
	Latitude     float64   `json:"latitude"`
	Longitude    float64   `json:"longitude"`
	Status       string    `json:"status"`
	Timestamp    time.Time `json:"timestamp"`
	Distance     float64   `json:"distance"`
	VisitStatus  bool      `json:"visit_status"`
}

func (a *API) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.DeviceCode == "" {
		writeError(w, http.StatusBadRequest, "device ID (loc_cihaz_id) is missing")
		return
	}
	if req.Lat == nil || req.Lng == nil {
		writeError(w, http.StatusBadRequest, "loc_lat and loc_lng are required")
		return
	}

	if !a.allowRate(r.Context(), req.DeviceCode) {
		writeError(w, http.StatusTooManyRequests, "ingest rate limit exceeded")
		return
	}

	p := ingest.Ping{
		DeviceCode: req.DeviceCode,
		Lat:        *req.Lat,
		Lng:        *req.Lng,
		Status:     "0",
	}
	if req.Status != nil {
		p.Status = strconv.FormatInt(*req.Status, 10)
	}
	if req.Time != "" {
		ts, err := parseEventTime(req.Time)
		if err != nil {
			writeError(w, http.StatusBadRequest, "loc_time is not a valid timestamp")
			return
		}
		p.Timestamp = ts
	}

	visit, err := a.ingestSvc.Ingest(r.Context(), p)
	if err != nil {
		a.writeIngestError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"created": toVisitResponse(visit),
	})
}

func (a *API) allowRate(ctx context.Context, deviceCode string) bool {
	if a.rl == nil || a.opts.RateLimitPerMinute <= 0 {
		return true
	}
	ok, _, err := a.rl.Allow(ctx, "ingest:"+deviceCode, a.opts.RateLimitPerMinute, time.Minute)
	if err != nil {
		// Fail open: a Redis outage must not block field devices.
		slog.Error("ingest rate limit check failed", "err", err)
		return true
	}
	return ok
}

func (a *API) writeIngestError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ingest.ErrDeviceNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ingest.ErrDeviceUnassigned), errors.Is(err, ingest.ErrMalformedPing):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		slog.Error("ingest failed", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to record visit")
	}
}

func (a *API) handleProjectReport(w http.ResponseWriter, r *http.Request) {
	projectID, err := strconv.ParseUint(chi.URLParam(r, "projectID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid project id")
		return
	}

	end := a.now()
	start := end.Add(-a.opts.ReportWindow)
	q := r.URL.Query()
	if q.Get("start_date") != "" || q.Get("end_date") != "" {
		start, err = parseEventTime(q.Get("start_date"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "start_date is not a valid timestamp")
			return
		}
		end, err = parseEventTime(q.Get("end_date"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "end_date is not a valid timestamp")
			return
		}
	}

	data, err := a.report.ProjectReport(r.Context(), projectID, start, end)
	if err != nil {
		slog.Error("project report failed", "err", err, "project_id", projectID)
		writeError(w, http.StatusInternalServerError, "failed to generate report")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"data": data})
}

func (a *API) handleSeedFull(w http.ResponseWriter, r *http.Request) {
	a.handleSeed(w, r, a.seeder.FullSeed)
}

func (a *API) handleSeedVisits(w http.ResponseWriter, r *http.Request) {
	a.handleSeed(w, r, a.seeder.RegenerateVisits)
}

func (a *API) handleSeed(w http.ResponseWriter, r *http.Request, run func(context.Context, seeder.Scenario) (*seeder.SeedResult, error)) {
	scenario := seeder.Scenario(chi.URLParam(r, "scenario"))
	if scenario != seeder.ScenarioCompliant && scenario != seeder.ScenarioViolating {
		writeError(w, http.StatusBadRequest, "scenario must be compliant or violating")
		return
	}

	res, err := run(r.Context(), scenario)
	if err != nil {
		slog.Error("seed failed", "err", err, "scenario", string(scenario))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// parseEventTime accepts RFC3339 or a unix timestamp (seconds, or
// milliseconds for values past ~2001 in ms terms).
func parseEventTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts.UTC(), nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, errors.Errorf("unparseable timestamp %q", s)
	}
	if n > 1_000_000_000_000 {
		return time.UnixMilli(n).UTC(), nil
	}
	return time.Unix(n, 0).UTC(), nil
}

func toVisitResponse(v *models.Visit) visitResponse {
	return visitResponse{
		ID:           v.ID,
		DeviceID:     v.DeviceID,
		CheckpointID: v.CheckpointID,
		ProjectID:    v.ProjectID,
		Latitude:     v.Latitude,
		Longitude:    v.Longitude,
		Status:       v.Status,
		Timestamp:    v.Timestamp,
		Distance:     v.Distance,
		VisitStatus:  v.VisitStatus,
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}
