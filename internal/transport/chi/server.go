package chi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/flagdeck/internal/domain/criteria"
	domimage "github.com/kailas-cloud/flagdeck/internal/domain/image"
	domflag "github.com/kailas-cloud/flagdeck/internal/domain/flag"
	"github.com/kailas-cloud/flagdeck/internal/domain/record"
	"github.com/kailas-cloud/flagdeck/internal/domain/theme"
	logpkg "github.com/kailas-cloud/flagdeck/internal/logger"
	galleryuc "github.com/kailas-cloud/flagdeck/internal/usecase/gallery"
	healthuc "github.com/kailas-cloud/flagdeck/internal/usecase/health"
	sessionuc "github.com/kailas-cloud/flagdeck/internal/usecase/session"
)

// Paging holds page size limits for list endpoints.
type Paging struct {
	DefaultLimit int
	MaxLimit     int
}

// Server serves the flagdeck HTTP API.
type Server struct {
	sessions       *sessionuc.Service
	gallery        *galleryuc.Service
	health         *healthuc.Service
	paging         Paging
	exportFilename string
	logger         *zap.Logger
	errorHandlers  []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	sessions *sessionuc.Service,
	gallery *galleryuc.Service,
	health *healthuc.Service,
	paging Paging,
	exportFilename string,
	logger *zap.Logger,
) *Server {
	if paging.DefaultLimit <= 0 {
		paging.DefaultLimit = 20
	}
	if paging.MaxLimit < paging.DefaultLimit {
		paging.MaxLimit = paging.DefaultLimit
	}
	if exportFilename == "" {
		exportFilename = "flagged_images.csv"
	}
	return &Server{
		sessions:       sessions,
		gallery:        gallery,
		health:         health,
		paging:         paging,
		exportFilename: exportFilename,
		logger:         logger,
		errorHandlers:  defaultErrorHandlers(),
	}
}

// Routes registers the API on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Post("/sessions", s.CreateSession)
	r.Route("/sessions/{session}", func(r chi.Router) {
		r.Use(sessionLogger)
		r.Get("/", s.GetSession)
		r.Delete("/", s.DeleteSession)
		r.Get("/options", s.GetOptions)
		r.Put("/criteria", s.ApplyCriteria)
		r.Get("/records", s.ListRecords)
		r.Get("/records/{row_id}/image", s.GetRecordImage)
		r.Get("/gallery", s.GetGallery)
		r.Post("/flags", s.FlagRecord)
		r.Get("/flags", s.ListFlags)
		r.Get("/flags/export", s.ExportFlags)
		r.Put("/preferences", s.SetPreferences)
	})
}

// sessionLogger tags the request logger with the session id from the path.
func sessionLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logpkg.With(r.Context(), zap.String("session_id", chi.URLParam(r, "session")))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// CreateSession handles POST /sessions.
func (s *Server) CreateSession(w http.ResponseWriter, r *http.Request) {
	snap, err := s.sessions.Create(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	w.Header().Set("Location", "/sessions/"+snap.ID)
	writeJSON(w, http.StatusCreated, sessionToResponse(snap))
}

// GetSession handles GET /sessions/{session}.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	id, err := sessionParam(r)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	snap, err := s.sessions.Get(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sessionToResponse(snap))
}

// DeleteSession handles DELETE /sessions/{session}.
func (s *Server) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id, err := sessionParam(r)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	if err := s.sessions.Delete(r.Context(), id); err != nil {
		s.handleDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetOptions handles GET /sessions/{session}/options.
func (s *Server) GetOptions(w http.ResponseWriter, r *http.Request) {
	id, err := sessionParam(r)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	opts, err := s.sessions.Options(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, OptionsResponse{
		Attributes:  withAll(opts.Attributes),
		Entities:    withAll(opts.Entities),
		Predictions: withAll(opts.Predictions),
	})
}

// ApplyCriteria handles PUT /sessions/{session}/criteria.
// The body replaces the criteria wholesale; the response is the first page of the new view.
func (s *Server) ApplyCriteria(w http.ResponseWriter, r *http.Request) {
	id, err := sessionParam(r)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	var req CriteriaBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	_, limit, err := pageParams(r, s.paging.DefaultLimit, s.paging.MaxLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, err.Error())
		return
	}

	view, err := s.sessions.ApplyCriteria(r.Context(), id, criteriaFromBody(req))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, recordPage(view, nil, limit))
}

// ListRecords handles GET /sessions/{session}/records.
func (s *Server) ListRecords(w http.ResponseWriter, r *http.Request) {
	id, err := sessionParam(r)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	params, limit, err := pageParams(r, s.paging.DefaultLimit, s.paging.MaxLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, err.Error())
		return
	}

	view, err := s.sessions.View(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, recordPage(view, params.Cursor, limit))
}

// GetGallery handles GET /sessions/{session}/gallery.
func (s *Server) GetGallery(w http.ResponseWriter, r *http.Request) {
	id, err := sessionParam(r)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	params, limit, err := pageParams(r, s.paging.DefaultLimit, s.paging.MaxLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, err.Error())
		return
	}

	page, err := s.gallery.Render(r.Context(), id, params.Cursor, limit)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	tiles := make([]GalleryTile, len(page.Tiles))
	for i, t := range page.Tiles {
		tiles[i] = GalleryTile{
			Record:            recordToItem(t.Record),
			ImageURL:          fmt.Sprintf("/sessions/%s/records/%d/image", id, t.Record.RowID()),
			ContentType:       t.Image.ContentType,
			Width:             t.Image.Width,
			Height:            t.Image.Height,
			ConfidenceDisplay: strconv.FormatFloat(t.Record.Confidence(), 'f', 2, 64),
		}
	}

	writeJSON(w, http.StatusOK, GalleryResponse{
		Tiles:      tiles,
		Examined:   page.Examined,
		Skipped:    page.Skipped,
		Total:      page.ViewSize,
		Empty:      page.ViewSize == 0,
		HasMore:    page.NextCursor != nil,
		NextCursor: page.NextCursor,
	})
}

// GetRecordImage handles GET /sessions/{session}/records/{row_id}/image.
func (s *Server) GetRecordImage(w http.ResponseWriter, r *http.Request) {
	id, err := sessionParam(r)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	rowID, err := rowIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, err.Error())
		return
	}

	img, err := s.gallery.Image(r.Context(), id, rowID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", imageContentType(img))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Content-Length", strconv.Itoa(img.Size()))
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(img.Data)
}

// FlagRecord handles POST /sessions/{session}/flags.
func (s *Server) FlagRecord(w http.ResponseWriter, r *http.Request) {
	id, err := sessionParam(r)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	var req FlagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.RowID == nil {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, "row_id is required")
		return
	}

	res, rec, err := s.sessions.Flag(r.Context(), id, *req.RowID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	snap, err := s.sessions.Get(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	status := http.StatusOK
	if res == domflag.Added {
		status = http.StatusCreated
	}
	writeJSON(w, status, FlagResponse{
		Status:  string(res),
		Message: res.Message(),
		Record:  recordToItem(rec),
		Flagged: snap.Flagged,
	})
}

// ListFlags handles GET /sessions/{session}/flags.
func (s *Server) ListFlags(w http.ResponseWriter, r *http.Request) {
	id, err := sessionParam(r)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	flagged, err := s.sessions.Flags(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, FlagListResponse{
		Items: recordsToItems(flagged),
		Total: len(flagged),
	})
}

// ExportFlags handles GET /sessions/{session}/flags/export.
// An empty flagged set is answered with 409 nothing_flagged and no file.
func (s *Server) ExportFlags(w http.ResponseWriter, r *http.Request) {
	id, err := sessionParam(r)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	data, count, err := s.sessions.Export(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", s.exportFilename))
	w.Header().Set("X-Flagged-Count", strconv.Itoa(count))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// SetPreferences handles PUT /sessions/{session}/preferences.
func (s *Server) SetPreferences(w http.ResponseWriter, r *http.Request) {
	id, err := sessionParam(r)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	var req PreferencesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	t, err := theme.Parse(req.Theme)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, err.Error())
		return
	}

	snap, err := s.sessions.SetTheme(r.Context(), id, t)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sessionToResponse(snap))
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status:   string(report.Status),
		Checks:   checks,
		Records:  report.Records,
		Sessions: report.Sessions,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// imageContentType never lets a non-image type through, whatever the cache holds.
func imageContentType(img domimage.Image) string {
	if strings.HasPrefix(img.ContentType, "image/") {
		return img.ContentType
	}
	if img.Format != "" {
		return "image/" + img.Format
	}
	return "application/octet-stream"
}

func recordPage(view sessionuc.View, cursor *int, limit int) RecordListResponse {
	page, next := sessionuc.Paginate(view.Records, cursor, limit)
	return RecordListResponse{
		Criteria:   criteriaToBody(view.Criteria),
		Items:      recordsToItems(page),
		Total:      len(view.Records),
		Empty:      len(view.Records) == 0,
		HasMore:    next != nil,
		NextCursor: next,
	}
}

func criteriaFromBody(b CriteriaBody) criteria.Criteria {
	lo, hi := 0.0, 1.0
	if b.ConfidenceMin != nil {
		lo = *b.ConfidenceMin
	}
	if b.ConfidenceMax != nil {
		hi = *b.ConfidenceMax
	}
	return criteria.New(b.Attribute, b.Entity, b.Prediction, lo, hi)
}

func criteriaToBody(c criteria.Criteria) CriteriaBody {
	lo, hi := c.ConfidenceMin(), c.ConfidenceMax()
	return CriteriaBody{
		Attribute:     orAll(c.Attribute()),
		Entity:        orAll(c.Entity()),
		Prediction:    orAll(c.Prediction()),
		ConfidenceMin: &lo,
		ConfidenceMax: &hi,
	}
}

func orAll(s *string) *string {
	if s == nil {
		all := criteria.All
		return &all
	}
	v := *s
	return &v
}

func withAll(values []string) []string {
	out := make([]string, 0, len(values)+1)
	out = append(out, criteria.All)
	return append(out, values...)
}

func sessionToResponse(snap sessionuc.Snapshot) SessionResponse {
	return SessionResponse{
		ID:        snap.ID,
		CreatedAt: snap.CreatedAt,
		Criteria:  criteriaToBody(snap.Criteria),
		Theme:     snap.Theme.String(),
		ViewSize:  snap.ViewSize,
		Flagged:   snap.Flagged,
	}
}

func recordToItem(r record.Record) RecordItem {
	return RecordItem{
		RowID:         r.RowID(),
		URL:           r.URL(),
		AttributeName: r.AttributeName(),
		EntityName:    r.EntityName(),
		Prediction:    r.Prediction(),
		Confidence:    r.Confidence(),
	}
}

func recordsToItems(records []record.Record) []RecordItem {
	items := make([]RecordItem, len(records))
	for i, r := range records {
		items[i] = recordToItem(r)
	}
	return items
}
