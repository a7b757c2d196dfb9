package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"shiftcal/internal/calendar"
	"shiftcal/internal/config"
	"shiftcal/internal/extract"
	appLog "shiftcal/internal/log"
	"shiftcal/internal/model"
	"shiftcal/internal/store"
)

// maxUploadBytes bounds the multipart body of /api/extract.
const maxUploadBytes = 20 << 20

// Extractor turns an image into a batch of records.
type Extractor interface {
	Extract(ctx context.Context, img extract.Image) ([]model.Record, error)
}

// Committer writes a batch into a native calendar.
type Committer interface {
	Target(ctx context.Context) (calendar.Calendar, []calendar.Calendar, error)
	Commit(ctx context.Context, records []model.Record) (calendar.Report, error)
}

// Server exposes the extraction, editing, export and calendar APIs over a
// single in-memory batch.
type Server struct {
	cfg *config.Config
	loc *time.Location
	mux *http.ServeMux

	extractor Extractor
	committer Committer

	// mu guards batch and gen. gen increments on every mutation so a commit
	// only clears the batch it actually wrote.
	mu    sync.Mutex
	batch *store.Store
	gen   uint64
}

// NewServer constructs a Server. A nil extractor or committer makes the
// matching endpoints answer 503.
func NewServer(cfg *config.Config, loc *time.Location, ex Extractor, cm Committer) *Server {
	if loc == nil {
		loc = time.Local
	}
	s := &Server{
		cfg:       cfg,
		loc:       loc,
		mux:       http.NewServeMux(),
		extractor: ex,
		committer: cm,
		batch:     store.New(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// Reset discards the current batch.
func (s *Server) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batch.Reset()
	s.gen++
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)

	s.mux.HandleFunc("POST /api/extract", s.handleExtract)

	s.mux.HandleFunc("GET /api/shifts", s.handleListShifts)
	s.mux.HandleFunc("DELETE /api/shifts", s.handleResetShifts)
	s.mux.HandleFunc("PATCH /api/shifts/{id}", s.handleUpdateShift)
	s.mux.HandleFunc("DELETE /api/shifts/{id}", s.handleDeleteShift)
	s.mux.HandleFunc("GET /api/shifts/{id}/link", s.handleShiftLink)
	s.mux.HandleFunc("GET /api/shifts.ics", s.handleExportICS)

	s.mux.HandleFunc("GET /api/calendars", s.handleCalendars)
	s.mux.HandleFunc("POST /api/calendar/commit", s.handleCommit)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Blank credentials mean disabled.
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="ShiftCal", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// statusFor maps pipeline errors onto HTTP status codes.
func statusFor(err error) int {
	var verrs model.ValidationErrors
	var ferr *model.FieldError
	switch {
	case errors.Is(err, extract.ErrNotConfigured):
		return http.StatusServiceUnavailable
	case errors.Is(err, extract.ErrRequest):
		return http.StatusBadGateway
	case errors.Is(err, extract.ErrMalformedResponse),
		errors.Is(err, extract.ErrUnexpectedShape),
		errors.As(err, &verrs),
		errors.As(err, &ferr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, extract.ErrEmptyImage),
		errors.Is(err, model.ErrEmptyBatch):
		return http.StatusBadRequest
	case errors.Is(err, calendar.ErrNoWritableCalendar):
		return http.StatusConflict
	case errors.Is(err, calendar.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

type errResp struct {
	Error  string              `json:"error"`
	Fields []*model.FieldError `json:"fields,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errResp{Error: msg})
}

// writeErr writes err with the status statusFor picks. Validation failures
// carry the offending fields.
func writeErr(w http.ResponseWriter, err error) {
	resp := errResp{Error: err.Error()}
	var verrs model.ValidationErrors
	var ferr *model.FieldError
	switch {
	case errors.As(err, &verrs):
		resp.Fields = verrs
	case errors.As(err, &ferr):
		resp.Fields = []*model.FieldError{ferr}
	}
	writeJSON(w, statusFor(err), resp)
}
