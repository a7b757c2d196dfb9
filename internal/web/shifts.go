package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"shiftcal/internal/calendar"
	"shiftcal/internal/config"
	"shiftcal/internal/deeplink"
	"shiftcal/internal/extract"
	"shiftcal/internal/ics"
	appLog "shiftcal/internal/log"
	"shiftcal/internal/model"
)

type shiftsResponse struct {
	Shifts []model.Record `json:"shifts"`
}

type updateRequest struct {
	Field string  `json:"field"`
	Value *string `json:"value"`
}

type linkResponse struct {
	URL string `json:"url"`
}

type calendarsResponse struct {
	Calendars []calendar.Calendar `json:"calendars"`
	Target    *calendar.Calendar  `json:"target"`
}

type failureDTO struct {
	ID    int    `json:"id"`
	Date  string `json:"date"`
	Title string `json:"title"`
	Error string `json:"error"`
}

type commitResponse struct {
	CalendarID string       `json:"calendarId"`
	Attempted  int          `json:"attempted"`
	Succeeded  int          `json:"succeeded"`
	Failures   []failureDTO `json:"failures"`
	Cleared    bool         `json:"cleared"`
	Message    string       `json:"message"`
}

// handleExtract runs the extraction pipeline on the uploaded "image" part
// and replaces the batch with the result. A failed extraction leaves the
// previous batch untouched.
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	if s.extractor == nil {
		writeErr(w, extract.ErrNotConfigured)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "multipart field \"image\" is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read image")
		return
	}

	img := extract.Image{Data: data, MIMEType: extract.DetectMIME(header.Filename, data)}
	records, err := s.extractor.Extract(r.Context(), img)
	if err != nil {
		writeErr(w, err)
		return
	}

	s.mu.Lock()
	s.batch.Replace(records)
	s.gen++
	s.mu.Unlock()
	out := s.snapshot()

	appLog.Info("api extract completed", "shift_count", len(out), "file", header.Filename)
	writeJSON(w, http.StatusOK, shiftsResponse{Shifts: out})
}

func (s *Server) handleListShifts(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, shiftsResponse{Shifts: s.snapshot()})
}

func (s *Server) handleResetShifts(w http.ResponseWriter, _ *http.Request) {
	s.Reset()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUpdateShift(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	field, ok := model.ParseField(req.Field)
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown field %q", req.Field))
		return
	}
	if req.Value == nil {
		writeError(w, http.StatusBadRequest, "value is required")
		return
	}

	s.mu.Lock()
	updated := s.batch.Update(id, field, *req.Value)
	rec, _ := s.batch.Get(id)
	if updated {
		s.gen++
	}
	s.mu.Unlock()

	if !updated {
		writeError(w, http.StatusNotFound, "shift not found")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleDeleteShift(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	deleted := s.batch.Delete(id)
	if deleted {
		s.gen++
	}
	s.mu.Unlock()

	if !deleted {
		writeError(w, http.StatusNotFound, "shift not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleShiftLink(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	rec, found := s.batch.Get(id)
	s.mu.Unlock()
	if !found {
		writeError(w, http.StatusNotFound, "shift not found")
		return
	}

	shift, err := rec.Validate(s.loc)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, linkResponse{URL: deeplink.Build(shift, s.loc)})
}

// handleExportICS serves the whole batch as a calendar download. Any
// unparsable record rejects the export.
func (s *Server) handleExportICS(w http.ResponseWriter, _ *http.Request) {
	records := s.snapshot()
	if len(records) == 0 {
		writeErr(w, model.ErrEmptyBatch)
		return
	}
	shifts, err := model.ValidateAll(records, s.loc)
	if err != nil {
		writeErr(w, err)
		return
	}

	body := ics.Encode(shifts, ics.Options{ProductID: s.productID(), Location: s.loc})

	w.Header().Set("Content-Type", ics.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", ics.Filename))
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, body)
}

func (s *Server) handleCalendars(w http.ResponseWriter, r *http.Request) {
	if s.committer == nil {
		writeError(w, http.StatusServiceUnavailable, "calendar provider unavailable")
		return
	}

	target, cals, err := s.committer.Target(r.Context())
	resp := calendarsResponse{Calendars: cals}
	switch {
	case err == nil:
		resp.Target = &target
	case errors.Is(err, calendar.ErrNoWritableCalendar):
	default:
		writeErr(w, err)
		return
	}
	if resp.Calendars == nil {
		resp.Calendars = []calendar.Calendar{}
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleCommit writes the batch into the native calendar. After a complete
// success the batch is cleared, unless it was edited while the commit ran.
func (s *Server) handleCommit(w http.ResponseWriter, r *http.Request) {
	if s.committer == nil {
		writeError(w, http.StatusServiceUnavailable, "calendar provider unavailable")
		return
	}

	s.mu.Lock()
	records := s.batch.Records()
	gen := s.gen
	s.mu.Unlock()

	report, err := s.committer.Commit(r.Context(), records)
	if err != nil {
		writeErr(w, err)
		return
	}

	resp := commitResponse{
		CalendarID: report.CalendarID,
		Attempted:  report.Attempted,
		Succeeded:  report.Succeeded,
		Failures:   make([]failureDTO, 0, len(report.Failures)),
		Message:    fmt.Sprintf("%d of %d shift(s) registered", report.Succeeded, len(records)),
	}
	for _, f := range report.Failures {
		resp.Failures = append(resp.Failures, failureDTO{
			ID:    f.Record.ID,
			Date:  f.Record.Date,
			Title: f.Record.Title,
			Error: f.Cause.Error(),
		})
	}

	if report.Complete() {
		s.mu.Lock()
		if s.gen == gen {
			s.batch.Reset()
			s.gen++
			resp.Cleared = true
		}
		s.mu.Unlock()
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) snapshot() []model.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.batch.Records()
	if out == nil {
		out = []model.Record{}
	}
	return out
}

func (s *Server) productID() string {
	if s.cfg == nil || s.cfg.ProductID == "" {
		return config.DefaultProductID
	}
	return s.cfg.ProductID
}

func pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id < 0 {
		writeError(w, http.StatusBadRequest, "invalid shift id")
		return 0, false
	}
	return id, true
}
