package web

import (
	"bytes"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/sweeney/zone5/internal/render"
	"github.com/sweeney/zone5/internal/status"
	"github.com/sweeney/zone5/internal/store"
	"github.com/sweeney/zone5/internal/syncer"
	"github.com/sweeney/zone5/internal/zone"
)

// ErrorResponse is the JSON body of every failed API call.
type ErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// IngestResponse is returned by a successful ingest.
type IngestResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	syncer.Summary
}

// StatsResponse is returned by the stats endpoint.
type StatsResponse struct {
	zone.Stats
	AsOf              zone.Day `json:"asOf"`
	LastUpdate        string   `json:"lastUpdate,omitempty"`
	TodayZone5Minutes float64  `json:"todayZone5Minutes"`
	Zone5Range        string   `json:"zone5Range,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, ErrorResponse{Error: msg})
}

func allowCORS(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
}

func (s *Server) handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	allowCORS(w)
	writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	allowCORS(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	if s.opts.ConfigErr != nil || s.opts.Syncer == nil {
		s.log.Error("ingest_not_configured", "error", s.opts.ConfigErr)
		writeError(w, http.StatusInternalServerError, "Server not configured. "+configMessage(s.opts.ConfigErr))
		return
	}
	if s.opts.Secret != "" && subtle.ConstantTimeCompare([]byte(bearer(r)), []byte(s.opts.Secret)) != 1 {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	if s.limiter != nil && !s.limiter.Allow() {
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusTooManyRequests, "Too many requests")
		return
	}

	batch, err := syncer.DecodeBatch(http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes))
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		s.log.Warn("ingest_too_large", "limit", tooLarge.Limit)
		writeError(w, http.StatusRequestEntityTooLarge, "Request body too large")
		return
	}
	if err != nil {
		s.log.Warn("ingest_rejected", "error", err)
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:  "Invalid data. Expected { heartRates: [...] }",
			Detail: err.Error(),
		})
		return
	}

	summary, err := s.opts.Syncer.Sync(r.Context(), batch)
	if err != nil {
		code := statusFor(err)
		if s.opts.Tracker != nil {
			s.opts.Tracker.RecordSync(status.SyncInfo{Time: timeNow(), Err: err.Error()})
		}
		writeError(w, code, err.Error())
		return
	}
	if s.opts.Tracker != nil {
		s.opts.Tracker.RecordSync(status.SyncInfo{
			Time:         timeNow(),
			SyncID:       summary.SyncID,
			NewDays:      summary.NewDays,
			TotalDays:    summary.TotalDays,
			TodayMinutes: summary.TodayMinutes,
		})
	}

	writeJSON(w, http.StatusOK, IngestResponse{
		Success: true,
		Message: "Zone 5 data synced!",
		Summary: summary,
	})
}

// configMessage keeps the innermost detail of a wrapped configuration error,
// e.g. "Missing GITHUB_TOKEN.".
func configMessage(err error) string {
	if err == nil {
		return "No store configured."
	}
	msg := err.Error()
	if i := strings.LastIndex(msg, ": "); i >= 0 {
		msg = msg[i+2:]
	}
	if !strings.HasSuffix(msg, ".") {
		msg += "."
	}
	return msg
}

// statusFor maps core errors to HTTP status codes. A store refusing our
// credentials is a server fault and falls through to 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, syncer.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, store.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// load returns the stored document, or an empty one if the store cannot be
// read. Read paths never fail because of missing history.
func (s *Server) load(r *http.Request) *store.Document {
	if s.opts.Syncer == nil {
		return &store.Document{Achievements: zone.DailyRecord{}}
	}
	doc, err := s.opts.Syncer.Load(r.Context())
	if err != nil {
		s.log.Warn("load_failed", "error", err)
		return &store.Document{Achievements: zone.DailyRecord{}}
	}
	return doc
}

func (s *Server) today() zone.Day {
	if s.opts.Syncer == nil {
		return zone.DayOf(timeNow().UTC())
	}
	return s.opts.Syncer.Today()
}

func (s *Server) handleContributions(w http.ResponseWriter, r *http.Request) {
	doc := s.load(r)
	asOf := s.today()
	theme := render.ThemeByName(r.URL.Query().Get("theme"))

	var buf bytes.Buffer
	weeks := zone.BuildGrid(doc.Achievements, asOf)
	if err := render.SVG(&buf, weeks, zone.ComputeStats(doc.Achievements, asOf), theme); err != nil {
		s.log.Error("render_failed", "error", err)
		http.Error(w, "Error generating graph", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "public, max-age=300")
	buf.WriteTo(w)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	doc := s.load(r)
	asOf := s.today()
	writeJSON(w, http.StatusOK, StatsResponse{
		Stats:             zone.ComputeStats(doc.Achievements, asOf),
		AsOf:              asOf,
		LastUpdate:        doc.LastUpdate,
		TodayZone5Minutes: doc.Achievements[asOf],
		Zone5Range:        doc.Zone5Range,
	})
}

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	doc := s.load(r)
	asOf := s.today()
	theme := render.ThemeByName(r.URL.Query().Get("theme"))

	var buf bytes.Buffer
	if err := render.CalendarPage(&buf, doc.Achievements, asOf, zone.ComputeStats(doc.Achievements, asOf), theme); err != nil {
		s.log.Error("render_failed", "error", err)
		http.Error(w, "Error generating calendar", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	buf.WriteTo(w)
}

func (s *Server) snapshot() status.Snapshot {
	if s.opts.Tracker == nil {
		return status.NewTracker(timeNow(), status.Config{Mode: "serve"}).Snapshot()
	}
	return s.opts.Tracker.Snapshot()
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := renderHTML(&buf, s.snapshot()); err != nil {
		s.log.Error("render_failed", "error", err)
		http.Error(w, "Error rendering status", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	buf.WriteTo(w)
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(s.snapshot()))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.opts.ConfigErr != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unconfigured"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// bearer extracts the token of an Authorization: Bearer header.
func bearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return h[7:]
	}
	return ""
}
