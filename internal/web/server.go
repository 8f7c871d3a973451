// Package web provides the HTTP surface of zone5: the ingest endpoint used by
// the phone shortcut, the contribution graph, stats and the status page.
package web

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/sweeney/zone5/internal/status"
	"github.com/sweeney/zone5/internal/store"
	"github.com/sweeney/zone5/internal/syncer"
	"github.com/sweeney/zone5/internal/zone"
)

// Syncer is the part of syncer.Coordinator the server needs.
type Syncer interface {
	Sync(ctx context.Context, batch syncer.Batch) (syncer.Summary, error)
	Load(ctx context.Context) (*store.Document, error)
	Today() zone.Day
}

// Options configures a Server.
type Options struct {
	Addr    string
	Tracker *status.Tracker
	Syncer  Syncer

	// Secret, when set, must be presented as "Authorization: Bearer <secret>"
	// on ingest.
	Secret string

	// ConfigErr, when set, makes ingest answer 500 without touching the store.
	// Read endpoints keep working.
	ConfigErr error

	// IngestRate limits ingest requests per second across all clients.
	// Zero disables limiting.
	IngestRate  rate.Limit
	IngestBurst int

	// MaxBodyBytes caps the ingest request body. Zero means DefaultMaxBody.
	MaxBodyBytes int64

	Logger   *slog.Logger
	Gatherer prometheus.Gatherer
}

var timeNow = time.Now

// DefaultMaxBody is the default cap on ingest bodies.
const DefaultMaxBody = 8 << 20

// Server serves the zone5 HTTP API and status page.
type Server struct {
	httpServer *http.Server
	opts       Options
	log        *slog.Logger
	limiter    *rate.Limiter
}

// New creates a Server from opts.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBody
	}
	s := &Server{opts: opts, log: opts.Logger.With("component", "http")}
	if opts.IngestRate > 0 {
		burst := opts.IngestBurst
		if burst <= 0 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(opts.IngestRate, burst)
	}

	s.httpServer = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the full middleware-wrapped router.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health-sync", s.handleIngest).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/health-sync", s.handleMethodNotAllowed)
	api.HandleFunc("/zone5-contributions", s.handleContributions).Methods(http.MethodGet)
	api.HandleFunc("/zone5-stats", s.handleStats).Methods(http.MethodGet)

	r.HandleFunc("/zone5.html", s.handleCalendar).Methods(http.MethodGet)
	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/index.html", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/index.json", s.handleJSON).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
		// handleIngest answers OPTIONS itself, with or without an Origin.
		handlers.IgnoreOptions(),
	)
	recovery := handlers.RecoveryHandler(handlers.RecoveryLogger(recoveryLogger{s.log}), handlers.PrintRecoveryStack(false))
	return s.logRequests(recovery(cors(r)))
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
