// Package syncer runs the read-merge-write transaction that folds a batch of
// heart rate samples into the stored achievement document.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"github.com/sweeney/zone5/internal/store"
	"github.com/sweeney/zone5/internal/zone"
)

const (
	// sinkTimeout bounds post-commit notifications.
	sinkTimeout = 5 * time.Second
	// loadTimeout bounds the shared read behind Load.
	loadTimeout = 30 * time.Second
)

// Summary is returned to the ingest caller.
type Summary struct {
	SyncID       string  `json:"syncId"`
	NewDays      int     `json:"newZone5Days"`
	TotalDays    int     `json:"totalZone5Days"`
	TodayMinutes float64 `json:"todayMinutes"`
}

// Event describes a committed sync for downstream sinks.
type Event struct {
	Time    time.Time
	Summary Summary
	// Changed holds the merged minutes of every day whose value increased
	// or appeared.
	Changed zone.DailyRecord
	Stats   zone.Stats
	LastBPM float64
	InBand  bool
}

// Sink receives committed sync events. Failures are logged and counted but
// never undo the commit.
type Sink interface {
	Name() string
	Notify(ctx context.Context, ev Event) error
}

// Coordinator serializes syncs within the process. Cross-process races are
// left to the store's version token.
type Coordinator struct {
	store   store.Store
	profile Profile
	now     func() time.Time
	sinks   []Sink
	logger  *slog.Logger

	sem   *semaphore.Weighted
	loads singleflight.Group
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// WithSinks adds post-commit sinks.
func WithSinks(sinks ...Sink) Option {
	return func(c *Coordinator) { c.sinks = append(c.sinks, sinks...) }
}

// WithLogger sets the logger. The default discards.
func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) { c.logger = l }
}

// NewCoordinator creates a Coordinator over s.
func NewCoordinator(s store.Store, profile Profile, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:   s,
		profile: profile,
		now:     time.Now,
		logger:  slog.New(slog.DiscardHandler),
		sem:     semaphore.NewWeighted(1),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Profile returns the configured user profile.
func (c *Coordinator) Profile() Profile {
	return c.profile
}

// Sync reads the stored document, merges batch into it and writes it back
// with the token obtained by the read. A read failure aborts before any
// write. A stale token surfaces as store.ErrConflict and is not retried here.
func (c *Coordinator) Sync(ctx context.Context, batch Batch) (Summary, error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		syncsTotal.WithLabelValues("canceled").Inc()
		return Summary{}, err
	}
	defer c.sem.Release(1)

	start := time.Now()
	syncID := uuid.NewString()
	log := c.logger.With("sync_id", syncID)

	prior, token, err := c.store.Read(ctx)
	switch {
	case errors.Is(err, store.ErrNotFound):
		prior, token = nil, ""
	case err != nil:
		syncsTotal.WithLabelValues(resultLabel(err, "read_error")).Inc()
		log.Error("sync_read_failed", "error", err, "retryable", Retryable(err))
		return Summary{}, fmt.Errorf("read stored document: %w", err)
	}

	now := c.now()
	res := Plan(prior, batch, now, c.profile)

	_, err = c.store.Write(ctx, res.Document, token)
	switch {
	case errors.Is(err, store.ErrTokenUnknown):
		// The document is stored; only the new version is missing, and the
		// next sync reads it afresh.
		log.Warn("sync_write_unconfirmed", "error", err)
	case err != nil:
		syncsTotal.WithLabelValues(resultLabel(err, "write_error")).Inc()
		log.Error("sync_write_failed", "error", err, "retryable", Retryable(err))
		return Summary{}, fmt.Errorf("write stored document: %w", err)
	}
	syncDuration.Observe(time.Since(start).Seconds())
	syncsTotal.WithLabelValues("ok").Inc()
	samplesIngested.Add(float64(len(batch.Samples)))
	daysChanged.Add(float64(len(res.Merge.Changed)))

	summary := Summary{
		SyncID:       syncID,
		NewDays:      res.Merge.NewDays,
		TotalDays:    res.Merge.TotalDays,
		TodayMinutes: res.TodayMinutes,
	}
	log.Info("sync_committed",
		"samples", len(batch.Samples),
		"new_days", summary.NewDays,
		"total_days", summary.TotalDays,
		"changed_days", len(res.Merge.Changed),
		"today_minutes", summary.TodayMinutes,
	)

	c.notify(ctx, log, res, summary, batch, now)
	return summary, nil
}

func (c *Coordinator) notify(ctx context.Context, log *slog.Logger, res Result, summary Summary, batch Batch, now time.Time) {
	if len(c.sinks) == 0 {
		return
	}
	changed := make(zone.DailyRecord, len(res.Merge.Changed))
	for _, d := range res.Merge.Changed {
		changed[d] = res.Document.Achievements[d]
	}
	ev := Event{
		Time:    now,
		Summary: summary,
		Changed: changed,
		Stats:   zone.ComputeStats(res.Document.Achievements, res.Today),
		LastBPM: batch.LastBPM(),
		InBand:  res.Document.InZone5,
	}

	// The commit already happened; notifications outlive a cancelled request.
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sinkTimeout)
	defer cancel()
	for _, s := range c.sinks {
		if err := s.Notify(nctx, ev); err != nil {
			sinkFailures.WithLabelValues(s.Name()).Inc()
			log.Warn("sync_sink_failed", "sink", s.Name(), "error", err)
		}
	}
}

// Load returns the stored document for read paths. A missing document is an
// empty one. Concurrent callers share a single store read.
func (c *Coordinator) Load(ctx context.Context) (*store.Document, error) {
	v, err, _ := c.loads.Do("load", func() (interface{}, error) {
		// The read is shared, so one caller going away must not fail the rest.
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()
		doc, _, err := c.store.Read(rctx)
		if errors.Is(err, store.ErrNotFound) {
			return &store.Document{Achievements: zone.DailyRecord{}}, nil
		}
		return doc, err
	})
	if err != nil {
		return nil, err
	}
	// Callers may mutate their copy.
	return v.(*store.Document).Clone(), nil
}

// Today returns the current UTC calendar day according to the coordinator clock.
func (c *Coordinator) Today() zone.Day {
	return zone.DayOf(c.now().UTC())
}

func resultLabel(err error, fallback string) string {
	switch {
	case errors.Is(err, store.ErrConflict):
		return "conflict"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return fallback
	}
}
