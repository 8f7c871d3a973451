package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/sweeney/zone5/internal/monitor"
	"github.com/sweeney/zone5/internal/mqtt"
	"github.com/sweeney/zone5/internal/sensor"
	"github.com/sweeney/zone5/internal/status"
	"github.com/sweeney/zone5/internal/syncer"
	"github.com/sweeney/zone5/internal/web"
	"github.com/sweeney/zone5/internal/zone"
)

// flushTimeout bounds a single flush, including the one at shutdown.
const flushTimeout = 30 * time.Second

// flusher commits a batch: a local Coordinator or a remote web.Client.
type flusher interface {
	Sync(ctx context.Context, batch syncer.Batch) (syncer.Summary, error)
}

func monitorCmd(a *app) *cobra.Command {
	var (
		httpAddr   string
		printBPM   bool
		printAfter time.Duration
	)
	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Read the heart rate sensor and flush Zone 5 minutes periodically",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.cfg.ValidateMonitor(); err != nil {
				return err
			}
			if printBPM {
				return a.printReading(cmd.Context(), printAfter)
			}
			return a.runMonitor(cmd.Context(), httpAddr)
		},
	}
	cmd.Flags().StringVar(&httpAddr, "http", "", "serve the status page on this address")
	cmd.Flags().BoolVar(&printBPM, "print", false, "print one reading and exit")
	cmd.Flags().DurationVar(&printAfter, "print-timeout", 10*time.Second, "how long --print waits for a reading")
	return cmd
}

// printReading polls the sensor until it yields a reading.
func (a *app) printReading(ctx context.Context, timeout time.Duration) error {
	src, err := sensor.NewRealSource(a.cfg.Monitor.Pin)
	if err != nil {
		return err
	}
	defer src.Close()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	ticker := time.NewTicker(a.cfg.Monitor.Poll)
	defer ticker.Stop()
	band := a.cfg.Band()
	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("no reading within %v: %w", timeout, sensor.ErrNoReading)
		case <-ticker.C:
			r, err := src.Next(ctx)
			if errors.Is(err, sensor.ErrNoReading) {
				continue
			}
			if err != nil {
				return err
			}
			fmt.Printf("BPM: %.0f, Zone 5 (%s): %s\n", r.BPM, band, yesNo(band.Contains(r.BPM)))
			return nil
		}
	}
}

func (a *app) runMonitor(ctx context.Context, httpAddr string) error {
	cfg := a.cfg
	src, err := sensor.NewRealSource(cfg.Monitor.Pin)
	if err != nil {
		return fmt.Errorf("init sensor: %w", err)
	}
	defer src.Close()

	backend := cfg.Store.Backend
	if cfg.Monitor.Remote != "" {
		backend = "remote " + cfg.Monitor.Remote
	}
	tracker := status.NewTracker(time.Now(), status.Config{
		Mode:        "monitor",
		PollMs:      cfg.Monitor.Poll.Milliseconds(),
		FlushMs:     cfg.Monitor.Flush.Milliseconds(),
		HeartbeatMs: cfg.Monitor.Heartbeat.Milliseconds(),
		TickMs:      cfg.Monitor.Poll.Milliseconds(),
		Band:        cfg.Band().String(),
		Backend:     backend,
		Broker:      cfg.MQTT.Broker,
		HTTPAddr:    httpAddr,
	})

	publisher, mqttStatus, err := a.newPublisher(tracker)
	if err != nil {
		return err
	}
	defer publisher.Close()

	var (
		target flusher
		coord  *syncer.Coordinator
	)
	if cfg.Monitor.Remote != "" {
		target = web.NewClient(cfg.Monitor.Remote, cfg.HTTP.Secret, nil)
	} else {
		c, cleanup, err := a.newCoordinator(ctx, publisher)
		if err != nil {
			return err
		}
		defer cleanup()
		coord, target = c, c
	}

	publishSystem(a.log, publisher, mqttStatus, tracker, "STARTUP", "")

	if httpAddr != "" {
		opts := web.Options{
			Addr:        httpAddr,
			Tracker:     tracker,
			Secret:      cfg.HTTP.Secret,
			IngestRate:  rate.Limit(cfg.HTTP.Rate),
			IngestBurst: cfg.HTTP.Burst,
			Logger:      a.log,
		}
		if coord != nil {
			opts.Syncer = coord
		}
		srv := web.New(opts)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.log.Error("http_server_failed", "error", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		a.log.Info("http_listening", "addr", httpAddr)
	}

	a.log.Info("monitor_started",
		"poll", cfg.Monitor.Poll,
		"flush", cfg.Monitor.Flush,
		"heartbeat", cfg.Monitor.Heartbeat,
		"band", cfg.Band().String(),
		"backend", backend,
	)

	ticker := time.NewTicker(cfg.Monitor.Poll)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	return runLoop(loop{
		source:    src,
		publisher: publisher,
		conn:      mqttStatus,
		flusher:   target,
		tracker:   tracker,
		band:      cfg.Band(),
		tick:      cfg.Monitor.Poll,
		flush:     cfg.Monitor.Flush,
		heartbeat: cfg.Monitor.Heartbeat,
		log:       a.log,
	}, time.Now, ticker.C, sigCh)
}

// loop holds the collaborators of runLoop.
type loop struct {
	source    sensor.Source
	publisher mqtt.Publisher
	conn      mqtt.ConnectionStatus
	flusher   flusher
	tracker   *status.Tracker
	band      zone.Band
	// tick is the time one reading stands for, normally the poll interval.
	tick      time.Duration
	flush     time.Duration
	heartbeat time.Duration
	log       *slog.Logger
}

func runLoop(l loop, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	if l.log == nil {
		l.log = slog.New(slog.DiscardHandler)
	}
	ctx := context.Background()
	start := now()
	session := monitor.NewSession(start)
	days := monitor.DayLog{}
	lastFlush, lastHeartbeat := start, start
	state := status.SensorUnknown

	for {
		select {
		case s := <-sig:
			name := signalName(s)
			l.log.Info("shutdown", "signal", name, "pending", len(session.Pending))
			session = l.flushPending(ctx, session, days, now())
			l.updateTracker(session, state)
			publishSystem(l.log, l.publisher, l.conn, l.tracker, "SHUTDOWN", name)
			return nil

		case <-tick:
			t := now()
			r, err := l.source.Next(ctx)
			switch {
			case err == nil:
				if state != status.SensorReading {
					l.log.Info("sensor_reading", "bpm", r.BPM)
				}
				state = status.SensorReading
				at := r.Time
				if at.IsZero() {
					at = t
				}
				// Stored days and the read endpoints use the UTC calendar.
				at = at.UTC()
				var events []monitor.Event
				session, events = monitor.Process(session, monitor.Input{BPM: r.BPM, Time: at}, l.band, l.tick)
				days.Add(zone.Sample{Date: zone.DayOf(at), BPM: r.BPM}, l.band)
				for _, ev := range events {
					l.log.Info("band_event", "type", ev.Type, "bpm", ev.BPM)
					if err := l.publisher.Publish(ev); err != nil {
						l.log.Warn("publish_failed", "type", ev.Type, "error", err)
					}
				}
			case errors.Is(err, sensor.ErrNoReading):
				if state == status.SensorReading {
					l.log.Info("sensor_idle")
				}
				state = status.SensorIdle
			case errors.Is(err, sensor.ErrUnavailable):
				if state != status.SensorUnavailable {
					l.log.Warn("sensor_unavailable", "error", err)
				}
				state = status.SensorUnavailable
			default:
				l.log.Warn("sensor_read_failed", "error", err)
			}

			if l.flush > 0 && t.Sub(lastFlush) >= l.flush {
				session = l.flushPending(ctx, session, days, t)
				lastFlush = t
			}

			l.updateTracker(session, state)

			if hb := monitor.CheckHeartbeat(session, lastHeartbeat, t, l.heartbeat); hb != nil {
				l.log.Info("heartbeat",
					"uptime", hb.Uptime,
					"readings", hb.Readings,
					"pending", hb.Pending,
					"in_zone5_minutes", hb.InBandTime.Minutes(),
				)
				publishSystem(l.log, l.publisher, l.conn, l.tracker, "HEARTBEAT", "")
				lastHeartbeat = t
			}
		}
	}
}

// flushPending commits every day touched by the queued samples. A failed
// flush puts the queue back so those days stay dirty, unless the batch itself
// was rejected.
func (l loop) flushPending(ctx context.Context, session monitor.Session, days monitor.DayLog, t time.Time) monitor.Session {
	samples, next := monitor.Drain(session)
	if len(samples) == 0 {
		return next
	}

	fctx, cancel := context.WithTimeout(ctx, flushTimeout)
	defer cancel()
	batch := syncer.Batch{Samples: days.Batch(samples, l.band), Tick: l.tick}
	summary, err := l.flusher.Sync(fctx, batch)
	if err != nil {
		l.tracker.RecordSync(status.SyncInfo{Time: t, Err: err.Error()})
		if errors.Is(err, syncer.ErrValidation) {
			l.log.Error("flush_rejected", "samples", len(samples), "error", err)
			return next
		}
		l.log.Warn("flush_failed", "samples", len(samples), "error", err, "retryable", syncer.Retryable(err))
		return monitor.Requeue(next, samples)
	}

	l.tracker.RecordSync(status.SyncInfo{
		Time:         t,
		SyncID:       summary.SyncID,
		NewDays:      summary.NewDays,
		TotalDays:    summary.TotalDays,
		TodayMinutes: summary.TodayMinutes,
	})
	l.log.Info("flushed", "samples", len(batch.Samples), "sync_id", summary.SyncID, "today_minutes", summary.TodayMinutes)
	days.Prune(samples[len(samples)-1].Date.AddDays(-1))
	return next
}

func (l loop) updateTracker(s monitor.Session, state status.SensorState) {
	l.tracker.UpdateSensor(status.SensorInfo{
		State:       state,
		LastBPM:     s.LastBPM,
		LastReading: s.LastReading,
		InBand:      s.InBand,
		InBandTime:  s.InBandTime,
		Readings:    s.Readings,
		Pending:     len(s.Pending),
	})
	if l.conn != nil {
		l.tracker.SetMQTTConnected(l.conn.IsConnected())
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
