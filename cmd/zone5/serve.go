package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/sweeney/zone5/internal/config"
	"github.com/sweeney/zone5/internal/mqtt"
	"github.com/sweeney/zone5/internal/status"
	"github.com/sweeney/zone5/internal/web"
)

const shutdownTimeout = 10 * time.Second

func serveCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the ingest API, contribution graph and status page",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("http") {
				a.cfg.HTTP.Addr = addr
			}
			return a.runServe(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&addr, "http", "", "listen address (overrides http.addr)")
	return cmd
}

func (a *app) runServe(ctx context.Context) error {
	cfg := a.cfg
	tracker := status.NewTracker(time.Now(), status.Config{
		Mode:        "serve",
		HeartbeatMs: cfg.Monitor.Heartbeat.Milliseconds(),
		TickMs:      cfg.Zone.Tick.Milliseconds(),
		Band:        cfg.Band().String(),
		Backend:     cfg.Store.Backend,
		Broker:      cfg.MQTT.Broker,
		HTTPAddr:    cfg.HTTP.Addr,
	})

	publisher, mqttStatus, err := a.newPublisher(tracker)
	if err != nil {
		return err
	}
	defer publisher.Close()

	opts := web.Options{
		Addr:        cfg.HTTP.Addr,
		Tracker:     tracker,
		Secret:      cfg.HTTP.Secret,
		IngestRate:  rate.Limit(cfg.HTTP.Rate),
		IngestBurst: cfg.HTTP.Burst,
		Logger:      a.log,
	}
	coord, cleanup, err := a.newCoordinator(ctx, publisher)
	switch {
	case errors.Is(err, config.ErrConfiguration):
		// Read endpoints keep working; ingest reports the problem to the client.
		a.log.Error("store_not_configured", "error", err)
		opts.ConfigErr = err
	case err != nil:
		return err
	default:
		defer cleanup()
		opts.Syncer = coord
	}

	publishSystem(a.log, publisher, mqttStatus, tracker, "STARTUP", "")

	srv := web.New(opts)
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	a.log.Info("http_listening", "addr", cfg.HTTP.Addr, "backend", cfg.Store.Backend, "band", cfg.Band().String())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	reason := ""
	select {
	case s := <-sigCh:
		reason = signalName(s)
		a.log.Info("shutdown", "signal", reason)
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			publishSystem(a.log, publisher, mqttStatus, tracker, "SHUTDOWN", "HTTP_ERROR")
			return err
		}
	case <-ctx.Done():
		reason = "CONTEXT"
	}

	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		a.log.Warn("http_shutdown_failed", "error", err)
	}
	publishSystem(a.log, publisher, mqttStatus, tracker, "SHUTDOWN", reason)
	return nil
}

// publishSystem sends a retained lifecycle event carrying the full status.
func publishSystem(log *slog.Logger, pub mqtt.Publisher, conn mqtt.ConnectionStatus, tracker *status.Tracker, event, reason string) {
	if conn != nil {
		tracker.SetMQTTConnected(conn.IsConnected())
	}
	snap := tracker.Snapshot()
	err := pub.PublishSystem(mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      event,
		Reason:     reason,
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, event, reason),
	})
	if err != nil {
		log.Warn("system_publish_failed", "event", event, "error", err)
		return
	}
	log.Debug("system_published", "event", event)
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	default:
		return "UNKNOWN"
	}
}
