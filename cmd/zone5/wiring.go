package main

import (
	"context"
	"fmt"

	"github.com/sweeney/zone5/internal/config"
	"github.com/sweeney/zone5/internal/export"
	"github.com/sweeney/zone5/internal/mqtt"
	"github.com/sweeney/zone5/internal/status"
	"github.com/sweeney/zone5/internal/store"
	"github.com/sweeney/zone5/internal/syncer"
)

// openStore builds the configured backend wrapped in retries. The returned
// function releases backend resources.
func (a *app) openStore(ctx context.Context) (store.Store, func() error, error) {
	cfg := a.cfg
	if err := cfg.ValidateStore(); err != nil {
		return nil, nil, err
	}

	var (
		s       store.Store
		closeFn = func() error { return nil }
	)
	switch cfg.Store.Backend {
	case config.BackendGitHub:
		s = store.NewGitHubStore(store.GitHubConfig{
			Token:   cfg.GitHub.Token,
			Repo:    cfg.GitHub.Repo,
			Path:    cfg.GitHub.Path,
			Branch:  cfg.GitHub.Branch,
			BaseURL: cfg.GitHub.APIURL,
		})
	case config.BackendBadger:
		b, err := store.OpenBadger(store.BadgerConfig{Path: cfg.Badger.Path, Logger: a.log})
		if err != nil {
			return nil, nil, err
		}
		s, closeFn = b, b.Close
	case config.BackendGCS:
		g, err := store.NewGCSStore(ctx, store.GCSConfig{
			Bucket:          cfg.GCS.Bucket,
			Object:          cfg.GCS.Object,
			CredentialsFile: cfg.GCS.CredentialsFile,
			Endpoint:        cfg.GCS.Endpoint,
		})
		if err != nil {
			return nil, nil, err
		}
		s, closeFn = g, g.Close
	case config.BackendMemory:
		a.log.Warn("store_memory", "detail", "achievements are lost on exit")
		s = store.NewMemoryStore()
	default:
		return nil, nil, fmt.Errorf("%w: unknown store.backend %q", config.ErrConfiguration, cfg.Store.Backend)
	}
	return store.WithRetry(s, cfg.Store.RetryAttempts, cfg.Store.RetryBase), closeFn, nil
}

// newPublisher connects to the broker, or returns mqtt.Discard when none is
// configured. Connection changes are mirrored into tracker.
func (a *app) newPublisher(tracker *status.Tracker) (mqtt.Publisher, mqtt.ConnectionStatus, error) {
	if a.cfg.MQTT.Broker == "" {
		return mqtt.Discard{}, mqtt.Discard{}, nil
	}
	p, err := mqtt.NewRealPublisher(mqtt.Config{
		Broker:     a.cfg.MQTT.Broker,
		ClientID:   a.cfg.MQTT.ClientID,
		BufferSize: a.cfg.MQTT.BufferSize,
		Logger:     a.log,
		OnConnectionChange: func(connected bool) {
			if tracker != nil {
				tracker.SetMQTTConnected(connected)
			}
		},
	})
	if err != nil {
		return nil, nil, err
	}
	return p, p, nil
}

// sinks returns the post-commit sinks enabled by the configuration. The
// returned function closes the ones that hold connections.
func (a *app) sinks(pub mqtt.Publisher) ([]syncer.Sink, func()) {
	var (
		out     []syncer.Sink
		closers []func()
	)
	if a.cfg.MQTT.Broker != "" {
		out = append(out, mqtt.SyncSink{Publisher: pub})
	}
	if a.cfg.Influx.URL != "" {
		sink, err := export.NewInfluxSink(export.InfluxConfig{
			URL:    a.cfg.Influx.URL,
			Token:  a.cfg.Influx.Token,
			Org:    a.cfg.Influx.Org,
			Bucket: a.cfg.Influx.Bucket,
		})
		if err != nil {
			a.log.Warn("influx_disabled", "error", err)
		} else {
			out = append(out, sink)
			closers = append(closers, sink.Close)
		}
	}
	return out, func() {
		for _, c := range closers {
			c()
		}
	}
}

// newCoordinator opens the store and builds a Coordinator with every sink.
func (a *app) newCoordinator(ctx context.Context, pub mqtt.Publisher) (*syncer.Coordinator, func(), error) {
	s, closeStore, err := a.openStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	sinks, closeSinks := a.sinks(pub)
	coord := syncer.NewCoordinator(s, a.cfg.Profile(),
		syncer.WithSinks(sinks...),
		syncer.WithLogger(a.log),
	)
	return coord, func() {
		closeSinks()
		if err := closeStore(); err != nil {
			a.log.Warn("store_close_failed", "error", err)
		}
	}, nil
}
