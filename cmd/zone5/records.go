package main

import (
	"context"
	"time"

	"github.com/sweeney/zone5/internal/store"
	"github.com/sweeney/zone5/internal/syncer"
	"github.com/sweeney/zone5/internal/zone"
)

// loadDocument reads the stored document for the read-only commands.
func (a *app) loadDocument(ctx context.Context) (*store.Document, zone.Day, error) {
	s, closeStore, err := a.openStore(ctx)
	if err != nil {
		return nil, "", err
	}
	defer closeStore()

	coord := syncer.NewCoordinator(s, a.cfg.Profile(), syncer.WithLogger(a.log))
	doc, err := coord.Load(ctx)
	if err != nil {
		return nil, "", err
	}
	return doc, zone.DayOf(time.Now().UTC()), nil
}
