package mqtt

import (
	"sync"

	"github.com/sweeney/zone5/internal/monitor"
	"github.com/sweeney/zone5/internal/syncer"
)

// FakePublisher records published events for test assertions.
// Sync events may arrive from the coordinator's goroutine, so all
// methods are guarded by a mutex.
type FakePublisher struct {
	mu sync.Mutex

	// Events contains all band transitions that were published.
	Events []monitor.Event

	// Payloads contains the JSON payloads for band transitions.
	Payloads [][]byte

	// SyncEvents contains all committed syncs that were published.
	SyncEvents []syncer.Event

	// SyncPayloads contains the JSON payloads for syncs.
	SyncPayloads [][]byte

	// SystemEvents contains all system events that were published.
	SystemEvents []SystemEvent

	// SystemPayloads contains the JSON payloads for system events.
	SystemPayloads [][]byte

	// PublishError, if set, will be returned by Publish.
	PublishError error

	// PublishSyncError, if set, will be returned by PublishSync.
	PublishSyncError error

	// PublishSystemError, if set, will be returned by PublishSystem.
	PublishSystemError error

	// Closed tracks if Close was called.
	Closed bool

	// Connected controls the return value of IsConnected.
	Connected bool
}

// NewFakePublisher creates a FakePublisher for testing.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

// Publish records the band transition.
func (f *FakePublisher) Publish(event monitor.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}

	payload, err := FormatPayload(event)
	if err != nil {
		return err
	}
	f.Events = append(f.Events, event)
	f.Payloads = append(f.Payloads, payload)
	return nil
}

// PublishSync records the sync event.
func (f *FakePublisher) PublishSync(event syncer.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishSyncError != nil {
		return f.PublishSyncError
	}

	payload, err := FormatSyncPayload(event)
	if err != nil {
		return err
	}
	f.SyncEvents = append(f.SyncEvents, event)
	f.SyncPayloads = append(f.SyncPayloads, payload)
	return nil
}

// PublishSystem records the system event.
func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishSystemError != nil {
		return f.PublishSystemError
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}
	f.SystemEvents = append(f.SystemEvents, event)
	f.SystemPayloads = append(f.SystemPayloads, payload)
	return nil
}

// SyncCount returns the number of recorded sync events.
func (f *FakePublisher) SyncCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.SyncEvents)
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}

// IsConnected reports whether the fake publisher is "connected".
func (f *FakePublisher) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Connected
}

// Reset clears recorded events.
func (f *FakePublisher) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Events = nil
	f.Payloads = nil
	f.SyncEvents = nil
	f.SyncPayloads = nil
	f.SystemEvents = nil
	f.SystemPayloads = nil
	f.Closed = false
	f.PublishError = nil
	f.PublishSyncError = nil
	f.PublishSystemError = nil
	f.Connected = false
}
