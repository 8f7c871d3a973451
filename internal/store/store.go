// Package store persists the achievement document behind a versioned
// read/write contract. Every backend treats the document as one opaque blob
// and arbitrates concurrent writers with an optimistic version token.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/sweeney/zone5/internal/zone"
)

var (
	// ErrNotFound is returned by Read when no document has been written yet.
	ErrNotFound = errors.New("store: document not found")

	// ErrConflict is returned by Write when the supplied token is stale or the
	// document was created concurrently.
	ErrConflict = errors.New("store: version conflict")

	// ErrUnavailable wraps transport failures. These are the only retryable
	// store errors.
	ErrUnavailable = errors.New("store: unavailable")

	// ErrUnauthorized is returned when the backend rejects the configured
	// credentials.
	ErrUnauthorized = errors.New("store: credentials rejected")

	// ErrTokenUnknown is returned by Write when the backend committed the
	// document but its new version could not be read back. The write must not
	// be repeated with the old token.
	ErrTokenUnknown = errors.New("store: write committed, new version unknown")
)

// Token is an opaque version handle. The empty token means "the document
// must not exist yet".
type Token string

// Store reads and writes the achievement document.
type Store interface {
	// Read returns the current document and its version token, or ErrNotFound.
	Read(ctx context.Context) (*Document, Token, error)

	// Write replaces the document if token still matches the stored version
	// and returns the new token. A stale token yields ErrConflict.
	Write(ctx context.Context, doc *Document, token Token) (Token, error)
}

// Document is the persisted achievement record. Achievements is the only
// field carried forward between writes; the rest is snapshot metadata
// regenerated by each sync.
type Document struct {
	LastUpdate        string           `json:"lastUpdate"`
	CurrentHeartRate  int              `json:"currentHeartRate"`
	InZone5           bool             `json:"inZone5"`
	TodayZone5Minutes float64          `json:"todayZone5Minutes"`
	Zone5Range        string           `json:"zone5Range"`
	MaxHeartRate      int              `json:"maxHeartRate"`
	UserAge           int              `json:"userAge"`
	Achievements      zone.DailyRecord `json:"achievements"`
}

// rawDocument mirrors Document but accepts arbitrary achievement values so a
// hand-edited file with a bad entry still loads.
type rawDocument struct {
	LastUpdate        string         `json:"lastUpdate"`
	CurrentHeartRate  int            `json:"currentHeartRate"`
	InZone5           bool           `json:"inZone5"`
	TodayZone5Minutes float64        `json:"todayZone5Minutes"`
	Zone5Range        string         `json:"zone5Range"`
	MaxHeartRate      int            `json:"maxHeartRate"`
	UserAge           int            `json:"userAge"`
	Achievements      map[string]any `json:"achievements"`
}

// Encode serializes doc with two-space indentation.
func Encode(doc *Document) ([]byte, error) {
	out := *doc
	if out.Achievements == nil {
		out.Achievements = zone.DailyRecord{}
	}
	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return b, nil
}

// Decode parses a stored document. Achievement entries whose key is not a
// calendar day or whose value is not a non-negative number are dropped.
func Decode(data []byte) (*Document, error) {
	var raw rawDocument
	if err := json.Unmarshal(bytes.TrimSpace(data), &raw); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	doc := &Document{
		LastUpdate:        raw.LastUpdate,
		CurrentHeartRate:  raw.CurrentHeartRate,
		InZone5:           raw.InZone5,
		TodayZone5Minutes: raw.TodayZone5Minutes,
		Zone5Range:        raw.Zone5Range,
		MaxHeartRate:      raw.MaxHeartRate,
		UserAge:           raw.UserAge,
		Achievements:      make(zone.DailyRecord, len(raw.Achievements)),
	}
	for k, v := range raw.Achievements {
		d, err := zone.ParseDay(k)
		if err != nil {
			continue
		}
		m, ok := v.(float64)
		if !ok || m < 0 || math.IsInf(m, 0) {
			continue
		}
		doc.Achievements[d] = m
	}
	return doc, nil
}

// Clone returns a deep copy of doc.
func (d *Document) Clone() *Document {
	out := *d
	out.Achievements = d.Achievements.Clone()
	return &out
}
