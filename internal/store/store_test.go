package store

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"

	"github.com/sweeney/zone5/internal/zone"
)

func sampleDoc() *Document {
	return &Document{
		LastUpdate:        "2026-03-01 10:00:00 UTC",
		CurrentHeartRate:  175,
		InZone5:           true,
		TodayZone5Minutes: 2,
		Zone5Range:        "171-190 bpm",
		MaxHeartRate:      190,
		UserAge:           30,
		Achievements:      zone.DailyRecord{"2026-03-01": 2},
	}
}

func TestEncodeIndentsTwoSpaces(t *testing.T) {
	b, err := Encode(sampleDoc())
	require.NoError(t, err)
	assert.Contains(t, string(b), "\n  \"lastUpdate\": \"2026-03-01 10:00:00 UTC\"")
	assert.Contains(t, string(b), "\n    \"2026-03-01\": 2")
}

func TestEncodeNilAchievements(t *testing.T) {
	b, err := Encode(&Document{})
	require.NoError(t, err)
	assert.Contains(t, string(b), `"achievements": {}`)
}

func TestDecodeRoundTrip(t *testing.T) {
	b, err := Encode(sampleDoc())
	require.NoError(t, err)
	doc, err := Decode(b)
	require.NoError(t, err)
	assert.Equal(t, sampleDoc(), doc)
}

func TestDecodeDropsBadAchievements(t *testing.T) {
	doc, err := Decode([]byte(`{
		"achievements": {
			"2026-03-01": 12,
			"2026-13-01": 5,
			"yesterday": 3,
			"2026-03-02": "lots",
			"2026-03-03": -4,
			"2026-03-04": null
		}
	}`))
	require.NoError(t, err)
	assert.Equal(t, zone.DailyRecord{"2026-03-01": 12}, doc.Achievements)
}

func TestDecodeMissingAchievements(t *testing.T) {
	doc, err := Decode([]byte(`{"lastUpdate":"x"}`))
	require.NoError(t, err)
	assert.NotNil(t, doc.Achievements)
	assert.Empty(t, doc.Achievements)
}

func TestDecodeInvalidJSON(t *testing.T) {
	_, err := Decode([]byte(`{not json`))
	assert.Error(t, err)
}

func TestDocumentClone(t *testing.T) {
	doc := sampleDoc()
	c := doc.Clone()
	c.Achievements["2026-03-09"] = 20
	_, ok := doc.Achievements["2026-03-09"]
	assert.False(t, ok, "clone shares achievements map")
}

// storeContract runs the versioned read/write contract against a backend.
func storeContract(t *testing.T, s Store) {
	ctx := context.Background()

	_, _, err := s.Read(ctx)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = s.Write(ctx, sampleDoc(), "bogus")
	require.ErrorIs(t, err, ErrConflict, "write with a token to a missing document")

	tok1, err := s.Write(ctx, sampleDoc(), "")
	require.NoError(t, err)
	require.NotEmpty(t, tok1)

	_, err = s.Write(ctx, sampleDoc(), "")
	require.ErrorIs(t, err, ErrConflict, "create over an existing document")

	doc, tok, err := s.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, tok1, tok)
	assert.Equal(t, sampleDoc(), doc)

	doc.Achievements["2026-03-02"] = 16
	tok2, err := s.Write(ctx, doc, tok1)
	require.NoError(t, err)
	assert.NotEqual(t, tok1, tok2)

	_, err = s.Write(ctx, doc, tok1)
	require.ErrorIs(t, err, ErrConflict, "stale token")

	got, tok, err := s.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, tok2, tok)
	assert.Equal(t, 16.0, got.Achievements["2026-03-02"])
}

func TestMemoryStoreContract(t *testing.T) {
	storeContract(t, NewMemoryStore())
}

func TestMemoryStoreInjectedErrors(t *testing.T) {
	m := NewMemoryStore()
	m.ReadError = ErrUnavailable
	_, _, err := m.Read(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)

	m.WriteError = ErrUnavailable
	_, err = m.Write(context.Background(), sampleDoc(), "")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Nil(t, m.Raw())
}

func TestMemoryStoreCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := NewMemoryStore().Read(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBadgerStoreContract(t *testing.T) {
	s, err := OpenBadger(BadgerConfig{InMemory: true})
	require.NoError(t, err)
	defer s.Close()
	storeContract(t, s)
}

func TestBadgerStorePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	s, err := OpenBadger(BadgerConfig{Path: dir})
	require.NoError(t, err)
	tok, err := s.Write(context.Background(), sampleDoc(), "")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = OpenBadger(BadgerConfig{Path: dir})
	require.NoError(t, err)
	defer s.Close()
	doc, got, err := s.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, tok, got)
	assert.Equal(t, sampleDoc(), doc)
}

func TestOpenBadgerRequiresPath(t *testing.T) {
	_, err := OpenBadger(BadgerConfig{})
	assert.Error(t, err)
}

// flakyStore fails the first n calls of each method with err.
type flakyStore struct {
	Store
	failures int32
	err      error
	calls    int32
}

func (f *flakyStore) Read(ctx context.Context) (*Document, Token, error) {
	if atomic.AddInt32(&f.calls, 1) <= f.failures {
		return nil, "", f.err
	}
	return f.Store.Read(ctx)
}

func (f *flakyStore) Write(ctx context.Context, doc *Document, token Token) (Token, error) {
	if atomic.AddInt32(&f.calls, 1) <= f.failures {
		return "", f.err
	}
	return f.Store.Write(ctx, doc, token)
}

func TestRetryRecoversFromUnavailable(t *testing.T) {
	mem := NewMemoryStore()
	f := &flakyStore{Store: mem, failures: 2, err: fmt.Errorf("%w: boom", ErrUnavailable)}
	s := WithRetry(f, 3, time.Millisecond)

	tok, err := s.Write(context.Background(), sampleDoc(), "")
	require.NoError(t, err)
	assert.NotEmpty(t, tok)
	assert.EqualValues(t, 3, f.calls)
}

func TestRetryGivesUp(t *testing.T) {
	f := &flakyStore{Store: NewMemoryStore(), failures: 10, err: fmt.Errorf("%w: boom", ErrUnavailable)}
	s := WithRetry(f, 3, time.Millisecond)

	_, _, err := s.Read(context.Background())
	require.ErrorIs(t, err, ErrUnavailable)
	assert.EqualValues(t, 3, f.calls)
}

func TestRetryDoesNotRetryConflict(t *testing.T) {
	f := &flakyStore{Store: NewMemoryStore(), failures: 10, err: ErrConflict}
	s := WithRetry(f, 5, time.Millisecond)

	_, err := s.Write(context.Background(), sampleDoc(), "1")
	require.ErrorIs(t, err, ErrConflict)
	assert.EqualValues(t, 1, f.calls)
}

func TestRetryDoesNotRetryNotFound(t *testing.T) {
	f := &flakyStore{Store: NewMemoryStore()}
	s := WithRetry(f, 5, time.Millisecond)

	_, _, err := s.Read(context.Background())
	require.ErrorIs(t, err, ErrNotFound)
	assert.EqualValues(t, 1, f.calls)
}

func TestClassifyGCS(t *testing.T) {
	tests := []struct {
		err  error
		want error
	}{
		{&googleapi.Error{Code: http.StatusPreconditionFailed}, ErrConflict},
		{&googleapi.Error{Code: http.StatusForbidden}, ErrUnauthorized},
		{&googleapi.Error{Code: http.StatusServiceUnavailable}, ErrUnavailable},
		{&googleapi.Error{Code: http.StatusTooManyRequests}, ErrUnavailable},
		{errors.New("connection reset"), ErrUnavailable},
	}
	for _, tt := range tests {
		err := classifyGCS("write", tt.err)
		assert.ErrorIs(t, err, tt.want, "classify %v", tt.err)
	}

	err := classifyGCS("read", &googleapi.Error{Code: http.StatusBadRequest})
	for _, kind := range []error{ErrConflict, ErrUnauthorized, ErrUnavailable} {
		assert.False(t, errors.Is(err, kind), "400 must not be %v", kind)
	}
	assert.True(t, strings.HasPrefix(err.Error(), "gcs read"))
}
