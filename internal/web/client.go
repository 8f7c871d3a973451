package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sweeney/zone5/internal/store"
	"github.com/sweeney/zone5/internal/syncer"
)

// IngestPath is the ingest route relative to the server root.
const IngestPath = "/api/health-sync"

// Client posts batches to a remote zone5 server, the way the phone
// shortcut does. It satisfies the monitor's flush target.
type Client struct {
	url    string
	secret string
	http   *http.Client
}

// NewClient creates a client for the server at baseURL. A nil hc uses a
// client with a 30 second timeout.
func NewClient(baseURL, secret string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		url:    strings.TrimRight(baseURL, "/") + IngestPath,
		secret: secret,
		http:   hc,
	}
}

type wireSample struct {
	Date string  `json:"date"`
	BPM  float64 `json:"bpm"`
}

type wireBatch struct {
	HeartRates  []wireSample `json:"heartRates"`
	TickSeconds float64      `json:"tickSeconds,omitempty"`
}

// Sync sends batch and returns the server's summary. Server responses map
// back onto the same error kinds a local Coordinator returns.
func (c *Client) Sync(ctx context.Context, batch syncer.Batch) (syncer.Summary, error) {
	wb := wireBatch{
		HeartRates:  make([]wireSample, len(batch.Samples)),
		TickSeconds: batch.Tick.Seconds(),
	}
	for i, s := range batch.Samples {
		wb.HeartRates[i] = wireSample{Date: s.Date.String(), BPM: s.BPM}
	}
	body, err := json.Marshal(wb)
	if err != nil {
		return syncer.Summary{}, fmt.Errorf("encode batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return syncer.Summary{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.secret != "" {
		req.Header.Set("Authorization", "Bearer "+c.secret)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return syncer.Summary{}, ctx.Err()
		}
		return syncer.Summary{}, fmt.Errorf("%w: post batch: %v", store.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return syncer.Summary{}, fmt.Errorf("%w: read response: %v", store.ErrUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return syncer.Summary{}, responseError(resp.StatusCode, data)
	}

	var out IngestResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return syncer.Summary{}, fmt.Errorf("decode response: %w", err)
	}
	if !out.Success {
		return syncer.Summary{}, errors.New("server reported failure: " + out.Message)
	}
	return out.Summary, nil
}

func responseError(code int, body []byte) error {
	var er ErrorResponse
	_ = json.Unmarshal(body, &er)
	msg := er.Error
	if er.Detail != "" {
		msg += ": " + er.Detail
	}
	if msg == "" {
		msg = http.StatusText(code)
	}

	switch {
	case code == http.StatusBadRequest, code == http.StatusRequestEntityTooLarge:
		return &syncer.ValidationError{Reason: msg}
	case code == http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", store.ErrUnauthorized, msg)
	case code == http.StatusConflict:
		return fmt.Errorf("%w: %s", store.ErrConflict, msg)
	case code == http.StatusTooManyRequests, code >= 502 && code <= 504:
		return fmt.Errorf("%w: server answered %d: %s", store.ErrUnavailable, code, msg)
	default:
		return fmt.Errorf("server answered %d: %s", code, msg)
	}
}
