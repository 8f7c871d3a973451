package store

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RetryStore retries transient failures of an underlying Store with bounded
// exponential backoff. Conflicts and every other error kind are returned
// immediately; a conflict is never resolved by re-reading here.
type RetryStore struct {
	next     Store
	attempts uint
	base     time.Duration
}

// WithRetry wraps s. attempts counts the first try; values below 1 mean 1.
func WithRetry(s Store, attempts int, base time.Duration) *RetryStore {
	if attempts < 1 {
		attempts = 1
	}
	if base <= 0 {
		base = 200 * time.Millisecond
	}
	return &RetryStore{next: s, attempts: uint(attempts), base: base}
}

func (r *RetryStore) policy() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.base
	b.MaxInterval = 16 * r.base
	return b
}

type readResult struct {
	doc   *Document
	token Token
}

// Read retries ErrUnavailable. ErrNotFound is returned as-is.
func (r *RetryStore) Read(ctx context.Context) (*Document, Token, error) {
	res, err := backoff.Retry(ctx, func() (readResult, error) {
		doc, tok, err := r.next.Read(ctx)
		if err != nil {
			return readResult{}, permanentUnlessUnavailable(err)
		}
		return readResult{doc: doc, token: tok}, nil
	}, backoff.WithBackOff(r.policy()), backoff.WithMaxTries(r.attempts))
	if err != nil {
		return nil, "", err
	}
	return res.doc, res.token, nil
}

// Write retries ErrUnavailable with the same token.
func (r *RetryStore) Write(ctx context.Context, doc *Document, token Token) (Token, error) {
	return backoff.Retry(ctx, func() (Token, error) {
		tok, err := r.next.Write(ctx, doc, token)
		if err != nil {
			return "", permanentUnlessUnavailable(err)
		}
		return tok, nil
	}, backoff.WithBackOff(r.policy()), backoff.WithMaxTries(r.attempts))
}

func permanentUnlessUnavailable(err error) error {
	if errors.Is(err, ErrUnavailable) {
		return err
	}
	return backoff.Permanent(err)
}
