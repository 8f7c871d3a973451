package store

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/dgraph-io/badger/v4"
)

var (
	badgerDocKey = []byte("zone5/document")
	badgerRevKey = []byte("zone5/revision")
)

// BadgerConfig configures the embedded store.
type BadgerConfig struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path     string
	InMemory bool
	// Logger receives badger's internal messages. Nil silences them.
	Logger *slog.Logger
}

// badgerLogger adapts slog.Logger to badger.Logger.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// BadgerStore keeps the document in an embedded BadgerDB. A revision counter
// written in the same transaction as the document is the version token.
type BadgerStore struct {
	db *badger.DB
}

// OpenBadger opens (or creates) the database described by cfg.
func OpenBadger(cfg BadgerConfig) (*BadgerStore, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("badger: path is required for a persistent database")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path).WithSyncWrites(true)
	}
	opts = opts.WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

// Close releases the database.
func (b *BadgerStore) Close() error {
	return b.db.Close()
}

// Read returns the stored document and its revision.
func (b *BadgerStore) Read(ctx context.Context) (*Document, Token, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	var (
		data []byte
		rev  uint64
	)
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(badgerDocKey)
		if err != nil {
			return err
		}
		if data, err = item.ValueCopy(nil); err != nil {
			return err
		}
		rev, err = readRevision(txn)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, "", ErrNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("%w: badger read: %v", ErrUnavailable, err)
	}
	doc, err := Decode(data)
	if err != nil {
		return nil, "", err
	}
	return doc, revisionToken(rev), nil
}

// Write stores doc if token matches the stored revision.
func (b *BadgerStore) Write(ctx context.Context, doc *Document, token Token) (Token, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := Encode(doc)
	if err != nil {
		return "", err
	}

	var next uint64
	err = b.db.Update(func(txn *badger.Txn) error {
		current, err := readRevision(txn)
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
			if token != "" {
				return ErrConflict
			}
		case err != nil:
			return err
		case token != revisionToken(current):
			return ErrConflict
		}
		next = current + 1
		if err := txn.Set(badgerDocKey, data); err != nil {
			return err
		}
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], next)
		return txn.Set(badgerRevKey, buf[:])
	})
	switch {
	case err == nil:
		return revisionToken(next), nil
	case errors.Is(err, ErrConflict), errors.Is(err, badger.ErrConflict):
		return "", fmt.Errorf("%w: badger write", ErrConflict)
	default:
		return "", fmt.Errorf("%w: badger write: %v", ErrUnavailable, err)
	}
}

// readRevision returns the current revision, or 0 with ErrKeyNotFound.
func readRevision(txn *badger.Txn) (uint64, error) {
	item, err := txn.Get(badgerRevKey)
	if err != nil {
		return 0, err
	}
	var rev uint64
	err = item.Value(func(v []byte) error {
		if len(v) != 8 {
			return fmt.Errorf("corrupt revision of %d bytes", len(v))
		}
		rev = binary.BigEndian.Uint64(v)
		return nil
	})
	return rev, err
}

func revisionToken(rev uint64) Token {
	return Token(strconv.FormatUint(rev, 10))
}
