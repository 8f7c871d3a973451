package store

import (
	"context"
	"strconv"
	"sync"
)

// MemoryStore keeps the document in process memory. Tokens are a
// monotonically increasing revision number.
type MemoryStore struct {
	mu       sync.Mutex
	data     []byte
	revision int

	// ReadError and WriteError, if set, are returned instead of touching the
	// stored document.
	ReadError  error
	WriteError error

	// Writes counts successful writes.
	Writes int
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Read returns a copy of the stored document.
func (m *MemoryStore) Read(ctx context.Context) (*Document, Token, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ReadError != nil {
		return nil, "", m.ReadError
	}
	if m.data == nil {
		return nil, "", ErrNotFound
	}
	doc, err := Decode(m.data)
	if err != nil {
		return nil, "", err
	}
	return doc, m.token(), nil
}

// Write stores doc if token matches the current revision.
func (m *MemoryStore) Write(ctx context.Context, doc *Document, token Token) (Token, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.WriteError != nil {
		return "", m.WriteError
	}
	if m.data == nil {
		if token != "" {
			return "", ErrConflict
		}
	} else if token != m.token() {
		return "", ErrConflict
	}

	b, err := Encode(doc)
	if err != nil {
		return "", err
	}
	m.data = b
	m.revision++
	m.Writes++
	return m.token(), nil
}

// Raw returns the serialized document, or nil if nothing has been written.
func (m *MemoryStore) Raw() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.data...)
}

func (m *MemoryStore) token() Token {
	return Token(strconv.Itoa(m.revision))
}
