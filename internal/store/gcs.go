package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// GCSConfig selects the object that holds the document.
type GCSConfig struct {
	Bucket string
	Object string
	// CredentialsFile is a service account key. Empty uses application
	// default credentials.
	CredentialsFile string
	// Endpoint overrides the API endpoint (emulators).
	Endpoint string
}

// GCSStore keeps the document as a Cloud Storage object. The object
// generation is the version token and writes are guarded by generation
// preconditions.
type GCSStore struct {
	client *storage.Client
	obj    *storage.ObjectHandle
	owned  bool
}

// NewGCSStore creates a client and binds it to the configured object.
func NewGCSStore(ctx context.Context, cfg GCSConfig) (*GCSStore, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint), option.WithoutAuthentication())
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create GCS storage client: %w", err)
	}
	s := NewGCSStoreFromClient(client, cfg.Bucket, cfg.Object)
	s.owned = true
	return s, nil
}

// NewGCSStoreFromClient binds an existing client to bucket/object.
func NewGCSStoreFromClient(client *storage.Client, bucket, object string) *GCSStore {
	return &GCSStore{
		client: client,
		obj:    client.Bucket(bucket).Object(object),
	}
}

// Close releases the client if the store created it.
func (g *GCSStore) Close() error {
	if !g.owned {
		return nil
	}
	return g.client.Close()
}

// Read downloads the object and returns its generation as the token.
func (g *GCSStore) Read(ctx context.Context) (*Document, Token, error) {
	r, err := g.obj.NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, "", ErrNotFound
	}
	if err != nil {
		return nil, "", classifyGCS("read", err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, "", fmt.Errorf("%w: gcs read: %v", ErrUnavailable, err)
	}
	doc, err := Decode(data)
	if err != nil {
		return nil, "", err
	}
	return doc, Token(strconv.FormatInt(r.Attrs.Generation, 10)), nil
}

// Write uploads doc conditioned on the object generation. An empty token
// requires that the object does not exist.
func (g *GCSStore) Write(ctx context.Context, doc *Document, token Token) (Token, error) {
	cond := storage.Conditions{DoesNotExist: true}
	if token != "" {
		gen, err := strconv.ParseInt(string(token), 10, 64)
		if err != nil {
			return "", fmt.Errorf("%w: malformed gcs token %q", ErrConflict, token)
		}
		cond = storage.Conditions{GenerationMatch: gen}
	}
	data, err := Encode(doc)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	w := g.obj.If(cond).NewWriter(ctx)
	w.ContentType = "application/json"
	w.CacheControl = "no-cache, no-store, must-revalidate"
	if _, err := w.Write(data); err != nil {
		cancel()
		_ = w.Close()
		return "", classifyGCS("write", err)
	}
	if err := w.Close(); err != nil {
		return "", classifyGCS("write", err)
	}
	return Token(strconv.FormatInt(w.Attrs().Generation, 10)), nil
}

// classifyGCS maps API errors to store error kinds.
func classifyGCS(op string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch {
		case gerr.Code == http.StatusPreconditionFailed:
			return fmt.Errorf("%w: gcs %s: %v", ErrConflict, op, err)
		case gerr.Code == http.StatusUnauthorized || gerr.Code == http.StatusForbidden:
			return fmt.Errorf("%w: gcs %s: %v", ErrUnauthorized, op, err)
		case gerr.Code == http.StatusTooManyRequests || gerr.Code >= 500:
			return fmt.Errorf("%w: gcs %s: %v", ErrUnavailable, op, err)
		default:
			return fmt.Errorf("gcs %s: %w", op, err)
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("gcs %s: %w", op, err)
	}
	return fmt.Errorf("%w: gcs %s: %v", ErrUnavailable, op, err)
}
