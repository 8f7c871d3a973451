package store

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultGitHubAPI is the public GitHub REST endpoint.
const DefaultGitHubAPI = "https://api.github.com"

// DefaultCommitMessage is used for every document update.
const DefaultCommitMessage = "Update Zone 5 data from iOS"

// GitHubConfig selects the repository file that holds the document.
type GitHubConfig struct {
	Token   string
	Repo    string // owner/name
	Path    string // file path inside the repository
	Branch  string // empty means the default branch
	Message string
	BaseURL string
	Client  *http.Client
}

// GitHubStore keeps the document as a file in a GitHub repository using the
// contents API. The blob sha is the version token.
type GitHubStore struct {
	cfg    GitHubConfig
	client *http.Client
}

// NewGitHubStore creates a store for the configured repository file.
func NewGitHubStore(cfg GitHubConfig) *GitHubStore {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultGitHubAPI
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Message == "" {
		cfg.Message = DefaultCommitMessage
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &GitHubStore{cfg: cfg, client: client}
}

type contentsResponse struct {
	SHA      string `json:"sha"`
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

type putRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
	SHA     string `json:"sha,omitempty"`
	Branch  string `json:"branch,omitempty"`
}

type putResponse struct {
	Content struct {
		SHA string `json:"sha"`
	} `json:"content"`
}

func (g *GitHubStore) url() string {
	return fmt.Sprintf("%s/repos/%s/contents/%s", g.cfg.BaseURL, g.cfg.Repo, strings.TrimLeft(g.cfg.Path, "/"))
}

func (g *GitHubStore) newRequest(ctx context.Context, method, url string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("build github request: %w", err)
	}
	req.Header.Set("Authorization", "token "+g.cfg.Token)
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// Read fetches and decodes the repository file.
func (g *GitHubStore) Read(ctx context.Context) (*Document, Token, error) {
	url := g.url()
	if g.cfg.Branch != "" {
		url += "?ref=" + g.cfg.Branch
	}
	req, err := g.newRequest(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("%w: github get: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, "", ErrNotFound
	}
	if err := classifyStatus("get", resp); err != nil {
		return nil, "", err
	}

	var cr contentsResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return nil, "", fmt.Errorf("%w: github get: decode response: %v", ErrUnavailable, err)
	}
	// The API wraps base64 content at 60 columns.
	raw, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(cr.Content, "\n", ""))
	if err != nil {
		return nil, "", fmt.Errorf("github get: decode content: %w", err)
	}
	doc, err := Decode(raw)
	if err != nil {
		return nil, "", err
	}
	return doc, Token(cr.SHA), nil
}

// Write commits the document. An empty token creates the file.
func (g *GitHubStore) Write(ctx context.Context, doc *Document, token Token) (Token, error) {
	b, err := Encode(doc)
	if err != nil {
		return "", err
	}
	body, err := json.Marshal(putRequest{
		Message: g.cfg.Message,
		Content: base64.StdEncoding.EncodeToString(b),
		SHA:     string(token),
		Branch:  g.cfg.Branch,
	})
	if err != nil {
		return "", fmt.Errorf("encode github request: %w", err)
	}

	req, err := g.newRequest(ctx, http.MethodPut, g.url(), bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: github put: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusConflict, http.StatusUnprocessableEntity:
		// 409: sha does not match. 422: sha missing for an existing file.
		return "", fmt.Errorf("%w: github put status %d", ErrConflict, resp.StatusCode)
	}
	if err := classifyStatus("put", resp); err != nil {
		return "", err
	}

	var pr putResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return "", fmt.Errorf("%w: github put: decode response: %v", ErrTokenUnknown, err)
	}
	return Token(pr.Content.SHA), nil
}

// classifyStatus maps a non-2xx response to a store error kind.
func classifyStatus(op string, resp *http.Response) error {
	code := resp.StatusCode
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return fmt.Errorf("%w: github %s status %d", ErrUnauthorized, op, code)
	case code == http.StatusTooManyRequests || code >= 500:
		return fmt.Errorf("%w: github %s status %d", ErrUnavailable, op, code)
	default:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("github %s status %d: %s", op, code, bytes.TrimSpace(msg))
	}
}
