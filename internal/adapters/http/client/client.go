// Package client is a document store backed by a remote score server's
// HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/okian/clicker/internal/adapters/repository"
	"github.com/okian/clicker/internal/domain/document"
	"github.com/okian/clicker/internal/domain/types"
)

const maxResponseBytes = 4 << 20

// HTTPDoer is the HTTP client used by the store.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Store implements repository.Store against /api/scores.
type Store struct {
	baseURL string
	client  HTTPDoer
}

// Option configures a Store.
type Option func(*Store)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c HTTPDoer) Option {
	return func(s *Store) {
		if c != nil {
			s.client = c
		}
	}
}

// New returns a store talking to the server at baseURL.
func New(baseURL string, opts ...Option) *Store {
	s := &Store{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ repository.Store = (*Store)(nil)

// Publish posts doc. The server recomputes the hash and answers 409 for a
// document it already holds.
func (s *Store) Publish(ctx context.Context, doc document.Document) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/api/scores", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build publish request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", repository.ErrTransport, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusCreated, http.StatusOK:
		var res types.PublishResult
		if err := decode(resp.Body, &res); err == nil && res.Hash != "" && res.Hash != doc.Hash {
			return fmt.Errorf("%w: server hash %s differs from %s", ErrRejected, res.Hash, doc.Hash)
		}
		return nil
	case http.StatusConflict:
		return repository.ErrConflict
	case http.StatusBadRequest:
		return fmt.Errorf("%w: %s", ErrRejected, errorText(resp.Body))
	default:
		return fmt.Errorf("%w: publish returned %d", repository.ErrTransport, resp.StatusCode)
	}
}

// QueryByHash fetches the document published under hash.
func (s *Store) QueryByHash(ctx context.Context, hash string) (document.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/api/scores/"+url.PathEscape(hash), nil)
	if err != nil {
		return document.Document{}, fmt.Errorf("build query request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return document.Document{}, fmt.Errorf("%w: %v", repository.ErrTransport, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return document.Document{}, fmt.Errorf("%w: %v", repository.ErrTransport, err)
		}
		return document.ParseJSON(data)
	case http.StatusNotFound:
		return document.Document{}, repository.ErrNotFound
	default:
		return document.Document{}, fmt.Errorf("%w: query returned %d", repository.ErrTransport, resp.StatusCode)
	}
}

// Count reads the stored document count from /stats.
func (s *Store) Count(ctx context.Context) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/stats", nil)
	if err != nil {
		return 0, fmt.Errorf("build stats request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", repository.ErrTransport, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%w: stats returned %d", repository.ErrTransport, resp.StatusCode)
	}
	var stats struct {
		StoredDocuments int `json:"storedDocuments"`
	}
	if err := decode(resp.Body, &stats); err != nil {
		return 0, fmt.Errorf("%w: %v", repository.ErrTransport, err)
	}
	return stats.StoredDocuments, nil
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

func decode(r io.Reader, v any) error {
	return json.NewDecoder(io.LimitReader(r, maxResponseBytes)).Decode(v)
}

func errorText(r io.Reader) string {
	var body struct {
		Message string `json:"message"`
	}
	if err := decode(r, &body); err != nil || body.Message == "" {
		return "bad request"
	}
	return body.Message
}
