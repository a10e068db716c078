package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/vta-hub/vta-training-hub/internal/application/command"
	"github.com/vta-hub/vta-training-hub/pkg/circuitbreaker"
	"github.com/vta-hub/vta-training-hub/pkg/retry"
)

// HTTPDocumentStoreConfig holds connection settings for the document
// archive service.
type HTTPDocumentStoreConfig struct {
	// BaseURL is the archive service root, e.g. "https://archive.internal/v1".
	BaseURL string

	// Token is the bearer token for write access.
	Token string

	// Timeout bounds a single HTTP call.
	// Default: 30s
	Timeout time.Duration
}

// HTTPDocumentStore implements command.DocumentStore over the document
// archive HTTP API. Objects are addressed as {base}/{container}/{name};
// read links are minted by the archive's sign endpoint.
type HTTPDocumentStore struct {
	config HTTPDocumentStoreConfig
	client *http.Client
}

func NewHTTPDocumentStore(config HTTPDocumentStoreConfig) *HTTPDocumentStore {
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	return &HTTPDocumentStore{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
	}
}

func (s *HTTPDocumentStore) Upload(ctx context.Context, containerTag, name string, content []byte, contentType string) (string, error) {
	objectURL := s.objectURL(containerTag, name)

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, objectURL, bytes.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("building upload request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	s.authorize(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("uploading %s: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("uploading %s: archive returned %d", name, resp.StatusCode)
	}
	return objectURL, nil
}

func (s *HTTPDocumentStore) GetReadURL(ctx context.Context, objectURL string, ttl time.Duration) (string, error) {
	signURL := objectURL + "/sign?ttl=" + strconv.Itoa(int(ttl.Seconds()))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, signURL, nil)
	if err != nil {
		return "", fmt.Errorf("building sign request: %w", err)
	}
	s.authorize(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("signing read url: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("signing read url: archive returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8192))
	if err != nil {
		return "", fmt.Errorf("reading signed url: %w", err)
	}
	return strings.TrimSpace(string(body)), nil
}

func (s *HTTPDocumentStore) Delete(ctx context.Context, objectURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, objectURL, nil)
	if err != nil {
		return fmt.Errorf("building delete request: %w", err)
	}
	s.authorize(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("deleting %s: %w", objectURL, err)
	}
	defer resp.Body.Close()

	// Already gone is fine; deletes run during issuance rollback.
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("deleting %s: archive returned %d", objectURL, resp.StatusCode)
	}
	return nil
}

func (s *HTTPDocumentStore) objectURL(containerTag, name string) string {
	return strings.TrimRight(s.config.BaseURL, "/") + "/" + url.PathEscape(containerTag) + "/" + url.PathEscape(name)
}

func (s *HTTPDocumentStore) authorize(req *http.Request) {
	if s.config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.config.Token)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Resilience decorator
// ─────────────────────────────────────────────────────────────────────────────

// GuardedDocumentStore wraps a DocumentStore with a circuit breaker and
// retry. Batch issuance uploads dozens of artifacts in parallel, so a
// struggling archive must trip fast instead of stalling every worker.
type GuardedDocumentStore struct {
	inner   command.DocumentStore
	breaker *circuitbreaker.CircuitBreaker
	retrier *retry.Retrier
}

func NewGuardedDocumentStore(inner command.DocumentStore) *GuardedDocumentStore {
	return &GuardedDocumentStore{
		inner:   inner,
		breaker: circuitbreaker.DocumentStoreBreaker(nil),
		retrier: retry.DocumentStoreRetrier(),
	}
}

func (g *GuardedDocumentStore) Upload(ctx context.Context, containerTag, name string, content []byte, contentType string) (string, error) {
	var uploaded string
	err := g.guard(ctx, func(ctx context.Context) error {
		var err error
		uploaded, err = g.inner.Upload(ctx, containerTag, name, content, contentType)
		return err
	})
	return uploaded, err
}

func (g *GuardedDocumentStore) GetReadURL(ctx context.Context, objectURL string, ttl time.Duration) (string, error) {
	var signed string
	err := g.guard(ctx, func(ctx context.Context) error {
		var err error
		signed, err = g.inner.GetReadURL(ctx, objectURL, ttl)
		return err
	})
	return signed, err
}

func (g *GuardedDocumentStore) Delete(ctx context.Context, objectURL string) error {
	return g.guard(ctx, func(ctx context.Context) error {
		return g.inner.Delete(ctx, objectURL)
	})
}

func (g *GuardedDocumentStore) guard(ctx context.Context, fn func(context.Context) error) error {
	return g.breaker.Execute(ctx, func(ctx context.Context) error {
		return g.retrier.Do(ctx, fn)
	})
}
