// Package sources defines the external intelligence sources and the
// cache/rate-limit discipline every fetch goes through. Sources are an
// explicit configuration list composed by the pipeline constructor; there is
// no global registration.
package sources

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/vexlio/sigcor-cli/api/schemas"
	"github.com/vexlio/sigcor-cli/internal/config"
)

// Source is one external intelligence provider. Fetch returns the provider's
// raw payload; parsing it is the extractor's job.
type Source interface {
	Name() schemas.SourceName
	Fetch(ctx context.Context) ([]byte, error)
}

// HTTPSource fetches a raw payload from a provider HTTP endpoint. Both
// concrete sources share this shape and differ only in name and wiring.
type HTTPSource struct {
	name     schemas.SourceName
	endpoint string
	apiKey   string
	query    string
	client   *http.Client
	logger   *zap.Logger
}

// NewInfrastructureSource creates the infrastructure-scan source.
func NewInfrastructureSource(cfg config.SourceConfig, logger *zap.Logger) *HTTPSource {
	return newHTTPSource(schemas.SourceInfra, cfg, logger)
}

// NewSocialSource creates the social-media source.
func NewSocialSource(cfg config.SourceConfig, logger *zap.Logger) *HTTPSource {
	return newHTTPSource(schemas.SourceSocial, cfg, logger)
}

func newHTTPSource(name schemas.SourceName, cfg config.SourceConfig, logger *zap.Logger) *HTTPSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPSource{
		name:     name,
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		query:    cfg.Query,
		client:   &http.Client{Timeout: timeout},
		logger:   logger.Named("source." + string(name)),
	}
}

// Name returns the source identifier used as its cache key.
func (s *HTTPSource) Name() schemas.SourceName { return s.name }

// Fetch performs a single GET against the provider endpoint and returns the
// raw response body.
func (s *HTTPSource) Fetch(ctx context.Context) ([]byte, error) {
	if s.endpoint == "" {
		return nil, fmt.Errorf("no endpoint configured for source %q", s.name)
	}

	reqURL := s.endpoint
	if s.query != "" {
		u, err := url.Parse(s.endpoint)
		if err != nil {
			return nil, fmt.Errorf("invalid endpoint for source %q: %w", s.name, err)
		}
		q := u.Query()
		q.Set("q", s.query)
		u.RawQuery = q.Encode()
		reqURL = u.String()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for source %q: %w", s.name, err)
	}
	req.Header.Set("Accept", "application/json")
	if s.apiKey != "" {
		req.Header.Set("X-Api-Key", s.apiKey)
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to source %q failed: %w", s.name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response from source %q: %w", s.name, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("source %q returned status %d", s.name, resp.StatusCode)
	}

	s.logger.Debug("Source fetch complete",
		zap.Duration("duration", time.Since(start)),
		zap.Int("bytes", len(body)))
	return body, nil
}
