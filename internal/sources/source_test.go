package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vexlio/sigcor-cli/api/schemas"
	"github.com/vexlio/sigcor-cli/internal/config"
)

func TestHTTPSourceFetch(t *testing.T) {
	var gotQuery, gotKey, gotAccept string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		gotKey = r.Header.Get("X-Api-Key")
		gotAccept = r.Header.Get("Accept")
		w.Write([]byte(`{"posts":[]}`))
	}))
	defer server.Close()

	src := NewSocialSource(config.SourceConfig{
		Endpoint: server.URL,
		APIKey:   "secret-key",
		Query:    "CVE-2025 OR exploit",
		Timeout:  5 * time.Second,
	}, zap.NewNop())

	assert.Equal(t, schemas.SourceSocial, src.Name())

	body, err := src.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"posts":[]}`), body)
	assert.Equal(t, "CVE-2025 OR exploit", gotQuery)
	assert.Equal(t, "secret-key", gotKey)
	assert.Equal(t, "application/json", gotAccept)
}

func TestHTTPSourceNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	src := NewInfrastructureSource(config.SourceConfig{Endpoint: server.URL}, zap.NewNop())

	_, err := src.Fetch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestHTTPSourceMissingEndpoint(t *testing.T) {
	src := NewInfrastructureSource(config.SourceConfig{}, zap.NewNop())

	_, err := src.Fetch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no endpoint configured")
}

func TestHTTPSourceOmitsQueryWhenEmpty(t *testing.T) {
	var rawQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rawQuery = r.URL.RawQuery
		w.Write([]byte("{}"))
	}))
	defer server.Close()

	src := NewInfrastructureSource(config.SourceConfig{Endpoint: server.URL}, zap.NewNop())

	_, err := src.Fetch(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rawQuery)
}
