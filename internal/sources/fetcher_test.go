package sources

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vexlio/sigcor-cli/api/schemas"
	"github.com/vexlio/sigcor-cli/internal/cache"
	"github.com/vexlio/sigcor-cli/internal/config"
)

// stubSource is a scriptable Source for fetcher tests.
type stubSource struct {
	name    schemas.SourceName
	payload []byte
	err     error
	calls   int
}

func (s *stubSource) Name() schemas.SourceName { return s.name }

func (s *stubSource) Fetch(ctx context.Context) ([]byte, error) {
	s.calls++
	return s.payload, s.err
}

func testSourceConfig() config.SourceConfig {
	return config.SourceConfig{
		Enabled:           true,
		RequestsPerMinute: 5,
		Cooldown:          2 * time.Second,
	}
}

// recordedFetcher swaps the fetcher's sleep for a recorder so rate-limit tests
// observe the requested waits instead of serving them.
func recordedFetcher(t *testing.T, src Source, c *cache.Cache, cfg config.SourceConfig, ttl time.Duration) (*Fetcher, *[]time.Duration) {
	t.Helper()
	f := NewFetcher(src, c, cfg, ttl, zap.NewNop())
	var waits []time.Duration
	f.sleep = func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}
	return f, &waits
}

func TestFetcherDisabledSkips(t *testing.T) {
	src := &stubSource{name: schemas.SourceInfra, payload: []byte("{}")}
	cfg := testSourceConfig()
	cfg.Enabled = false
	f, _ := recordedFetcher(t, src, cache.New(t.TempDir(), nil), cfg, time.Hour)

	result := f.Fetch(context.Background())

	assert.True(t, result.OK)
	assert.True(t, result.Skipped)
	assert.Zero(t, src.calls, "a disabled source must never be contacted")

	outcome := result.Outcome()
	assert.True(t, outcome.Skipped)
	assert.Empty(t, outcome.Error)
}

func TestFetcherCacheHitSkipsProvider(t *testing.T) {
	c := cache.New(t.TempDir(), nil)
	require.NoError(t, c.Put(string(schemas.SourceInfra), []byte(`{"matches":[]}`), time.Hour))

	src := &stubSource{name: schemas.SourceInfra, payload: []byte("fresh")}
	f, waits := recordedFetcher(t, src, c, testSourceConfig(), time.Hour)

	result := f.Fetch(context.Background())

	require.True(t, result.OK)
	assert.True(t, result.FromCache)
	assert.Equal(t, []byte(`{"matches":[]}`), result.Payload)
	assert.Zero(t, src.calls, "a cache hit must not reach the provider")
	assert.Empty(t, *waits, "a cache hit must not consume rate-limit budget")
}

func TestFetcherWritesCacheAfterFetch(t *testing.T) {
	c := cache.New(t.TempDir(), nil)
	src := &stubSource{name: schemas.SourceSocial, payload: []byte(`{"posts":[]}`)}
	f, _ := recordedFetcher(t, src, c, testSourceConfig(), time.Hour)

	result := f.Fetch(context.Background())
	require.True(t, result.OK)
	assert.False(t, result.FromCache)

	cached, ok := c.Get(string(schemas.SourceSocial))
	require.True(t, ok, "a successful fetch must populate the cache")
	assert.Equal(t, src.payload, cached)
}

func TestFetcherRateLimitSpacing(t *testing.T) {
	dir := t.TempDir()
	src := &stubSource{name: schemas.SourceInfra, payload: []byte("{}")}
	f, waits := recordedFetcher(t, src, cache.New(dir, nil), testSourceConfig(), 0)

	// First call has a full token: no wait, no cooldown.
	started := time.Now()
	first := f.Fetch(context.Background())
	require.True(t, first.OK)
	require.Empty(t, *waits, "the first request must pass without waiting")

	// Second back-to-back call must wait out the per-request interval
	// (60s / 5 rpm = 12s) plus the cooldown, minus only the time already
	// elapsed since the first request.
	second := f.Fetch(context.Background())
	require.True(t, second.OK)
	elapsed := time.Since(started)

	require.Len(t, *waits, 1)
	minGap := time.Minute/5 + 2*time.Second
	assert.GreaterOrEqual(t, (*waits)[0]+elapsed, minGap,
		"back-to-back requests must be spaced by interval + cooldown")
	assert.Equal(t, 2, src.calls)
}

func TestFetcherCooldownOnlyWhenLimited(t *testing.T) {
	src := &stubSource{name: schemas.SourceInfra, payload: []byte("{}")}
	cfg := testSourceConfig()
	cfg.RequestsPerMinute = 6000000 // 10us interval
	f, waits := recordedFetcher(t, src, cache.New(t.TempDir(), nil), cfg, 0)

	f.Fetch(context.Background())
	// Wait well past the refill interval so the limiter owes nothing.
	time.Sleep(5 * time.Millisecond)
	f.Fetch(context.Background())

	assert.Empty(t, *waits, "the cooldown applies only when the limiter made us wait")
}

func TestFetcherProviderFailure(t *testing.T) {
	providerErr := errors.New("upstream returned status 503")
	src := &stubSource{name: schemas.SourceInfra, err: providerErr}
	f, _ := recordedFetcher(t, src, cache.New(t.TempDir(), nil), testSourceConfig(), time.Hour)

	result := f.Fetch(context.Background())

	assert.False(t, result.OK)
	assert.ErrorIs(t, result.Err, providerErr)
	assert.Nil(t, result.Payload)

	outcome := result.Outcome()
	assert.False(t, outcome.OK)
	assert.Contains(t, outcome.Error, "503")
}

func TestFetcherCanceledDuringWait(t *testing.T) {
	src := &stubSource{name: schemas.SourceInfra, payload: []byte("{}")}
	f := NewFetcher(src, cache.New(t.TempDir(), nil), testSourceConfig(), 0, zap.NewNop())
	f.sleep = func(ctx context.Context, d time.Duration) error {
		return context.Canceled
	}

	first := f.Fetch(context.Background())
	require.True(t, first.OK)

	second := f.Fetch(context.Background())
	assert.False(t, second.OK)
	assert.ErrorIs(t, second.Err, context.Canceled)
	assert.Equal(t, 1, src.calls, "a canceled wait must not reach the provider")
}
