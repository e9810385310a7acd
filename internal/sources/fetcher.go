package sources

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/vexlio/sigcor-cli/api/schemas"
	"github.com/vexlio/sigcor-cli/internal/cache"
	"github.com/vexlio/sigcor-cli/internal/config"
)

// Result is the typed outcome of one fetch attempt. A disabled source or a
// cache hit is a success; a provider failure sets Err but is never propagated
// as an error, so the pipeline can proceed with partial sources.
type Result struct {
	Source    schemas.SourceName
	Payload   []byte
	OK        bool
	FromCache bool
	Skipped   bool
	Err       error
}

// Outcome converts the result into its persisted artifact form.
func (r Result) Outcome() schemas.FetchOutcome {
	out := schemas.FetchOutcome{
		Source:    r.Source,
		OK:        r.OK,
		FromCache: r.FromCache,
		Skipped:   r.Skipped,
	}
	if r.Err != nil {
		out.Error = r.Err.Error()
	}
	return out
}

// Fetcher wraps one source with the cache and rate-limit discipline:
// disabled -> skip; cache hit -> done; miss -> rate-limit wait -> fetch ->
// cache write. The limiter enforces a minimum inter-request interval of
// 60s/requestsPerMinute, and a fixed cooldown is added whenever the limiter
// actually had to wait, so bursty retries cannot violate provider limits even
// under irregular call timing.
type Fetcher struct {
	source   Source
	cache    *cache.Cache
	enabled  bool
	ttl      time.Duration
	limiter  *rate.Limiter
	cooldown time.Duration
	logger   *zap.Logger

	// sleep is swappable so tests can observe waits instead of serving them.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewFetcher creates a fetcher for one source. ttl is the effective cache TTL
// after any run-wide override.
func NewFetcher(source Source, c *cache.Cache, cfg config.SourceConfig, ttl time.Duration, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 1
	}
	interval := time.Minute / time.Duration(rpm)
	return &Fetcher{
		source:   source,
		cache:    c,
		enabled:  cfg.Enabled,
		ttl:      ttl,
		limiter:  rate.NewLimiter(rate.Every(interval), 1),
		cooldown: cfg.Cooldown,
		logger:   logger.Named("fetcher." + string(source.Name())),
		sleep:    sleepCtx,
	}
}

// Fetch runs the full per-source state machine for one pipeline invocation.
func (f *Fetcher) Fetch(ctx context.Context) Result {
	name := f.source.Name()

	if !f.enabled {
		f.logger.Info("Source disabled, skipping fetch")
		return Result{Source: name, OK: true, Skipped: true}
	}

	if payload, ok := f.cache.Get(string(name)); ok {
		f.logger.Info("Cache hit", zap.Int("bytes", len(payload)))
		return Result{Source: name, Payload: payload, OK: true, FromCache: true}
	}
	f.logger.Info("Cache miss, fetching from provider")

	if err := f.waitTurn(ctx); err != nil {
		return Result{Source: name, Err: err}
	}

	payload, err := f.source.Fetch(ctx)
	if err != nil {
		f.logger.Warn("Source fetch failed", zap.Error(err))
		return Result{Source: name, Err: err}
	}

	if err := f.cache.Put(string(name), payload, f.ttl); err != nil {
		// A cache write failure degrades the next run, not this one.
		f.logger.Warn("Failed to write cache entry", zap.Error(err))
	}

	f.logger.Info("Source fetch succeeded", zap.Int("bytes", len(payload)))
	return Result{Source: name, Payload: payload, OK: true}
}

// waitTurn blocks until the rate limiter allows the next request. The cooldown
// applies only when the limiter made us wait, not when the previous request
// was already long enough ago.
func (f *Fetcher) waitTurn(ctx context.Context) error {
	reservation := f.limiter.Reserve()
	delay := reservation.Delay()
	if delay <= 0 {
		return nil
	}

	delay += f.cooldown
	f.logger.Debug("Rate limit wait", zap.Duration("delay", delay))
	if err := f.sleep(ctx, delay); err != nil {
		reservation.Cancel()
		return err
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
