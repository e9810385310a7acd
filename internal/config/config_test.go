package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "sigcor-cli", cfg.Logger.ServiceName)

	assert.True(t, cfg.Sources.Infra.Enabled)
	assert.Equal(t, 12*time.Hour, cfg.Sources.Infra.TTL)
	assert.Equal(t, 5, cfg.Sources.Infra.RequestsPerMinute)
	assert.Equal(t, 2*time.Second, cfg.Sources.Infra.Cooldown)

	assert.True(t, cfg.Sources.Social.Enabled)
	assert.Equal(t, 4*time.Hour, cfg.Sources.Social.TTL)
	assert.Equal(t, 10, cfg.Sources.Social.RequestsPerMinute)

	assert.True(t, cfg.Enrichment.Enabled)
	assert.Equal(t, "gemini-2.5-flash", cfg.Enrichment.Model)
	assert.Equal(t, 45*time.Second, cfg.Enrichment.Timeout)

	assert.Equal(t, "out", cfg.Output.Dir)
	assert.NoError(t, cfg.Validate())
}

func TestNewConfigFromViper(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("cache.dir", t.TempDir())
	v.Set("sources.social.query", "custom query")

	cfg, err := NewConfigFromViper(v)
	require.NoError(t, err)
	assert.Equal(t, "custom query", cfg.Sources.Social.Query)
	assert.NotEmpty(t, cfg.Cache.Dir)
}

func TestResolveCacheDirDefaultsToHome(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Cache.Dir = ""

	require.NoError(t, cfg.ResolveCacheDir())
	assert.Contains(t, cfg.Cache.Dir, ".sigcor")
}

func TestSourceTTLOverride(t *testing.T) {
	cfg := NewDefaultConfig()
	assert.Equal(t, 12*time.Hour, cfg.SourceTTL(cfg.Sources.Infra))

	cfg.Cache.TTLOverride = 30 * time.Minute
	assert.Equal(t, 30*time.Minute, cfg.SourceTTL(cfg.Sources.Infra))
	assert.Equal(t, 30*time.Minute, cfg.SourceTTL(cfg.Sources.Social),
		"the override applies uniformly to every source")
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			"zeroRequestsPerMinute",
			func(c *Config) { c.Sources.Infra.RequestsPerMinute = 0 },
			"requests_per_minute",
		},
		{
			"negativeCooldown",
			func(c *Config) { c.Sources.Social.Cooldown = -time.Second },
			"cooldown",
		},
		{
			"zeroTTL",
			func(c *Config) { c.Sources.Infra.TTL = 0 },
			"ttl",
		},
		{
			"missingModel",
			func(c *Config) { c.Enrichment.Model = "" },
			"enrichment.model",
		},
		{
			"zeroEnrichmentTimeout",
			func(c *Config) { c.Enrichment.Timeout = 0 },
			"enrichment.timeout",
		},
		{
			"missingOutputDir",
			func(c *Config) { c.Output.Dir = "" },
			"output.dir",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestValidateSkipsDisabledSections(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Sources.Infra.Enabled = false
	cfg.Sources.Infra.RequestsPerMinute = 0
	cfg.Enrichment.Enabled = false
	cfg.Enrichment.Model = ""

	assert.NoError(t, cfg.Validate(), "disabled sections are not validated")
}
