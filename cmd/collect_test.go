package cmd

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vexlio/sigcor-cli/internal/config"
)

func TestDefaultSocialQuery(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "CVE-2025 OR exploit OR ransomware OR zero-day", defaultSocialQuery(now))
}

func TestResolveSocialQuery(t *testing.T) {
	t.Run("configured query wins", func(t *testing.T) {
		cfg := config.NewDefaultConfig()
		cfg.Cache.Dir = t.TempDir()
		cfg.Sources.Social.Query = "custom"

		assert.Equal(t, "custom", resolveSocialQuery(cfg, zap.NewNop()))
	})

	t.Run("generated query is memoized for the day", func(t *testing.T) {
		cfg := config.NewDefaultConfig()
		cfg.Cache.Dir = t.TempDir()

		first := resolveSocialQuery(cfg, zap.NewNop())
		require.Contains(t, first, fmt.Sprintf("CVE-%d", time.Now().Year()))

		second := resolveSocialQuery(cfg, zap.NewNop())
		assert.Equal(t, first, second, "reruns within a day must see the same query")
	})
}

func TestInitializeComponentsWithoutDatabase(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.Cache.Dir = t.TempDir()
	cfg.Output.Dir = t.TempDir()
	cfg.Enrichment.Enabled = false

	components, err := initializeComponents(t.Context(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer components.Shutdown()

	assert.NotNil(t, components.Pipeline)
	assert.Nil(t, components.DBPool, "no database URL means no pool")
}
