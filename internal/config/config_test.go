package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "LOG_LEVEL", "DB_PATH", "COLLECTOR_MODE", "REDDIT_RATE_INTERVAL", "REDDIT_USER_AGENT"} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "8080", cfg.Port)
	require.Equal(t, "public", cfg.Reddit.Mode)
	require.Equal(t, "data/board.db", cfg.DBPath)
	require.Zero(t, cfg.Reddit.RateInterval)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("COLLECTOR_MODE", "MOCK")
	t.Setenv("REDDIT_RATE_INTERVAL", "2s")
	t.Setenv("DB_PATH", "/tmp/x.db")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "9090", cfg.Port)
	require.Equal(t, "mock", cfg.Reddit.Mode)
	require.Equal(t, 2*time.Second, cfg.Reddit.RateInterval)
	require.Equal(t, "/tmp/x.db", cfg.DBPath)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{Port: "8080", DBPath: "b.db", Reddit: RedditConfig{Mode: "public"}}
	}

	require.NoError(t, base().Validate())

	c := base()
	c.Port = "nope"
	require.ErrorContains(t, c.Validate(), "invalid port")

	c = base()
	c.Reddit.Mode = "carrier-pigeon"
	require.ErrorContains(t, c.Validate(), "unknown COLLECTOR_MODE")

	c = base()
	c.Reddit.Mode = "api"
	require.ErrorContains(t, c.Validate(), "REDDIT_CLIENT_ID")

	c.Reddit.ClientID, c.Reddit.ClientSecret, c.Reddit.UserAgent = "id", "secret", "ua"
	require.NoError(t, c.Validate())

	c = base()
	c.DBPath = ""
	require.ErrorContains(t, c.Validate(), "database path")
}
