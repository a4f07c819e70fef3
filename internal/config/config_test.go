package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/blockport/blockport-go/internal/config"
)

func TestDefaults(t *testing.T) {
	c := config.New()

	require.Equal(t, "BlockPort", c.GetAppName())
	require.Equal(t, "DEV", c.GetEnv())
	require.Equal(t, "http://127.0.0.1:8000/api/v1", c.GetAPIBaseURL())
	require.Equal(t, 30*time.Second, c.GetHTTPTimeout())
	require.Equal(t, 30*time.Second, c.GetRefreshSkew())
	require.Equal(t, "blockport-go", c.GetUserAgent())
	require.Empty(t, c.GetSessionPassphrase())
	require.Contains(t, c.GetSessionFile(), ".blockport/session.json")
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("BLOCKPORT_API_URL", "https://api.blockport.example/api/v1/")
	t.Setenv("BLOCKPORT_HTTP_TIMEOUT", "5s")
	t.Setenv("BLOCKPORT_REFRESH_SKEW", "2m")
	t.Setenv("BLOCKPORT_SESSION_KEY", "hunter2")
	t.Setenv("ENV", "PROD")

	c := config.New()

	// Trailing slash stripped so paths join cleanly.
	require.Equal(t, "https://api.blockport.example/api/v1", c.GetAPIBaseURL())
	require.Equal(t, 5*time.Second, c.GetHTTPTimeout())
	require.Equal(t, 2*time.Minute, c.GetRefreshSkew())
	require.Equal(t, "hunter2", c.GetSessionPassphrase())
	require.Equal(t, "PROD", c.GetEnv())
}

func TestInvalidDurationFallsBack(t *testing.T) {
	t.Setenv("BLOCKPORT_HTTP_TIMEOUT", "not-a-duration")

	require.Equal(t, 30*time.Second, config.New().GetHTTPTimeout())
}

func TestAbsoluteSessionFileUsedVerbatim(t *testing.T) {
	t.Setenv("BLOCKPORT_SESSION_FILE", "/tmp/blockport/session.json")

	require.Equal(t, "/tmp/blockport/session.json", config.New().GetSessionFile())
}
