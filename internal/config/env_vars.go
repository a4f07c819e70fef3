package config

import (
	"os"
	"strings"
	"time"
)

const (
	apiURLEnvVar     = "BLOCKPORT_API_URL"
	timeoutEnvVar    = "BLOCKPORT_HTTP_TIMEOUT"
	appNameVar       = "APP_NAME"
	sessionFileVar   = "BLOCKPORT_SESSION_FILE"
	sessionKeyVar    = "BLOCKPORT_SESSION_KEY"
	refreshSkewVar   = "BLOCKPORT_REFRESH_SKEW"
	defaultAPIURL    = "http://127.0.0.1:8000/api/v1"
	defaultTimeout   = 30 * time.Second
	defaultSkew      = 30 * time.Second
	defaultStateFile = ".blockport/session.json"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}
var _ HTTPConfig = EnvVars{}
var _ SessionConfig = EnvVars{}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "BlockPort")
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

// GetAPIBaseURL returns the API base URL (e.g. "https://api.blockport.example/api/v1").
// Any trailing slash is stripped so endpoint paths can be joined with a single "/".
func (EnvVars) GetAPIBaseURL() string {
	return strings.TrimRight(GetEnv(apiURLEnvVar, defaultAPIURL), "/")
}

func (EnvVars) GetHTTPTimeout() time.Duration {
	return getDurationEnv(timeoutEnvVar, defaultTimeout)
}

func (EnvVars) GetUserAgent() string {
	return GetEnv("BLOCKPORT_USER_AGENT", "blockport-go")
}

// GetSessionFile returns the path of the persisted session record, relative
// to the user's home directory when not absolute.
func (EnvVars) GetSessionFile() string {
	path := GetEnv(sessionFileVar, defaultStateFile)
	if strings.HasPrefix(path, "/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return home + "/" + path
}

// GetSessionPassphrase returns the passphrase used to encrypt the persisted
// session at rest. Empty means the record is stored in plain JSON.
func (EnvVars) GetSessionPassphrase() string {
	return GetEnv(sessionKeyVar, "")
}

// GetRefreshSkew returns how close to expiry an access token may be before a
// refresh is attempted ahead of the next request.
func (EnvVars) GetRefreshSkew() time.Duration {
	return getDurationEnv(refreshSkewVar, defaultSkew)
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}

func getDurationEnv(envVar string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}
