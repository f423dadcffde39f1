package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	appNameEnvVar      = "SMARTCANE_APP_NAME"
	apiBaseURLEnvVar   = "SMARTCANE_API_BASE_URL"
	folderEnvVar       = "SMARTCANE_FOLDER"
	envEnvVar          = "ENV"
	logLevelEnvVar     = "SMARTCANE_LOG_LEVEL"
	logFormatEnvVar    = "SMARTCANE_LOG_FORMAT"
	httpTimeoutEnvVar  = "SMARTCANE_HTTP_TIMEOUT"
	lenientListsEnvVar = "SMARTCANE_LENIENT_LISTS"

	defaultAPIBaseURL = "http://localhost:8081"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameEnvVar, "Smart Cane")
}

// GetAPIBaseURL returns the REST backend base URL without a trailing slash.
func (EnvVars) GetAPIBaseURL() string {
	return strings.TrimRight(GetEnv(apiBaseURLEnvVar, defaultAPIBaseURL), "/")
}

// GetDataFolder is where file and sqlite token storage live (default ~/.smartcane).
func (EnvVars) GetDataFolder() string {
	return GetEnv(folderEnvVar, defaultDataFolder())
}

func (EnvVars) GetEnv() string {
	return GetEnv(envEnvVar, "DEV")
}

func (EnvVars) GetLogLevel() string {
	return GetEnv(logLevelEnvVar, "info")
}

func (EnvVars) GetLogFormat() string {
	return GetEnv(logFormatEnvVar, "text")
}

// GetHTTPTimeout is zero unless configured; outbound calls have no timeout by default.
func (EnvVars) GetHTTPTimeout() time.Duration {
	return GetDuration(httpTimeoutEnvVar, 0)
}

// GetLenientLists enables the legacy list envelopes (devices, items, data, content...).
func (EnvVars) GetLenientLists() bool {
	return GetBool(lenientListsEnvVar, false)
}

func defaultDataFolder() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./.smartcane"
	}
	return filepath.Join(home, ".smartcane")
}

// GetEnv resolves a setting from overrides, the process environment, the
// loaded config file, then the default.
func GetEnv(envVar, defaultValue string) string {
	if value, ok := overrideValue(envVar); ok {
		return value
	}
	if value := os.Getenv(envVar); value != "" {
		return value
	}
	if value, ok := fileValue(envVar); ok && value != "" {
		return value
	}
	return defaultValue
}

func GetInt(envVar string, defaultValue int) int {
	value, err := strconv.Atoi(GetEnv(envVar, ""))
	if err != nil {
		return defaultValue
	}
	return value
}

func GetBool(envVar string, defaultValue bool) bool {
	value, err := strconv.ParseBool(GetEnv(envVar, ""))
	if err != nil {
		return defaultValue
	}
	return value
}

func GetDuration(envVar string, defaultValue time.Duration) time.Duration {
	value, err := time.ParseDuration(GetEnv(envVar, ""))
	if err != nil {
		return defaultValue
	}
	return value
}
