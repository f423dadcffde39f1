package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"sync"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// FileConfig is the YAML layout of ~/.smartcane/config.yaml. Every field maps
// onto one environment variable; the environment always wins.
type FileConfig struct {
	AppName string `yaml:"app_name"`
	Env     string `yaml:"env"`
	Folder  string `yaml:"folder"`

	API struct {
		BaseURL      string `yaml:"base_url"`
		Timeout      string `yaml:"timeout"`
		LenientLists *bool  `yaml:"lenient_lists"`
	} `yaml:"api"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`

	OAuth struct {
		CallbackAddr string            `yaml:"callback_addr"`
		Overrides    map[string]string `yaml:"overrides"`
	} `yaml:"oauth"`

	Security struct {
		MaxLoginAttempts int    `yaml:"max_login_attempts"`
		LoginLock        string `yaml:"login_lock"`
		RoleMatch        string `yaml:"role_match"`
	} `yaml:"security"`

	Storage struct {
		Backend    string `yaml:"backend"`
		SQLitePath string `yaml:"sqlite_path"`
		Redis      struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
	} `yaml:"storage"`
}

var (
	fileValues     = map[string]string{}
	overrides      = map[string]string{}
	fileValuesLock sync.RWMutex
)

// Keys accepted by Override; command line flags use them.
const (
	KeyAPIBaseURL = apiBaseURLEnvVar
	KeyStorage    = storageEnvVar
	KeyLogLevel   = logLevelEnvVar
	KeyLogFormat  = logFormatEnvVar
	KeyEnv        = envEnvVar
)

// Override pins a setting above every other source. An empty value removes
// the override.
func Override(key, value string) {
	fileValuesLock.Lock()
	defer fileValuesLock.Unlock()
	if value == "" {
		delete(overrides, key)
		return
	}
	overrides[key] = value
}

// Load reads an optional .env file and an optional YAML config file. Missing
// files are not an error.
func Load(dotEnvPath, yamlPath string) error {
	if dotEnvPath != "" {
		if err := godotenv.Load(dotEnvPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("[config Load] dotenv %s: %w", dotEnvPath, err)
		}
	}
	if yamlPath == "" {
		return nil
	}
	data, err := os.ReadFile(yamlPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("[config Load] read %s: %w", yamlPath, err)
	}
	return LoadYAML(data)
}

// LoadYAML replaces the file-sourced settings with the given document.
func LoadYAML(data []byte) error {
	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("[config LoadYAML] %w", err)
	}
	values := fc.values()

	fileValuesLock.Lock()
	fileValues = values
	fileValuesLock.Unlock()
	return nil
}

// Reset drops any file-sourced settings and overrides.
func Reset() {
	fileValuesLock.Lock()
	fileValues = map[string]string{}
	overrides = map[string]string{}
	fileValuesLock.Unlock()
}

func fileValue(envVar string) (string, bool) {
	fileValuesLock.RLock()
	defer fileValuesLock.RUnlock()
	v, ok := fileValues[envVar]
	return v, ok
}

func overrideValue(envVar string) (string, bool) {
	fileValuesLock.RLock()
	defer fileValuesLock.RUnlock()
	v, ok := overrides[envVar]
	return v, ok
}

func (fc FileConfig) values() map[string]string {
	v := map[string]string{
		appNameEnvVar:        fc.AppName,
		envEnvVar:            fc.Env,
		folderEnvVar:         fc.Folder,
		apiBaseURLEnvVar:     fc.API.BaseURL,
		httpTimeoutEnvVar:    fc.API.Timeout,
		logLevelEnvVar:       fc.Log.Level,
		logFormatEnvVar:      fc.Log.Format,
		callbackAddrEnvVar:   fc.OAuth.CallbackAddr,
		loginLockEnvVar:      fc.Security.LoginLock,
		roleMatchEnvVar:      fc.Security.RoleMatch,
		storageEnvVar:        fc.Storage.Backend,
		sqlitePathEnvVar:     fc.Storage.SQLitePath,
		redisAddrEnvVar:      fc.Storage.Redis.Addr,
		redisPasswordEnvVar:  fc.Storage.Redis.Password,
		redisKeyPrefixEnvVar: fc.Storage.Redis.Prefix,
	}
	if fc.API.LenientLists != nil {
		v[lenientListsEnvVar] = strconv.FormatBool(*fc.API.LenientLists)
	}
	if fc.Security.MaxLoginAttempts > 0 {
		v[maxLoginAttemptsEnvVar] = strconv.Itoa(fc.Security.MaxLoginAttempts)
	}
	if fc.Storage.Redis.DB > 0 {
		v[redisDBEnvVar] = strconv.Itoa(fc.Storage.Redis.DB)
	}
	for provider, url := range fc.OAuth.Overrides {
		v[providerOverrideEnvVar(provider)] = url
	}
	return v
}
