package config

import "time"

type Config interface {
	EnvConfig
	ClientConfig
	StoreConfig
}

type EnvConfig interface {
	GetAppName() string
	GetDataFolder() string
	GetLogLevel() string
	GetEnv() string
}

// ClientConfig covers the API the session manager talks to.
type ClientConfig interface {
	GetAPIBaseURL() string
	GetRequestTimeout() time.Duration
	GetExpirySkew() time.Duration
	GetDecodeProfileClaims() bool
}

// StoreConfig selects and configures the persistent session store.
type StoreConfig interface {
	GetStoreKind() string
	GetSessionFile() string
	GetSessionKey() string
	GetSQLDriver() string
	GetSQLDSN() string
	GetSQLTable() string
	GetSQLNamespace() string
}

type mainConfig struct {
	EnvVars
	Client
	Store
}

// New returns a Config backed by environment variables and built-in defaults.
func New() Config {
	return newMainConfig(&fileConfig{})
}

// Load returns a Config that reads the YAML file at path first and lets
// environment variables override it. A missing file is not an error.
func Load(path string) (Config, error) {
	fc, err := readFileConfig(path)
	if err != nil {
		return nil, err
	}
	return newMainConfig(fc), nil
}

func newMainConfig(fc *fileConfig) mainConfig {
	return mainConfig{
		EnvVars: EnvVars{file: fc},
		Client:  Client{file: fc},
		Store:   Store{file: fc},
	}
}
