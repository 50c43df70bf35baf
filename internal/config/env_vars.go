package config

import (
	"os"
	"path/filepath"
)

const (
	envEnvVar      = "ENV"
	appNameVar     = "APP_NAME"
	folderEnvVar   = "FOLDER"
	logLevelEnvVar = "LOG_LEVEL"
)

type EnvVars struct {
	file *fileConfig
}

var _ EnvConfig = EnvVars{}

func (e EnvVars) GetAppName() string {
	return lookup(appNameVar, e.file.AppName, "Scope")
}

func (e EnvVars) GetDataFolder() string {
	if dir := lookup(folderEnvVar, e.file.DataFolder, ""); dir != "" {
		return dir
	}
	if home, err := os.UserConfigDir(); err == nil {
		return filepath.Join(home, "scope")
	}
	return "./data"
}

func (e EnvVars) GetLogLevel() string {
	return lookup(logLevelEnvVar, e.file.LogLevel, "info")
}

// GetEnv returns DEV unless ENV (or the config file) says otherwise.
func (e EnvVars) GetEnv() string {
	return lookup(envEnvVar, e.file.Env, "DEV")
}

func (e EnvVars) isDev() bool {
	return e.GetEnv() == "DEV"
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}

// lookup prefers the environment, then the config file value, then the default.
func lookup(envVar, fileValue, defaultValue string) string {
	if fileValue != "" {
		defaultValue = fileValue
	}
	return GetEnv(envVar, defaultValue)
}
