package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type fileConfig struct {
	Env        string `yaml:"env"`
	AppName    string `yaml:"app_name"`
	DataFolder string `yaml:"data_folder"`
	LogLevel   string `yaml:"log_level"`

	API struct {
		BaseURL             string        `yaml:"base_url"`
		Origin              string        `yaml:"origin"`
		Timeout             time.Duration `yaml:"timeout"`
		DecodeProfileClaims *bool         `yaml:"decode_profile_claims"`
	} `yaml:"api"`

	Store struct {
		Kind         string `yaml:"kind"`
		File         string `yaml:"file"`
		Key          string `yaml:"key"`
		SQLDriver    string `yaml:"sql_driver"`
		SQLDSN       string `yaml:"sql_dsn"`
		SQLTable     string `yaml:"sql_table"`
		SQLNamespace string `yaml:"sql_namespace"`
	} `yaml:"store"`
}

func readFileConfig(path string) (*fileConfig, error) {
	fc := &fileConfig{}
	if path == "" {
		return fc, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fc, nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, fc); err != nil {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}
	return fc, nil
}
