/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/suparena/storekit/config"
)

const (
	configName = "storekit"
	configType = "yaml"
)

// loadConfig resolves and reads the backend configuration. An explicit
// path wins; otherwise the working directory and ~/.storekit are
// searched, and no file at all leaves the defaults in place. The
// environment overlays the result either way.
func loadConfig(path string) (config.Config, error) {
	// Credentials for dev runs live in .env; absence is fine.
	_ = godotenv.Load()

	v := viper.New()
	v.SetDefault("backend", config.BackendMemory)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType(configType)
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".storekit"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return config.Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := config.Config{
		Backend:      v.GetString("backend"),
		Path:         v.GetString("path"),
		Table:        v.GetString("table"),
		Region:       v.GetString("region"),
		AccessKey:    v.GetString("access_key"),
		SecretKey:    v.GetString("secret_key"),
		URI:          v.GetString("uri"),
		Database:     v.GetString("database"),
		WriteConcern: v.GetString("write_concern"),
	}
	if err := v.UnmarshalKey("patterns", &cfg.Patterns); err != nil {
		return config.Config{}, fmt.Errorf("parse key patterns: %w", err)
	}

	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}
