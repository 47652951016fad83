/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/suparena/storekit/adapter"
	storeerrors "github.com/suparena/storekit/errors"
)

// Supported backend names.
const (
	BackendMemory = "memory"
	BackendBolt   = "bolt"
	BackendSQLite = "sqlite"
	BackendDynamo = "dynamo"
	BackendMongo  = "mongo"
)

// Config selects a storage backend and carries its connection
// parameters. Zero fields that a backend does not use are ignored.
type Config struct {
	// Backend names the adapter to open: memory, bolt, sqlite, dynamo
	// or mongo.
	Backend string `yaml:"backend"`

	// Path is the database file for the bolt and sqlite backends.
	Path string `yaml:"path,omitempty"`

	// Table is the DynamoDB table name.
	Table string `yaml:"table,omitempty"`

	// Region, AccessKey and SecretKey carry AWS credentials for the
	// dynamo backend. When AccessKey is empty the default AWS
	// credential chain is used.
	Region    string `yaml:"region,omitempty"`
	AccessKey string `yaml:"access_key,omitempty"`
	SecretKey string `yaml:"secret_key,omitempty"`

	// URI and Database locate the MongoDB deployment and database.
	URI      string `yaml:"uri,omitempty"`
	Database string `yaml:"database,omitempty"`

	// WriteConcern names the acknowledgment policy batch flushes run
	// under: acknowledged (default), unacknowledged or majority.
	WriteConcern string `yaml:"write_concern,omitempty"`

	// Patterns overrides the partition and sort key templates per
	// record family for the dynamo backend.
	Patterns map[string]KeyPattern `yaml:"patterns,omitempty"`
}

// KeyPattern carries the key templates of one record family in a
// single-table layout. Templates name record properties in braces,
// "USERS#{ID}". An empty SK falls back to the PK template.
type KeyPattern struct {
	PK string `yaml:"pk"`
	SK string `yaml:"sk,omitempty"`
}

var knownBackends = map[string]bool{
	BackendMemory: true,
	BackendBolt:   true,
	BackendSQLite: true,
	BackendDynamo: true,
	BackendMongo:  true,
}

// Load reads a YAML configuration file, overlays environment variables
// and validates the result.
func Load(path string) (Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ApplyEnv overlays environment variables onto the configuration. Set
// variables win over file values, so deployments can keep credentials
// out of config files.
func (c *Config) ApplyEnv() {
	overlay(&c.Backend, "STOREKIT_BACKEND")
	overlay(&c.Path, "STOREKIT_PATH")
	overlay(&c.Table, "AWS_DDB_TABLE")
	overlay(&c.Region, "AWS_REGION")
	overlay(&c.AccessKey, "AWS_ACCESS_KEY")
	overlay(&c.SecretKey, "AWS_SECRET_KEY")
	overlay(&c.URI, "MONGO_URI")
	overlay(&c.Database, "MONGO_DATABASE")
	overlay(&c.WriteConcern, "STOREKIT_WRITE_CONCERN")
}

func overlay(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// Validate checks that the backend is known and that the fields it
// needs are present.
func (c Config) Validate() error {
	if c.Backend == "" {
		return storeerrors.NewValidationError("backend", "backend must not be empty")
	}
	if !knownBackends[c.Backend] {
		return storeerrors.NewValidationError("backend", fmt.Sprintf("unknown backend %q", c.Backend))
	}

	switch c.Backend {
	case BackendBolt, BackendSQLite:
		if c.Path == "" {
			return storeerrors.NewValidationError("path", fmt.Sprintf("%s backend requires a database path", c.Backend))
		}
	case BackendDynamo:
		if c.Table == "" {
			return storeerrors.NewValidationError("table", "dynamo backend requires a table name")
		}
		if c.Region == "" {
			return storeerrors.NewValidationError("region", "dynamo backend requires a region")
		}
	case BackendMongo:
		if c.URI == "" {
			return storeerrors.NewValidationError("uri", "mongo backend requires a connection URI")
		}
		if c.Database == "" {
			return storeerrors.NewValidationError("database", "mongo backend requires a database name")
		}
	}

	for family, p := range c.Patterns {
		if family == "" {
			return storeerrors.NewValidationError("patterns", "key pattern family must not be empty")
		}
		if p.PK == "" {
			return storeerrors.NewValidationError("patterns", fmt.Sprintf("key pattern for %q needs a pk template", family))
		}
	}

	if _, err := adapter.ParseWriteConcern(c.WriteConcern); err != nil {
		return storeerrors.NewValidationError("write_concern", err.Error())
	}
	return nil
}

// Concern returns the configured write concern, defaulting to
// Acknowledged.
func (c Config) Concern() adapter.WriteConcern {
	wc, err := adapter.ParseWriteConcern(c.WriteConcern)
	if err != nil {
		return adapter.Acknowledged
	}
	return wc
}
