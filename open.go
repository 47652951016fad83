/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storekit

import (
	"context"
	"fmt"
	"io"

	"github.com/suparena/storekit/adapter"
	"github.com/suparena/storekit/adapter/bolt"
	"github.com/suparena/storekit/adapter/dynamo"
	"github.com/suparena/storekit/adapter/memory"
	"github.com/suparena/storekit/adapter/mongo"
	"github.com/suparena/storekit/adapter/sqlite"
	"github.com/suparena/storekit/config"
	storeerrors "github.com/suparena/storekit/errors"
)

// Handle owns the adapter Open built. Pass Adapter() to New when
// building stores, and Close the handle when the stores are done.
type Handle struct {
	backend string
	adapter any
}

// Backend returns the configured backend name.
func (h *Handle) Backend() string {
	return h.backend
}

// Adapter returns the backend adapter. Its dynamic type is the Adapter
// of the backend's package, so callers type-assert for typed use:
//
//	mem := h.Adapter().(*memory.Adapter)
func (h *Handle) Adapter() any {
	return h.adapter
}

// Ping verifies the backend is reachable.
func (h *Handle) Ping(ctx context.Context) error {
	if p, ok := h.adapter.(adapter.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Close releases the backend's connections. Backends that hold none
// make this a no-op.
func (h *Handle) Close() error {
	if c, ok := h.adapter.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Open validates the configuration and constructs the backend adapter
// it names. The caller owns the returned handle and must Close it.
func Open(ctx context.Context, cfg config.Config) (*Handle, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Backend {
	case config.BackendMemory:
		return &Handle{backend: cfg.Backend, adapter: memory.New()}, nil

	case config.BackendBolt:
		a, err := bolt.Open(cfg.Path)
		if err != nil {
			return nil, err
		}
		return &Handle{backend: cfg.Backend, adapter: a}, nil

	case config.BackendSQLite:
		a, err := sqlite.Open(cfg.Path)
		if err != nil {
			return nil, err
		}
		return &Handle{backend: cfg.Backend, adapter: a}, nil

	case config.BackendDynamo:
		client, err := dynamo.NewClient(ctx, cfg.AccessKey, cfg.SecretKey, cfg.Region)
		if err != nil {
			return nil, err
		}
		a := dynamo.New(client, cfg.Table)
		for family, p := range cfg.Patterns {
			if p.SK == "" {
				p.SK = p.PK
			}
			a.RegisterKeyPattern(family, dynamo.KeyPattern{PK: p.PK, SK: p.SK})
		}
		return &Handle{backend: cfg.Backend, adapter: a}, nil

	case config.BackendMongo:
		a, err := mongo.Connect(ctx, cfg.URI, cfg.Database)
		if err != nil {
			return nil, err
		}
		return &Handle{backend: cfg.Backend, adapter: a}, nil
	}

	return nil, storeerrors.NewValidationError("backend", fmt.Sprintf("unknown backend %q", cfg.Backend))
}
