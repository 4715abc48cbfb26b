package main

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/adeelyj/rapiddraft-utumpitch-sub000/internal/api"
	"github.com/adeelyj/rapiddraft-utumpitch-sub000/internal/bundle"
	"github.com/adeelyj/rapiddraft-utumpitch-sub000/internal/config"
	"github.com/adeelyj/rapiddraft-utumpitch-sub000/internal/resilience"
	"github.com/adeelyj/rapiddraft-utumpitch-sub000/internal/review"
	"github.com/adeelyj/rapiddraft-utumpitch-sub000/internal/store"
)

// engineEnv holds the dependencies shared by the engine commands.
type engineEnv struct {
	Bundle  *bundle.Bundle
	Store   store.Store
	Service *review.Service
}

// Close releases the store, if any.
func (e *engineEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initStore opens the configured store and applies its schema, retrying
// while the database is unavailable. The "none" driver yields a nil store.
func initStore(ctx context.Context) (store.Store, error) {
	if cfg.Store.Driver == config.DriverNone {
		return nil, nil
	}

	retry := resilience.StoreRetryConfig()
	retry.OnRetry = resilience.RetryLogger("store", "open")
	return resilience.DoVal(ctx, retry, func(ctx context.Context) (store.Store, error) {
		st, err := openStore(ctx)
		if err != nil {
			return nil, err
		}
		if err := st.Migrate(ctx); err != nil {
			_ = st.Close()
			return nil, err
		}
		return st, nil
	})
}

func openStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case config.DriverSQLite, "":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "dfm.db"
		}
		return store.NewSQLite(dsn)
	case config.DriverPostgres:
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func loadBundle() (*bundle.Bundle, error) {
	return bundle.LoadWithOptions(cfg.Bundle.Dir, bundle.Options{SchemaDir: cfg.Bundle.SchemaDir})
}

// initEngine loads the bundle, opens the store and wires the review service.
func initEngine(ctx context.Context) (*engineEnv, error) {
	b, err := loadBundle()
	if err != nil {
		return nil, err
	}
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	opts := []review.Option{
		review.WithRunBoth(cfg.Engine.AllowRunBoth),
		review.WithDefaultAnalysisMode(cfg.Engine.DefaultAnalysisMode),
		review.WithDefaultQuantity(cfg.Engine.DefaultQuantity),
		review.WithSaveReviews(cfg.Engine.SaveReviews),
	}
	if st != nil {
		opts = append(opts, review.WithStore(st))
	}

	return &engineEnv{
		Bundle:  b,
		Store:   st,
		Service: review.NewService(b, opts...),
	}, nil
}

// readRequest decodes a JSON or YAML request document from path ("-" reads
// stdin) under the same rules as the HTTP API.
func readRequest(path string, in io.Reader, dst any) error {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(in)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return eris.Wrapf(err, "read request %s", path)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var v any
		if err := yaml.Unmarshal(data, &v); err != nil {
			return eris.Wrapf(err, "parse request %s", path)
		}
		if data, err = json.Marshal(v); err != nil {
			return eris.Wrapf(err, "convert request %s", path)
		}
	}

	if err := api.Decode(data, dst); err != nil {
		return eris.Wrapf(err, "request %s", path)
	}
	return nil
}

func writeIndentedJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
