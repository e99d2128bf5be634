package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/studyspot-cli/internal/catalog"
	"github.com/sells-group/studyspot-cli/internal/config"
	"github.com/sells-group/studyspot-cli/internal/resilience"
	"github.com/sells-group/studyspot-cli/internal/store"
)

// storeNeed says how a command uses the configured store.
type storeNeed int

const (
	// storeUnused never opens the store.
	storeUnused storeNeed = iota
	// storeOptional opens the store when a driver is configured.
	storeOptional
	// storeRequired fails unless a driver is configured.
	storeRequired
)

// storeNeedFor maps a command's store requirement to a storeNeed.
func storeNeedFor(required bool) storeNeed {
	if required {
		return storeRequired
	}
	return storeUnused
}

// initStore opens the configured store according to need. It returns a nil
// store for storeUnused, and for storeOptional when the driver is "none".
func initStore(ctx context.Context, c *config.Config, need storeNeed) (store.Store, error) {
	if need == storeUnused {
		return nil, nil
	}
	st, err := store.Open(ctx, c.Store)
	if err != nil {
		return nil, err
	}
	if st == nil && need == storeRequired {
		return nil, eris.New("store: a store.driver (sqlite or postgres) is required")
	}
	return st, nil
}

// catalogSource resolves catalog.source. st is only consulted for the
// "store" source.
func catalogSource(c *config.Config, st store.Store) (catalog.Source, error) {
	switch c.Catalog.Source {
	case config.SourceBuiltin, "":
		return catalog.Builtin(), nil
	case config.SourceFile:
		return catalog.FileSource{Path: c.Catalog.Path}, nil
	case config.SourceStore:
		if st == nil {
			return nil, eris.New("catalog: source store needs an open store")
		}
		return st, nil
	default:
		return nil, eris.Errorf("catalog: unknown source %q", c.Catalog.Source)
	}
}

// loadCatalog loads the configured catalog with the configured retry policy.
func loadCatalog(ctx context.Context, c *config.Config, st store.Store) (*catalog.Catalog, error) {
	src, err := catalogSource(c, st)
	if err != nil {
		return nil, err
	}
	return catalog.Load(ctx, src, catalog.WithRetry(resilience.FromCatalogConfig(c.Catalog)))
}

// needsStore reports whether serving queries requires an open store.
func needsStore(c *config.Config, save bool) bool {
	return save || c.Catalog.Source == config.SourceStore
}
