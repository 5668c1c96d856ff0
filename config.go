package historypg

import (
	"fmt"

	"github.com/youssefsiam38/historypg/compaction"
	"github.com/youssefsiam38/historypg/hooks"
	"github.com/youssefsiam38/historypg/storage"
)

// Config holds the required configuration for a History.
//
// Example:
//
//	store := storage.NewPostgresStore(pool)
//	history, _ := historypg.New(historypg.Config{
//	    Store: store,
//	    Policies: compaction.Policies{
//	        "web_search": {Edit: compaction.NewDropEditor(), Lifespan: 3},
//	    },
//	})
type Config struct {
	// Store is the persistence layer for session logs (required)
	Store storage.Store

	// Policies maps tool names to edit policies. An empty table is valid;
	// processing then only reconciles retries.
	Policies compaction.Policies
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Store == nil {
		return fmt.Errorf("%w: Store is required", ErrInvalidConfig)
	}

	return nil
}

// internalConfig holds the full configuration including optional parameters
type internalConfig struct {
	// Required from Config
	store    storage.Store
	policies compaction.Policies

	// Optional parameters
	logger         compaction.Logger
	archiveDropped bool

	// Internal state
	hooks *hooks.Registry
}

// newInternalConfig creates a new internal config from the public Config
func newInternalConfig(cfg Config) *internalConfig {
	return &internalConfig{
		store:    cfg.Store,
		policies: cfg.Policies,

		// Defaults
		archiveDropped: false,

		hooks: hooks.NewRegistry(),
	}
}
