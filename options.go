package historypg

import (
	"github.com/youssefsiam38/historypg/compaction"
	"github.com/youssefsiam38/historypg/hooks"
)

// Option is a functional option for configuring a History
type Option func(*internalConfig) error

// WithLogger sets the logger used during processing. Defaults to a no-op
// logger.
func WithLogger(logger compaction.Logger) Option {
	return func(c *internalConfig) error {
		c.logger = logger
		return nil
	}
}

// WithHooks replaces the default hook registry. Useful when the same
// registry is shared across several History instances.
func WithHooks(registry *hooks.Registry) Option {
	return func(c *internalConfig) error {
		if registry == nil {
			return NewHistoryError("WithHooks", ErrInvalidConfig).
				WithContext("reason", "registry must not be nil")
		}
		c.hooks = registry
		return nil
	}
}

// WithArchiveDropped enables copying dropped messages into the archive
// table before they are removed from the stored log
func WithArchiveDropped(enabled bool) Option {
	return func(c *internalConfig) error {
		c.archiveDropped = enabled
		return nil
	}
}
