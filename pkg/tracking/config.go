package tracking

import (
	"fmt"
	"log/slog"

	"github.com/teslashibe/go-gaze/internal/log"
)

// DefaultFanOutBatchSize is the listener count above which fan-out runs in parallel batches.
const DefaultFanOutBatchSize = 8

// Config holds the dispatch engine parameters.
type Config struct {
	// FanOutBatchSize splits listeners into batches of this size delivered in
	// parallel once more than FanOutBatchSize listeners are registered.
	// 0 keeps fan-out sequential regardless of listener count.
	FanOutBatchSize int

	// Observability
	Observer Observer
	Logger   *slog.Logger
}

// DefaultConfig returns the recommended engine configuration.
func DefaultConfig() Config {
	return Config{
		FanOutBatchSize: DefaultFanOutBatchSize,
		Observer:        NopObserver{},
		Logger:          log.Component("tracking"),
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.FanOutBatchSize < 0 {
		return fmt.Errorf("%w: fan-out batch size %d must not be negative", ErrInvalidArgument, c.FanOutBatchSize)
	}
	return nil
}

func (c Config) withDefaults() Config {
	if c.Observer == nil {
		c.Observer = NopObserver{}
	}
	if c.Logger == nil {
		c.Logger = log.Component("tracking")
	}
	return c
}
