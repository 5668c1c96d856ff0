// Package maintenance provides background services for history stores.
//
// The Sweeper periodically finds sessions whose logs have grown past a
// threshold and runs retry reconciliation and lifespan compaction on them,
// so callers do not have to schedule processing themselves.
package maintenance

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/youssefsiam38/historypg/compaction"
	"github.com/youssefsiam38/historypg/storage"
)

// Default sweeper configuration values
const (
	DefaultSweepInterval    = 5 * time.Minute
	DefaultMessageThreshold = 50
)

// Processor applies retry reconciliation and lifespan compaction to a
// stored session log. *historypg.History satisfies this interface.
type Processor interface {
	Process(ctx context.Context, sessionID string) (*compaction.Result, error)
}

// SweeperConfig holds configuration for the sweeper service.
type SweeperConfig struct {
	// Interval is how often to sweep for oversized sessions.
	// Default: 5 minutes
	Interval time.Duration

	// MessageThreshold is the log size at which a session is picked up
	// for processing.
	// Default: 50 messages
	MessageThreshold int

	// OnSessionsProcessed is called when a sweep processes sessions.
	// The count is the number of sessions that were processed.
	OnSessionsProcessed func(count int)

	// OnError is called for each error a sweep produced.
	OnError func(err error)
}

// DefaultSweeperConfig returns the default sweeper configuration.
func DefaultSweeperConfig() *SweeperConfig {
	return &SweeperConfig{
		Interval:         DefaultSweepInterval,
		MessageThreshold: DefaultMessageThreshold,
	}
}

// SweepResult holds the results of one sweep.
type SweepResult struct {
	// SessionsProcessed is the number of sessions processed.
	SessionsProcessed int

	// MessagesDropped is the number of messages removed across all
	// processed sessions.
	MessagesDropped int

	// PartsEdited is the number of parts edited across all processed
	// sessions.
	PartsEdited int

	// Errors contains any errors that occurred during the sweep.
	Errors []error
}

// Sweeper periodically processes sessions whose logs have grown past the
// configured message threshold. Processing is idempotent, so running
// sweepers on several instances at once is safe.
type Sweeper struct {
	store     storage.Store
	processor Processor
	config    *SweeperConfig

	started atomic.Bool
	done    chan struct{}
	cancel  context.CancelFunc
}

// NewSweeper creates a new sweeper service.
func NewSweeper(store storage.Store, processor Processor, config *SweeperConfig) *Sweeper {
	if config == nil {
		config = DefaultSweeperConfig()
	}

	return &Sweeper{
		store:     store,
		processor: processor,
		config:    config,
	}
}

// Start begins the sweep loop.
// It returns immediately and runs sweeps in a goroutine.
func (s *Sweeper) Start(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	s.done = make(chan struct{})
	ctx, s.cancel = context.WithCancel(ctx)
	go s.run(ctx)

	return nil
}

// Stop stops the sweep loop and waits for an in-flight sweep to finish.
func (s *Sweeper) Stop(ctx context.Context) error {
	if !s.started.Load() {
		return ErrNotStarted
	}

	s.cancel()
	<-s.done

	s.started.Store(false)
	return nil
}

// run is the main sweep loop.
func (s *Sweeper) run(ctx context.Context) {
	defer close(s.done)

	// Sweep immediately on start
	s.runSweep(ctx)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runSweep(ctx)
		}
	}
}

// runSweep performs one sweep and fires the configured callbacks.
func (s *Sweeper) runSweep(ctx context.Context) {
	result := s.RunOnce(ctx)

	if s.config.OnSessionsProcessed != nil && result.SessionsProcessed > 0 {
		s.config.OnSessionsProcessed(result.SessionsProcessed)
	}

	if s.config.OnError != nil {
		for _, err := range result.Errors {
			s.config.OnError(err)
		}
	}
}

// RunOnce performs one sweep and returns the result.
// This can be called manually for testing or one-off processing.
func (s *Sweeper) RunOnce(ctx context.Context) *SweepResult {
	result := &SweepResult{}

	// Each session's processing commits independently of any transaction in ctx
	ctx = storage.StripTx(ctx)

	sessionIDs, err := s.store.GetOversizedSessions(ctx, s.config.MessageThreshold)
	if err != nil {
		result.Errors = append(result.Errors, err)
		return result
	}

	for _, sessionID := range sessionIDs {
		processResult, err := s.processor.Process(ctx, sessionID)
		if err != nil {
			// Continue with other sessions even if one fails
			result.Errors = append(result.Errors, err)
			continue
		}

		result.SessionsProcessed++
		result.MessagesDropped += processResult.OriginalMessages - processResult.FinalMessages
		result.PartsEdited += processResult.Compact.TotalEdited()
	}

	return result
}

// IsRunning returns true if the sweeper is running.
func (s *Sweeper) IsRunning() bool {
	return s.started.Load()
}
