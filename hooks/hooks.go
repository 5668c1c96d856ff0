package hooks

import (
	"context"
	"sync"

	"github.com/youssefsiam38/historypg/compaction"
	"github.com/youssefsiam38/historypg/types"
)

// BeforeProcessHook is called before a session log is processed
type BeforeProcessHook func(ctx context.Context, sessionID string, messages []*types.Message) error

// AfterProcessHook is called after a session log has been processed
type AfterProcessHook func(ctx context.Context, sessionID string, result *compaction.Result) error

// PartDroppedHook is called once per tool whose parts were dropped
// during a processing pass
// Parameters: ctx, toolName, parts dropped
type PartDroppedHook func(ctx context.Context, toolName string, parts int) error

// Registry holds all registered hooks
type Registry struct {
	mu            sync.RWMutex
	beforeProcess []BeforeProcessHook
	afterProcess  []AfterProcessHook
	partDropped   []PartDroppedHook
}

// NewRegistry creates a new hook registry
func NewRegistry() *Registry {
	return &Registry{
		beforeProcess: []BeforeProcessHook{},
		afterProcess:  []AfterProcessHook{},
		partDropped:   []PartDroppedHook{},
	}
}

// OnBeforeProcess registers a hook to be called before processing
func (r *Registry) OnBeforeProcess(hook BeforeProcessHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.beforeProcess = append(r.beforeProcess, hook)
}

// OnAfterProcess registers a hook to be called after processing
func (r *Registry) OnAfterProcess(hook AfterProcessHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.afterProcess = append(r.afterProcess, hook)
}

// OnPartDropped registers a hook to be called when parts are dropped
func (r *Registry) OnPartDropped(hook PartDroppedHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.partDropped = append(r.partDropped, hook)
}

// TriggerBeforeProcess calls all registered before-process hooks
func (r *Registry) TriggerBeforeProcess(ctx context.Context, sessionID string, messages []*types.Message) error {
	r.mu.RLock()
	hooks := make([]BeforeProcessHook, len(r.beforeProcess))
	copy(hooks, r.beforeProcess)
	r.mu.RUnlock()

	for _, hook := range hooks {
		if err := hook(ctx, sessionID, messages); err != nil {
			return err
		}
	}
	return nil
}

// TriggerAfterProcess calls all registered after-process hooks
func (r *Registry) TriggerAfterProcess(ctx context.Context, sessionID string, result *compaction.Result) error {
	r.mu.RLock()
	hooks := make([]AfterProcessHook, len(r.afterProcess))
	copy(hooks, r.afterProcess)
	r.mu.RUnlock()

	for _, hook := range hooks {
		if err := hook(ctx, sessionID, result); err != nil {
			return err
		}
	}
	return nil
}

// TriggerPartDropped calls all registered part-dropped hooks
func (r *Registry) TriggerPartDropped(ctx context.Context, toolName string, parts int) error {
	r.mu.RLock()
	hooks := make([]PartDroppedHook, len(r.partDropped))
	copy(hooks, r.partDropped)
	r.mu.RUnlock()

	for _, hook := range hooks {
		if err := hook(ctx, toolName, parts); err != nil {
			return err
		}
	}
	return nil
}
