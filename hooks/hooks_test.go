package hooks

import (
	"bytes"
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/youssefsiam38/historypg/compaction"
	"github.com/youssefsiam38/historypg/types"
)

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r == nil {
		t.Fatal("NewRegistry returned nil")
	}
}

func TestOnBeforeProcess(t *testing.T) {
	r := NewRegistry()
	var capturedSessionID string
	var capturedCount int

	r.OnBeforeProcess(func(ctx context.Context, sessionID string, messages []*types.Message) error {
		capturedSessionID = sessionID
		capturedCount = len(messages)
		return nil
	})

	messages := []*types.Message{{Kind: types.KindRequest}, {Kind: types.KindResponse}}
	err := r.TriggerBeforeProcess(context.Background(), "session-123", messages)
	if err != nil {
		t.Errorf("TriggerBeforeProcess returned error: %v", err)
	}
	if capturedSessionID != "session-123" {
		t.Errorf("expected sessionID 'session-123', got '%s'", capturedSessionID)
	}
	if capturedCount != 2 {
		t.Errorf("expected 2 messages, got %d", capturedCount)
	}
}

func TestOnAfterProcess(t *testing.T) {
	r := NewRegistry()
	var capturedResult *compaction.Result

	r.OnAfterProcess(func(ctx context.Context, sessionID string, result *compaction.Result) error {
		capturedResult = result
		return nil
	})

	testResult := &compaction.Result{
		OriginalMessages: 10,
		FinalMessages:    6,
	}

	err := r.TriggerAfterProcess(context.Background(), "session-123", testResult)
	if err != nil {
		t.Errorf("TriggerAfterProcess returned error: %v", err)
	}
	if capturedResult != testResult {
		t.Error("result was not passed to hook")
	}
}

func TestOnPartDropped(t *testing.T) {
	r := NewRegistry()
	var capturedTool string
	var capturedParts int

	r.OnPartDropped(func(ctx context.Context, toolName string, parts int) error {
		capturedTool = toolName
		capturedParts = parts
		return nil
	})

	err := r.TriggerPartDropped(context.Background(), "web_search", 3)
	if err != nil {
		t.Errorf("TriggerPartDropped returned error: %v", err)
	}
	if capturedTool != "web_search" {
		t.Errorf("expected tool 'web_search', got '%s'", capturedTool)
	}
	if capturedParts != 3 {
		t.Errorf("expected 3 parts, got %d", capturedParts)
	}
}

func TestHookError(t *testing.T) {
	r := NewRegistry()
	expectedErr := errors.New("hook error")

	r.OnBeforeProcess(func(ctx context.Context, sessionID string, messages []*types.Message) error {
		return expectedErr
	})

	err := r.TriggerBeforeProcess(context.Background(), "session-123", nil)
	if !errors.Is(err, expectedErr) {
		t.Errorf("expected error %v, got %v", expectedErr, err)
	}
}

func TestMultipleHooks(t *testing.T) {
	r := NewRegistry()
	callOrder := []int{}

	r.OnBeforeProcess(func(ctx context.Context, sessionID string, messages []*types.Message) error {
		callOrder = append(callOrder, 1)
		return nil
	})

	r.OnBeforeProcess(func(ctx context.Context, sessionID string, messages []*types.Message) error {
		callOrder = append(callOrder, 2)
		return nil
	})

	r.OnBeforeProcess(func(ctx context.Context, sessionID string, messages []*types.Message) error {
		callOrder = append(callOrder, 3)
		return nil
	})

	err := r.TriggerBeforeProcess(context.Background(), "session-123", nil)
	if err != nil {
		t.Errorf("TriggerBeforeProcess returned error: %v", err)
	}

	if len(callOrder) != 3 {
		t.Errorf("expected 3 hooks to be called, got %d", len(callOrder))
	}

	// Verify hooks are called in order
	for i, v := range callOrder {
		if v != i+1 {
			t.Errorf("expected call order %d at index %d, got %d", i+1, i, v)
		}
	}
}

func TestHookStopsOnError(t *testing.T) {
	r := NewRegistry()
	called := []int{}
	expectedErr := errors.New("stop here")

	r.OnBeforeProcess(func(ctx context.Context, sessionID string, messages []*types.Message) error {
		called = append(called, 1)
		return nil
	})

	r.OnBeforeProcess(func(ctx context.Context, sessionID string, messages []*types.Message) error {
		called = append(called, 2)
		return expectedErr // This should stop execution
	})

	r.OnBeforeProcess(func(ctx context.Context, sessionID string, messages []*types.Message) error {
		called = append(called, 3) // This should NOT be called
		return nil
	})

	err := r.TriggerBeforeProcess(context.Background(), "session-123", nil)
	if !errors.Is(err, expectedErr) {
		t.Errorf("expected error %v, got %v", expectedErr, err)
	}

	if len(called) != 2 {
		t.Errorf("expected 2 hooks to be called before error, got %d", len(called))
	}
}

func TestConcurrentHookRegistration(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	numGoroutines := 100

	// Concurrently register hooks
	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()
			r.OnBeforeProcess(func(ctx context.Context, sessionID string, messages []*types.Message) error {
				return nil
			})
		}()
	}
	wg.Wait()

	// Trigger should work without panic
	err := r.TriggerBeforeProcess(context.Background(), "session-123", nil)
	if err != nil {
		t.Errorf("TriggerBeforeProcess returned error: %v", err)
	}
}

func TestConcurrentHookTrigger(t *testing.T) {
	r := NewRegistry()
	var callCount int
	var mu sync.Mutex

	r.OnBeforeProcess(func(ctx context.Context, sessionID string, messages []*types.Message) error {
		mu.Lock()
		callCount++
		mu.Unlock()
		return nil
	})

	var wg sync.WaitGroup
	numGoroutines := 100

	// Concurrently trigger hooks
	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()
			r.TriggerBeforeProcess(context.Background(), "session-123", nil)
		}()
	}
	wg.Wait()

	if callCount != numGoroutines {
		t.Errorf("expected %d calls, got %d", numGoroutines, callCount)
	}
}

func TestConcurrentRegistrationAndTrigger(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup

	// Pre-register some hooks
	for i := 0; i < 10; i++ {
		r.OnBeforeProcess(func(ctx context.Context, sessionID string, messages []*types.Message) error {
			return nil
		})
	}

	// Concurrently register and trigger
	wg.Add(200)
	for i := 0; i < 100; i++ {
		go func() {
			defer wg.Done()
			r.OnBeforeProcess(func(ctx context.Context, sessionID string, messages []*types.Message) error {
				return nil
			})
		}()
		go func() {
			defer wg.Done()
			r.TriggerBeforeProcess(context.Background(), "session-123", nil)
		}()
	}
	wg.Wait()

	// No panic means success - the mutex is working
}

func TestLoggingHooks_AfterProcess(t *testing.T) {
	var buf bytes.Buffer
	h := NewLoggingHooks(log.New(&buf, "", 0))

	result := &compaction.Result{
		Reconcile: compaction.ReconcileResult{RetryPromptsDropped: 1},
		Compact: compaction.CompactResult{
			PartsEdited:  map[string]int{"web_search": 2},
			PartsDropped: map[string]int{"lookup": 1},
		},
		OriginalMessages: 10,
		FinalMessages:    6,
		Duration:         5 * time.Millisecond,
	}

	if err := h.AfterProcess(context.Background(), "session-123", result); err != nil {
		t.Fatalf("AfterProcess returned error: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "session-123") {
		t.Errorf("expected session ID in log output, got: %s", out)
	}
	if !strings.Contains(out, "10 → 6 messages") {
		t.Errorf("expected message counts in log output, got: %s", out)
	}
	if !strings.Contains(out, "40.0% reduction") {
		t.Errorf("expected reduction percentage in log output, got: %s", out)
	}
}

func TestMetricsHooks_AfterProcess(t *testing.T) {
	metrics := map[string]float64{}
	var tools []string

	h := NewMetricsHooks(func(name string, value float64, tags map[string]string) {
		metrics[name] = value
		if tool, ok := tags["tool"]; ok {
			tools = append(tools, tool)
		}
	})

	result := &compaction.Result{
		Reconcile: compaction.ReconcileResult{RetryPromptsDropped: 2},
		Compact: compaction.CompactResult{
			PartsEdited: map[string]int{"web_search": 3},
		},
		OriginalMessages: 8,
		FinalMessages:    5,
	}

	if err := h.AfterProcess(context.Background(), "session-123", result); err != nil {
		t.Fatalf("AfterProcess returned error: %v", err)
	}

	if metrics["history.messages.original"] != 8 {
		t.Errorf("expected history.messages.original=8, got %v", metrics["history.messages.original"])
	}
	if metrics["history.messages.final"] != 5 {
		t.Errorf("expected history.messages.final=5, got %v", metrics["history.messages.final"])
	}
	if metrics["history.retries.dropped"] != 2 {
		t.Errorf("expected history.retries.dropped=2, got %v", metrics["history.retries.dropped"])
	}
	if metrics["history.parts.edited"] != 3 {
		t.Errorf("expected history.parts.edited=3, got %v", metrics["history.parts.edited"])
	}
	if len(tools) != 1 || tools[0] != "web_search" {
		t.Errorf("expected tool tag 'web_search', got %v", tools)
	}
}
