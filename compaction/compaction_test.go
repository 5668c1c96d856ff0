package compaction

import (
	"errors"
	"reflect"
	"testing"

	"github.com/youssefsiam38/historypg/types"
)

type recordingLogger struct {
	entries []string
}

func (l *recordingLogger) Debug(msg string, args ...any) { l.entries = append(l.entries, msg) }
func (l *recordingLogger) Info(msg string, args ...any)  { l.entries = append(l.entries, msg) }
func (l *recordingLogger) Warn(msg string, args ...any)  { l.entries = append(l.entries, msg) }
func (l *recordingLogger) Error(msg string, args ...any) { l.entries = append(l.entries, msg) }

func TestNewCompactor_RejectsMalformedPolicies(t *testing.T) {
	tests := []struct {
		name     string
		policies Policies
	}{
		{
			name:     "missing edit function",
			policies: Policies{"search": {Lifespan: 3}},
		},
		{
			name:     "negative lifespan",
			policies: Policies{"search": {Edit: NewDropEditor(), Lifespan: -2}},
		},
		{
			name:     "both lifespan and fraction",
			policies: Policies{"search": {Edit: NewDropEditor(), Lifespan: 1, LifespanFraction: 0.5}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewCompactor(tt.policies)
			if err == nil {
				t.Fatal("NewCompactor() error = nil, want rejection")
			}
			if !errors.Is(err, ErrInvalidPolicy) {
				t.Errorf("error %v does not wrap ErrInvalidPolicy", err)
			}
			if c != nil {
				t.Error("compactor is non-nil alongside an error")
			}
		})
	}
}

func TestNewCompactor_AcceptsValidPolicies(t *testing.T) {
	c, err := NewCompactor(Policies{
		"web_search": {Edit: NewTruncateEditor(DefaultPlaceholder, 200), Lifespan: 5},
		"read_file":  {Edit: NewDropEditor(), LifespanFraction: 0.5},
	})
	if err != nil {
		t.Fatalf("NewCompactor() error = %v", err)
	}
	if c == nil {
		t.Fatal("compactor is nil")
	}
}

func TestCompactor_Process(t *testing.T) {
	// A retried-then-successful "flaky" exchange plus an old verbose
	// "web_search" return: the first pass removes the retry noise, the
	// second rewrites the expired return.
	c, err := NewCompactor(Policies{
		"web_search": {Edit: NewTruncateEditor(DefaultPlaceholder, 10), Lifespan: 2},
	})
	if err != nil {
		t.Fatalf("NewCompactor() error = %v", err)
	}

	log := []*types.Message{
		responseMsg("m0", callPart("web_search", "call-1")),
		requestMsg("m1", returnPart("web_search", "call-1", "long web page content here")),
		responseMsg("m2", callPart("flaky", "call-2")),
		requestMsg("m3", retryPart("flaky", "call-2", "timeout")),
		responseMsg("m4", callPart("flaky", "call-3")),
		requestMsg("m5", returnPart("flaky", "call-3", "worked")),
		responseMsg("m6", textPart("answer")),
		requestMsg("m7", textPart("thanks")),
	}

	out, result := c.Process(log)

	wantIDs := []string{"m0", "m1", "m4", "m5", "m6", "m7"}
	if !reflect.DeepEqual(messageIDs(out), wantIDs) {
		t.Fatalf("message IDs = %v, want %v", messageIDs(out), wantIDs)
	}
	if out[1].Parts[0].Content != DefaultPlaceholder {
		t.Errorf("expired return content = %q, want %q", out[1].Parts[0].Content, DefaultPlaceholder)
	}

	if result.Reconcile.RetryPromptsDropped != 1 || result.Reconcile.ToolCallsDropped != 1 {
		t.Errorf("Reconcile = %+v, want 1 retry and 1 call dropped", result.Reconcile)
	}
	if result.Reconcile.MessagesDropped != 2 {
		t.Errorf("Reconcile.MessagesDropped = %d, want 2", result.Reconcile.MessagesDropped)
	}
	if got := result.Compact.PartsEdited["web_search"]; got != 1 {
		t.Errorf("PartsEdited[web_search] = %d, want 1", got)
	}
	if result.OriginalMessages != 8 || result.FinalMessages != 6 {
		t.Errorf("counts = %d -> %d, want 8 -> 6", result.OriginalMessages, result.FinalMessages)
	}

	// The successful flaky exchange is untouched.
	if out[3].Parts[0].Content != "worked" {
		t.Errorf("flaky return = %+v, want untouched", out[3].Parts[0])
	}
}

func TestCompactor_Process_EmptyLog(t *testing.T) {
	c, err := NewCompactor(Policies{
		"search": {Edit: NewDropEditor(), Lifespan: 1},
	})
	if err != nil {
		t.Fatalf("NewCompactor() error = %v", err)
	}

	out, result := c.Process(nil)

	if len(out) != 0 {
		t.Errorf("len(out) = %d, want 0", len(out))
	}
	if result.OriginalMessages != 0 || result.FinalMessages != 0 {
		t.Errorf("counts = %d -> %d, want 0 -> 0", result.OriginalMessages, result.FinalMessages)
	}
	if result.Reconcile != (ReconcileResult{}) {
		t.Errorf("Reconcile = %+v, want zero", result.Reconcile)
	}
}

func TestCompactor_ProcessLogs(t *testing.T) {
	logger := &recordingLogger{}
	c, err := NewCompactor(Policies{
		"lookup": {Edit: NewDropEditor(), Lifespan: 1},
	}, WithLogger(logger))
	if err != nil {
		t.Fatalf("NewCompactor() error = %v", err)
	}

	log := []*types.Message{
		requestMsg("m0", returnPart("lookup", "call-1", "rows")),
		requestMsg("m1", textPart("ok")),
	}

	c.Process(log)

	if len(logger.entries) == 0 {
		t.Error("Process logged nothing, want at least one entry")
	}
}

func TestLogStats(t *testing.T) {
	log := []*types.Message{
		responseMsg("m0", textPart("hi"), callPart("search", "call-1")),
		requestMsg("m1", returnPart("search", "call-1", "12345")),
		responseMsg("m2", callPart("lookup", "call-2")),
		requestMsg("m3", returnPart("lookup", "call-2", "abc")),
		requestMsg("m4", retryPart("search", "call-3", "oops")),
	}

	stats := LogStats(log)

	if stats.TotalMessages != 5 {
		t.Errorf("TotalMessages = %d, want 5", stats.TotalMessages)
	}
	if stats.TotalParts != 6 {
		t.Errorf("TotalParts = %d, want 6", stats.TotalParts)
	}
	wantByType := map[types.PartType]int{
		types.PartTypeText:        1,
		types.PartTypeToolCall:    2,
		types.PartTypeToolReturn:  2,
		types.PartTypeRetryPrompt: 1,
	}
	if !reflect.DeepEqual(stats.PartsByType, wantByType) {
		t.Errorf("PartsByType = %v, want %v", stats.PartsByType, wantByType)
	}
	if stats.ContentBytes != 8 {
		t.Errorf("ContentBytes = %d, want 8", stats.ContentBytes)
	}
	if !reflect.DeepEqual(stats.ToolNames, []string{"lookup", "search"}) {
		t.Errorf("ToolNames = %v, want [lookup search]", stats.ToolNames)
	}
}
