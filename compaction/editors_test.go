package compaction

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/youssefsiam38/historypg/types"
)

func TestNewTruncateEditor(t *testing.T) {
	ret := func(content string) types.Part {
		return returnPart("web_search", "call-1", content)
	}

	tests := []struct {
		name        string
		editor      EditFunc
		part        types.Part
		wantKeep    bool
		wantContent string
	}{
		{
			name:        "no threshold replaces everything",
			editor:      NewTruncateEditor(DefaultPlaceholder, 0),
			part:        ret("OK"),
			wantKeep:    true,
			wantContent: DefaultPlaceholder,
		},
		{
			name:        "below threshold untouched",
			editor:      NewTruncateEditor(DefaultPlaceholder, 200),
			part:        ret(strings.Repeat("a", 199)),
			wantKeep:    true,
			wantContent: strings.Repeat("a", 199),
		},
		{
			name:        "at threshold replaced",
			editor:      NewTruncateEditor(DefaultPlaceholder, 200),
			part:        ret(strings.Repeat("a", 200)),
			wantKeep:    true,
			wantContent: DefaultPlaceholder,
		},
		{
			name:        "above threshold replaced",
			editor:      NewTruncateEditor(DefaultPlaceholder, 200),
			part:        ret(strings.Repeat("a", 250)),
			wantKeep:    true,
			wantContent: DefaultPlaceholder,
		},
		{
			name:     "empty replacement drops",
			editor:   NewTruncateEditor("", 0),
			part:     ret("anything"),
			wantKeep: false,
		},
		{
			name:        "empty replacement still respects threshold",
			editor:      NewTruncateEditor("", 200),
			part:        ret("short"),
			wantKeep:    true,
			wantContent: "short",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, keep := tt.editor(tt.part)
			if keep != tt.wantKeep {
				t.Fatalf("keep = %v, want %v", keep, tt.wantKeep)
			}
			if keep && got.Content != tt.wantContent {
				t.Errorf("Content = %q, want %q", got.Content, tt.wantContent)
			}
		})
	}
}

func TestNewTruncateEditor_PreservesIdentity(t *testing.T) {
	ts := time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)
	part := returnPart("web_search", "call-1", strings.Repeat("a", 500))
	part.Timestamp = ts

	got, keep := NewTruncateEditor(DefaultPlaceholder, 0)(part)

	if !keep {
		t.Fatal("return was dropped, want kept")
	}
	if got.ToolName != "web_search" || got.ToolCallID != "call-1" {
		t.Errorf("tool identity = %q/%q, want web_search/call-1", got.ToolName, got.ToolCallID)
	}
	if !got.Timestamp.Equal(ts) {
		t.Errorf("Timestamp = %v, want %v", got.Timestamp, ts)
	}
}

func TestNewTruncateEditor_PassesNonReturnsThrough(t *testing.T) {
	editor := NewTruncateEditor(DefaultPlaceholder, 0)

	for _, part := range []types.Part{
		callPart("web_search", "call-1"),
		retryPart("web_search", "call-1", "timeout"),
		textPart("hello"),
	} {
		got, keep := editor(part)
		if !keep {
			t.Errorf("%s was dropped, want kept", part.Type)
		}
		if !reflect.DeepEqual(got, part) {
			t.Errorf("%s was changed: %+v", part.Type, got)
		}
	}
}

func TestNewDropEditor(t *testing.T) {
	editor := NewDropEditor()

	for _, part := range []types.Part{
		callPart("fetch", "call-1"),
		returnPart("fetch", "call-1", "data"),
		retryPart("fetch", "call-1", "timeout"),
	} {
		if _, keep := editor(part); keep {
			t.Errorf("%s was kept, want dropped", part.Type)
		}
	}
}

func TestNewHeadEditor(t *testing.T) {
	tests := []struct {
		name   string
		maxLen int
		part   types.Part
		want   string
	}{
		{
			name:   "long content truncated",
			maxLen: 10,
			part:   returnPart("fetch", "call-1", "0123456789abcdefghij"),
			want:   "0123456789" + truncationMarker,
		},
		{
			name:   "short content untouched",
			maxLen: 10,
			part:   returnPart("fetch", "call-1", "short"),
			want:   "short",
		},
		{
			name:   "content at the limit untouched",
			maxLen: 10,
			part:   returnPart("fetch", "call-1", "0123456789"),
			want:   "0123456789",
		},
		{
			name:   "negative limit keeps only the marker",
			maxLen: -5,
			part:   returnPart("fetch", "call-1", "abc"),
			want:   truncationMarker,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, keep := NewHeadEditor(tt.maxLen)(tt.part)
			if !keep {
				t.Fatal("return was dropped, want kept")
			}
			if got.Content != tt.want {
				t.Errorf("Content = %q, want %q", got.Content, tt.want)
			}
		})
	}

	call := callPart("fetch", "call-1")
	got, keep := NewHeadEditor(10)(call)
	if !keep || !reflect.DeepEqual(got, call) {
		t.Error("tool call did not pass through unchanged")
	}
}

func TestNewStripHTMLEditor(t *testing.T) {
	editor := NewStripHTMLEditor()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "tags stripped",
			in:   "<p>Hello <b>world</b></p>",
			want: "Hello world",
		},
		{
			name: "links keep their text",
			in:   `<a href="https://example.com">link</a> and text`,
			want: "link and text",
		},
		{
			name: "plain text untouched",
			in:   "no markup here",
			want: "no markup here",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, keep := editor(returnPart("browse", "call-1", tt.in))
			if !keep {
				t.Fatal("return was dropped, want kept")
			}
			if got.Content != tt.want {
				t.Errorf("Content = %q, want %q", got.Content, tt.want)
			}
		})
	}

	call := callPart("browse", "call-1")
	got, keep := editor(call)
	if !keep || !reflect.DeepEqual(got, call) {
		t.Error("tool call did not pass through unchanged")
	}
}

func TestNewFlattenMarkdownEditor(t *testing.T) {
	editor := NewFlattenMarkdownEditor()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "heading and emphasis flattened",
			in:   "# Title\n\nSome *emphasis* here.",
			want: "Title\nSome emphasis here.",
		},
		{
			name: "links keep their text",
			in:   "click [here](https://example.com) now",
			want: "click here now",
		},
		{
			name: "fenced code kept verbatim",
			in:   "```go\nfmt.Println(1)\n```",
			want: "fmt.Println(1)",
		},
		{
			name: "list items one per line",
			in:   "Results:\n\n- alpha\n- beta",
			want: "Results:\nalpha\nbeta",
		},
		{
			name: "plain text untouched",
			in:   "just words",
			want: "just words",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, keep := editor(returnPart("docs", "call-1", tt.in))
			if !keep {
				t.Fatal("return was dropped, want kept")
			}
			if got.Content != tt.want {
				t.Errorf("Content = %q, want %q", got.Content, tt.want)
			}
		})
	}
}
