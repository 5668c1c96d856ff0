package compaction

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gmtext "github.com/yuin/goldmark/text"

	"github.com/youssefsiam38/historypg/types"
)

const (
	// DefaultPlaceholder replaces the content of pruned tool returns.
	DefaultPlaceholder = "[TOOL OUTPUT PRUNED]"

	// truncationMarker is appended to return content shortened by NewHeadEditor.
	truncationMarker = "... [output truncated]"
)

// NewTruncateEditor returns an editor that replaces the content of expired
// tool returns with the given placeholder. The return keeps its tool name,
// call id, and timestamp. Calls and retry prompts pass through unchanged.
//
// A threshold above zero limits the edit to returns whose content is at
// least threshold bytes long; zero or below replaces every return. An empty
// replacement requests dropping the return instead of rewriting it.
func NewTruncateEditor(replacement string, threshold int) EditFunc {
	return func(part types.Part) (types.Part, bool) {
		if part.Type != types.PartTypeToolReturn {
			return part, true
		}
		if threshold > 0 && len(part.Content) < threshold {
			return part, true
		}
		if replacement == "" {
			return types.Part{}, false
		}
		part.Content = replacement
		return part, true
	}
}

// NewDropEditor returns an editor that drops every expired tool part, calls
// and retry prompts included.
func NewDropEditor() EditFunc {
	return func(types.Part) (types.Part, bool) {
		return types.Part{}, false
	}
}

// NewHeadEditor returns an editor that keeps the first maxLen bytes of an
// expired return's content and appends a truncation marker. Returns already
// within maxLen, and parts other than returns, pass through unchanged.
func NewHeadEditor(maxLen int) EditFunc {
	if maxLen < 0 {
		maxLen = 0
	}
	return func(part types.Part) (types.Part, bool) {
		if part.Type != types.PartTypeToolReturn || len(part.Content) <= maxLen {
			return part, true
		}
		part.Content = part.Content[:maxLen] + truncationMarker
		return part, true
	}
}

// NewStripHTMLEditor returns an editor that strips all HTML markup from an
// expired return's content, keeping only the text. Typical for tools that
// fetch web pages: the markup stops earning its bytes once the exchange is
// old. Parts other than returns pass through unchanged.
func NewStripHTMLEditor() EditFunc {
	policy := bluemonday.StrictPolicy()
	return func(part types.Part) (types.Part, bool) {
		if part.Type != types.PartTypeToolReturn {
			return part, true
		}
		part.Content = strings.TrimSpace(policy.Sanitize(part.Content))
		return part, true
	}
}

// NewFlattenMarkdownEditor returns an editor that rewrites an expired
// return's Markdown content as plain text, discarding formatting but keeping
// text and code. Parts other than returns pass through unchanged.
func NewFlattenMarkdownEditor() EditFunc {
	md := goldmark.New()
	return func(part types.Part) (types.Part, bool) {
		if part.Type != types.PartTypeToolReturn {
			return part, true
		}
		part.Content = flattenMarkdown(md, part.Content)
		return part, true
	}
}

// flattenMarkdown extracts the text and code content of a Markdown document,
// one block per line.
func flattenMarkdown(md goldmark.Markdown, src string) string {
	source := []byte(src)
	root := md.Parser().Parse(gmtext.NewReader(source))

	var b strings.Builder
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if n.Type() == ast.TypeBlock && b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
				b.WriteByte('\n')
			}
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.Text:
			b.Write(node.Segment.Value(source))
			if node.SoftLineBreak() || node.HardLineBreak() {
				b.WriteByte('\n')
			}
		case *ast.FencedCodeBlock:
			writeCodeLines(&b, node.Lines(), source)
			return ast.WalkSkipChildren, nil
		case *ast.CodeBlock:
			writeCodeLines(&b, node.Lines(), source)
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	return strings.TrimSpace(b.String())
}

func writeCodeLines(b *strings.Builder, lines *gmtext.Segments, source []byte) {
	for i := 0; i < lines.Len(); i++ {
		b.Write(lines.At(i).Value(source))
	}
}
