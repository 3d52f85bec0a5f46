package segment

import "strings"

// Kind classifies a span of the document.
type Kind string

const (
	// Verbatim spans are fenced regions kept intact, delimiters included.
	Verbatim Kind = "verbatim"
	// Prose spans are everything between fenced regions.
	Prose Kind = "prose"
)

// Span is a maximal contiguous region of a document. Spans never overlap,
// and concatenating all spans in order reconstructs the input exactly.
type Span struct {
	Kind  Kind
	Text  string
	Order int
}

// Split partitions text into verbatim and prose spans. Verbatim regions are
// delimited by a fence marker pair and keep their delimiters. An opening
// fence with no matching close is left as prose for the rest of the
// document; no synthetic close marker is invented. Empty prose regions
// between adjacent fences are dropped.
func Split(text, fence string) []Span {
	var spans []Span
	add := func(kind Kind, s string) {
		if s == "" {
			return
		}
		spans = append(spans, Span{Kind: kind, Text: s, Order: len(spans)})
	}

	if fence == "" {
		add(Prose, text)
		return spans
	}

	rest := text
	for {
		open := strings.Index(rest, fence)
		if open < 0 {
			break
		}
		closeRel := strings.Index(rest[open+len(fence):], fence)
		if closeRel < 0 {
			break
		}
		end := open + len(fence) + closeRel + len(fence)
		add(Prose, rest[:open])
		add(Verbatim, rest[open:end])
		rest = rest[end:]
	}
	add(Prose, rest)
	return spans
}
