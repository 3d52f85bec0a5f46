package chunker

import (
	"log/slog"
	"strings"

	"chunkpipe/internal/segment"
)

// Codec is the token coder shared across the pipeline. Implemented by
// tokenizer.Codec; tests substitute a deterministic fake.
type Codec interface {
	Count(text string) (int, error)
	Encode(text string) ([]int, error)
	Decode(ids []int) string
}

// UnitKind classifies a packable unit.
type UnitKind string

const (
	UnitSentence UnitKind = "sentence"
	UnitVerbatim UnitKind = "verbatim"
)

// Unit is the smallest packable element: one sentence or one verbatim span.
// A unit is never split across chunks.
type Unit struct {
	Kind UnitKind
	Text string
}

// Chunk is a token-bounded run of units plus optional leading overlap text
// carried over from the previous chunk.
type Chunk struct {
	Index      int
	Text       string
	TokenCount int
}

// Options bounds assembly. MaxTokens is a hard budget per chunk, exceeded
// only when a single unit alone is larger than it. Overlap is the number of
// trailing tokens from each chunk repeated at the start of the next.
type Options struct {
	MaxTokens int
	Overlap   int
}

// Units interleaves verbatim spans and prose sentences in document order.
// Prose spans are split by the given sentence splitter; verbatim spans pass
// through whole.
func Units(spans []segment.Span, split func(string) []string) []Unit {
	var units []Unit
	for _, sp := range spans {
		if sp.Kind == segment.Verbatim {
			units = append(units, Unit{Kind: UnitVerbatim, Text: sp.Text})
			continue
		}
		for _, s := range split(sp.Text) {
			units = append(units, Unit{Kind: UnitSentence, Text: s})
		}
	}
	return units
}

// Assembler greedily packs units into chunks. It is a pure function of the
// unit stream and options: identical input yields byte-identical chunks.
type Assembler struct {
	codec Codec
	opts  Options
	log   *slog.Logger
}

func NewAssembler(codec Codec, opts Options, log *slog.Logger) *Assembler {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 3000
	}
	if opts.Overlap < 0 {
		opts.Overlap = 0
	}
	if opts.Overlap >= opts.MaxTokens {
		opts.Overlap = opts.MaxTokens - 1
	}
	return &Assembler{codec: codec, opts: opts, log: log}
}

// Assemble folds the unit stream into chunks. The accumulator carries the
// current chunk text, its running token total, and the overlap text seeded
// from the last flush. A unit that does not fit flushes the current chunk
// first; a unit that alone exceeds the budget is still appended whole after
// the flush, so one oversized unit may legitimately push a chunk past
// MaxTokens.
func (a *Assembler) Assemble(units []Unit) []Chunk {
	var chunks []Chunk
	currentText := ""
	currentTokens := 0

	flush := func() {
		text := strings.TrimSpace(currentText)
		if text == "" {
			currentText, currentTokens = "", 0
			return
		}
		count, err := a.codec.Count(text)
		if err != nil {
			a.log.Warn("failed to count flushed chunk; recording zero tokens", "err", err)
		}
		chunks = append(chunks, Chunk{Index: len(chunks), Text: text, TokenCount: count})

		overlap := a.overlapText(text)
		currentText = overlap
		currentTokens = a.countOrZero(overlap)
	}

	for _, u := range units {
		// Sentences get a single separating space; verbatim spans carry no
		// extra whitespace beyond their own content. The separator is part
		// of the counted piece so the budget is exact.
		piece := separator(u, currentText) + u.Text
		n := a.countOrZero(piece)
		if currentTokens+n > a.opts.MaxTokens && currentText != "" {
			flush()
			piece = separator(u, currentText) + u.Text
			n = a.countOrZero(piece)
		}
		currentText += piece
		currentTokens += n
	}
	if strings.TrimSpace(currentText) != "" {
		flush()
	}
	return chunks
}

func separator(u Unit, currentText string) string {
	if u.Kind == UnitVerbatim || currentText == "" {
		return ""
	}
	return " "
}

// overlapText encodes the just-flushed chunk, takes its trailing Overlap
// token ids, and decodes them back to text. The result is a strict suffix of
// the flushed chunk by token sequence.
func (a *Assembler) overlapText(flushed string) string {
	if a.opts.Overlap <= 0 {
		return ""
	}
	ids, err := a.codec.Encode(flushed)
	if err != nil {
		a.log.Warn("failed to encode chunk for overlap; carrying none", "err", err)
		return ""
	}
	k := a.opts.Overlap
	if k > len(ids) {
		k = len(ids)
	}
	if k == 0 {
		return ""
	}
	return a.codec.Decode(ids[len(ids)-k:])
}

func (a *Assembler) countOrZero(text string) int {
	n, err := a.codec.Count(text)
	if err != nil {
		a.log.Warn("failed to encode unit; counting zero tokens, text kept", "err", err)
		return 0
	}
	return n
}
