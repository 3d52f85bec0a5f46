package sentence

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/neurosnap/sentences"
	"github.com/neurosnap/sentences/english"
)

// BoundaryModel detects sentence boundaries in a run of prose. One model
// instance is constructed per worker and passed explicitly into the
// splitter; models are not shared across workers.
type BoundaryModel interface {
	Sentences(text string) ([]string, error)
}

// PunktModel wraps the trained English punkt sentence tokenizer.
type PunktModel struct {
	tok *sentences.DefaultSentenceTokenizer
}

// NewPunktModel loads the embedded English training data. Loading is the
// expensive step, so construct once per worker and reuse.
func NewPunktModel() (*PunktModel, error) {
	tok, err := english.NewSentenceTokenizer(nil)
	if err != nil {
		return nil, fmt.Errorf("load sentence model: %w", err)
	}
	return &PunktModel{tok: tok}, nil
}

// Sentences returns the trimmed, non-empty sentences of text in order.
func (m *PunktModel) Sentences(text string) ([]string, error) {
	raw := m.tok.Tokenize(text)
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if t := strings.TrimSpace(s.Text); t != "" {
			out = append(out, t)
		}
	}
	return out, nil
}

const (
	defaultMaxInput = 1_000_000
	retryAttempts   = 3
	retryDelay      = 500 * time.Millisecond
)

// Splitter applies a boundary model with an input-size guard and bounded
// retry. The guard exists because the model has a maximum input length; it
// must not change boundaries the model would produce on a single pass,
// except at window seams (accepted limitation).
type Splitter struct {
	model    BoundaryModel
	maxInput int
	attempts int
	delay    time.Duration
	log      *slog.Logger
}

// NewSplitter wraps model with a window guard of maxInput bytes.
func NewSplitter(model BoundaryModel, maxInput int, log *slog.Logger) *Splitter {
	if maxInput <= 0 {
		maxInput = defaultMaxInput
	}
	return &Splitter{
		model:    model,
		maxInput: maxInput,
		attempts: retryAttempts,
		delay:    retryDelay,
		log:      log,
	}
}

// Split returns the ordered sentences of text. Inputs longer than the model
// maximum are pre-divided into windows, each window boundary backed off to
// the nearest preceding whitespace so no word is cut; windows are segmented
// independently and results concatenated in order.
func (s *Splitter) Split(text string) []string {
	var out []string
	for start := 0; start < len(text); {
		end := start + s.maxInput
		if end >= len(text) {
			end = len(text)
		} else {
			if i := strings.LastIndexFunc(text[start:end], unicode.IsSpace); i > 0 {
				end = start + i
			}
			// Never cut inside a UTF-8 sequence.
			for end > start && !utf8.RuneStart(text[end]) {
				end--
			}
			if end == start {
				end = start + s.maxInput
				if end > len(text) {
					end = len(text)
				}
			}
		}
		out = append(out, s.splitWindow(text[start:end])...)
		start = end
	}
	return out
}

// splitWindow runs the boundary model on one window with bounded retry and
// a fixed delay between attempts. On exhaustion the window is emitted as a
// single unsegmented unit: degraded, never dropped.
func (s *Splitter) splitWindow(window string) []string {
	trimmed := strings.TrimSpace(window)
	if trimmed == "" {
		return nil
	}
	var lastErr error
	for attempt := 1; attempt <= s.attempts; attempt++ {
		sents, err := s.model.Sentences(trimmed)
		if err == nil {
			return sents
		}
		lastErr = err
		s.log.Warn("sentence model failed on window", "attempt", attempt, "err", err)
		if attempt < s.attempts {
			time.Sleep(s.delay)
		}
	}
	s.log.Error("sentence model retries exhausted; emitting window unsegmented", "bytes", len(trimmed), "err", lastErr)
	return []string{trimmed}
}
