package tokenizer

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// ErrInvalidEncoding reports input that is not valid UTF-8. Callers are
// expected to count such fragments as zero tokens and log the condition;
// the text itself is never dropped.
var ErrInvalidEncoding = errors.New("tokenizer: text is not valid UTF-8")

// Codec wraps one fixed BPE vocabulary. Every pipeline stage shares the same
// encoding so token counts computed at different points agree.
type Codec struct {
	encoding *tiktoken.Tiktoken
}

// New loads the named tiktoken encoding (e.g. "cl100k_base").
func New(encoding string) (*Codec, error) {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("load tokenizer %q: %w", encoding, err)
	}
	return &Codec{encoding: enc}, nil
}

// Count returns the number of tokens in text.
func (c *Codec) Count(text string) (int, error) {
	ids, err := c.Encode(text)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

// Encode maps text to its token id sequence.
func (c *Codec) Encode(text string) ([]int, error) {
	if !utf8.ValidString(text) {
		return nil, ErrInvalidEncoding
	}
	return c.encoding.Encode(text, nil, nil), nil
}

// Decode maps a token id sequence back to text.
func (c *Codec) Decode(ids []int) string {
	return c.encoding.Decode(ids)
}
