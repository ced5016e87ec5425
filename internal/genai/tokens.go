package genai

import (
	"sync"

	"github.com/tiktoken-go/tokenizer"
)

// TokenCounter estimates prompt sizes using tiktoken encodings so transcript
// history can be truncated to a token budget rather than a message count.
type TokenCounter struct {
	model string

	mu    sync.Mutex
	codec tokenizer.Codec
}

// NewTokenCounter creates a counter for the given model name.
func NewTokenCounter(model string) *TokenCounter {
	return &TokenCounter{model: model}
}

func (c *TokenCounter) getCodec() tokenizer.Codec {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.codec != nil {
		return c.codec
	}
	codec, err := tokenizer.ForModel(tokenizer.Model(c.model))
	if err != nil {
		// Unknown models fall back to the current default encoding.
		codec, err = tokenizer.Get(tokenizer.O200kBase)
		if err != nil {
			return nil
		}
	}
	c.codec = codec
	return c.codec
}

// Count returns the token count for text. When no codec is available it
// falls back to a bytes/4 estimate, which overcounts slightly for English.
func (c *TokenCounter) Count(text string) int {
	if codec := c.getCodec(); codec != nil {
		if ids, _, err := codec.Encode(text); err == nil {
			return len(ids)
		}
	}
	return (len(text) + 3) / 4
}

// CountMessages returns the combined token count of a message slice,
// including a small per-message framing overhead.
func (c *TokenCounter) CountMessages(msgs []Message) int {
	const perMessageOverhead = 4
	total := 0
	for _, m := range msgs {
		total += c.Count(m.Content) + c.Count(m.Role) + perMessageOverhead
	}
	return total
}

// TruncateMessages drops the oldest messages until the slice fits budget
// tokens. The newest message is always kept.
func (c *TokenCounter) TruncateMessages(msgs []Message, budget int) []Message {
	if budget <= 0 || len(msgs) <= 1 {
		return msgs
	}
	for len(msgs) > 1 && c.CountMessages(msgs) > budget {
		msgs = msgs[1:]
	}
	return msgs
}
