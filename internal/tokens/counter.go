// Package tokens fills in token usage for exchanges whose backend did not
// report counts.
//
// Neither Ollama's local models nor the open-weight models served by Groq
// publish their tokenizers, so counts produced here are approximations based
// on the cl100k_base encoding and are marked Estimated.
package tokens

import (
	"sync"

	"github.com/tiktoken-go/tokenizer"

	"github.com/tjfontaine/polyglot-chatbot/internal/domain"
)

// Counter counts tokens with a tiktoken codec, falling back to a
// characters-per-token estimate when the codec cannot be loaded.
type Counter struct {
	encoding tokenizer.Encoding

	once     sync.Once
	codec    tokenizer.Codec
	codecErr error

	// CharsPerToken is the average characters per token used by the fallback (default: 4)
	CharsPerToken float64
}

// NewCounter creates a Counter using the cl100k_base encoding.
func NewCounter() *Counter {
	return &Counter{
		encoding:      tokenizer.Cl100kBase,
		CharsPerToken: 4.0,
	}
}

func (c *Counter) getCodec() (tokenizer.Codec, error) {
	c.once.Do(func() {
		c.codec, c.codecErr = tokenizer.Get(c.encoding)
	})
	return c.codec, c.codecErr
}

// CountText returns the token count for text.
func (c *Counter) CountText(text string) int {
	if text == "" {
		return 0
	}
	codec, err := c.getCodec()
	if err == nil {
		if ids, _, err := codec.Encode(text); err == nil {
			return len(ids)
		}
	}
	return c.estimate(text)
}

func (c *Counter) estimate(text string) int {
	perToken := c.CharsPerToken
	if perToken <= 0 {
		perToken = 4.0
	}
	n := int(float64(len(text)) / perToken)
	if n == 0 {
		n = 1
	}
	return n
}

// Fill returns usage with any zero count replaced by a local count of the
// corresponding text. Counts reported by the backend are kept as they are.
func (c *Counter) Fill(usage domain.Usage, prompt, response string) domain.Usage {
	if usage.PromptTokens == 0 && prompt != "" {
		usage.PromptTokens = c.CountText(prompt)
		usage.Estimated = true
	}
	if usage.CompletionTokens == 0 && response != "" {
		usage.CompletionTokens = c.CountText(response)
		usage.Estimated = true
	}
	return usage
}
