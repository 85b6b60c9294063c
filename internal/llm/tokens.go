package llm

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

const fallbackEncoding = "cl100k_base"

var encoders sync.Map // model name -> *tiktoken.Tiktoken

// EstimateTokens counts tokens of text with the model's encoding, or
// cl100k_base for models tiktoken does not know. When no encoding can be
// loaded it returns a rough len/4 estimate.
func EstimateTokens(model, text string) int {
	if text == "" {
		return 0
	}
	if enc := encoderFor(model); enc != nil {
		return len(enc.Encode(text, nil, nil))
	}
	return (len(text) + 3) / 4
}

func encoderFor(model string) *tiktoken.Tiktoken {
	if v, ok := encoders.Load(model); ok {
		return v.(*tiktoken.Tiktoken)
	}
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding(fallbackEncoding)
		if err != nil {
			return nil
		}
	}
	encoders.Store(model, enc)
	return enc
}

// estimateUsage fills usage from the prompt and completion text.
func estimateUsage(model, prompt, completion string) Usage {
	p := EstimateTokens(model, prompt)
	c := EstimateTokens(model, completion)
	return Usage{PromptTokens: p, CompletionTokens: c, TotalTokens: p + c, Estimated: true}
}
