package openai

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

const fallbackEncoding = "cl100k_base"

// TokenSize counts tokens with the model's encoding, or cl100k_base for
// models tiktoken does not know.
func (a *Adapter) TokenSize(content string) (int, error) {
	enc, err := tiktoken.EncodingForModel(a.model)
	if err != nil {
		enc, err = tiktoken.GetEncoding(fallbackEncoding)
		if err != nil {
			return 0, fmt.Errorf("load encoding: %w", err)
		}
	}
	return len(enc.Encode(content, nil, nil)), nil
}
