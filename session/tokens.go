package session

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter reports the token count of a text for trim budgeting.
type TokenCounter func(text string) int

// NewTiktokenCounter builds a TokenCounter over the cl100k_base encoding.
// The encoding tables are fetched on first use by the tiktoken library.
func NewTiktokenCounter() (TokenCounter, error) {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("get tokenizer: %w", err)
	}
	return func(text string) int {
		return len(enc.Encode(text, nil, nil))
	}, nil
}
