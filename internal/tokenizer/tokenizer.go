// Package tokenizer provides deterministic token accounting under the
// cl100k_base encoding. Counts must be stable across calls and process
// restarts: the conversations table caches running totals computed here,
// and the fast-path budget check compares against them.
package tokenizer

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktokenloader "github.com/pkoukk/tiktoken-go-loader"

	"athena/internal/config"
	"athena/internal/domain/models"
)

// encodingName pins the tokenization scheme. Changing it invalidates
// every cached token_count, so treat it as part of the storage format.
const encodingName = "cl100k_base"

var (
	initOnce sync.Once
	encoding *tiktoken.Tiktoken
)

// load initializes the encoder once, using the offline BPE loader so
// counting never depends on network access.
func load() *tiktoken.Tiktoken {
	initOnce.Do(func() {
		tiktoken.SetBpeLoader(tiktokenloader.NewOfflineLoader())
		enc, err := tiktoken.GetEncoding(encodingName)
		if err != nil {
			// The encoding is embedded in the binary; failure to load
			// it is a build defect, not a runtime condition.
			panic(fmt.Sprintf("tokenizer: load %s: %v", encodingName, err))
		}
		encoding = enc
	})
	return encoding
}

// CountText returns the subword-token count of a string.
func CountText(text string) int {
	if text == "" {
		return 0
	}
	return len(load().Encode(text, nil, nil))
}

// CountMessages returns the token cost of a message list: content
// tokens plus config.MessageOverheadTokens per message for role and
// formatting framing.
func CountMessages(messages []models.PromptMessage) int {
	total := 0
	for i := range messages {
		total += CountText(messages[i].Content)
		total += config.MessageOverheadTokens
	}
	return total
}

// Encode exposes raw token ids for window-based chunking.
func Encode(text string) []int {
	return load().Encode(text, nil, nil)
}

// Decode converts token ids back to text.
func Decode(tokens []int) string {
	return load().Decode(tokens)
}
