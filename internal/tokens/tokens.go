// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package tokens counts and truncates text by token using the
// cl100k_base encoding. When the encoding cannot be initialized (the
// tiktoken data may be unavailable offline) the package degrades to a
// character-based estimate of four characters per token.
package tokens

import (
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

const encodingName = "cl100k_base"

// estimateCharsPerToken is the fallback ratio when no encoder is available.
const estimateCharsPerToken = 4

var (
	once    sync.Once
	enc     *tiktoken.Tiktoken
	initErr error
)

func encoder() *tiktoken.Tiktoken {
	once.Do(func() {
		enc, initErr = tiktoken.GetEncoding(encodingName)
	})
	if initErr != nil {
		return nil
	}
	return enc
}

// Count returns the number of tokens in text.
func Count(text string) int {
	if text == "" {
		return 0
	}
	e := encoder()
	if e == nil {
		return estimateCount(text)
	}
	return len(e.Encode(text, nil, nil))
}

// Truncate returns a prefix of text that is at most max tokens long.
// A max of zero or less yields the empty string. Truncation is
// deterministic for identical input.
func Truncate(text string, max int) string {
	if max <= 0 {
		return ""
	}
	e := encoder()
	if e == nil {
		return estimateTruncate(text, max)
	}
	ids := e.Encode(text, nil, nil)
	if len(ids) <= max {
		return text
	}
	return e.Decode(ids[:max])
}

func estimateCount(text string) int {
	n := (len(text) + estimateCharsPerToken - 1) / estimateCharsPerToken
	if n == 0 && text != "" {
		n = 1
	}
	return n
}

func estimateTruncate(text string, max int) string {
	limit := max * estimateCharsPerToken
	if len(text) <= limit {
		return text
	}
	// Cut on a rune boundary.
	cut := text[:limit]
	for len(cut) > 0 && !utf8.ValidString(cut) {
		cut = cut[:len(cut)-1]
	}
	return cut
}
