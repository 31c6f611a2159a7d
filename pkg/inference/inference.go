// Package inference holds the output model shared by the inference
// engines in its subpackages.
package inference

import (
	"strings"
	"unicode/utf8"
)

type Mode uint8

const (
	SmallTalk Mode = iota
	Answer
	Summary
	Coaching
)

func (m Mode) String() string {
	switch m {
	case SmallTalk:
		return "small_talk"
	case Answer:
		return "answer"
	case Summary:
		return "summary"
	case Coaching:
		return "coaching"
	default:
		return "unknown"
	}
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

type Output struct {
	Text   string `json:"text"`
	Tokens int    `json:"tokens"`
	Mode   Mode   `json:"mode"`
}

// EstimateTokens counts whitespace separated words in input and output.
func EstimateTokens(input, output string) int {
	return len(strings.Fields(input)) + len(strings.Fields(output))
}

// Truncate cuts text to at most maxChars runes and marks the cut with an
// ellipsis. A non-positive maxChars disables the limit.
func Truncate(text string, maxChars int) string {
	if maxChars <= 0 || utf8.RuneCountInString(text) <= maxChars {
		return text
	}

	return string([]rune(text)[:maxChars]) + "…"
}
