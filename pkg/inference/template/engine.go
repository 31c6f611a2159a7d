// Package template implements a deterministic, rule based reply engine.
// It needs no model weights and is the default engine of a node.
package template

import (
	"context"
	"fmt"
	"strings"

	"github.com/absmach/cortex/pkg/inference"
)

const (
	longInputChars = 400
	longInputLines = 5
)

var questionPrefixes = []string{"how ", "what ", "why ", "when ", "where ", "who ", "which ", "can ", "should "}

type Config struct {
	MaxOutputChars int    `env:"MAX_OUTPUT_CHARS" envDefault:"2000"  toml:"max_output_chars" yaml:"max_output_chars"`
	MaxBullets     int    `env:"MAX_BULLETS"      envDefault:"5"     toml:"max_bullets"      yaml:"max_bullets"`
	AssistantName  string `env:"ASSISTANT_NAME"   envDefault:"Cortex" toml:"assistant_name"   yaml:"assistant_name"`
}

func DefaultConfig() Config {
	return Config{
		MaxOutputChars: 2000,
		MaxBullets:     5,
		AssistantName:  "Cortex",
	}
}

type Engine struct {
	config Config
}

func New(cfg Config) *Engine {
	return &Engine{config: cfg}
}

func (e *Engine) Config() Config {
	return e.config
}

func (e *Engine) Infer(ctx context.Context, input string) (inference.Output, error) {
	if err := ctx.Err(); err != nil {
		return inference.Output{}, err
	}

	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		text := e.welcome()

		return inference.Output{Text: text, Tokens: inference.EstimateTokens("", text), Mode: inference.SmallTalk}, nil
	}

	var text string
	var mode inference.Mode
	switch {
	case len(trimmed) > longInputChars || strings.Count(trimmed, "\n")+1 > longInputLines:
		text, mode = e.summary(trimmed), inference.Summary
	case isQuestion(trimmed):
		text, mode = answer(trimmed), inference.Answer
	default:
		text, mode = coaching(trimmed), inference.Coaching
	}
	text = inference.Truncate(text, e.config.MaxOutputChars)

	return inference.Output{Text: text, Tokens: inference.EstimateTokens(trimmed, text), Mode: mode}, nil
}

func (e *Engine) welcome() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi, I am %s.\n", e.config.AssistantName)
	b.WriteString("Paste a text, ask a question or describe a situation.\n")
	b.WriteString("I will summarise the key points and suggest a few concrete steps.\n")

	return b.String()
}

func isQuestion(input string) bool {
	if strings.HasSuffix(input, "?") {
		return true
	}
	lower := strings.ToLower(input)
	for _, p := range questionPrefixes {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}

	return false
}

func answer(input string) string {
	var b strings.Builder
	b.WriteString("You are asking:\n")
	fmt.Fprintf(&b, "%q\n\n", input)
	b.WriteString("Let us structure the reasoning:\n\n")
	b.WriteString("1. State the final goal you want to reach.\n")
	b.WriteString("2. Identify the information you are really missing.\n")
	b.WriteString("3. List two or three small actions you can take today.\n\n")
	b.WriteString("Add some context and the next steps can be more concrete.")

	return b.String()
}

func coaching(input string) string {
	var b strings.Builder
	b.WriteString("I read what you wrote:\n")
	fmt.Fprintf(&b, "%q\n\n", input)
	b.WriteString("Tell me what result you expect or what blocks you the most, ")
	b.WriteString("and I will suggest something to try right away.")

	return b.String()
}

func (e *Engine) summary(input string) string {
	var b strings.Builder
	b.WriteString("Here are the key points of your message:\n\n")

	bullets := bullets(sentences(input), e.config.MaxBullets)
	if len(bullets) == 0 {
		b.WriteString("- No clear points could be extracted.\n")
	}
	for i, s := range bullets {
		fmt.Fprintf(&b, "%d. %s\n", i+1, s)
	}

	b.WriteString("\nPick the point that weighs the most and rewrite it in one or two sentences.")

	return b.String()
}

func sentences(text string) []string {
	var out []string
	start := 0
	for i, r := range text {
		if r == '.' || r == '!' || r == '?' {
			if s := strings.TrimSpace(text[start : i+1]); s != "" {
				out = append(out, s)
			}
			start = i + 1
		}
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		out = append(out, s)
	}

	return out
}

func bullets(sentences []string, limit int) []string {
	var out []string
	for _, s := range sentences {
		if len(out) >= limit {
			break
		}
		if cleaned := strings.TrimSpace(strings.Trim(strings.TrimSpace(s), "-")); cleaned != "" {
			out = append(out, cleaned)
		}
	}

	return out
}
