// Package policy classifies an input and model output pair before the
// output is delivered to the user.
package policy

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"regexp"
	"strings"
	"sync"

	pkgerrors "github.com/absmach/cortex/pkg/errors"
	"github.com/absmach/cortex/pkg/inference"
)

const strictMaxOutput = 10_000

var cardNumber = regexp.MustCompile(`\b(?:\d[ -]*?){13,16}\b`)

// Rules are the keyword sets matched case-insensitively against both the
// input and the output.
type Rules struct {
	SelfHarm []string `json:"self_harm"`
	Crime    []string `json:"crime"`
}

func DefaultRules() Rules {
	return Rules{
		SelfHarm: []string{"kill myself", "end my life", "want to die", "hurt myself"},
		Crime:    []string{"ddos", "sql injection", "how to hack", "0day exploit", "zero-day", "ransomware"},
	}
}

type Option func(*Policy)

func WithRules(r Rules) Option {
	return func(p *Policy) {
		p.rules = normalize(r)
	}
}

// WithRulesFile names a JSON encoded Rules file read by ApplyRules.
func WithRulesFile(path string) Option {
	return func(p *Policy) {
		p.rulesFile = path
	}
}

type Policy struct {
	mu        sync.RWMutex
	strict    bool
	rules     Rules
	rulesFile string
}

func New(strict bool, opts ...Option) *Policy {
	p := &Policy{
		strict: strict,
		rules:  normalize(DefaultRules()),
	}
	for _, opt := range opts {
		opt(p)
	}

	return p
}

func (p *Policy) Evaluate(input string, out inference.Output) Decision {
	if strings.TrimSpace(out.Text) == "" {
		return Decision{Kind: Refuse, Reason: "empty or invalid output"}
	}

	p.mu.RLock()
	rules := p.rules
	p.mu.RUnlock()

	lowerIn, lowerOut := strings.ToLower(input), strings.ToLower(out.Text)
	if containsAny(lowerIn, lowerOut, rules.SelfHarm) {
		return Decision{Kind: SafeRespond, Reason: "self-harm content detected"}
	}
	if containsAny(lowerIn, lowerOut, rules.Crime) {
		return Decision{Kind: Refuse, Reason: "hacking or criminal content detected"}
	}
	if cardNumber.MatchString(input) || cardNumber.MatchString(out.Text) {
		return Decision{Kind: SafeRespond, Reason: "possible sensitive data detected"}
	}
	if p.strict && len(out.Text) > strictMaxOutput {
		return Decision{Kind: SafeRespond, Reason: "output too long in strict mode"}
	}

	return Decision{Kind: Allow, Reason: "no violation detected"}
}

// ApplyRules reloads the keyword sets from the rules file, if one is
// configured. The active rules are kept when the file cannot be used.
func (p *Policy) ApplyRules(ctx context.Context) error {
	if p.rulesFile == "" {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := os.ReadFile(p.rulesFile)
	if err != nil {
		return errors.Join(errors.New("failed to read policy rules"), err)
	}

	var r Rules
	if err := json.Unmarshal(data, &r); err != nil {
		return errors.Join(pkgerrors.ErrInvalidData, err)
	}
	if len(r.SelfHarm) == 0 && len(r.Crime) == 0 {
		return errors.Join(pkgerrors.ErrInvalidData, errors.New("policy rules are empty"))
	}

	p.mu.Lock()
	p.rules = normalize(r)
	p.mu.Unlock()

	return nil
}

func (p *Policy) Rules() Rules {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.rules
}

func (p *Policy) Strict() bool {
	return p.strict
}

// Render produces the text delivered to the user for a decision.
func Render(d Decision, out inference.Output) string {
	switch d.Kind {
	case Allow:
		return out.Text
	case SafeRespond:
		return "I cannot answer this directly. If you are going through a difficult moment, " +
			"please reach out to someone you trust or to a local support line."
	default:
		return "I cannot help with this request."
	}
}

func containsAny(input, output string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(input, kw) || strings.Contains(output, kw) {
			return true
		}
	}

	return false
}

func normalize(r Rules) Rules {
	lower := func(in []string) []string {
		out := make([]string, 0, len(in))
		for _, s := range in {
			if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
				out = append(out, s)
			}
		}

		return out
	}

	return Rules{SelfHarm: lower(r.SelfHarm), Crime: lower(r.Crime)}
}
