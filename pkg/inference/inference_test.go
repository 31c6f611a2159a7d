package inference_test

import (
	"testing"

	"github.com/absmach/cortex/pkg/inference"
	"github.com/stretchr/testify/assert"
)

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, inference.EstimateTokens("", "  "))
	assert.Equal(t, 5, inference.EstimateTokens("how are you", "fine thanks"))
}

func TestTruncate(t *testing.T) {
	cases := []struct {
		desc     string
		text     string
		max      int
		expected string
	}{
		{desc: "short", text: "hello", max: 10, expected: "hello"},
		{desc: "exact", text: "hello", max: 5, expected: "hello"},
		{desc: "cut", text: "hello world", max: 5, expected: "hello…"},
		{desc: "multibyte", text: "perché sì", max: 6, expected: "perché…"},
		{desc: "disabled", text: "hello", max: 0, expected: "hello"},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			assert.Equal(t, tc.expected, inference.Truncate(tc.text, tc.max))
		})
	}
}

func TestModeText(t *testing.T) {
	b, err := inference.Summary.MarshalText()
	assert.NoError(t, err)
	assert.Equal(t, "summary", string(b))
	assert.Equal(t, "unknown", inference.Mode(42).String())
}
