package conv

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMarkdownToTelegramHTML(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "empty input", input: "", expected: ""},
		{name: "plain reply", input: "Try the Sonic headphones.", expected: "Try the Sonic headphones.\n"},
		{name: "bold product", input: "**Sonic Headphones**", expected: "<strong>Sonic Headphones</strong>\n"},
		{name: "italic note", input: "*in stock*", expected: "<em>in stock</em>\n"},
		{name: "strikethrough price", input: "~~old price~~", expected: "<del>old price</del>\n"},
		{name: "inline code", input: "`/reset`", expected: "<code>/reset</code>\n"},
		{name: "product link", input: "[details](https://example.com)", expected: "<a href=\"https://example.com\">details</a>\n"},
		{name: "headers flattened", input: "# Picks", expected: "Picks\n"},
		{name: "script removed", input: "<script>alert('xss')</script>", expected: "\n"},
		{
			name:     "mixed",
			input:    "**Bold** and *italic* with `code`",
			expected: "<strong>Bold</strong> and <em>italic</em> with <code>code</code>\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, MarkdownToTelegramHTML([]byte(tt.input)))
		})
	}
}

func TestSplitMessage(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		maxLen int
		want   []string
	}{
		{name: "fits", input: "short", maxLen: 10, want: []string{"short"}},
		{name: "no limit", input: "short", maxLen: 0, want: []string{"short"}},
		{name: "hard cut", input: "abcdefghij", maxLen: 4, want: []string{"abcd", "efgh", "ij"}},
		{name: "newline cut", input: "line one\nline two", maxLen: 12, want: []string{"line one", "line two"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitMessage(tt.input, tt.maxLen))
		})
	}

	long := strings.Repeat("word ", 2000)
	for _, chunk := range SplitMessage(long, 4000) {
		assert.LessOrEqual(t, len(chunk), 4000)
	}
}
