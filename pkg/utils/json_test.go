package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanJSONResponse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "plain json untouched",
			input: `{"name":"Acme"}`,
			want:  `{"name":"Acme"}`,
		},
		{
			name:  "json fence with language tag",
			input: "```json\n{\"name\":\"Acme\"}\n```",
			want:  `{"name":"Acme"}`,
		},
		{
			name:  "bare fence",
			input: "```\n[1,2,3]\n```",
			want:  "[1,2,3]",
		},
		{
			name:  "surrounding whitespace",
			input: "  \n```json\n{\"a\":1}\n```  \n",
			want:  `{"a":1}`,
		},
		{
			name:  "payload ending in digits survives",
			input: "```json\n{\"count\":123}\n```",
			want:  `{"count":123}`,
		},
		{
			name:  "empty input",
			input: "",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanJSONResponse(tt.input))
		})
	}
}

func TestCleanJSONResponseIdempotent(t *testing.T) {
	inputs := []string{
		"```json\n{\"name\":\"Acme\"}\n```",
		`{"name":"Acme"}`,
		"```\n[{\"score\":88}]\n```",
	}
	for _, input := range inputs {
		once := CleanJSONResponse(input)
		assert.Equal(t, once, CleanJSONResponse(once))
	}
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "hello", TruncateString("hello", 10))
	assert.Equal(t, "he…", TruncateString("hello", 2))
	assert.Equal(t, "", TruncateString("hello", 0))
	// rune-safe with multibyte input
	assert.Equal(t, "héll…", TruncateString("héllo wörld", 4))
}

func TestCollapseWhitespace(t *testing.T) {
	assert.Equal(t, "a b c", CollapseWhitespace("  a\n\tb   c "))
	assert.Equal(t, "", CollapseWhitespace("   \n\t "))
}
