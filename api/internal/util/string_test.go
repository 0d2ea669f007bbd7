package util

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func TestStripCodeFences(t *testing.T) {
	const inner = `{"hints": ["a", "b", "c"]}`

	cases := []struct {
		name string
		in   string
		want string
	}{
		{"no fence", inner, inner},
		{"json fence", "```json\n" + inner + "\n```", inner},
		{"bare fence", "```\n" + inner + "\n```", inner},
		{"trailing newline", "```json\n" + inner + "\n```\n", inner},
		{"crlf", "```json\r\n" + inner + "\r\n```\r\n", inner},
		{"upper tag", "```JSON\n" + inner + "\n```", inner},
		{"surrounding space", "  \n```json\n" + inner + "\n```  ", inner},
		{"single line", "```" + inner + "```", inner},
		{"double wrapped", "```\n```json\n" + inner + "\n```\n```", inner},
		{"empty", "", ""},
		{"only fences", "```json\n```", ""},
		{"plain text", "no json here", "no json here"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, StripCodeFences(tc.in))
		})
	}
}

func TestStripCodeFencesKeepsInnerBackticks(t *testing.T) {
	in := "```json\n{\"hints\": [\"use ``` carefully\"]}\n```"
	assert.Equal(t, "{\"hints\": [\"use ``` carefully\"]}", StripCodeFences(in))
}

func TestStripCodeFencesProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("stripping is idempotent", prop.ForAll(
		func(s string) bool {
			once := StripCodeFences(s)
			return StripCodeFences(once) == once
		},
		gen.AnyString(),
	))

	properties.Property("fenced and unfenced inputs agree", prop.ForAll(
		func(words []string) bool {
			inner := `{"hints": ["` + strings.Join(words, `", "`) + `"]}`
			plain := StripCodeFences(inner)
			return plain == inner &&
				StripCodeFences("```json\n"+inner+"\n```") == plain &&
				StripCodeFences("```\n"+inner+"\n```") == plain
		},
		gen.SliceOf(gen.AlphaString()),
	))

	properties.TestingRun(t)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 5))
	assert.Equal(t, "ab...", Truncate("abcdef", 2))
}
