package stage

import (
	"encoding/json"
	"strings"
)

// Outcome is the tagged result of parsing generative output: either a
// parsed value, or the raw text for the caller to wrap as a fallback
// artifact. Malformed output is never an error on this path.
type Outcome[T any] struct {
	Parsed bool
	Value  T
	Raw    string
}

// Parse extracts the first well-formed JSON object or array from
// free-form model text and decodes it into T. Markdown fences and any
// prose before or after the JSON are tolerated.
func Parse[T any](text string) Outcome[T] {
	for i := 0; i < len(text); i++ {
		if text[i] != '{' && text[i] != '[' {
			continue
		}
		dec := json.NewDecoder(strings.NewReader(text[i:]))
		var v T
		if err := dec.Decode(&v); err == nil {
			return Outcome[T]{Parsed: true, Value: v, Raw: text}
		}
	}
	return Outcome[T]{Raw: text}
}
