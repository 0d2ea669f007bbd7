package hints

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"cf-hints/api/internal/prompt"
	"cf-hints/api/internal/util"
)

// HintSet is ordered from least to most revealing. Empty means unavailable.
type HintSet []string

type Stage string

const (
	StageGenerate Stage = "generate"
	StageEvaluate Stage = "evaluate"
)

type Status string

const (
	StatusOK         Status = "ok"
	StatusNoHints    Status = "no_hints"
	StatusLLMError   Status = "llm_error"
	StatusParseError Status = "parse_error"
	StatusSkipped    Status = "skipped"
)

// Outcome records how a stage ended. Err is nil for ok and skipped.
type Outcome struct {
	Status Status
	Err    error
}

func (o Outcome) OK() bool { return o.Status == StatusOK }

// JSONParseError is returned when model output is not the expected JSON envelope.
type JSONParseError struct {
	Stage Stage
	Raw   string
	Err   error
}

func (e *JSONParseError) Error() string {
	return fmt.Sprintf("%s: model output is not a hints envelope: %v (output: %q)", e.Stage, e.Err, util.Truncate(e.Raw, 200))
}

func (e *JSONParseError) Unwrap() error { return e.Err }

const schemaURL = "https://cf-hints.local/schemas/hints.schema.json"

var envelopeSchema = compileEnvelope()

func compileEnvelope() *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft7
	if err := c.AddResource(schemaURL, strings.NewReader(prompt.HintsSchema)); err != nil {
		panic(fmt.Sprintf("hints schema load failed: %v", err))
	}
	s, err := c.Compile(schemaURL)
	if err != nil {
		panic(fmt.Sprintf("hints schema compile failed: %v", err))
	}
	return s
}

// decodeEnvelope parses {"hints": [...]}. present is false when the field is absent.
func decodeEnvelope(stage Stage, raw string) (hints HintSet, present bool, err error) {
	var doc any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, false, &JSONParseError{Stage: stage, Raw: raw, Err: err}
	}
	if err := envelopeSchema.Validate(doc); err != nil {
		return nil, false, &JSONParseError{Stage: stage, Raw: raw, Err: err}
	}
	items, ok := doc.(map[string]any)["hints"].([]any)
	if !ok {
		return nil, false, nil
	}
	hints = make(HintSet, 0, len(items))
	for _, it := range items {
		hints = append(hints, it.(string))
	}
	return hints, true, nil
}
