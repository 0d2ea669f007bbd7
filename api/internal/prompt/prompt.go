package prompt

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
)

const (
	Generate = "generate"
	Evaluate = "evaluate"
)

//go:embed generate.txt
var defaultGenerate string

//go:embed evaluate.txt
var defaultEvaluate string

// Input is what a prompt template can reference.
type Input struct {
	Problem  string
	Solution string
	// Hints is the current hint list rendered as a JSON array literal.
	Hints string
}

// Set holds the parsed templates for both stages.
type Set struct {
	generate *template.Template
	evaluate *template.Template
}

// Default returns the built-in prompts.
func Default() *Set {
	return &Set{
		generate: template.Must(template.New(Generate).Parse(defaultGenerate)),
		evaluate: template.Must(template.New(Evaluate).Parse(defaultEvaluate)),
	}
}

// Load reads <dir>/generate.txt and <dir>/evaluate.txt when present and falls
// back to the built-in text for whichever is missing. An empty dir means defaults.
func Load(dir string) (*Set, error) {
	s := Default()
	if strings.TrimSpace(dir) == "" {
		return s, nil
	}
	for _, name := range []string{Generate, Evaluate} {
		p := filepath.Join(dir, name+".txt")
		b, err := os.ReadFile(p)
		if errors.Is(err, os.ErrNotExist) || (err == nil && len(strings.TrimSpace(string(b))) == 0) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("prompt %q: %w", p, err)
		}
		t, err := template.New(name).Parse(string(b))
		if err != nil {
			return nil, fmt.Errorf("prompt %q: parse: %w", p, err)
		}
		if name == Generate {
			s.generate = t
		} else {
			s.evaluate = t
		}
	}
	return s, nil
}

// RenderGenerate builds the prompt for the first stage.
func (s *Set) RenderGenerate(problem, solution string) (string, error) {
	return render(s.generate, Input{Problem: problem, Solution: solution})
}

// RenderEvaluate builds the critique prompt; hints are embedded as a JSON array.
func (s *Set) RenderEvaluate(problem, solution string, hints []string) (string, error) {
	if hints == nil {
		hints = []string{}
	}
	b, err := json.Marshal(hints)
	if err != nil {
		return "", err
	}
	return render(s.evaluate, Input{Problem: problem, Solution: solution, Hints: string(b)})
}

func render(t *template.Template, in Input) (string, error) {
	var sb strings.Builder
	if err := t.Execute(&sb, in); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", t.Name(), err)
	}
	return sb.String(), nil
}
