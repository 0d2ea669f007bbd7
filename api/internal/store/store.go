package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	"cf-hints/api/internal/hints"
)

var (
	ErrNotFound    = errors.New("hints not found")
	ErrCorruptData = errors.New("stored hints are corrupt")
	ErrInvalidID   = errors.New("invalid problem identifier")
)

// HintStore persists one hint set per problem identifier.
// Write replaces the whole document; Read never returns a nil set.
type HintStore interface {
	Exists(ctx context.Context, id string) (bool, error)
	Write(ctx context.Context, id string, hs hints.HintSet) error
	Read(ctx context.Context, id string) (hints.HintSet, error)
}

var reID = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ValidID reports whether id is safe to use as a key and a directory name.
func ValidID(id string) bool { return reID.MatchString(id) }

func checkID(id string) error {
	if !ValidID(id) {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}

// document is the persisted shape: {"hints": [...]}.
type document struct {
	Hints hints.HintSet `json:"hints"`
}

func encode(hs hints.HintSet, indent bool) ([]byte, error) {
	if hs == nil {
		hs = hints.HintSet{}
	}
	if indent {
		return json.MarshalIndent(document{Hints: hs}, "", "  ")
	}
	return json.Marshal(document{Hints: hs})
}

// decode treats a missing or null "hints" field as an empty set.
func decode(b []byte) (hints.HintSet, error) {
	var doc document
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptData, err)
	}
	if doc.Hints == nil {
		return hints.HintSet{}, nil
	}
	return doc.Hints, nil
}
