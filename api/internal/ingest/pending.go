package ingest

import (
	"sync"
	"time"
)

// Part is one half of the pipeline input.
type Part int

const (
	PartProblem Part = iota + 1
	PartSolution
)

func (p Part) String() string {
	switch p {
	case PartProblem:
		return "problem"
	case PartSolution:
		return "solution"
	default:
		return "unknown"
	}
}

// Pair is a complete pipeline input.
type Pair struct {
	Problem  string
	Solution string
}

type entry struct {
	pair        Pair
	hasProblem  bool
	hasSolution bool
	claimed     bool
	updated     time.Time
}

// Pending accumulates parts per problem code until both halves are present.
// The Put that completes a pair claims the code; later Puts for a claimed code
// only update the stored parts until Release or Done.
type Pending struct {
	mu      sync.Mutex
	entries map[string]*entry
	now     func() time.Time
}

func NewPending() *Pending {
	return &Pending{entries: make(map[string]*entry), now: time.Now}
}

// Put stores a part (last write wins) and reports whether the caller now owns
// a pipeline run for id.
func (p *Pending) Put(id string, part Part, content string) (Pair, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	e, ok := p.entries[id]
	if !ok {
		e = &entry{}
		p.entries[id] = e
	}
	switch part {
	case PartProblem:
		e.pair.Problem = content
		e.hasProblem = true
	case PartSolution:
		e.pair.Solution = content
		e.hasSolution = true
	}
	e.updated = p.now()

	if e.hasProblem && e.hasSolution && !e.claimed {
		e.claimed = true
		return e.pair, true
	}
	return Pair{}, false
}

// Release gives up the claim after a failed run. The parts are kept, so the
// next Put for id triggers another run.
func (p *Pending) Release(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if e, ok := p.entries[id]; ok {
		e.claimed = false
	}
}

// Done forgets id after a successful run.
func (p *Pending) Done(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.entries, id)
}

// Expire drops unclaimed entries not updated since cutoff and returns how many were dropped.
func (p *Pending) Expire(cutoff time.Time) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for id, e := range p.entries {
		if !e.claimed && e.updated.Before(cutoff) {
			delete(p.entries, id)
			n++
		}
	}
	return n
}

func (p *Pending) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}
