package ingest

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPending_CompletesOnSecondPart(t *testing.T) {
	p := NewPending()

	_, ok := p.Put("1900A", PartProblem, "P")
	assert.False(t, ok)

	pair, ok := p.Put("1900A", PartSolution, "S")
	require.True(t, ok)
	assert.Equal(t, Pair{Problem: "P", Solution: "S"}, pair)
}

func TestPending_OrderDoesNotMatter(t *testing.T) {
	p := NewPending()
	_, ok := p.Put("X", PartSolution, "S")
	assert.False(t, ok)
	pair, ok := p.Put("X", PartProblem, "P")
	require.True(t, ok)
	assert.Equal(t, Pair{Problem: "P", Solution: "S"}, pair)
}

func TestPending_ClaimBlocksDuplicates(t *testing.T) {
	p := NewPending()
	p.Put("X", PartProblem, "P")
	_, ok := p.Put("X", PartSolution, "S1")
	require.True(t, ok)

	_, ok = p.Put("X", PartSolution, "S2")
	assert.False(t, ok, "a run is in flight")

	p.Release("X")
	pair, ok := p.Put("X", PartProblem, "P2")
	require.True(t, ok)
	assert.Equal(t, Pair{Problem: "P2", Solution: "S2"}, pair)
}

func TestPending_DoneForgets(t *testing.T) {
	p := NewPending()
	p.Put("X", PartProblem, "P")
	p.Put("X", PartSolution, "S")
	p.Done("X")
	assert.Equal(t, 0, p.Len())

	_, ok := p.Put("X", PartSolution, "S")
	assert.False(t, ok, "both parts are needed again after success")
}

func TestPending_Expire(t *testing.T) {
	p := NewPending()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return now }

	p.Put("old", PartProblem, "P")
	p.Put("busy", PartProblem, "P")
	p.Put("busy", PartSolution, "S") // claimed

	now = now.Add(48 * time.Hour)
	p.Put("new", PartProblem, "P")

	n := p.Expire(now.Add(-24 * time.Hour))
	assert.Equal(t, 1, n)
	assert.Equal(t, 2, p.Len())
}

func TestPending_ConcurrentCompletionTriggersOnce(t *testing.T) {
	p := NewPending()
	p.Put("1900A", PartProblem, "P")

	var triggered atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if _, ok := p.Put("1900A", PartSolution, "S"); ok {
				triggered.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()
	assert.Equal(t, int32(1), triggered.Load())
}

func TestPart_String(t *testing.T) {
	assert.Equal(t, "problem", PartProblem.String())
	assert.Equal(t, "solution", PartSolution.String())
}
