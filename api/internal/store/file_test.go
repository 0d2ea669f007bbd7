package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"cf-hints/api/internal/hints"
)

func newFileStore(t *testing.T) *FileStore {
	t.Helper()
	s, err := NewFileStore(t.TempDir(), zaptest.NewLogger(t))
	require.NoError(t, err)
	return s
}

func TestValidID(t *testing.T) {
	for _, id := range []string{"1900A", "abc_1-2", "A"} {
		assert.True(t, ValidID(id), id)
	}
	for _, id := range []string{"", "../etc", "a/b", "a b", "1900A.", strings.Repeat("a", 65)} {
		assert.False(t, ValidID(id), id)
	}
}

func TestFileStore_WriteReadExists(t *testing.T) {
	s := newFileStore(t)
	ctx := context.Background()

	ok, err := s.Exists(ctx, "1900A")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.Read(ctx, "1900A")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Write(ctx, "1900A", hints.HintSet{"a", "b", "c"}))

	ok, err = s.Exists(ctx, "1900A")
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := s.Read(ctx, "1900A")
	require.NoError(t, err)
	assert.Equal(t, hints.HintSet{"a", "b", "c"}, got)

	raw, err := os.ReadFile(filepath.Join(s.Dir(), "1900A", "hints.json"))
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"hints\": [\n    \"a\",\n    \"b\",\n    \"c\"\n  ]\n}", string(raw))
}

func TestFileStore_OverwriteAndEmpty(t *testing.T) {
	s := newFileStore(t)
	ctx := context.Background()

	require.NoError(t, s.Write(ctx, "X1", hints.HintSet{"old"}))
	require.NoError(t, s.Write(ctx, "X1", nil))

	got, err := s.Read(ctx, "X1")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	entries, err := os.ReadDir(filepath.Join(s.Dir(), "X1"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestFileStore_ReadDecoding(t *testing.T) {
	s := newFileStore(t)
	ctx := context.Background()
	write := func(id, body string) {
		require.NoError(t, os.MkdirAll(filepath.Join(s.Dir(), id), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), id, "hints.json"), []byte(body), 0o644))
	}

	write("missing", `{"other": 1}`)
	got, err := s.Read(ctx, "missing")
	require.NoError(t, err)
	assert.Equal(t, hints.HintSet{}, got)

	write("broken", `{"hints": [`)
	_, err = s.Read(ctx, "broken")
	assert.ErrorIs(t, err, ErrCorruptData)
}

func TestFileStore_RejectsInvalidID(t *testing.T) {
	s := newFileStore(t)
	ctx := context.Background()

	_, err := s.Exists(ctx, "../x")
	assert.ErrorIs(t, err, ErrInvalidID)
	assert.ErrorIs(t, s.Write(ctx, "a/b", nil), ErrInvalidID)
	_, err = s.Read(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidID)
	_, err = s.SaveArtifact(ctx, "..", "problem", "x")
	assert.ErrorIs(t, err, ErrInvalidID)
}

func TestArtifactName(t *testing.T) {
	assert.Equal(t, "problem.txt", ArtifactName("problem"))
	assert.Equal(t, "problem_html.html", ArtifactName("problem_html"))
	assert.Equal(t, "tutorial_clean.txt", ArtifactName("tutorial_clean"))
}

func TestFileStore_SaveArtifactAndCleanup(t *testing.T) {
	s := newFileStore(t)
	ctx := context.Background()

	p, err := s.SaveArtifact(ctx, "1900A", "problem", "statement")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(s.Dir(), "1900A", "problem.txt"), p)
	b, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "statement", string(b))

	_, err = s.SaveArtifact(ctx, "1900A", "tutorial_html", "<p>x</p>")
	require.NoError(t, err)
	_, err = s.SaveArtifact(ctx, "1900A", "bad/type", "x")
	assert.Error(t, err)

	require.NoError(t, s.Write(ctx, "1900A", hints.HintSet{"h"}))

	n, err := s.Cleanup(ctx, "1900A")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	entries, err := os.ReadDir(filepath.Join(s.Dir(), "1900A"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "hints.json", entries[0].Name())
}

func TestFileStore_CleanupSkipsFailedDeletes(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	s, err := NewFileStore(t.TempDir(), zap.New(core))
	require.NoError(t, err)
	ctx := context.Background()

	for _, kind := range []string{"problem", "tutorial_clean", "tutorial_html"} {
		_, err := s.SaveArtifact(ctx, "1900A", kind, "x")
		require.NoError(t, err)
	}
	require.NoError(t, s.Write(ctx, "1900A", hints.HintSet{"h"}))

	stuck := filepath.Join(s.Dir(), "1900A", "tutorial_clean.txt")
	s.remove = func(p string) error {
		if p == stuck {
			return errors.New("permission denied")
		}
		return os.RemoveAll(p)
	}

	n, err := s.Cleanup(ctx, "1900A")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	entries, err := os.ReadDir(filepath.Join(s.Dir(), "1900A"))
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"hints.json", "tutorial_clean.txt"}, names)

	warned := logs.FilterMessage("cleanup: cannot delete file").All()
	require.Len(t, warned, 1)
	assert.Equal(t, stuck, warned[0].ContextMap()["path"])
}

func TestFileStore_SaveRendering(t *testing.T) {
	s := newFileStore(t)
	ctx := context.Background()

	p, err := s.SaveRendering(ctx, "1900A", "tutorial_html", "plain editorial")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(s.Dir(), "1900A", "tutorial_html.txt"), p)
	b, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "plain editorial", string(b))

	_, err = s.SaveRendering(ctx, "1900A", "problem", "x")
	assert.Error(t, err)
	_, err = s.SaveRendering(ctx, "../x", "tutorial_html", "x")
	assert.ErrorIs(t, err, ErrInvalidID)
}

func TestFileStore_Sweep(t *testing.T) {
	s := newFileStore(t)
	ctx := context.Background()

	_, err := s.SaveArtifact(ctx, "stale", "problem", "x")
	require.NoError(t, err)
	_, err = s.SaveArtifact(ctx, "fresh", "problem", "x")
	require.NoError(t, err)
	_, err = s.SaveArtifact(ctx, "done", "problem", "x")
	require.NoError(t, err)
	require.NoError(t, s.Write(ctx, "done", hints.HintSet{"h"}))

	old := time.Now().Add(-48 * time.Hour)
	for _, id := range []string{"stale", "done"} {
		dir := filepath.Join(s.Dir(), id)
		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		for _, e := range entries {
			require.NoError(t, os.Chtimes(filepath.Join(dir, e.Name()), old, old))
		}
		require.NoError(t, os.Chtimes(dir, old, old))
	}

	n, err := s.Sweep(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = os.Stat(filepath.Join(s.Dir(), "stale"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(s.Dir(), "fresh"))
	assert.NoError(t, err)
	ok, err := s.Exists(ctx, "done")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestFileStore_RoundTripProperty(t *testing.T) {
	s := newFileStore(t)
	ctx := context.Background()

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("Read(Write(id, H)) == H", prop.ForAll(
		func(hs []string) bool {
			in := hints.HintSet(hs)
			if err := s.Write(ctx, "prop", in); err != nil {
				return false
			}
			out, err := s.Read(ctx, "prop")
			if err != nil || out == nil || len(out) != len(in) {
				return false
			}
			for i := range in {
				if in[i] != out[i] {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.AnyString()),
	))

	properties.TestingRun(t)
}
