package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"cf-hints/api/internal/hints"
)

const hintsFile = "hints.json"

// FileStore keeps {dir}/{id}/hints.json and the raw submitted parts next to it.
type FileStore struct {
	dir    string
	log    *zap.Logger
	remove func(path string) error
}

func NewFileStore(dir string, log *zap.Logger) (*FileStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("file store: data dir is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("file store: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &FileStore{dir: dir, log: log.Named("filestore"), remove: os.RemoveAll}, nil
}

func (s *FileStore) Dir() string { return s.dir }

func (s *FileStore) hintsPath(id string) string {
	return filepath.Join(s.dir, id, hintsFile)
}

func (s *FileStore) Exists(_ context.Context, id string) (bool, error) {
	if err := checkID(id); err != nil {
		return false, err
	}
	_, err := os.Stat(s.hintsPath(id))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, err
	}
}

// Write replaces hints.json atomically: temp file in the same directory, then rename.
func (s *FileStore) Write(_ context.Context, id string, hs hints.HintSet) error {
	if err := checkID(id); err != nil {
		return err
	}
	b, err := encode(hs, true)
	if err != nil {
		return err
	}
	return writeAtomic(filepath.Join(s.dir, id), hintsFile, b)
}

func (s *FileStore) Read(_ context.Context, id string) (hints.HintSet, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(s.hintsPath(id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decode(b)
}

// IsHTML reports whether a submission type carries markup.
func IsHTML(kind string) bool { return strings.Contains(kind, "html") }

// ArtifactName maps a submission type to its file name.
func ArtifactName(kind string) string {
	if IsHTML(kind) {
		return kind + ".html"
	}
	return kind + ".txt"
}

// SaveArtifact stores raw submitted content as {dir}/{id}/{kind}.{txt|html}
// and returns the written path.
func (s *FileStore) SaveArtifact(_ context.Context, id, kind, content string) (string, error) {
	if err := checkID(id); err != nil {
		return "", err
	}
	if !ValidID(kind) {
		return "", fmt.Errorf("invalid submission type %q", kind)
	}
	return s.saveFile(id, ArtifactName(kind), content)
}

// SaveRendering stores the plain-text rendering of an HTML submission as
// {dir}/{id}/{kind}.txt next to the raw {kind}.html.
func (s *FileStore) SaveRendering(_ context.Context, id, kind, text string) (string, error) {
	if err := checkID(id); err != nil {
		return "", err
	}
	if !ValidID(kind) || !IsHTML(kind) {
		return "", fmt.Errorf("invalid markup type %q", kind)
	}
	return s.saveFile(id, kind+".txt", text)
}

func (s *FileStore) saveFile(id, name, content string) (string, error) {
	dir := filepath.Join(s.dir, id)
	if err := writeAtomic(dir, name, []byte(content)); err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

// Cleanup removes everything in the problem directory except hints.json.
// Individual failures are logged and skipped; the count of removed files is returned.
func (s *FileStore) Cleanup(_ context.Context, id string) (int, error) {
	if err := checkID(id); err != nil {
		return 0, err
	}
	dir := filepath.Join(s.dir, id)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, e := range entries {
		if e.Name() == hintsFile {
			continue
		}
		p := filepath.Join(dir, e.Name())
		if err := s.remove(p); err != nil {
			s.log.Warn("cleanup: cannot delete file", zap.String("path", p), zap.Error(err))
			continue
		}
		removed++
	}
	return removed, nil
}

// Sweep deletes problem directories that never got a hints.json and whose
// newest file is older than cutoff. It returns the number of directories removed.
func (s *FileStore) Sweep(ctx context.Context, cutoff time.Time) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if !e.IsDir() || !ValidID(e.Name()) {
			continue
		}
		dir := filepath.Join(s.dir, e.Name())
		newest, done, err := inspect(dir)
		if err != nil {
			s.log.Warn("sweep: cannot inspect directory", zap.String("dir", dir), zap.Error(err))
			continue
		}
		if done || newest.After(cutoff) {
			continue
		}
		if err := s.remove(dir); err != nil {
			s.log.Warn("sweep: cannot delete directory", zap.String("dir", dir), zap.Error(err))
			continue
		}
		s.log.Info("sweep: removed abandoned submission", zap.String("problem_code", e.Name()))
		removed++
	}
	return removed, nil
}

// inspect returns the newest modification time in dir and whether hints.json exists.
func inspect(dir string) (time.Time, bool, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return time.Time{}, false, err
	}
	newest := info.ModTime()
	entries, err := os.ReadDir(dir)
	if err != nil {
		return time.Time{}, false, err
	}
	for _, e := range entries {
		if e.Name() == hintsFile {
			return time.Time{}, true, nil
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		if fi.ModTime().After(newest) {
			newest = fi.ModTime()
		}
	}
	return newest, false, nil
}

func writeAtomic(dir, name string, b []byte) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("make dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+name+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpPath := tmp.Name()
	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("chmod temp: %w", err)
	}
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmpPath, filepath.Join(dir, name)); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
