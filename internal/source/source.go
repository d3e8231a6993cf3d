// Package source loads parsed scores from disk.
package source

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	ignore "github.com/sabhiram/go-gitignore"
	"github.com/sourcegraph/conc/pool"

	"github.com/rcliao/melodygen/internal/model"
)

// DefaultIgnoreFile holds gitignore-style patterns relative to the dataset root.
const DefaultIgnoreFile = ".scoreignore"

// Source produces parsed scores.
type Source interface {
	Load(ctx context.Context) ([]model.Score, error)
}

// Reader parses one score file.
type Reader func(path string) (model.Score, error)

// Readers maps lower-case file extensions to their reader.
var Readers = map[string]Reader{
	".json": ReadJSONScore,
	".mid":  ReadMIDIScore,
	".midi": ReadMIDIScore,
}

// DirSource walks a dataset directory and reads every supported file.
type DirSource struct {
	Root       string
	Workers    int
	IgnoreFile string
	Log        zerolog.Logger
}

// NewDirSource returns a DirSource with default workers and ignore file.
func NewDirSource(root string, workers int, log zerolog.Logger) *DirSource {
	return &DirSource{Root: root, Workers: workers, IgnoreFile: DefaultIgnoreFile, Log: log}
}

// Load reads all scores under Root concurrently. Results are ordered by path.
func (s *DirSource) Load(ctx context.Context) ([]model.Score, error) {
	paths, err := s.Files()
	if err != nil {
		return nil, err
	}

	workers := s.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	p := pool.NewWithResults[model.Score]().
		WithContext(ctx).
		WithCancelOnError().
		WithMaxGoroutines(workers)
	for _, path := range paths {
		path := path
		p.Go(func(ctx context.Context) (model.Score, error) {
			if err := ctx.Err(); err != nil {
				return model.Score{}, err
			}
			read := Readers[strings.ToLower(filepath.Ext(path))]
			score, err := read(path)
			if err != nil {
				s.Log.Error().Err(err).Str("path", path).Msg("read score")
				return model.Score{}, fmt.Errorf("read %s: %w", path, err)
			}
			s.Log.Debug().Str("path", path).Int("events", len(score.Events)).Msg("loaded score")
			return score, nil
		})
	}
	scores, err := p.Wait()
	if err != nil {
		return nil, err
	}

	// The pool does not keep submission order.
	sort.Slice(scores, func(i, j int) bool { return scores[i].Path < scores[j].Path })
	s.Log.Info().Int("scores", len(scores)).Str("root", s.Root).Msg("loaded dataset")
	return scores, nil
}

// Files lists the supported, non-ignored files under Root in lexical order.
func (s *DirSource) Files() ([]string, error) {
	info, err := os.Stat(s.Root)
	if err != nil {
		return nil, fmt.Errorf("dataset dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("dataset dir: %s is not a directory", s.Root)
	}

	var ign *ignore.GitIgnore
	if s.IgnoreFile != "" {
		ignPath := filepath.Join(s.Root, s.IgnoreFile)
		if _, err := os.Stat(ignPath); err == nil {
			ign, err = ignore.CompileIgnoreFile(ignPath)
			if err != nil {
				return nil, fmt.Errorf("compile %s: %w", ignPath, err)
			}
		}
	}

	var paths []string
	err = filepath.WalkDir(s.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(s.Root, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		if ign != nil && ign.MatchesPath(filepath.ToSlash(rel)) {
			s.Log.Debug().Str("path", rel).Msg("ignoring")
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if _, ok := Readers[strings.ToLower(filepath.Ext(path))]; ok {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk dataset: %w", err)
	}
	return paths, nil
}

// Static is a Source over scores already in memory.
type Static []model.Score

func (s Static) Load(ctx context.Context) ([]model.Score, error) {
	return s, nil
}
