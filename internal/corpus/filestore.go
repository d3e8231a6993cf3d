package corpus

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// VocabularyStore persists a vocabulary. Loading must reproduce the exact
// mapping that was saved.
type VocabularyStore interface {
	SaveVocabulary(ctx context.Context, v *Vocabulary) error
	LoadVocabulary(ctx context.Context) (*Vocabulary, error)
}

// WriteJSON writes the token->id mapping. encoding/json sorts map keys, so
// the output is stable for a given vocabulary.
func (v *Vocabulary) WriteJSON(w io.Writer) error {
	b, err := json.MarshalIndent(v.ids, "", "  ")
	if err != nil {
		return err
	}
	_, err = w.Write(append(b, '\n'))
	return err
}

// ReadJSON reads a mapping written by WriteJSON.
func ReadJSON(r io.Reader) (*Vocabulary, error) {
	var m map[string]int
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptVocabulary, err)
	}
	if len(m) == 0 {
		return nil, fmt.Errorf("%w: empty mapping", ErrCorruptVocabulary)
	}
	return FromMapping(m)
}

// FileStore keeps the vocabulary in a JSON file.
type FileStore struct {
	Path string
}

func (s FileStore) SaveVocabulary(ctx context.Context, v *Vocabulary) error {
	return writeFileAtomic(s.Path, v.WriteJSON)
}

func (s FileStore) LoadVocabulary(ctx context.Context) (*Vocabulary, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open mapping: %w", err)
	}
	defer f.Close()
	return ReadJSON(f)
}

// WriteFile writes the corpus text form to path.
func (c *Corpus) WriteFile(path string) error {
	return writeFileAtomic(path, func(w io.Writer) error {
		_, err := io.WriteString(w, c.String())
		return err
	})
}

// ReadFile loads a corpus written by WriteFile.
func ReadFile(path string, separatorWidth int) (*Corpus, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read corpus: %w", err)
	}
	return ParseCorpus(strings.TrimSpace(string(b)), separatorWidth), nil
}

func writeFileAtomic(path string, fill func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := fill(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
