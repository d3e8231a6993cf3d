package corpus

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownSymbol     = errors.New("unknown symbol")
	ErrCorruptVocabulary = errors.New("corrupt vocabulary")
)

// UnknownSymbolError reports a token or id with no vocabulary entry.
type UnknownSymbolError struct {
	Token string
	ID    int
	ByID  bool
}

func (e *UnknownSymbolError) Error() string {
	if e.ByID {
		return fmt.Sprintf("no symbol with id %d", e.ID)
	}
	return fmt.Sprintf("symbol %q not in vocabulary", e.Token)
}

func (e *UnknownSymbolError) Unwrap() error { return ErrUnknownSymbol }

// CorruptVocabularyError reports a persisted mapping that is not a dense,
// unique id assignment.
type CorruptVocabularyError struct {
	Token  string
	ID     int
	Reason string
}

func (e *CorruptVocabularyError) Error() string {
	return fmt.Sprintf("symbol %q id %d: %s", e.Token, e.ID, e.Reason)
}

func (e *CorruptVocabularyError) Unwrap() error { return ErrCorruptVocabulary }
