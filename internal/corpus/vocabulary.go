package corpus

import (
	"maps"

	"github.com/RoaringBitmap/roaring"

	"github.com/rcliao/melodygen/internal/model"
)

// Vocabulary maps tokens to dense integer ids. Ids are assigned in order of
// first occurrence. It is read-only after construction.
type Vocabulary struct {
	ids     map[string]int
	symbols []string
	// scores holds, per id, the indices of the scores containing the token.
	scores []*roaring.Bitmap
}

// NewVocabulary builds a vocabulary over tokens in first-seen order.
func NewVocabulary(tokens []string) *Vocabulary {
	v := &Vocabulary{ids: make(map[string]int)}
	score := -1
	prevSep := true
	for _, tok := range tokens {
		isSep := tok == model.SeparatorSymbol
		if !isSep && prevSep {
			score++
		}
		prevSep = isSep

		id, ok := v.ids[tok]
		if !ok {
			id = len(v.symbols)
			v.ids[tok] = id
			v.symbols = append(v.symbols, tok)
			v.scores = append(v.scores, roaring.New())
		}
		if !isSep && score >= 0 {
			v.scores[id].Add(uint32(score))
		}
	}
	return v
}

// FromMapping rebuilds a vocabulary from a persisted token->id mapping. Ids
// must form the dense range [0, len(m)).
func FromMapping(m map[string]int) (*Vocabulary, error) {
	v := &Vocabulary{
		ids:     make(map[string]int, len(m)),
		symbols: make([]string, len(m)),
	}
	for tok, id := range m {
		switch {
		case tok == "":
			return nil, &CorruptVocabularyError{Token: tok, ID: id, Reason: "empty token"}
		case id < 0 || id >= len(m):
			return nil, &CorruptVocabularyError{Token: tok, ID: id, Reason: "id out of range"}
		case v.symbols[id] != "":
			return nil, &CorruptVocabularyError{Token: tok, ID: id, Reason: "duplicate id"}
		}
		v.symbols[id] = tok
		v.ids[tok] = id
	}
	return v, nil
}

// ID returns the id of token.
func (v *Vocabulary) ID(token string) (int, error) {
	id, ok := v.ids[token]
	if !ok {
		return 0, &UnknownSymbolError{Token: token}
	}
	return id, nil
}

// Token returns the token with the given id.
func (v *Vocabulary) Token(id int) (string, error) {
	if id < 0 || id >= len(v.symbols) {
		return "", &UnknownSymbolError{ID: id, ByID: true}
	}
	return v.symbols[id], nil
}

// Encode maps every token to its id, failing on the first unknown one.
func (v *Vocabulary) Encode(tokens []string) ([]int, error) {
	out := make([]int, len(tokens))
	for i, tok := range tokens {
		id, err := v.ID(tok)
		if err != nil {
			return nil, err
		}
		out[i] = id
	}
	return out, nil
}

// Contains reports whether token has an id.
func (v *Vocabulary) Contains(token string) bool {
	_, ok := v.ids[token]
	return ok
}

// Size returns the number of distinct tokens.
func (v *Vocabulary) Size() int { return len(v.symbols) }

// Tokens returns the tokens in id order.
func (v *Vocabulary) Tokens() []string {
	out := make([]string, len(v.symbols))
	copy(out, v.symbols)
	return out
}

// Mapping returns a copy of the token->id mapping.
func (v *Vocabulary) Mapping() map[string]int {
	return maps.Clone(v.ids)
}

// DocFreq returns how many scores contain token. Vocabularies loaded from a
// mapping carry no score membership and report zero.
func (v *Vocabulary) DocFreq(token string) int {
	id, ok := v.ids[token]
	if !ok || id >= len(v.scores) {
		return 0
	}
	return int(v.scores[id].GetCardinality())
}
