// Package corpus assembles encoded scores into one token stream and builds
// its vocabulary.
package corpus

import (
	"fmt"
	"strings"

	"github.com/rcliao/melodygen/internal/model"
)

// Corpus is the flat token stream of all accepted scores.
type Corpus struct {
	Tokens         []string
	Scores         int
	SeparatorWidth int
}

// Assemble joins sequences with separatorWidth separator tokens between each
// consecutive pair and builds the vocabulary over the result.
func Assemble(sequences [][]string, separatorWidth int) (*Corpus, *Vocabulary, error) {
	if separatorWidth <= 0 {
		return nil, nil, fmt.Errorf("assemble: separator width must be positive, got %d", separatorWidth)
	}

	c := &Corpus{SeparatorWidth: separatorWidth}
	for _, seq := range sequences {
		if len(seq) == 0 {
			continue
		}
		if c.Scores > 0 {
			for j := 0; j < separatorWidth; j++ {
				c.Tokens = append(c.Tokens, model.SeparatorSymbol)
			}
		}
		c.Tokens = append(c.Tokens, seq...)
		c.Scores++
	}

	return c, NewVocabulary(c.Tokens), nil
}

// ParseCorpus reads the space-separated text form of a corpus.
func ParseCorpus(text string, separatorWidth int) *Corpus {
	tokens := strings.Fields(text)
	c := &Corpus{Tokens: tokens, SeparatorWidth: separatorWidth}
	prevSep := true
	for _, tok := range tokens {
		isSep := tok == model.SeparatorSymbol
		if !isSep && prevSep {
			c.Scores++
		}
		prevSep = isSep
	}
	return c
}

// String returns the single-space-joined corpus with no trailing delimiter.
func (c *Corpus) String() string {
	return strings.Join(c.Tokens, " ")
}

// Len returns the number of tokens.
func (c *Corpus) Len() int { return len(c.Tokens) }
