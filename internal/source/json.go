package source

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rcliao/melodygen/internal/model"
)

// ReadJSONScore reads a score stored as {"name": ..., "events": [...]}.
// A bare event array is accepted too.
func ReadJSONScore(path string) (model.Score, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return model.Score{}, err
	}

	var score model.Score
	trimmed := strings.TrimSpace(string(b))
	if strings.HasPrefix(trimmed, "[") {
		err = json.Unmarshal(b, &score.Events)
	} else {
		err = json.Unmarshal(b, &score)
	}
	if err != nil {
		return model.Score{}, fmt.Errorf("decode score: %w", err)
	}

	if score.Name == "" {
		score.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	score.Path = path
	return score, nil
}
