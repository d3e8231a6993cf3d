package store

import (
	"context"
	"os"
)

// Stats holds database statistics.
type Stats struct {
	DBPath         string        `json:"db_path"`
	DBSizeBytes    int64         `json:"db_size_bytes"`
	VocabularySize int           `json:"vocabulary_size"`
	Corpora        int           `json:"corpora"`
	TotalMelodies  int           `json:"total_melodies"`
	ActiveMelodies int           `json:"active_melodies"`
	AvgLength      float64       `json:"avg_melody_tokens"`
	Reasons        []ReasonStats `json:"reasons"`
}

// ReasonStats holds per stop reason counts.
type ReasonStats struct {
	Reason string `json:"reason"`
	Count  int    `json:"count"`
}

// Stats returns database statistics.
func (s *SQLiteStore) Stats(ctx context.Context, dbPath string) (*Stats, error) {
	st := &Stats{DBPath: dbPath, Reasons: []ReasonStats{}}

	if info, err := os.Stat(dbPath); err == nil {
		st.DBSizeBytes = info.Size()
	}

	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM symbols`).Scan(&st.VocabularySize)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM corpora`).Scan(&st.Corpora)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM melodies`).Scan(&st.TotalMelodies)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM melodies WHERE deleted_at IS NULL`).Scan(&st.ActiveMelodies)

	// Token count is one more than the number of spaces in a non-empty melody.
	s.db.QueryRowContext(ctx, `
		SELECT COALESCE(AVG(CASE WHEN tokens = '' THEN 0
		                    ELSE LENGTH(tokens) - LENGTH(REPLACE(tokens, ' ', '')) + 1 END), 0)
		FROM melodies WHERE deleted_at IS NULL`).Scan(&st.AvgLength)

	rows, err := s.db.QueryContext(ctx, `
		SELECT reason, COUNT(*) AS cnt
		FROM melodies WHERE deleted_at IS NULL
		GROUP BY reason ORDER BY cnt DESC, reason`)
	if err != nil {
		return st, err
	}
	defer rows.Close()

	for rows.Next() {
		var r ReasonStats
		rows.Scan(&r.Reason, &r.Count)
		st.Reasons = append(st.Reasons, r)
	}

	return st, nil
}
