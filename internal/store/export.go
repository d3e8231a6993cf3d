package store

import (
	"context"

	"github.com/rcliao/melodygen/internal/model"
)

// ExportMelodies returns all non-deleted melodies, oldest first.
func (s *SQLiteStore) ExportMelodies(ctx context.Context) ([]model.Melody, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+melodyColumns+` FROM melodies WHERE deleted_at IS NULL ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	melodies := []model.Melody{}
	for rows.Next() {
		m, err := scanMelody(rows)
		if err != nil {
			return nil, err
		}
		melodies = append(melodies, m)
	}
	return melodies, rows.Err()
}

// ImportMelodies stores melodies from an export. Each gets a fresh id.
func (s *SQLiteStore) ImportMelodies(ctx context.Context, melodies []model.Melody) (int, error) {
	imported := 0
	for _, m := range melodies {
		_, err := s.PutMelody(ctx, PutMelodyParams{
			Seed:        m.Seed,
			Tokens:      m.Tokens,
			Temperature: m.Temperature,
			Steps:       m.Steps,
			Reason:      m.Reason,
			Model:       m.Model,
		})
		if err != nil {
			return imported, err
		}
		imported++
	}
	return imported, nil
}
