package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/rcliao/melodygen/internal/corpus"
	"github.com/rcliao/melodygen/internal/model"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// timeFormat is fixed width so stored timestamps sort lexically.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// ulid.Make uses a process-wide monotonic entropy source that is safe for
// concurrent use.
func newID() string {
	return ulid.Make().String()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS symbols (
		token TEXT PRIMARY KEY,
		id    INTEGER NOT NULL UNIQUE
	);

	CREATE TABLE IF NOT EXISTS corpora (
		id              TEXT PRIMARY KEY,
		scores          INTEGER NOT NULL,
		rejected        INTEGER NOT NULL DEFAULT 0,
		tokens          INTEGER NOT NULL,
		sequence_length INTEGER NOT NULL,
		time_step       REAL NOT NULL,
		body            TEXT NOT NULL,
		created_at      TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_corpora_created ON corpora(created_at DESC);

	CREATE TABLE IF NOT EXISTS melodies (
		id          TEXT PRIMARY KEY,
		seed        TEXT NOT NULL,
		tokens      TEXT NOT NULL,
		temperature REAL NOT NULL,
		steps       INTEGER NOT NULL,
		reason      TEXT NOT NULL,
		model       TEXT,
		created_at  TEXT NOT NULL,
		deleted_at  TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_melodies_created ON melodies(created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_melodies_deleted ON melodies(deleted_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveVocabulary replaces the stored mapping with v.
func (s *SQLiteStore) SaveVocabulary(ctx context.Context, v *corpus.Vocabulary) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM symbols`); err != nil {
		return fmt.Errorf("clear symbols: %w", err)
	}
	for id, tok := range v.Tokens() {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO symbols (token, id) VALUES (?, ?)`, tok, id); err != nil {
			return fmt.Errorf("insert symbol %q: %w", tok, err)
		}
	}
	return tx.Commit()
}

// LoadVocabulary reads the stored mapping. Returns ErrNotFound when no
// vocabulary has been saved.
func (s *SQLiteStore) LoadVocabulary(ctx context.Context) (*corpus.Vocabulary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT token, id FROM symbols`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	m := make(map[string]int)
	for rows.Next() {
		var tok string
		var id int
		if err := rows.Scan(&tok, &id); err != nil {
			return nil, err
		}
		m[tok] = id
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(m) == 0 {
		return nil, fmt.Errorf("vocabulary: %w", ErrNotFound)
	}
	return corpus.FromMapping(m)
}

func (s *SQLiteStore) SaveCorpus(ctx context.Context, p SaveCorpusParams) (*model.CorpusInfo, error) {
	if p.Corpus == nil {
		return nil, fmt.Errorf("save corpus: nil corpus")
	}
	now := time.Now().UTC()
	info := &model.CorpusInfo{
		ID:             newID(),
		Scores:         p.Corpus.Scores,
		Rejected:       p.Rejected,
		Tokens:         p.Corpus.Len(),
		SequenceLength: p.Corpus.SeparatorWidth,
		TimeStep:       p.TimeStep,
		CreatedAt:      now,
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO corpora (id, scores, rejected, tokens, sequence_length, time_step, body, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		info.ID, info.Scores, info.Rejected, info.Tokens, info.SequenceLength, info.TimeStep,
		p.Corpus.String(), now.Format(timeFormat))
	if err != nil {
		return nil, fmt.Errorf("insert corpus: %w", err)
	}
	return info, nil
}

func (s *SQLiteStore) LatestCorpus(ctx context.Context) (*model.CorpusInfo, *corpus.Corpus, error) {
	var info model.CorpusInfo
	var body, createdAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, scores, rejected, tokens, sequence_length, time_step, body, created_at
		 FROM corpora ORDER BY created_at DESC, id DESC LIMIT 1`).Scan(
		&info.ID, &info.Scores, &info.Rejected, &info.Tokens, &info.SequenceLength, &info.TimeStep,
		&body, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, fmt.Errorf("corpus: %w", ErrNotFound)
	}
	if err != nil {
		return nil, nil, err
	}
	info.CreatedAt, _ = time.Parse(timeFormat, createdAt)

	c := corpus.ParseCorpus(body, info.SequenceLength)
	return &info, c, nil
}

func (s *SQLiteStore) PutMelody(ctx context.Context, p PutMelodyParams) (*model.Melody, error) {
	if p.Reason != "" && !model.ValidReasons[p.Reason] {
		return nil, fmt.Errorf("invalid stop reason %q", p.Reason)
	}
	now := time.Now().UTC()
	id := newID()

	var modelName *string
	if p.Model != "" {
		modelName = &p.Model
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO melodies (id, seed, tokens, temperature, steps, reason, model, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, strings.Join(p.Seed, " "), strings.Join(p.Tokens, " "), p.Temperature, p.Steps,
		string(p.Reason), modelName, now.Format(timeFormat))
	if err != nil {
		return nil, fmt.Errorf("insert melody: %w", err)
	}

	return &model.Melody{
		ID:          id,
		Seed:        nonNil(p.Seed),
		Tokens:      nonNil(p.Tokens),
		Temperature: p.Temperature,
		Steps:       p.Steps,
		Reason:      p.Reason,
		Model:       p.Model,
		CreatedAt:   now,
	}, nil
}

const melodyColumns = `id, seed, tokens, temperature, steps, reason, model, created_at`

func (s *SQLiteStore) GetMelody(ctx context.Context, id string) (*model.Melody, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+melodyColumns+` FROM melodies WHERE id = ? AND deleted_at IS NULL`, id)
	m, err := scanMelody(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("melody %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *SQLiteStore) ListMelodies(ctx context.Context, p ListParams) ([]model.Melody, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = 20
	}

	where := []string{"deleted_at IS NULL"}
	var args []interface{}
	if p.Reason != "" {
		where = append(where, "reason = ?")
		args = append(args, string(p.Reason))
	}
	if p.Model != "" {
		where = append(where, "model = ?")
		args = append(args, p.Model)
	}
	args = append(args, limit)

	query := fmt.Sprintf(`
		SELECT %s FROM melodies
		WHERE %s
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, melodyColumns, strings.Join(where, " AND "))

	rows, err := s.db.QueryContext(ctx, query, args...)
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

func (s *SQLiteStore) RmMelody(ctx context.Context, p RmParams) error {
	var res sql.Result
	var err error
	if p.Hard {
		res, err = s.db.ExecContext(ctx, `DELETE FROM melodies WHERE id = ?`, p.ID)
	} else {
		now := time.Now().UTC().Format(timeFormat)
		res, err = s.db.ExecContext(ctx,
			`UPDATE melodies SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, now, p.ID)
	}
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("melody %s: %w", p.ID, ErrNotFound)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanMelody(row scanner) (model.Melody, error) {
	var m model.Melody
	var seed, tokens, reason, createdAt string
	var modelName sql.NullString

	err := row.Scan(&m.ID, &seed, &tokens, &m.Temperature, &m.Steps, &reason, &modelName, &createdAt)
	if err != nil {
		return m, err
	}

	m.Seed = nonNil(strings.Fields(seed))
	m.Tokens = nonNil(strings.Fields(tokens))
	m.Reason = model.StopReason(reason)
	if modelName.Valid {
		m.Model = modelName.String
	}
	m.CreatedAt, _ = time.Parse(timeFormat, createdAt)
	return m, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
