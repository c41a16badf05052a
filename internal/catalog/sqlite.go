package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"mediaid-gateway/internal/models"
)

const (
	termUse     = "use"
	termSymptom = "symptom"
)

const drugColumns = `d.id, d.name, d.generic_name, d.description, d.dosage, d.side_effects, d.precautions`

// SQLite serves the catalog from a SQLite database, seeding it when empty.
type SQLite struct {
	db *sql.DB
}

var _ Catalog = (*SQLite)(nil)

// NewSQLite opens dsn, creates the schema and inserts seed when the drugs table is empty.
func NewSQLite(ctx context.Context, dsn string, seed []models.DrugRecord) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if strings.Contains(dsn, ":memory:") {
		// every pooled connection would otherwise see its own empty database
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLite{db: db}
	if err := store.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	if err := store.seed(ctx, seed); err != nil {
		db.Close()
		return nil, fmt.Errorf("seed catalog: %w", err)
	}
	return store, nil
}

func (s *SQLite) initSchema(ctx context.Context) error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS drugs (
		id TEXT PRIMARY KEY,
		position INTEGER NOT NULL UNIQUE,
		name TEXT NOT NULL,
		generic_name TEXT NOT NULL,
		description TEXT NOT NULL,
		dosage TEXT NOT NULL,
		side_effects TEXT NOT NULL,
		precautions TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS drug_terms (
		drug_id TEXT NOT NULL REFERENCES drugs(id),
		kind TEXT NOT NULL,
		position INTEGER NOT NULL,
		term TEXT NOT NULL,
		PRIMARY KEY (drug_id, kind, position)
	);
	CREATE INDEX IF NOT EXISTS idx_drug_terms_kind ON drug_terms(kind, term);
	`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func (s *SQLite) seed(ctx context.Context, records []models.DrugRecord) error {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM drugs`).Scan(&count); err != nil {
		return fmt.Errorf("count drugs: %w", err)
	}
	if count > 0 {
		zap.L().Debug("catalog already seeded", zap.Int("drugs", count))
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed transaction: %w", err)
	}
	defer tx.Rollback()

	for i, d := range records {
		sideEffects, err := json.Marshal(nonNil(d.SideEffects))
		if err != nil {
			return fmt.Errorf("encode side effects for %q: %w", d.Name, err)
		}
		precautions, err := json.Marshal(nonNil(d.Precautions))
		if err != nil {
			return fmt.Errorf("encode precautions for %q: %w", d.Name, err)
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO drugs (id, position, name, generic_name, description, dosage, side_effects, precautions)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			d.ID, i, d.Name, d.GenericName, d.Description, d.Dosage, string(sideEffects), string(precautions),
		); err != nil {
			return fmt.Errorf("insert drug %q: %w", d.Name, err)
		}

		if err := insertTerms(ctx, tx, d.ID, termUse, d.Uses); err != nil {
			return err
		}
		if err := insertTerms(ctx, tx, d.ID, termSymptom, d.Symptoms); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed transaction: %w", err)
	}
	zap.L().Info("catalog seeded", zap.Int("drugs", len(records)))
	return nil
}

func insertTerms(ctx context.Context, tx *sql.Tx, drugID, kind string, terms []string) error {
	for pos, term := range terms {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO drug_terms (drug_id, kind, position, term) VALUES (?, ?, ?, ?)`,
			drugID, kind, pos, term,
		); err != nil {
			return fmt.Errorf("insert %s term for %s: %w", kind, drugID, err)
		}
	}
	return nil
}

func (s *SQLite) Search(ctx context.Context, query string) ([]models.DrugRecord, error) {
	q, err := normalizeQuery(query)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+drugColumns+` FROM (
			SELECT d.*, CASE
				WHEN instr(lower(d.name), ?) > 0 THEN 0
				WHEN instr(lower(d.generic_name), ?) > 0 THEN 1
				WHEN EXISTS (SELECT 1 FROM drug_terms t WHERE t.drug_id = d.id AND t.kind = 'symptom' AND instr(lower(t.term), ?) > 0) THEN 2
				WHEN EXISTS (SELECT 1 FROM drug_terms t WHERE t.drug_id = d.id AND t.kind = 'use' AND instr(lower(t.term), ?) > 0) THEN 3
				ELSE -1
			END AS tier
			FROM drugs d
		) d
		WHERE d.tier >= 0
		ORDER BY d.tier, d.position`,
		q, q, q, q,
	)
	if err != nil {
		return nil, fmt.Errorf("search drugs: %w", err)
	}
	return s.collect(ctx, rows)
}

func (s *SQLite) LookupByKeywords(ctx context.Context, text string) ([]models.DrugRecord, error) {
	all, err := s.List(ctx, "")
	if err != nil {
		return nil, err
	}
	return matchKeywords(all, text), nil
}

func (s *SQLite) List(ctx context.Context, symptom string) ([]models.DrugRecord, error) {
	symptom = strings.TrimSpace(symptom)
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+drugColumns+` FROM drugs d
		WHERE ? = '' OR EXISTS (
			SELECT 1 FROM drug_terms t
			WHERE t.drug_id = d.id AND t.kind = 'symptom' AND lower(t.term) = lower(?)
		)
		ORDER BY d.position`,
		symptom, symptom,
	)
	if err != nil {
		return nil, fmt.Errorf("list drugs: %w", err)
	}
	return s.collect(ctx, rows)
}

func (s *SQLite) Get(ctx context.Context, id string) (models.DrugRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+drugColumns+` FROM drugs d WHERE d.id = ?`, id)
	if err != nil {
		return models.DrugRecord{}, fmt.Errorf("get drug: %w", err)
	}
	records, err := s.collect(ctx, rows)
	if err != nil {
		return models.DrugRecord{}, err
	}
	if len(records) == 0 {
		return models.DrugRecord{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return records[0], nil
}

// Ping verifies database connectivity.
func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

// collect scans drug rows in order and attaches their use and symptom terms.
func (s *SQLite) collect(ctx context.Context, rows *sql.Rows) ([]models.DrugRecord, error) {
	records, err := scanDrugs(rows)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return records, nil
	}

	if err := s.attachTerms(ctx, records); err != nil {
		return nil, err
	}
	return records, nil
}

func scanDrugs(rows *sql.Rows) ([]models.DrugRecord, error) {
	defer rows.Close()

	records := []models.DrugRecord{}
	for rows.Next() {
		var d models.DrugRecord
		var sideEffects, precautions string
		if err := rows.Scan(&d.ID, &d.Name, &d.GenericName, &d.Description, &d.Dosage, &sideEffects, &precautions); err != nil {
			return nil, fmt.Errorf("scan drug row: %w", err)
		}
		if err := json.Unmarshal([]byte(sideEffects), &d.SideEffects); err != nil {
			return nil, fmt.Errorf("decode side effects for %s: %w", d.ID, err)
		}
		if err := json.Unmarshal([]byte(precautions), &d.Precautions); err != nil {
			return nil, fmt.Errorf("decode precautions for %s: %w", d.ID, err)
		}
		d.Uses = []string{}
		d.Symptoms = []string{}
		records = append(records, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate drug rows: %w", err)
	}
	return records, nil
}

func (s *SQLite) attachTerms(ctx context.Context, records []models.DrugRecord) error {
	index := make(map[string]int, len(records))
	args := make([]any, 0, len(records))
	for i, d := range records {
		index[d.ID] = i
		args = append(args, d.ID)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(args)), ",")
	rows, err := s.db.QueryContext(ctx, `
		SELECT drug_id, kind, term FROM drug_terms
		WHERE drug_id IN (`+placeholders+`)
		ORDER BY drug_id, kind, position`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("load drug terms: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var drugID, kind, term string
		if err := rows.Scan(&drugID, &kind, &term); err != nil {
			return fmt.Errorf("scan drug term: %w", err)
		}
		i, ok := index[drugID]
		if !ok {
			continue
		}
		switch kind {
		case termUse:
			records[i].Uses = append(records[i].Uses, term)
		case termSymptom:
			records[i].Symptoms = append(records[i].Symptoms, term)
		}
	}
	return rows.Err()
}
