package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/market-pricing/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	// A single connection keeps pragmas in effect for every statement.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS providers (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	rating     REAL NOT NULL DEFAULT 0,
	verified   INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS jobs (
	id          TEXT PRIMARY KEY,
	buyer_id    TEXT NOT NULL DEFAULT '',
	category    TEXT NOT NULL,
	city        TEXT NOT NULL,
	description TEXT NOT NULL,
	spec        TEXT NOT NULL,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS offers (
	id           TEXT PRIMARY KEY,
	job_id       TEXT NOT NULL REFERENCES jobs(id),
	provider_id  TEXT NOT NULL REFERENCES providers(id),
	price        REAL NOT NULL,
	eta_minutes  INTEGER NOT NULL,
	notes        TEXT NOT NULL DEFAULT '',
	score        REAL NOT NULL,
	score_detail TEXT NOT NULL,
	created_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_jobs_category ON jobs(category);
CREATE INDEX IF NOT EXISTS idx_offers_job_score ON offers(job_id, score DESC);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateProvider(ctx context.Context, p model.Provider) (*model.Provider, error) {
	p.ID = uuid.New().String()
	p.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO providers (id, name, rating, verified, created_at) VALUES (?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Rating, p.Verified, p.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert provider")
	}
	return &p, nil
}

func (s *SQLiteStore) GetProvider(ctx context.Context, id string) (*model.Provider, error) {
	var p model.Provider
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, rating, verified, created_at FROM providers WHERE id = ?`, id,
	).Scan(&p.ID, &p.Name, &p.Rating, &p.Verified, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "provider %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get provider %s", id)
	}
	return &p, nil
}

func (s *SQLiteStore) CreateJob(ctx context.Context, j model.Job) (*model.Job, error) {
	j.ID = uuid.New().String()
	j.CreatedAt = time.Now().UTC()

	specJSON, err := json.Marshal(j.Spec)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal job spec")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO jobs (id, buyer_id, category, city, description, spec, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		j.ID, j.BuyerID, string(j.Category), j.City, j.Description, string(specJSON), j.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert job")
	}
	return &j, nil
}

func (s *SQLiteStore) GetJob(ctx context.Context, id string) (*model.Job, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, buyer_id, category, city, description, spec, created_at FROM jobs WHERE id = ?`, id,
	)
	j, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "job %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get job %s", id)
	}
	return j, nil
}

func (s *SQLiteStore) CreateOffer(ctx context.Context, o model.Offer) (*model.Offer, error) {
	o.ID = uuid.New().String()
	o.CreatedAt = time.Now().UTC()

	scoreJSON, err := json.Marshal(o.Score)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal offer score")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO offers (id, job_id, provider_id, price, eta_minutes, notes, score, score_detail, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.JobID, o.ProviderID, o.Price, o.ETAMinutes, o.Notes, o.Score.Score, string(scoreJSON), o.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert offer")
	}
	return &o, nil
}

func (s *SQLiteStore) ListOffers(ctx context.Context, jobID string) ([]model.Offer, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, job_id, provider_id, price, eta_minutes, notes, score_detail, created_at
		 FROM offers WHERE job_id = ? ORDER BY score DESC, created_at ASC`, jobID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list offers for job %s", jobID)
	}
	defer rows.Close() //nolint:errcheck

	offers := []model.Offer{}
	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan offer")
		}
		offers = append(offers, *o)
	}
	return offers, eris.Wrap(rows.Err(), "sqlite: iterate offers")
}

// helpers

func scanJob(row scannable) (*model.Job, error) {
	var j model.Job
	var category string
	var specJSON []byte

	if err := row.Scan(&j.ID, &j.BuyerID, &category, &j.City, &j.Description, &specJSON, &j.CreatedAt); err != nil {
		return nil, err
	}
	j.Category = model.Category(category)
	if err := json.Unmarshal(specJSON, &j.Spec); err != nil {
		return nil, eris.Wrap(err, "unmarshal job spec")
	}
	return &j, nil
}

func scanOffer(row scannable) (*model.Offer, error) {
	var o model.Offer
	var scoreJSON []byte

	if err := row.Scan(&o.ID, &o.JobID, &o.ProviderID, &o.Price, &o.ETAMinutes, &o.Notes, &scoreJSON, &o.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(scoreJSON, &o.Score); err != nil {
		return nil, eris.Wrap(err, "unmarshal offer score")
	}
	return &o, nil
}
