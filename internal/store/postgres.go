package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/market-pricing/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32
	MinConns int32
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresFromPool wraps an existing pool.
func NewPostgresFromPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS providers (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	rating     DOUBLE PRECISION NOT NULL DEFAULT 0,
	verified   BOOLEAN NOT NULL DEFAULT false,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS jobs (
	id          TEXT PRIMARY KEY,
	buyer_id    TEXT NOT NULL DEFAULT '',
	category    TEXT NOT NULL,
	city        TEXT NOT NULL,
	description TEXT NOT NULL,
	spec        JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS offers (
	id           TEXT PRIMARY KEY,
	job_id       TEXT NOT NULL REFERENCES jobs(id),
	provider_id  TEXT NOT NULL REFERENCES providers(id),
	price        DOUBLE PRECISION NOT NULL,
	eta_minutes  INTEGER NOT NULL,
	notes        TEXT NOT NULL DEFAULT '',
	score        DOUBLE PRECISION NOT NULL,
	score_detail JSONB NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_jobs_category ON jobs(category);
CREATE INDEX IF NOT EXISTS idx_offers_job_score ON offers(job_id, score DESC);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateProvider(ctx context.Context, p model.Provider) (*model.Provider, error) {
	p.ID = uuid.New().String()
	p.CreatedAt = time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO providers (id, name, rating, verified, created_at) VALUES ($1, $2, $3, $4, $5)`,
		p.ID, p.Name, p.Rating, p.Verified, p.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert provider")
	}
	return &p, nil
}

func (s *PostgresStore) GetProvider(ctx context.Context, id string) (*model.Provider, error) {
	var p model.Provider
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, rating, verified, created_at FROM providers WHERE id = $1`, id,
	).Scan(&p.ID, &p.Name, &p.Rating, &p.Verified, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "provider %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get provider %s", id)
	}
	return &p, nil
}

func (s *PostgresStore) CreateJob(ctx context.Context, j model.Job) (*model.Job, error) {
	j.ID = uuid.New().String()
	j.CreatedAt = time.Now().UTC()

	specJSON, err := json.Marshal(j.Spec)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal job spec")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO jobs (id, buyer_id, category, city, description, spec, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		j.ID, j.BuyerID, string(j.Category), j.City, j.Description, string(specJSON), j.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert job")
	}
	return &j, nil
}

func (s *PostgresStore) GetJob(ctx context.Context, id string) (*model.Job, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, buyer_id, category, city, description, spec, created_at FROM jobs WHERE id = $1`, id,
	)
	j, err := scanJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "job %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get job %s", id)
	}
	return j, nil
}

func (s *PostgresStore) CreateOffer(ctx context.Context, o model.Offer) (*model.Offer, error) {
	o.ID = uuid.New().String()
	o.CreatedAt = time.Now().UTC()

	scoreJSON, err := json.Marshal(o.Score)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal offer score")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO offers (id, job_id, provider_id, price, eta_minutes, notes, score, score_detail, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		o.ID, o.JobID, o.ProviderID, o.Price, o.ETAMinutes, o.Notes, o.Score.Score, string(scoreJSON), o.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert offer")
	}
	return &o, nil
}

func (s *PostgresStore) ListOffers(ctx context.Context, jobID string) ([]model.Offer, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, job_id, provider_id, price, eta_minutes, notes, score_detail, created_at
		 FROM offers WHERE job_id = $1 ORDER BY score DESC, created_at ASC`, jobID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list offers for job %s", jobID)
	}
	defer rows.Close()

	offers := []model.Offer{}
	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan offer")
		}
		offers = append(offers, *o)
	}
	return offers, eris.Wrap(rows.Err(), "postgres: iterate offers")
}
