// Package store persists providers, jobs and offers.
package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rotisserie/eris"

	"github.com/sells-group/market-pricing/internal/model"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = eris.New("store: not found")

// Store defines the persistence interface for the marketplace.
type Store interface {
	// Providers
	CreateProvider(ctx context.Context, p model.Provider) (*model.Provider, error)
	GetProvider(ctx context.Context, id string) (*model.Provider, error)

	// Jobs
	CreateJob(ctx context.Context, j model.Job) (*model.Job, error)
	GetJob(ctx context.Context, id string) (*model.Job, error)

	// Offers
	CreateOffer(ctx context.Context, o model.Offer) (*model.Offer, error)
	// ListOffers returns the offers for a job, highest score first.
	ListOffers(ctx context.Context, jobID string) ([]model.Offer, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Pool is the subset of *pgxpool.Pool used by PostgresStore. pgxmock
// pools satisfy it in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

type scannable interface {
	Scan(dest ...any) error
}
