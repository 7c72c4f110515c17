package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/market-pricing/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return NewPostgresFromPool(mock), mock
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS providers`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateProvider(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO providers`).
		WithArgs(pgxmock.AnyArg(), "Cappadocia Balloons", 4.9, true, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	p, err := s.CreateProvider(context.Background(), model.Provider{Name: "Cappadocia Balloons", Rating: 4.9, Verified: true})
	require.NoError(t, err)
	assert.Len(t, p.ID, 36)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetProvider(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT id, name, rating, verified, created_at FROM providers`).
		WithArgs("p1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "rating", "verified", "created_at"}).
			AddRow("p1", "Acme", 3.5, false, now))

	p, err := s.GetProvider(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "Acme", p.Name)
	assert.Equal(t, 3.5, p.Rating)
	assert.False(t, p.Verified)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetProvider_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, name, rating, verified, created_at FROM providers`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetProvider(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetJob(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT id, buyer_id, category, city, description, spec, created_at FROM jobs`).
		WithArgs("j1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "buyer_id", "category", "city", "description", "spec", "created_at"}).
			AddRow("j1", "b1", "tour", "Bodrum", "boat trip",
				[]byte(`{"passenger_count":4,"price_band":{"min_amount":576,"max_amount":1080,"recommended_amount":720,"estimator_generated":false}}`),
				now))

	j, err := s.GetJob(context.Background(), "j1")
	require.NoError(t, err)
	assert.Equal(t, model.CategoryTour, j.Category)
	require.NotNil(t, j.Spec.PassengerCount)
	assert.Equal(t, 4, *j.Spec.PassengerCount)
	assert.Equal(t, 720.0, j.Spec.PriceBand.RecommendedAmount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetJob_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, buyer_id, category`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetJob(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresStore_GetJob_DBError(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, buyer_id, category`).
		WithArgs("j1").
		WillReturnError(errors.New("connection reset"))

	_, err := s.GetJob(context.Background(), "j1")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), "postgres: get job j1")
}

func TestPostgresStore_CreateOffer(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO offers`).
		WithArgs(pgxmock.AnyArg(), "j1", "p1", 950.0, 20, "", 0.8, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	o, err := s.CreateOffer(context.Background(), model.Offer{
		JobID: "j1", ProviderID: "p1", Price: 950, ETAMinutes: 20,
		Score: model.OfferScore{Score: 0.8},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, o.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListOffers(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()

	cols := []string{"id", "job_id", "provider_id", "price", "eta_minutes", "notes", "score_detail", "created_at"}
	mock.ExpectQuery(`FROM offers WHERE job_id = \$1 ORDER BY score DESC`).
		WithArgs("j1").
		WillReturnRows(pgxmock.NewRows(cols).
			AddRow("o1", "j1", "p1", 900.0, 10, "", []byte(`{"score":0.9,"estimator_generated":false}`), now).
			AddRow("o2", "j1", "p2", 1200.0, 45, "van", []byte(`{"score":0.5,"estimator_generated":true,"reasoning":"pricey"}`), now))

	offers, err := s.ListOffers(context.Background(), "j1")
	require.NoError(t, err)
	require.Len(t, offers, 2)
	assert.Equal(t, "o1", offers[0].ID)
	assert.Equal(t, 0.9, offers[0].Score.Score)
	assert.True(t, offers[1].Score.EstimatorGenerated)
	assert.Equal(t, "pricey", offers[1].Score.Reasoning)
	assert.NoError(t, mock.ExpectationsWereMet())
}
