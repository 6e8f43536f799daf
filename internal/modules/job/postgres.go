// README: Job marker store backed by PostgreSQL.
package job

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fixgo/internal/modules/cluster"
)

type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) ListMarkers(ctx context.Context, f Filter) ([]cluster.JobMarker, error) {
	query := `
		SELECT id, title, city, COALESCE(district, ''), lat, lng,
		       category, parent_category, budget, urgent, precise_location
		FROM job_markers
		WHERE ($1 = '' OR LOWER(city) = LOWER($1))
		  AND ($2 = '' OR category = $2 OR parent_category = $2)
		  AND (NOT $3 OR urgent)`

	rows, err := s.db.Query(ctx, query, f.City, f.Category, f.UrgentOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (cluster.JobMarker, error) {
		var m cluster.JobMarker
		err := row.Scan(
			&m.ID, &m.Title, &m.City, &m.District, &m.Point.Lat, &m.Point.Lng,
			&m.Category, &m.ParentCategory, &m.Budget, &m.Urgent, &m.PreciseLocation,
		)
		return m, err
	})
}
