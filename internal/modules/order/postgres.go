// README: Order store backed by PostgreSQL.
package order

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"fixgo/internal/types"
)

type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, o *Order) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO orders (
			id, client_id, provider_id, status, status_version,
			client_lat, client_lng, eta_seconds, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		string(o.ID),
		string(o.ClientID),
		string(o.ProviderID),
		string(o.Status),
		o.StatusVersion,
		o.Destination.Lat, o.Destination.Lng,
		o.ETASeconds,
		o.CreatedAt,
	)
	return err
}

func (s *PostgresStore) Get(ctx context.Context, id types.ID) (*Order, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, client_id, provider_id, status, status_version,
		       client_lat, client_lng, provider_lat, provider_lng, eta_seconds,
		       created_at, accepted_at, departed_at, arrived_at, completed_at,
		       cancelled_at, cancel_reason
		FROM orders
		WHERE id = $1`, string(id),
	)

	var o Order
	var providerLat, providerLng sql.NullFloat64
	var eta sql.NullInt32
	var acceptedAt, departedAt, arrivedAt, completedAt, cancelledAt sql.NullTime
	var cancelReason sql.NullString

	err := row.Scan(
		&o.ID, &o.ClientID, &o.ProviderID, &o.Status, &o.StatusVersion,
		&o.Destination.Lat, &o.Destination.Lng, &providerLat, &providerLng, &eta,
		&o.CreatedAt, &acceptedAt, &departedAt, &arrivedAt, &completedAt,
		&cancelledAt, &cancelReason,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if providerLat.Valid && providerLng.Valid {
		o.ProviderPos = &types.Point{Lat: providerLat.Float64, Lng: providerLng.Float64}
	}
	if eta.Valid {
		v := int(eta.Int32)
		o.ETASeconds = &v
	}
	o.AcceptedAt = toTimePtr(acceptedAt)
	o.DepartedAt = toTimePtr(departedAt)
	o.ArrivedAt = toTimePtr(arrivedAt)
	o.CompletedAt = toTimePtr(completedAt)
	o.CancelledAt = toTimePtr(cancelledAt)
	if cancelReason.Valid {
		o.CancelReason = &cancelReason.String
	}
	return &o, nil
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, id types.ID, from, to Status, version int) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE orders
		SET status = $1,
		    status_version = status_version + 1,
		    accepted_at = CASE WHEN $1 = 'accepted' THEN NOW() ELSE accepted_at END,
		    departed_at = CASE WHEN $1 = 'en_route' THEN NOW() ELSE departed_at END,
		    arrived_at = CASE WHEN $1 = 'arrived' THEN NOW() ELSE arrived_at END,
		    completed_at = CASE WHEN $1 = 'done' THEN NOW() ELSE completed_at END,
		    cancelled_at = CASE WHEN $1 = 'cancelled' THEN NOW() ELSE cancelled_at END
		WHERE id = $2 AND status = $3 AND status_version = $4`,
		string(to),
		string(id),
		string(from),
		version,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PostgresStore) UpdateProviderPosition(ctx context.Context, id types.ID, p types.Point) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE orders SET provider_lat = $1, provider_lng = $2 WHERE id = $3`,
		p.Lat, p.Lng, string(id),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) AppendEvent(ctx context.Context, e *Event) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO order_state_events (
			order_id, from_status, to_status, actor_type, actor_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6)`,
		string(e.OrderID),
		string(e.FromStatus),
		string(e.ToStatus),
		e.ActorType,
		toStringPtr(e.ActorID),
		e.CreatedAt,
	)
	return err
}

func (s *PostgresStore) HasActiveByClient(ctx context.Context, clientID types.ID) (bool, error) {
	row := s.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM orders
			WHERE client_id = $1
			  AND status IN ('requested','accepted','en_route','arrived')
		)`, string(clientID),
	)
	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func toStringPtr(v *types.ID) *string {
	if v == nil {
		return nil
	}
	s := string(*v)
	return &s
}

func toTimePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}
