// README: Postgres store tests, gated on FIXGO_TEST_DSN (run with -race).
package order

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"fixgo/internal/infra"
	"fixgo/internal/types"
)

func TestPostgresHappyPath(t *testing.T) {
	svc := NewService(setupPostgresStore(t), nil, nil)
	ctx := context.Background()

	orderID := mustCreateOrder(t, svc, "c_pg_happy", "p_pg_happy")
	assertStatus(t, svc, orderID, StatusRequested)

	if err := svc.Accept(ctx, AcceptCommand{OrderID: orderID, ProviderID: "p_pg_happy"}); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if err := svc.Depart(ctx, DepartCommand{OrderID: orderID, ProviderID: "p_pg_happy"}); err != nil {
		t.Fatalf("depart: %v", err)
	}
	if err := svc.UpdateProviderPosition(ctx, orderID, types.Point{Lat: 52.01, Lng: 21.01}); err != nil {
		t.Fatalf("position: %v", err)
	}
	if err := svc.Arrive(ctx, ArriveCommand{OrderID: orderID, ProviderID: "p_pg_happy"}); err != nil {
		t.Fatalf("arrive: %v", err)
	}
	if err := svc.Complete(ctx, CompleteCommand{OrderID: orderID, ProviderID: "p_pg_happy"}); err != nil {
		t.Fatalf("complete: %v", err)
	}

	o, err := svc.Get(ctx, orderID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if o.Status != StatusDone {
		t.Fatalf("expected done, got %s", o.Status)
	}
	if o.ProviderPos == nil || o.ProviderPos.Lat != 52.01 {
		t.Fatalf("expected persisted provider position, got %+v", o.ProviderPos)
	}
	if o.StatusVersion != 4 {
		t.Fatalf("expected status_version 4 after four transitions, got %d", o.StatusVersion)
	}
}

func TestPostgresConcurrentAccept(t *testing.T) {
	svc := NewService(setupPostgresStore(t), nil, nil)
	ctx := context.Background()

	orderID := mustCreateOrder(t, svc, "c_pg_race", "p_pg_race")

	const attempts = 8
	var wg sync.WaitGroup
	errs := make(chan error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- svc.Accept(ctx, AcceptCommand{OrderID: orderID, ProviderID: "p_pg_race"})
		}()
	}

	wg.Wait()
	close(errs)

	success := 0
	for err := range errs {
		if err == nil {
			success++
			continue
		}
		if err != ErrConflict && err != ErrInvalidState {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if success != 1 {
		t.Fatalf("expected exactly 1 success, got %d", success)
	}
	assertStatus(t, svc, orderID, StatusAccepted)
}

func setupPostgresStore(t *testing.T) *PostgresStore {
	t.Helper()

	dsn := os.Getenv("FIXGO_TEST_DSN")
	if dsn == "" {
		t.Skip("FIXGO_TEST_DSN not set; skipping DB-backed tests")
	}

	root, err := repoRoot()
	if err != nil {
		t.Fatalf("locate repo root: %v", err)
	}
	if err := infra.MigrateUp(dsn, filepath.Join(root, "migrations")); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}

	ctx := context.Background()
	db, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := db.Exec(ctx, "TRUNCATE TABLE order_state_events, orders"); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}

	return NewPostgresStore(db)
}

func repoRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for i := 0; i < 6; i++ {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", os.ErrNotExist
}
