//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mpetrovic/storefront/internal/database"
	ordersdomain "github.com/mpetrovic/storefront/internal/orders/domain"
	"github.com/mpetrovic/storefront/internal/payments/adapters/postgres"
	"github.com/mpetrovic/storefront/internal/payments/domain"
	"github.com/mpetrovic/storefront/internal/payments/ports"
	testpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := testpostgres.Run(ctx,
		"postgres:16-alpine",
		testpostgres.WithDatabase("test"),
		testpostgres.WithUsername("test"),
		testpostgres.WithPassword("test"),
		testpostgres.BasicWaitStrategies(),
		testpostgres.WithWaitStrategy(wait.ForLog("database system is ready to accept connections").WithOccurrence(2)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	migrationsPath := filepath.Join(findProjectRoot(t), "migrations")
	if err := database.RunMigrations(connStr, migrationsPath); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	pool, err := database.NewPool(ctx, connStr)
	if err != nil {
		t.Fatalf("failed to create pool: %v", err)
	}

	t.Cleanup(func() {
		pool.Close()
	})

	return pool
}

func findProjectRoot(t *testing.T) string {
	t.Helper()
	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("could not find project root (go.mod)")
		}
		dir = parent
	}
}

func seedOrder(t *testing.T, pool *pgxpool.Pool, id string) {
	t.Helper()
	now := time.Now().UTC()
	_, err := pool.Exec(context.Background(),
		`INSERT INTO orders (id, user_id, total_cents, status, created_at, updated_at)
		 VALUES ($1, 'user-1', 2000, $2, $3, $3)`,
		id, ordersdomain.StatusPending, now)
	if err != nil {
		t.Fatalf("failed to seed order: %v", err)
	}
}

func testSession(id, orderID string, expiresAt time.Time) domain.Session {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return domain.Session{
		ID:             id,
		OrderID:        orderID,
		GatewayOrderID: "gw_" + id,
		AmountCents:    2000,
		Currency:       "INR",
		Status:         domain.SessionCreated,
		CreatedAt:      now,
		ExpiresAt:      expiresAt,
		UpdatedAt:      now,
	}
}

func TestSessionRepositoryCreateAndGet(t *testing.T) {
	pool := setupTestDB(t)
	seedOrder(t, pool, "order-1")
	repo := postgres.NewRepository(pool)
	ctx := context.Background()

	session := testSession("sess-1", "order-1", time.Now().UTC().Add(15*time.Minute))
	if err := repo.Create(ctx, session); err != nil {
		t.Fatalf("failed to create session: %v", err)
	}

	got, err := repo.GetByGatewayOrderID(ctx, "gw_sess-1")
	if err != nil {
		t.Fatalf("failed to get session: %v", err)
	}
	if got.OrderID != "order-1" {
		t.Errorf("expected order-1, got %s", got.OrderID)
	}
	if got.Status != domain.SessionCreated {
		t.Errorf("expected created session, got %s", got.Status)
	}

	active, err := repo.GetActiveByOrderID(ctx, "order-1")
	if err != nil {
		t.Fatalf("failed to get active session: %v", err)
	}
	if active.ID != "sess-1" {
		t.Errorf("expected sess-1, got %s", active.ID)
	}
}

func TestSessionRepositoryGet_NotFound(t *testing.T) {
	pool := setupTestDB(t)
	repo := postgres.NewRepository(pool)
	ctx := context.Background()

	if _, err := repo.GetByGatewayOrderID(ctx, "missing"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got: %v", err)
	}
	if _, err := repo.GetActiveByOrderID(ctx, "missing"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got: %v", err)
	}
}

func TestSessionRepositoryUpdateStatus(t *testing.T) {
	pool := setupTestDB(t)
	seedOrder(t, pool, "order-1")
	repo := postgres.NewRepository(pool)
	ctx := context.Background()

	session := testSession("sess-1", "order-1", time.Now().UTC().Add(15*time.Minute))
	if err := repo.Create(ctx, session); err != nil {
		t.Fatalf("failed to create session: %v", err)
	}

	if err := repo.UpdateStatus(ctx, "sess-1", domain.SessionCreated, domain.SessionCaptured, "pay_1"); err != nil {
		t.Fatalf("expected transition to succeed: %v", err)
	}

	got, err := repo.GetByGatewayOrderID(ctx, "gw_sess-1")
	if err != nil {
		t.Fatalf("failed to reload session: %v", err)
	}
	if got.Status != domain.SessionCaptured {
		t.Errorf("expected captured, got %s", got.Status)
	}
	if got.PaymentID != "pay_1" {
		t.Errorf("expected payment id recorded, got %q", got.PaymentID)
	}

	err = repo.UpdateStatus(ctx, "sess-1", domain.SessionCreated, domain.SessionExpired, "")
	if !errors.Is(err, ports.ErrStatusConflict) {
		t.Fatalf("expected ErrStatusConflict, got: %v", err)
	}

	err = repo.UpdateStatus(ctx, "missing", domain.SessionCreated, domain.SessionExpired, "")
	if !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got: %v", err)
	}
}

func TestSessionRepositoryListExpired(t *testing.T) {
	pool := setupTestDB(t)
	seedOrder(t, pool, "order-1")
	seedOrder(t, pool, "order-2")
	repo := postgres.NewRepository(pool)
	ctx := context.Background()

	now := time.Now().UTC()
	if err := repo.Create(ctx, testSession("sess-old", "order-1", now.Add(-time.Minute))); err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	if err := repo.Create(ctx, testSession("sess-live", "order-2", now.Add(15*time.Minute))); err != nil {
		t.Fatalf("failed to create session: %v", err)
	}

	expired, err := repo.ListExpired(ctx, now, 100)
	if err != nil {
		t.Fatalf("failed to list expired: %v", err)
	}
	if len(expired) != 1 || expired[0].ID != "sess-old" {
		t.Errorf("expected only sess-old, got %+v", expired)
	}
}
