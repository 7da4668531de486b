package integration

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/carelinkhq/carelink/internal/database"
	"github.com/carelinkhq/carelink/internal/models"
	"github.com/carelinkhq/carelink/internal/repositories"
	"github.com/carelinkhq/carelink/pkg/auth"
)

// TestDB manages the PostgreSQL testcontainer and database operations
type TestDB struct {
	Container  testcontainers.Container
	ConnString string
	Pool       *pgxpool.Pool
	DB         *database.DB
}

// SetupTestDatabase creates a PostgreSQL testcontainer, runs migrations, returns TestDB
func SetupTestDatabase(ctx context.Context) (*TestDB, error) {
	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		postgres.WithDatabase("carelink"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := runMigrations(ctx, pool); err != nil {
		pool.Close()
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &TestDB{
		Container:  container,
		ConnString: connStr,
		Pool:       pool,
		DB:         &database.DB{Pool: pool},
	}, nil
}

// runMigrations executes all goose migrations
func runMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	migrationsDir, err := filepath.Abs("../../migrations")
	if err != nil {
		return fmt.Errorf("failed to get migrations path: %w", err)
	}

	// Goose needs a stdlib DB connection
	sqlDB := stdlib.OpenDB(*pool.Config().ConnConfig)
	defer sqlDB.Close()

	if err := goose.UpContext(ctx, sqlDB, migrationsDir); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	return nil
}

// Teardown stops the container and closes the connection pool
func (db *TestDB) Teardown(ctx context.Context) error {
	if db.Pool != nil {
		db.Pool.Close()
	}
	if db.Container != nil {
		return db.Container.Terminate(ctx)
	}
	return nil
}

// CleanupTables truncates all tables for test isolation
func (db *TestDB) CleanupTables(ctx context.Context) error {
	tables := []string{
		"visits",
		"support_workers",
		"audit_logs",
		"identity_settings",
		"mfa_secrets",
		"mfa_lockouts",
		"login_attempts",
		"sessions",
		"identities",
	}

	for _, table := range tables {
		if _, err := db.Pool.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)); err != nil {
			return fmt.Errorf("failed to truncate table %s: %w", table, err)
		}
	}

	return nil
}

// SeedIdentity inserts a test identity with a hashed password
func SeedIdentity(ctx context.Context, pool *pgxpool.Pool, email, password string, mfaEnabled bool) (*models.Identity, error) {
	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	repo := repositories.NewIdentityRepository(&database.DB{Pool: pool})
	identity, err := repo.Create(ctx, &models.Identity{
		Email:        email,
		PasswordHash: hashedPassword,
		Name:         "Test Identity",
		MFAEnabled:   mfaEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to insert identity: %w", err)
	}

	return identity, nil
}

// SeedSupportWorker inserts a support worker row for directory tests
func SeedSupportWorker(ctx context.Context, pool *pgxpool.Pool, name, email, region string) (string, error) {
	query := `
		INSERT INTO support_workers (id, name, email, phone, status, region, created_at, updated_at)
		VALUES ($1, $2, $3, '', 'active', $4, NOW(), NOW())
		RETURNING id
	`

	var id string
	if err := pool.QueryRow(ctx, query, uuid.New().String(), name, email, region).Scan(&id); err != nil {
		return "", fmt.Errorf("failed to insert support worker: %w", err)
	}

	return id, nil
}

// GetStoredSecret reads the encrypted TOTP secret row for an identity
func GetStoredSecret(ctx context.Context, pool *pgxpool.Pool, identityID string) (encrypted, nonce []byte, err error) {
	query := `SELECT secret_encrypted, secret_nonce FROM mfa_secrets WHERE identity_id = $1`
	if err := pool.QueryRow(ctx, query, identityID).Scan(&encrypted, &nonce); err != nil {
		return nil, nil, fmt.Errorf("failed to read mfa secret: %w", err)
	}
	return encrypted, nonce, nil
}
