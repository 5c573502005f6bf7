package infra

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// NewPostgresPool configures and returns a PostgreSQL connection pool.
// Pool sizing from the URL (pool_max_conns and friends) wins over the
// defaults set here.
func NewPostgresPool(ctx context.Context, url string) (*pgxpool.Pool, error) {
	if url == "" {
		return nil, fmt.Errorf("database url is required")
	}

	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	if !strings.Contains(url, "pool_max_conn_lifetime") {
		cfg.MaxConnLifetime = 30 * time.Minute
	}
	if !strings.Contains(url, "pool_health_check_period") {
		cfg.HealthCheckPeriod = 30 * time.Second
	}
	cfg.ConnConfig.RuntimeParams["application_name"] = "tentera_api"

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return pool, nil
}

const accountsSchema = `CREATE TABLE IF NOT EXISTS accounts (
    id BIGSERIAL PRIMARY KEY,
    customer_name VARCHAR(100) NOT NULL,
    ic_number VARCHAR(15) NOT NULL,
    email VARCHAR(100) NOT NULL,
    phone_number VARCHAR(16) NOT NULL,
    pin_hash VARCHAR(255) NOT NULL DEFAULT '',
    has_accepted_privacy_policy BOOLEAN NOT NULL DEFAULT FALSE,
    is_email_verified BOOLEAN NOT NULL DEFAULT FALSE,
    is_phone_verified BOOLEAN NOT NULL DEFAULT FALSE,
    use_face_biometric BOOLEAN NOT NULL DEFAULT FALSE,
    is_face_biometric_enabled BOOLEAN NOT NULL DEFAULT FALSE,
    use_fingerprint_biometric BOOLEAN NOT NULL DEFAULT FALSE,
    is_fingerprint_biometric_enabled BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL,
    CONSTRAINT accounts_ic_number_key UNIQUE (ic_number),
    CONSTRAINT accounts_email_key UNIQUE (email),
    CONSTRAINT accounts_phone_number_key UNIQUE (phone_number)
)`

// MigratePostgres creates the accounts table when it does not exist.
func MigratePostgres(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, accountsSchema); err != nil {
		return fmt.Errorf("migrate postgres: %w", err)
	}
	return nil
}
