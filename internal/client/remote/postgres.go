package remote

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// DefaultTimeout bounds a single remote call when none is configured.
const DefaultTimeout = 10 * time.Second

// PostgresGateway implements Gateway over database/sql with the pgx driver.
type PostgresGateway struct {
	db      *sql.DB
	timeout time.Duration
}

// NewPostgresGateway wraps db. Each call is bounded by timeout; a
// non-positive value selects DefaultTimeout.
func NewPostgresGateway(db *sql.DB, timeout time.Duration) *PostgresGateway {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &PostgresGateway{db: db, timeout: timeout}
}

// OpenPostgres opens a lazily connecting pool for dsn. It does not touch
// the network, so a client can start while the store is unreachable.
func OpenPostgres(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open remote store: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetConnMaxIdleTime(time.Minute)
	return db, nil
}

func (g *PostgresGateway) call(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, g.timeout)
}

func (g *PostgresGateway) Ping(ctx context.Context) error {
	ctx, cancel := g.call(ctx)
	defer cancel()
	return mapError(g.db.PingContext(ctx))
}

// execOne runs a statement that must touch exactly one row; zero rows
// means ErrNotFound.
func (g *PostgresGateway) execOne(ctx context.Context, query string, args ...any) error {
	ctx, cancel := g.call(ctx)
	defer cancel()

	res, err := g.db.ExecContext(ctx, query, args...)
	if err != nil {
		return mapError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return mapError(err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func createdAtOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}
