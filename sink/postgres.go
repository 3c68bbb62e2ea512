package sink

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// Postgres inserts rows straight into a Postgres table.
type Postgres struct {
	db        *sql.DB
	insertSQL string
}

// OpenPostgres prepares a connection pool for dsn. No connection is made until the first insert
// or Ping.
func OpenPostgres(dsn, table string) (*Postgres, error) {
	if dsn == "" {
		return nil, errors.New("postgres: DSN is required")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open connection: %w", err)
	}

	return NewPostgres(db, table), nil
}

func NewPostgres(db *sql.DB, table string) *Postgres {
	return &Postgres{
		db:        db,
		insertSQL: fmt.Sprintf(`INSERT INTO %s ("time", weight) VALUES ($1, $2)`, pq.QuoteIdentifier(table)),
	}
}

func (p *Postgres) Insert(ctx context.Context, row Row) error {
	if _, err := p.db.ExecContext(ctx, p.insertSQL, row.Time, row.Weight); err != nil {
		return fmt.Errorf("postgres: insert: %w", err)
	}

	return nil
}

// Ping checks that the database is reachable.
func (p *Postgres) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := p.db.PingContext(ctx); err != nil {
		return fmt.Errorf("postgres: ping: %w", err)
	}

	return nil
}

func (p *Postgres) Close() error {
	return p.db.Close()
}
