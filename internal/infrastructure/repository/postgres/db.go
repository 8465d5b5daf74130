package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// The ledger takes one insert per build and an occasional history read.
const (
	ledgerMaxConns     = 2
	ledgerConnLifetime = 30 * time.Minute
	ledgerPingTimeout  = 5 * time.Second
)

// OpenDB opens the build ledger database through the pgx stdlib driver and
// fails fast when it is unreachable.
func OpenDB(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open ledger db: %w", err)
	}
	db.SetMaxOpenConns(ledgerMaxConns)
	db.SetMaxIdleConns(ledgerMaxConns)
	db.SetConnMaxLifetime(ledgerConnLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, ledgerPingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping ledger db: %w", err)
	}
	return db, nil
}
