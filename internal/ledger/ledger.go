package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"resumeup/internal/config"
	"resumeup/internal/logging"
)

const schema = `
CREATE TABLE IF NOT EXISTS credits (
    id         INTEGER PRIMARY KEY CHECK (id = 1),
    balance    INTEGER NOT NULL CHECK (balance >= 0),
    updated_at TEXT    NOT NULL
);
`

// Ledger owns the persisted credit balance. All mutation goes through Consume
// and Add; the in-memory mirror exists so reads stay cheap and so Load can
// fail soft when storage is unavailable.
type Ledger struct {
	db     *sql.DB
	path   string
	grant  int
	logger *slog.Logger

	mu      sync.Mutex
	balance int
}

// Open initializes or connects to the credit database under the state dir.
func Open(cfg *config.Config, logger *slog.Logger) (*Ledger, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.StateDir, "credits.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open credits db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply credits schema: %w", err)
	}

	return &Ledger{
		db:     db,
		path:   dbPath,
		grant:  cfg.Credits.StartingGrant,
		logger: logging.NewComponentLogger(logger, "ledger"),
		// Mirror defaults to the grant so a failed Load still reports a
		// usable balance (fail-soft contract).
		balance: cfg.Credits.StartingGrant,
	}, nil
}

// Close closes the underlying database connection.
func (l *Ledger) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}

// Load reads the persisted balance. On first-ever load the starting grant is
// written and returned. Load never fails: on storage errors the in-memory
// default is kept and a warning is logged.
func (l *Ledger) Load(ctx context.Context) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	var balance int
	err := l.db.QueryRowContext(ctx, `SELECT balance FROM credits WHERE id = 1`).Scan(&balance)
	switch {
	case err == nil:
		l.balance = balance
	case errors.Is(err, sql.ErrNoRows):
		if seedErr := l.seedLocked(ctx); seedErr != nil {
			l.logger.Warn("failed to persist starting grant; using in-memory default",
				logging.Error(seedErr),
				logging.Int("starting_grant", l.grant),
			)
		}
		l.balance = l.grant
	default:
		l.logger.Warn("failed to load credit balance; using in-memory default",
			logging.Error(err),
			logging.Int("balance", l.balance),
		)
	}
	return l.balance
}

func (l *Ledger) seedLocked(ctx context.Context) error {
	_, err := l.db.ExecContext(
		ctx,
		`INSERT INTO credits (id, balance, updated_at) VALUES (1, ?, ?)
         ON CONFLICT (id) DO NOTHING`,
		l.grant,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("seed starting grant: %w", err)
	}
	l.logger.Info("seeded starting credit grant", logging.Int("balance", l.grant))
	return nil
}

// Balance returns the last known balance.
func (l *Ledger) Balance() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balance
}

// HasCredits reports whether at least one credit is available.
func (l *Ledger) HasCredits() bool {
	return l.Balance() > 0
}

// Consume decrements the balance by exactly one. It returns false and leaves
// the balance unchanged when no credit is available. The decrement happens in
// a single conditional UPDATE, so concurrent consumers can never drive the
// balance negative.
func (l *Ledger) Consume(ctx context.Context) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	res, err := l.db.ExecContext(
		ctx,
		`UPDATE credits SET balance = balance - 1, updated_at = ?
         WHERE id = 1 AND balance > 0`,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return false, fmt.Errorf("consume credit: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		// Row may not exist yet when Consume runs before the first Load.
		if l.balance <= 0 {
			return false, nil
		}
		if seedErr := l.seedLocked(ctx); seedErr != nil {
			return false, seedErr
		}
		return l.consumeSeededLocked(ctx)
	}

	if l.balance > 0 {
		l.balance--
	}
	return true, nil
}

func (l *Ledger) consumeSeededLocked(ctx context.Context) (bool, error) {
	res, err := l.db.ExecContext(
		ctx,
		`UPDATE credits SET balance = balance - 1, updated_at = ?
         WHERE id = 1 AND balance > 0`,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return false, fmt.Errorf("consume credit: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return false, nil
	}
	if l.balance > 0 {
		l.balance--
	}
	return true, nil
}

// Add increments the balance by a non-negative amount (post-purchase grant)
// and persists the new value.
func (l *Ledger) Add(ctx context.Context, amount int) error {
	if amount < 0 {
		return fmt.Errorf("add credits: amount %d must not be negative", amount)
	}
	if amount == 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	res, err := l.db.ExecContext(
		ctx,
		`UPDATE credits SET balance = balance + ?, updated_at = ? WHERE id = 1`,
		amount,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("add credits: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		_, err = l.db.ExecContext(
			ctx,
			`INSERT INTO credits (id, balance, updated_at) VALUES (1, ?, ?)`,
			l.grant+amount,
			time.Now().UTC().Format(time.RFC3339Nano),
		)
		if err != nil {
			return fmt.Errorf("add credits: %w", err)
		}
		l.balance = l.grant + amount
		return nil
	}

	l.balance += amount
	return nil
}

// Refresh rereads the persisted balance, seeding the grant on first run.
func (l *Ledger) Refresh(ctx context.Context) int {
	return l.Load(ctx)
}
