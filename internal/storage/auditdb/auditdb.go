// Package auditdb maintains an embedded SQLite index of every committed
// transaction leg. The encrypted snapshot remains the authoritative
// record; this index only exists for operational queries (counts,
// per-account history, totals) without decrypting the snapshot.
package auditdb

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/securebank/bankd/internal/bank"
)

const defaultTimeout = 5 * time.Second

// Entry is one indexed transaction leg.
type Entry struct {
	TxnID         string
	AccountNumber string
	ClientID      string
	TxnType       string
	Amount        float64
	Description   string
	TargetAccount string
	CreatedAt     int64
}

// DB wraps the audit database connection.
type DB struct {
	db *sql.DB
}

// Open opens (creating if missing) the audit database at path and
// initializes the schema.
func Open(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("auditdb: open %s: %w", path, err)
	}

	// A single writer keeps the embedded driver out of lock contention.
	sqlDB.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("auditdb: ping: %w", err)
	}

	d := &DB{db: sqlDB}
	if err := d.initSchema(ctx); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return d, nil
}

func (d *DB) initSchema(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS transactions (
	txn_id         TEXT PRIMARY KEY,
	account_number TEXT NOT NULL,
	client_id      TEXT NOT NULL,
	txn_type       TEXT NOT NULL,
	amount         REAL NOT NULL,
	description    TEXT NOT NULL DEFAULT '',
	target_account TEXT NOT NULL DEFAULT '',
	created_at     INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_transactions_account ON transactions(account_number);
CREATE INDEX IF NOT EXISTS idx_transactions_client ON transactions(client_id);
`
	if _, err := d.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("auditdb: init schema: %w", err)
	}
	return nil
}

// Close closes the underlying connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// RecordTransaction indexes one committed leg. Satisfies the store's
// audit sink. Re-recording the same txn id is a no-op.
func (d *DB) RecordTransaction(clientID, accountNumber string, txn bank.Transaction) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	_, err := d.db.ExecContext(ctx, `
INSERT OR IGNORE INTO transactions
	(txn_id, account_number, client_id, txn_type, amount, description, target_account, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		txn.ID, accountNumber, clientID, txn.Type, txn.Amount,
		txn.Description, txn.TargetAccount, txn.Timestamp)
	if err != nil {
		return fmt.Errorf("auditdb: record %s: %w", txn.ID, err)
	}
	return nil
}

// TransactionCount returns the number of indexed legs.
func (d *DB) TransactionCount(ctx context.Context) (int64, error) {
	var count int64
	err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM transactions").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("auditdb: count: %w", err)
	}
	return count, nil
}

// AccountHistory returns the most recent legs for an account, newest first.
func (d *DB) AccountHistory(ctx context.Context, accountNumber string, limit int) ([]Entry, error) {
	rows, err := d.db.QueryContext(ctx, `
SELECT txn_id, account_number, client_id, txn_type, amount, description, target_account, created_at
FROM transactions
WHERE account_number = ?
ORDER BY created_at DESC, txn_id
LIMIT ?`, accountNumber, limit)
	if err != nil {
		return nil, fmt.Errorf("auditdb: history %s: %w", accountNumber, err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.TxnID, &e.AccountNumber, &e.ClientID, &e.TxnType,
			&e.Amount, &e.Description, &e.TargetAccount, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("auditdb: scan: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// TotalByType sums the amounts of all legs of one transaction type.
func (d *DB) TotalByType(ctx context.Context, txnType string) (float64, error) {
	var total sql.NullFloat64
	err := d.db.QueryRowContext(ctx,
		"SELECT SUM(amount) FROM transactions WHERE txn_type = ?", txnType).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("auditdb: total %s: %w", txnType, err)
	}
	return total.Float64, nil
}
