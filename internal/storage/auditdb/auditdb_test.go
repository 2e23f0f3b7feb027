package auditdb

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/securebank/bankd/internal/bank"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func txn(id, txnType string, amount float64, ts int64) bank.Transaction {
	return bank.Transaction{ID: id, Timestamp: ts, Type: txnType, Amount: amount}
}

func TestRecordAndCount(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.RecordTransaction("ACC1001", "ACC1001_SAV_1", txn("TXN1", "DEPOSIT", 500, 100)))
	require.NoError(t, db.RecordTransaction("ACC1001", "ACC1001_SAV_1", txn("TXN2", "WITHDRAW", -200, 200)))

	count, err := db.TransactionCount(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
}

func TestRecordIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	leg := txn("TXN1", "DEPOSIT", 500, 100)
	require.NoError(t, db.RecordTransaction("ACC1001", "ACC1001_SAV_1", leg))
	require.NoError(t, db.RecordTransaction("ACC1001", "ACC1001_SAV_1", leg))

	count, err := db.TransactionCount(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestAccountHistoryNewestFirst(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.RecordTransaction("ACC1001", "ACC1001_SAV_1", txn("TXN1", "DEPOSIT", 100, 100)))
	require.NoError(t, db.RecordTransaction("ACC1001", "ACC1001_SAV_1", txn("TXN2", "DEPOSIT", 200, 300)))
	require.NoError(t, db.RecordTransaction("ACC1002", "ACC1002_CHK_1", txn("TXN3", "DEPOSIT", 999, 200)))

	history, err := db.AccountHistory(ctx, "ACC1001_SAV_1", 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "TXN2", history[0].TxnID)
	assert.Equal(t, "TXN1", history[1].TxnID)
	assert.Equal(t, "ACC1001", history[0].ClientID)

	limited, err := db.AccountHistory(ctx, "ACC1001_SAV_1", 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "TXN2", limited[0].TxnID)
}

func TestTotalByType(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.RecordTransaction("ACC1001", "ACC1001_SAV_1", txn("TXN1", "DEPOSIT", 100, 1)))
	require.NoError(t, db.RecordTransaction("ACC1001", "ACC1001_SAV_1", txn("TXN2", "DEPOSIT", 250, 2)))
	require.NoError(t, db.RecordTransaction("ACC1001", "ACC1001_SAV_1", txn("TXN3", "WITHDRAW", -50, 3)))

	deposits, err := db.TotalByType(ctx, "DEPOSIT")
	require.NoError(t, err)
	assert.InDelta(t, 350, deposits, 1e-9)

	// Unknown type sums to zero, not an error.
	none, err := db.TotalByType(ctx, "LOAN")
	require.NoError(t, err)
	assert.Zero(t, none)
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.db")

	db, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, db.RecordTransaction("ACC1001", "ACC1001_SAV_1", txn("TXN1", "DEPOSIT", 100, 1)))
	require.NoError(t, db.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	count, err := reopened.TransactionCount(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}
