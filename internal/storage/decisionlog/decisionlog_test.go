package decisionlog

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/securebank/bankd/internal/bank"
)

func openTestLog(t *testing.T) *Log {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "decisions"))
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func request(id string, amount float64, desc string) bank.ApprovalRequest {
	return bank.ApprovalRequest{
		RequestID:       id,
		ClientAccountID: "ACC1001",
		OperationType:   bank.OpWithdraw,
		Amount:          amount,
		Description:     desc,
		Timestamp:       time.Now().Unix(),
		Status:          bank.StatusPending,
	}
}

func TestRecordAndReplay(t *testing.T) {
	l := openTestLog(t)

	require.NoError(t, l.RecordDecision(request("REQ1", 200000, "large withdrawal"), bank.StatusApproved, "SUPER001"))
	require.NoError(t, l.RecordDecision(request("REQ2", 180000, ""), bank.StatusRejected, "SUPER001"))

	entries, err := l.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "REQ1", entries[0].Request.RequestID)
	assert.Equal(t, bank.StatusApproved, entries[0].Request.Status)
	assert.Equal(t, "SUPER001", entries[0].DecidedBy)
	assert.Equal(t, "REQ2", entries[1].Request.RequestID)
	assert.Equal(t, bank.StatusRejected, entries[1].Request.Status)

	count, err := l.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestRecordKeepsPipesInDescription(t *testing.T) {
	l := openTestLog(t)

	req := request("REQ1", 0, "Name: Sidorov Alexey | Birth: 1995-08-10 | Passport: 4510789123")
	req.OperationType = bank.OpVerification
	require.NoError(t, l.RecordDecision(req, bank.StatusApproved, "SUPER001"))

	entries, err := l.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, req.Description, entries[0].Request.Description)
	assert.Equal(t, bank.OpVerification, entries[0].Request.OperationType)
}

func TestLargeRecordRoundTrips(t *testing.T) {
	// A long repetitive description crosses the compression threshold.
	l := openTestLog(t)
	desc := strings.Repeat("approved pending review ", 50)

	require.NoError(t, l.RecordDecision(request("REQ1", 1, desc), bank.StatusApproved, "SUPER001"))

	entries, err := l.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, desc, entries[0].Request.Description)
}

func TestEncodeRecordCompressesLargePayloads(t *testing.T) {
	record := strings.Repeat("REQ123|ACC1001|WITHDRAW|", 40)
	encoded := encodeRecord(record)
	assert.Less(t, len(encoded), len(record), "repetitive payload is stored compressed")

	decoded, err := decodeRecord(encoded)
	require.NoError(t, err)
	assert.Equal(t, record, decoded)
}

func TestDecodeRecordRejectsCorruptValues(t *testing.T) {
	_, err := decodeRecord([]byte{1, 2})
	assert.Error(t, err)

	_, err = decodeRecord([]byte{255, 255, 255, 255, 0})
	assert.Error(t, err)
}

func TestReopenKeepsDecisions(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "decisions")

	l, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, l.RecordDecision(request("REQ1", 1, ""), bank.StatusApproved, "SUPER001"))
	require.NoError(t, l.Close())

	reopened, err := Open(dir)
	require.NoError(t, err)
	defer reopened.Close()

	entries, err := reopened.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "REQ1", entries[0].Request.RequestID)
}
