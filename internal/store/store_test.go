package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/securebank/bankd/internal/bank"
	"github.com/securebank/bankd/internal/codec"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "accounts.dat"))
	require.NoError(t, err)
	return s
}

func testClient(id string, balance float64) bank.Client {
	return bank.Client{
		AccountID:    id,
		FullName:     "Test User",
		BirthDate:    "1990-01-01",
		PassportData: "1234567890",
		PasswordHash: codec.HashPassword("testpass"),
		Status:       bank.Verified,
		Accounts: []bank.Account{
			{Number: id + "_SAV_1", Type: bank.Savings, Balance: balance},
		},
	}
}

func TestNewWithMissingSnapshot(t *testing.T) {
	s := newTestStore(t)
	assert.Zero(t, s.ClientCount())
	assert.Equal(t, bank.DefaultSettings(), s.Settings())
}

func TestAddAndFindClient(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.AddClient(testClient("TEST001", 100000)))

	got, ok := s.GetClient("TEST001")
	require.True(t, ok)
	assert.Equal(t, "Test User", got.FullName)
	require.Len(t, got.Accounts, 1)
	assert.Equal(t, 100000.0, got.Accounts[0].Balance)

	_, ok = s.GetClient("NOPE")
	assert.False(t, ok)
}

func TestAddClientDuplicate(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.AddClient(testClient("TEST001", 0)))
	assert.ErrorIs(t, s.AddClient(testClient("TEST001", 0)), ErrClientExists)
}

func TestGetClientReturnsCopy(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.AddClient(testClient("TEST001", 100)))

	got, _ := s.GetClient("TEST001")
	got.Accounts[0].Balance = 999999

	again, _ := s.GetClient("TEST001")
	assert.Equal(t, 100.0, again.Accounts[0].Balance)
}

func TestAuthenticate(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.AddClient(testClient("TEST001", 0)))

	_, ok := s.Authenticate("TEST001", "testpass")
	assert.True(t, ok)

	_, ok = s.Authenticate("TEST001", "wrong")
	assert.False(t, ok)

	_, ok = s.Authenticate("GHOST", "testpass")
	assert.False(t, ok)
}

func TestPassportExists(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.AddClient(testClient("TEST001", 0)))

	assert.True(t, s.PassportExists("1234567890"))
	assert.False(t, s.PassportExists("0987654321"))
}

func TestVerifyClient(t *testing.T) {
	s := newTestStore(t)
	c := testClient("TEST001", 0)
	c.Status = bank.PendingVerification
	require.NoError(t, s.AddClient(c))

	require.NoError(t, s.VerifyClient("TEST001"))
	got, _ := s.GetClient("TEST001")
	assert.Equal(t, bank.Verified, got.Status)

	assert.ErrorIs(t, s.VerifyClient("GHOST"), ErrClientNotFound)
}

func TestSaveLoadIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accounts.dat")
	s, err := New(path)
	require.NoError(t, err)

	require.NoError(t, s.AddClient(testClient("TEST001", 100000)))
	_, err = s.Deposit("TEST001", 0, 5000, "seed")
	require.NoError(t, err)

	before, _ := s.GetClient("TEST001")

	reloaded, err := New(path)
	require.NoError(t, err)
	after, ok := reloaded.GetClient("TEST001")
	require.True(t, ok)
	assert.Equal(t, before, after)
}

func TestDepositWithdraw(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.AddClient(testClient("TEST001", 100000)))

	number, err := s.Deposit("TEST001", 0, 5000, "")
	require.NoError(t, err)
	assert.Equal(t, "TEST001_SAV_1", number)

	_, err = s.Withdraw("TEST001", 0, 30000, "")
	require.NoError(t, err)

	got, _ := s.GetClient("TEST001")
	assert.Equal(t, 75000.0, got.Accounts[0].Balance)
	assert.Len(t, got.Accounts[0].Transactions, 2)
}

func TestDepositBadIndex(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.AddClient(testClient("TEST001", 0)))

	_, err := s.Deposit("TEST001", 5, 100, "")
	assert.ErrorIs(t, err, ErrAccountNotFound)

	_, err = s.Deposit("GHOST", 0, 100, "")
	assert.ErrorIs(t, err, ErrClientNotFound)
}

func TestWithdrawInsufficient(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.AddClient(testClient("TEST001", 100)))

	_, err := s.Withdraw("TEST001", 0, 101, "")
	assert.ErrorIs(t, err, bank.ErrInsufficientFunds)

	got, _ := s.GetClient("TEST001")
	assert.Equal(t, 100.0, got.Accounts[0].Balance)
	assert.Empty(t, got.Accounts[0].Transactions)
}

func TestTransfer(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.AddClient(testClient("TEST001", 350000)))
	recv := testClient("RECEIVER1", 50000)
	recv.PassportData = "1111111111"
	require.NoError(t, s.AddClient(recv))

	_, err := s.Transfer("TEST001", 0, "RECEIVER1", 200000, "")
	require.NoError(t, err)

	src, _ := s.GetClient("TEST001")
	dst, _ := s.GetClient("RECEIVER1")
	assert.Equal(t, 150000.0, src.Accounts[0].Balance)
	assert.Equal(t, 250000.0, dst.Accounts[0].Balance)

	require.Len(t, src.Accounts[0].Transactions, 1)
	require.Len(t, dst.Accounts[0].Transactions, 1)
	assert.Equal(t, -200000.0, src.Accounts[0].Transactions[0].Amount)
	assert.Equal(t, 200000.0, dst.Accounts[0].Transactions[0].Amount)
	assert.Equal(t, "RECEIVER1_SAV_1", src.Accounts[0].Transactions[0].TargetAccount)
	assert.Equal(t, "Transfer from TEST001_SAV_1", dst.Accounts[0].Transactions[0].Description)
}

func TestTransferInsufficient(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.AddClient(testClient("TEST001", 100)))
	recv := testClient("RECEIVER1", 0)
	recv.PassportData = "1111111111"
	require.NoError(t, s.AddClient(recv))

	_, err := s.Transfer("TEST001", 0, "RECEIVER1", 500, "")
	assert.ErrorIs(t, err, bank.ErrInsufficientFunds)

	src, _ := s.GetClient("TEST001")
	dst, _ := s.GetClient("RECEIVER1")
	assert.Equal(t, 100.0, src.Accounts[0].Balance)
	assert.Equal(t, 0.0, dst.Accounts[0].Balance)
	assert.Empty(t, src.Accounts[0].Transactions)
	assert.Empty(t, dst.Accounts[0].Transactions)
}

func TestTransferTargetMissing(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.AddClient(testClient("TEST001", 1000)))

	_, err := s.Transfer("TEST001", 0, "GHOST", 100, "")
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestCreateAccount(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.AddClient(testClient("TEST001", 0)))

	acct, err := s.CreateAccount("TEST001", bank.Checking)
	require.NoError(t, err)
	assert.Equal(t, "TEST001_CHK_2", acct.Number)
	assert.Zero(t, acct.CreditLimit)

	credit, err := s.CreateAccount("TEST001", bank.Credit)
	require.NoError(t, err)
	assert.Equal(t, "TEST001_CRD_3", credit.Number)
	assert.Equal(t, s.Settings().LargeLoanThreshold, credit.CreditLimit)
}

func TestFindAccount(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.AddClient(testClient("TEST001", 42)))

	// Twice: second hit comes from the lookup cache.
	for i := 0; i < 2; i++ {
		owner, acct, ok := s.FindAccount("TEST001_SAV_1")
		require.True(t, ok)
		assert.Equal(t, "TEST001", owner)
		assert.Equal(t, 42.0, acct.Balance)
	}

	_, _, ok := s.FindAccount("NOPE")
	assert.False(t, ok)
}

func TestSnapshotWriteFailureRollsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accounts.dat")
	s, err := New(path)
	require.NoError(t, err)
	require.NoError(t, s.AddClient(testClient("TEST001", 1000)))

	// Block the temp file target so the snapshot write fails. The marker
	// file keeps the directory from being cleaned up by the failure path.
	require.NoError(t, os.Mkdir(path+".tmp", 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(path+".tmp", "marker"), []byte("x"), 0o644))

	_, err = s.Deposit("TEST001", 0, 500, "")
	assert.ErrorIs(t, err, ErrSnapshotWrite)

	got, _ := s.GetClient("TEST001")
	assert.Equal(t, 1000.0, got.Accounts[0].Balance)
	assert.Empty(t, got.Accounts[0].Transactions)

	// And the previous snapshot must not have been truncated.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotEmpty(t, data)

	require.NoError(t, os.RemoveAll(path+".tmp"))
	_, err = s.Deposit("TEST001", 0, 500, "")
	assert.NoError(t, err)
}

func TestTotals(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.AddClient(testClient("TEST001", 100)))
	other := testClient("TEST002", 200)
	other.PassportData = "2222222222"
	other.Accounts = append(other.Accounts, bank.Account{Number: "TEST002_CHK_2", Type: bank.Checking, Balance: 50})
	require.NoError(t, s.AddClient(other))

	assert.Equal(t, 2, s.ClientCount())
	assert.Equal(t, 3, s.AccountCount())
	assert.Equal(t, 350.0, s.TotalBalance())
}

func TestSettingsPersistAcrossReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accounts.dat")
	s, err := New(path)
	require.NoError(t, err)

	settings := s.Settings()
	settings.CreditInterestRate = 15.0
	settings.DepositInterestRate = 8.0
	require.NoError(t, s.SaveSettings(settings))

	reloaded, err := New(path)
	require.NoError(t, err)
	assert.Equal(t, 15.0, reloaded.Settings().CreditInterestRate)
	assert.Equal(t, 8.0, reloaded.Settings().DepositInterestRate)
}

func TestBackupRestore(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "accounts.dat")
	s, err := New(path)
	require.NoError(t, err)
	require.NoError(t, s.AddClient(testClient("TEST001", 500)))

	backup := filepath.Join(dir, "backup", "accounts.bak")
	require.NoError(t, s.Backup(backup))

	// Mutate, then restore: the mutation disappears.
	_, err = s.Deposit("TEST001", 0, 100, "")
	require.NoError(t, err)
	require.NoError(t, s.Restore(backup))

	got, _ := s.GetClient("TEST001")
	assert.Equal(t, 500.0, got.Accounts[0].Balance)
}

func TestRemoveClient(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.AddClient(testClient("TEST001", 0)))

	require.NoError(t, s.RemoveClient("TEST001"))
	assert.Zero(t, s.ClientCount())
	assert.ErrorIs(t, s.RemoveClient("TEST001"), ErrClientNotFound)
}

type captureSink struct {
	legs []bank.Transaction
}

func (c *captureSink) RecordTransaction(clientID, accountNumber string, txn bank.Transaction) error {
	c.legs = append(c.legs, txn)
	return nil
}

func TestAuditSinkReceivesLegs(t *testing.T) {
	s := newTestStore(t)
	sink := &captureSink{}
	s.SetAuditSink(sink)

	require.NoError(t, s.AddClient(testClient("TEST001", 1000)))
	recv := testClient("RECEIVER1", 0)
	recv.PassportData = "1111111111"
	require.NoError(t, s.AddClient(recv))

	_, err := s.Deposit("TEST001", 0, 10, "")
	require.NoError(t, err)
	_, err = s.Transfer("TEST001", 0, "RECEIVER1", 100, "")
	require.NoError(t, err)

	require.Len(t, sink.legs, 3)
	assert.Equal(t, 10.0, sink.legs[0].Amount)
	assert.Equal(t, -100.0, sink.legs[1].Amount)
	assert.Equal(t, 100.0, sink.legs[2].Amount)
}
