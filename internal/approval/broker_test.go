package approval

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/securebank/bankd/internal/bank"
)

func newTestBroker(t *testing.T) *Broker {
	t.Helper()
	return NewBroker(filepath.Join(t.TempDir(), "verification_queue.dat"))
}

func TestSubmitAndListOrdering(t *testing.T) {
	b := newTestBroker(t)

	id1 := b.SubmitOperation("ACC1001", bank.OpWithdraw, 200000, "", "large withdrawal")
	id2 := b.SubmitOperation("ACC1002", bank.OpTransfer, 180000, "ACC1003", "")

	reqs := b.List(Operations)
	require.Len(t, reqs, 2)
	assert.Equal(t, id1, reqs[0].RequestID, "requests are listed in submission order")
	assert.Equal(t, id2, reqs[1].RequestID)
	assert.Equal(t, bank.StatusPending, reqs[0].Status)
	assert.Empty(t, b.List(Verifications))
}

func TestSubmitVerificationDeduplicates(t *testing.T) {
	b := newTestBroker(t)

	id1 := b.SubmitVerification("ACC1003", "Name: A B | Birth: 1990-01-01 | Passport: 1234567890")
	id2 := b.SubmitVerification("ACC1003", "duplicate")

	assert.Equal(t, id1, id2)
	assert.Len(t, b.List(Verifications), 1)
}

func TestDecideApprove(t *testing.T) {
	b := newTestBroker(t)
	b.SubmitOperation("ACC1001", bank.OpWithdraw, 200000, "", "")

	req, err := b.Decide(0, true, "SUPER001")
	require.NoError(t, err)
	assert.Equal(t, bank.StatusApproved, req.Status)

	reqs := b.List(Operations)
	require.Len(t, reqs, 1)
	assert.Equal(t, bank.StatusApproved, reqs[0].Status)
}

func TestDecideErrors(t *testing.T) {
	b := newTestBroker(t)

	_, err := b.Decide(0, true, "SUPER001")
	assert.ErrorIs(t, err, ErrQueueEmpty)

	b.SubmitOperation("ACC1001", bank.OpWithdraw, 1, "", "")
	_, err = b.Decide(5, true, "SUPER001")
	assert.ErrorIs(t, err, ErrBadIndex)
	_, err = b.Decide(-1, false, "SUPER001")
	assert.ErrorIs(t, err, ErrBadIndex)
}

func TestWaitForDecisionApproved(t *testing.T) {
	b := newTestBroker(t)
	id := b.SubmitOperation("ACC1001", bank.OpWithdraw, 200000, "", "")

	var wg sync.WaitGroup
	var got bool
	wg.Add(1)
	go func() {
		defer wg.Done()
		got = b.WaitForDecision(id, 10*time.Second)
	}()

	time.Sleep(50 * time.Millisecond)
	_, err := b.Decide(0, true, "SUPER001")
	require.NoError(t, err)

	wg.Wait()
	assert.True(t, got)
	ops, _ := b.PendingCounts()
	assert.Zero(t, ops, "decided request is removed by the waiter")
}

func TestWaitForDecisionRejected(t *testing.T) {
	b := newTestBroker(t)
	id := b.SubmitOperation("ACC1001", bank.OpTransfer, 200000, "ACC1002", "")

	var wg sync.WaitGroup
	var got bool
	wg.Add(1)
	go func() {
		defer wg.Done()
		got = b.WaitForDecision(id, 10*time.Second)
	}()

	time.Sleep(50 * time.Millisecond)
	_, err := b.Decide(0, false, "SUPER001")
	require.NoError(t, err)

	wg.Wait()
	assert.False(t, got)
	ops, _ := b.PendingCounts()
	assert.Zero(t, ops)
}

func TestWaitForDecisionTimeout(t *testing.T) {
	b := newTestBroker(t)
	id := b.SubmitOperation("ACC1001", bank.OpWithdraw, 200000, "", "")

	start := time.Now()
	got := b.WaitForDecision(id, 100*time.Millisecond)
	assert.False(t, got)
	assert.Less(t, time.Since(start), 5*time.Second)

	ops, _ := b.PendingCounts()
	assert.Zero(t, ops, "timed-out request is dropped")
}

func TestWaitForDecisionMissingRequestImplicitlyResolved(t *testing.T) {
	b := newTestBroker(t)
	assert.True(t, b.WaitForDecision("REQ-unknown", time.Second))
}

func TestVerificationLifecycle(t *testing.T) {
	b := newTestBroker(t)
	id := b.SubmitVerification("ACC1003", "Name: Sidorov Alexey | Birth: 1995-08-10 | Passport: 4510789123")

	req, err := b.VerificationAt(0)
	require.NoError(t, err)
	assert.Equal(t, id, req.RequestID)
	assert.Equal(t, bank.OpVerification, req.OperationType)

	b.CompleteVerification(id, "SUPER001")
	assert.Empty(t, b.List(Verifications))

	_, err = b.VerificationAt(0)
	assert.ErrorIs(t, err, ErrQueueEmpty)
}

func TestSpoolSurvivesRestart(t *testing.T) {
	spool := filepath.Join(t.TempDir(), "verification_queue.dat")

	b := NewBroker(spool)
	b.SubmitVerification("ACC1003", "Name: A B | Birth: 1990-01-01 | Passport: 1234567890")
	b.SubmitOperation("ACC1001", bank.OpWithdraw, 200000, "", "volatile")
	b.Flush()

	reborn := NewBroker(spool)
	ops, vers := reborn.PendingCounts()
	assert.Zero(t, ops, "operation queue is volatile across restarts")
	require.Equal(t, 1, vers)

	req, err := reborn.VerificationAt(0)
	require.NoError(t, err)
	assert.Equal(t, "ACC1003", req.ClientAccountID)
	assert.Equal(t, "Name: A B | Birth: 1990-01-01 | Passport: 1234567890", req.Description)
}

type stubDirectory map[string]bank.ClientStatus

func (d stubDirectory) ClientStatusOf(id string) (bank.ClientStatus, bool) {
	s, ok := d[id]
	return s, ok
}

func TestCleanupVerificationQueue(t *testing.T) {
	b := newTestBroker(t)
	b.SubmitVerification("ACC1001", "still pending")
	b.SubmitVerification("ACC1002", "already verified")
	b.SubmitVerification("ACC1003", "client deleted")

	b.CleanupVerificationQueue(stubDirectory{
		"ACC1001": bank.PendingVerification,
		"ACC1002": bank.Verified,
	})

	reqs := b.List(Verifications)
	require.Len(t, reqs, 1)
	assert.Equal(t, "ACC1001", reqs[0].ClientAccountID)
}

type captureDecisions struct {
	mu       sync.Mutex
	outcomes []string
}

func (c *captureDecisions) RecordDecision(req bank.ApprovalRequest, outcome, decidedBy string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.outcomes = append(c.outcomes, outcome)
	return nil
}

func TestDecisionSinkSeesDecisions(t *testing.T) {
	b := newTestBroker(t)
	sink := &captureDecisions{}
	b.SetDecisionSink(sink)

	b.SubmitOperation("ACC1001", bank.OpWithdraw, 1, "", "")
	b.SubmitOperation("ACC1001", bank.OpWithdraw, 2, "", "")
	_, err := b.Decide(0, true, "SUPER001")
	require.NoError(t, err)
	_, err = b.Decide(1, false, "SUPER001")
	require.NoError(t, err)

	id := b.SubmitVerification("ACC1003", "desc")
	b.CompleteVerification(id, "SUPER001")

	assert.Equal(t, []string{bank.StatusApproved, bank.StatusRejected, bank.StatusApproved}, sink.outcomes)
}
