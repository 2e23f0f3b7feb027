// Package approval implements the security-officer approval broker: two
// FIFO queues (large operations, client verifications) protected by one
// mutex and one condition variable. Client workers submit requests and
// block in WaitForDecision until an operator decides or the wait times
// out; only the verification queue survives restarts, via a plaintext
// spool file.
package approval

import (
	"log"
	"sync"
	"time"

	"github.com/securebank/bankd/internal/bank"
)

// Queue kinds.
type Kind int

const (
	Operations Kind = iota
	Verifications
)

const (
	// DefaultWaitTimeout is the total budget a worker spends waiting for
	// an operator decision.
	DefaultWaitTimeout = 30 * time.Second

	// pollInterval is the condition-variable wait slice; waiters recheck
	// at least this often regardless of broadcasts.
	pollInterval = time.Second
)

// DecisionSink receives every operator decision for archival. Sink
// failures are logged, never propagated.
type DecisionSink interface {
	RecordDecision(req bank.ApprovalRequest, outcome, decidedBy string) error
}

// ClientDirectory is the subset of the store the broker needs to prune
// stale verification requests.
type ClientDirectory interface {
	ClientStatusOf(accountID string) (bank.ClientStatus, bool)
}

// Broker owns the two approval queues.
type Broker struct {
	mu   sync.Mutex
	cond *sync.Cond

	operations    []bank.ApprovalRequest
	verifications []bank.ApprovalRequest

	spoolPath string
	decisions DecisionSink
}

// NewBroker creates a broker spooling the verification queue to
// spoolPath and reloads any spooled requests.
func NewBroker(spoolPath string) *Broker {
	b := &Broker{spoolPath: spoolPath}
	b.cond = sync.NewCond(&b.mu)
	b.loadSpool()
	return b
}

// SetDecisionSink attaches a decision archive.
func (b *Broker) SetDecisionSink(sink DecisionSink) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.decisions = sink
}

// SubmitOperation queues a WITHDRAW/TRANSFER approval request and wakes
// any operator-side listeners. Returns the request id the caller waits on.
func (b *Broker) SubmitOperation(clientID, opType string, amount float64, targetAccount, description string) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	req := bank.ApprovalRequest{
		RequestID:       bank.NewRequestID(),
		ClientAccountID: clientID,
		OperationType:   opType,
		Amount:          amount,
		TargetAccount:   targetAccount,
		Description:     description,
		Timestamp:       time.Now().Unix(),
		Status:          bank.StatusPending,
	}
	b.operations = append(b.operations, req)
	b.cond.Broadcast()

	log.Printf("approval: request %s created for %s - %s $%s",
		req.RequestID, clientID, opType, bank.FormatAmount(amount))
	return req.RequestID
}

// SubmitVerification queues a verification request for a freshly
// registered client. A client with a request already pending gets the
// existing request id back instead of a duplicate entry.
func (b *Broker) SubmitVerification(clientID, description string) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, r := range b.verifications {
		if r.ClientAccountID == clientID {
			return r.RequestID
		}
	}

	req := bank.ApprovalRequest{
		RequestID:       bank.NewRequestID(),
		ClientAccountID: clientID,
		OperationType:   bank.OpVerification,
		Description:     description,
		Timestamp:       time.Now().Unix(),
		Status:          bank.StatusPending,
	}
	b.verifications = append(b.verifications, req)
	b.cond.Broadcast()
	b.saveSpoolLocked()

	log.Printf("approval: verification request %s created for %s", req.RequestID, clientID)
	return req.RequestID
}

// List returns a snapshot of the queue in submission order.
func (b *Broker) List(kind Kind) []bank.ApprovalRequest {
	b.mu.Lock()
	defer b.mu.Unlock()

	src := b.queue(kind)
	out := make([]bank.ApprovalRequest, len(*src))
	copy(out, *src)
	return out
}

// Decide resolves the operation-queue request at the zero-based index,
// marking it approved or rejected in place and waking all waiters.
func (b *Broker) Decide(index int, approve bool, decidedBy string) (bank.ApprovalRequest, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.operations) == 0 {
		return bank.ApprovalRequest{}, ErrQueueEmpty
	}
	if index < 0 || index >= len(b.operations) {
		return bank.ApprovalRequest{}, ErrBadIndex
	}

	outcome := bank.DecisionStatus(approve)
	b.operations[index].Status = outcome
	req := b.operations[index]
	b.cond.Broadcast()

	b.recordDecisionLocked(req, outcome, decidedBy)
	log.Printf("approval: request %s %s by %s", req.RequestID, outcome, decidedBy)
	return req, nil
}

// VerificationAt returns the verification-queue request at index.
func (b *Broker) VerificationAt(index int) (bank.ApprovalRequest, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.verifications) == 0 {
		return bank.ApprovalRequest{}, ErrQueueEmpty
	}
	if index < 0 || index >= len(b.verifications) {
		return bank.ApprovalRequest{}, ErrBadIndex
	}
	return b.verifications[index], nil
}

// CompleteVerification removes a decided verification request from the
// queue, persists the spool, and archives the decision. Called after the
// store has flipped the client to Verified.
func (b *Broker) CompleteVerification(requestID, decidedBy string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, r := range b.verifications {
		if r.RequestID == requestID {
			r.Status = bank.StatusApproved
			b.verifications = append(b.verifications[:i], b.verifications[i+1:]...)
			b.cond.Broadcast()
			b.saveSpoolLocked()
			b.recordDecisionLocked(r, bank.StatusApproved, decidedBy)
			return
		}
	}
}

// WaitForDecision blocks the calling worker until the operation request
// is approved (true), rejected (false), vanishes from the queue (true:
// implicitly resolved), or the timeout elapses (false). The request is
// removed from the queue on return.
func (b *Broker) WaitForDecision(requestID string, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)

	b.mu.Lock()
	defer b.mu.Unlock()

	for {
		idx := -1
		for i, r := range b.operations {
			if r.RequestID == requestID {
				idx = i
				break
			}
		}

		if idx < 0 {
			// Decided and already removed by someone else.
			return true
		}

		switch b.operations[idx].Status {
		case bank.StatusApproved:
			b.removeOperationLocked(idx)
			return true
		case bank.StatusRejected:
			b.removeOperationLocked(idx)
			return false
		}

		if time.Now().After(deadline) {
			log.Printf("approval: timeout waiting on %s", requestID)
			b.removeOperationLocked(idx)
			return false
		}

		b.waitSlice(pollInterval)
	}
}

// waitSlice waits on the condition variable for at most d. The mutex is
// held on entry and on return; the loop around it rechecks state, so
// spurious wakeups are harmless.
func (b *Broker) waitSlice(d time.Duration) {
	timer := time.AfterFunc(d, func() {
		b.mu.Lock()
		b.cond.Broadcast()
		b.mu.Unlock()
	})
	defer timer.Stop()
	b.cond.Wait()
}

// CleanupVerificationQueue drops requests whose client no longer exists
// or is no longer pending verification.
func (b *Broker) CleanupVerificationQueue(dir ClientDirectory) {
	b.mu.Lock()
	defer b.mu.Unlock()

	kept := b.verifications[:0]
	for _, r := range b.verifications {
		status, ok := dir.ClientStatusOf(r.ClientAccountID)
		if ok && status == bank.PendingVerification {
			kept = append(kept, r)
		}
	}
	if len(kept) != len(b.verifications) {
		b.verifications = kept
		b.saveSpoolLocked()
	}
}

// PendingCounts returns the lengths of the two queues.
func (b *Broker) PendingCounts() (operations, verifications int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.operations), len(b.verifications)
}

// Flush persists the verification spool. Called on shutdown; the
// operation queue is deliberately volatile.
func (b *Broker) Flush() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.saveSpoolLocked()
}

func (b *Broker) queue(kind Kind) *[]bank.ApprovalRequest {
	if kind == Verifications {
		return &b.verifications
	}
	return &b.operations
}

func (b *Broker) removeOperationLocked(idx int) {
	b.operations = append(b.operations[:idx], b.operations[idx+1:]...)
}

func (b *Broker) recordDecisionLocked(req bank.ApprovalRequest, outcome, decidedBy string) {
	if b.decisions == nil {
		return
	}
	if err := b.decisions.RecordDecision(req, outcome, decidedBy); err != nil {
		log.Printf("approval: decision archive rejected %s: %v", req.RequestID, err)
	}
}
