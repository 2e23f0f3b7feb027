// Package bank defines the banking data model: clients, accounts,
// transactions, bank settings and approval requests, together with the
// pipe-delimited snapshot wire format they are persisted in.
package bank

import "strconv"

// AccountType enumerates the supported account kinds. The integer values
// are part of the snapshot format and must not be reordered.
type AccountType int

const (
	Savings AccountType = iota
	Checking
	Credit
	Deposit
)

// String returns the human-readable account type name.
func (t AccountType) String() string {
	switch t {
	case Savings:
		return "Savings"
	case Checking:
		return "Checking"
	case Credit:
		return "Credit"
	case Deposit:
		return "Deposit"
	default:
		return "Unknown"
	}
}

// Prefix returns the account-number prefix for the type (SAV, CHK, CRD, DEP).
func (t AccountType) Prefix() string {
	switch t {
	case Savings:
		return "SAV"
	case Checking:
		return "CHK"
	case Credit:
		return "CRD"
	case Deposit:
		return "DEP"
	default:
		return "UNK"
	}
}

// Valid reports whether t is one of the defined account types.
func (t AccountType) Valid() bool {
	return t >= Savings && t <= Deposit
}

// AccountStatus enumerates account lifecycle states.
type AccountStatus int

const (
	AccountActive AccountStatus = iota
	AccountBlocked
	AccountClosed
)

// ClientStatus enumerates client verification states. Integer values are
// persisted in the snapshot.
type ClientStatus int

const (
	PendingVerification ClientStatus = iota
	Verified
	Blocked
)

// String returns the wire representation used in INFO and LOGIN replies.
func (s ClientStatus) String() string {
	switch s {
	case Verified:
		return "VERIFIED"
	case Blocked:
		return "BLOCKED"
	default:
		return "PENDING VERIFICATION"
	}
}

// Transaction is a single ledger entry on an account. Withdraw legs carry
// the negated amount.
type Transaction struct {
	ID            string
	Timestamp     int64
	Type          string // "DEPOSIT" or "WITHDRAW"
	Amount        float64
	Description   string
	TargetAccount string
}

// Account is one account owned by a client. Number and Type are fixed at
// creation; the rest mutates through deposits, withdrawals and transfers.
type Account struct {
	Number       string
	Type         AccountType
	Balance      float64
	CreditLimit  float64
	Status       AccountStatus
	Transactions []Transaction
}

// Client is one bank customer, including the built-in operator SUPER001.
type Client struct {
	AccountID    string
	FullName     string
	BirthDate    string
	PassportData string
	PasswordHash string
	Status       ClientStatus
	Accounts     []Account
}

// Settings holds the bank-wide tunables persisted in the settings file.
type Settings struct {
	CreditInterestRate      float64
	DepositInterestRate     float64
	LargeOperationThreshold float64
	LargeLoanThreshold      float64
}

// DefaultSettings returns the factory settings.
func DefaultSettings() Settings {
	return Settings{
		CreditInterestRate:      12.0,
		DepositInterestRate:     6.5,
		LargeOperationThreshold: 150000.0,
		LargeLoanThreshold:      50000.0,
	}
}

// UnverifiedLimit is the per-operation cap for clients still pending
// verification.
func (s Settings) UnverifiedLimit() float64 {
	return s.LargeOperationThreshold / 10
}

// Approval request statuses and operation types.
const (
	StatusPending  = "PENDING"
	StatusApproved = "APPROVED"
	StatusRejected = "REJECTED"

	OpWithdraw     = "WITHDRAW"
	OpTransfer     = "TRANSFER"
	OpVerification = "VERIFICATION"
)

// DecisionStatus maps an operator's boolean decision to its status string.
func DecisionStatus(approve bool) string {
	if approve {
		return StatusApproved
	}
	return StatusRejected
}

// ApprovalRequest is a queued record awaiting an operator decision.
type ApprovalRequest struct {
	RequestID       string
	ClientAccountID string
	OperationType   string
	Amount          float64
	TargetAccount   string
	Description     string
	Timestamp       int64
	Status          string
}

// OperatorID is the distinguished operator account id. "Is operator" is a
// predicate on this string, not a role column.
const OperatorID = "SUPER001"

// IsOperatorID reports whether accountID names the built-in operator.
func IsOperatorID(accountID string) bool {
	return accountID == OperatorID
}

// FormatAmount renders a currency amount the way it appears on the wire
// and in the snapshot: shortest representation that round-trips.
func FormatAmount(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
