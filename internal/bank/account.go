package bank

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// Available returns the spendable amount: balance plus credit limit.
func (a *Account) Available() float64 {
	return a.Balance + a.CreditLimit
}

// Deposit credits amount and records a DEPOSIT transaction.
func (a *Account) Deposit(amount float64, description string) error {
	if amount <= 0 {
		return ErrNonPositiveAmount
	}

	a.Balance += amount
	a.appendTransaction(OpDeposit, amount, description, "")
	return nil
}

// Withdraw debits amount and records a WITHDRAW transaction carrying the
// negated amount. Fails if amount exceeds balance + credit limit.
func (a *Account) Withdraw(amount float64, description string) error {
	if amount <= 0 {
		return ErrNonPositiveAmount
	}
	if amount > a.Available() {
		return ErrInsufficientFunds
	}

	a.Balance -= amount
	a.appendTransaction(OpWithdraw, -amount, description, "")
	return nil
}

// RecordTransfer appends a transfer leg without touching the balance; the
// caller adjusts balances. target is the counterparty account number.
func (a *Account) RecordTransfer(txnType string, amount float64, description, target string) {
	a.appendTransaction(txnType, amount, description, target)
}

// DropLastTransaction removes the most recent ledger entry. Used to undo
// a transfer leg when the opposite leg fails.
func (a *Account) DropLastTransaction() {
	if n := len(a.Transactions); n > 0 {
		a.Transactions = a.Transactions[:n-1]
	}
}

func (a *Account) appendTransaction(txnType string, amount float64, description, target string) {
	a.Transactions = append(a.Transactions, Transaction{
		ID:            NewTransactionID(),
		Timestamp:     time.Now().Unix(),
		Type:          txnType,
		Amount:        amount,
		Description:   description,
		TargetAccount: target,
	})
}

// OpDeposit is the transaction type for credits.
const OpDeposit = "DEPOSIT"

// NewTransactionID generates an opaque transaction id: "TXN" followed by
// 12 lowercase hex characters.
func NewTransactionID() string {
	var buf [6]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// Entropy exhaustion is not survivable for id generation.
		panic(fmt.Sprintf("bank: transaction id entropy: %v", err))
	}
	return "TXN" + hex.EncodeToString(buf[:])
}

// NewRequestID generates an approval request id: "REQ" + epoch seconds +
// four decimal digits.
func NewRequestID() string {
	var buf [2]byte
	if _, err := rand.Read(buf[:]); err != nil {
		panic(fmt.Sprintf("bank: request id entropy: %v", err))
	}
	n := (uint16(buf[0])<<8 | uint16(buf[1])) % 10000
	return fmt.Sprintf("REQ%d%04d", time.Now().Unix(), n)
}

// NewClientID generates a candidate client id "ACC" + four digits in
// 1000..9999. The caller must reject collisions against the store.
func NewClientID() string {
	var buf [2]byte
	if _, err := rand.Read(buf[:]); err != nil {
		panic(fmt.Sprintf("bank: client id entropy: %v", err))
	}
	n := (uint16(buf[0])<<8 | uint16(buf[1])) % 9000
	return fmt.Sprintf("ACC%d", 1000+int(n))
}

// AccountNumberFor builds the account number for a client's next account:
// <accountId>_<prefix>_<ordinal> where ordinal is the previous count + 1.
func AccountNumberFor(clientID string, t AccountType, existing int) string {
	return fmt.Sprintf("%s_%s_%d", clientID, t.Prefix(), existing+1)
}

// FindClientAccount returns a pointer to the account at idx, or nil if
// the index is out of range.
func (c *Client) FindClientAccount(idx int) *Account {
	if idx < 0 || idx >= len(c.Accounts) {
		return nil
	}
	return &c.Accounts[idx]
}
