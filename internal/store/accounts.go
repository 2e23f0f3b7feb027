package store

import (
	"fmt"
	"log"

	"github.com/securebank/bankd/internal/bank"
)

// Deposit credits amount to the client's account at idx and persists.
// Returns the account number the deposit landed on.
func (s *Store) Deposit(clientID string, idx int, amount float64, description string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.clients[clientID]
	if !ok {
		return "", ErrClientNotFound
	}
	acct := c.FindClientAccount(idx)
	if acct == nil {
		return "", ErrAccountNotFound
	}

	if err := acct.Deposit(amount, description); err != nil {
		return "", err
	}

	if err := s.saveLocked(); err != nil {
		acct.Balance -= amount
		acct.DropLastTransaction()
		return "", err
	}

	s.recordAuditLocked(clientID, acct.Number, lastTxn(acct))
	return acct.Number, nil
}

// Withdraw debits amount from the client's account at idx and persists.
func (s *Store) Withdraw(clientID string, idx int, amount float64, description string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.clients[clientID]
	if !ok {
		return "", ErrClientNotFound
	}
	acct := c.FindClientAccount(idx)
	if acct == nil {
		return "", ErrAccountNotFound
	}

	if err := acct.Withdraw(amount, description); err != nil {
		return "", err
	}

	if err := s.saveLocked(); err != nil {
		acct.Balance += amount
		acct.DropLastTransaction()
		return "", err
	}

	s.recordAuditLocked(clientID, acct.Number, lastTxn(acct))
	return acct.Number, nil
}

// Transfer moves amount from the source client's account at idx to the
// first account of the target client, recording a leg on each side. Both
// legs are undone if either step fails, and the whole change is rolled
// back if the snapshot write fails.
func (s *Store) Transfer(clientID string, idx int, targetClientID string, amount float64, description string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	src, ok := s.clients[clientID]
	if !ok {
		return "", ErrClientNotFound
	}
	source := src.FindClientAccount(idx)
	if source == nil {
		return "", ErrAccountNotFound
	}

	tgt, ok := s.clients[targetClientID]
	if !ok || len(tgt.Accounts) == 0 {
		return "", ErrAccountNotFound
	}
	target := &tgt.Accounts[0]

	withdrawDesc := description
	if withdrawDesc == "" {
		withdrawDesc = "Transfer to " + target.Number
	}

	if amount <= 0 {
		return "", bank.ErrNonPositiveAmount
	}
	if amount > source.Available() {
		return "", bank.ErrInsufficientFunds
	}

	// Debit leg.
	source.Balance -= amount
	source.RecordTransfer(bank.OpWithdraw, -amount, withdrawDesc, target.Number)

	// Credit leg.
	target.Balance += amount
	target.RecordTransfer(bank.OpDeposit, amount, "Transfer from "+source.Number, source.Number)

	if err := s.saveLocked(); err != nil {
		target.Balance -= amount
		target.DropLastTransaction()
		source.Balance += amount
		source.DropLastTransaction()
		return "", err
	}

	s.recordAuditLocked(clientID, source.Number, lastTxn(source))
	s.recordAuditLocked(targetClientID, target.Number, lastTxn(target))
	return source.Number, nil
}

// CreateAccount appends a new account of the given type to the client and
// persists. Credit accounts open with the configured loan threshold as
// their credit limit.
func (s *Store) CreateAccount(clientID string, accountType bank.AccountType) (bank.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.clients[clientID]
	if !ok {
		return bank.Account{}, ErrClientNotFound
	}

	number := bank.AccountNumberFor(clientID, accountType, len(c.Accounts))
	for _, a := range c.Accounts {
		if a.Number == number {
			return bank.Account{}, fmt.Errorf("%w: %s", ErrDuplicateAccount, number)
		}
	}

	acct := bank.Account{Number: number, Type: accountType}
	if accountType == bank.Credit {
		acct.CreditLimit = s.settings.LargeLoanThreshold
	}

	c.Accounts = append(c.Accounts, acct)

	if err := s.saveLocked(); err != nil {
		c.Accounts = c.Accounts[:len(c.Accounts)-1]
		return bank.Account{}, err
	}

	s.lookup.Add(number, clientID)
	return acct, nil
}

// FindAccount resolves an account number to its owning client id and a
// copy of the account. Lookups go through an LRU cache; misses fall back
// to a full scan.
func (s *Store) FindAccount(number string) (string, bank.Account, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ownerID, ok := s.lookup.Get(number); ok {
		if c, ok := s.clients[ownerID]; ok {
			for _, a := range c.Accounts {
				if a.Number == number {
					cp := a
					cp.Transactions = append([]bank.Transaction(nil), a.Transactions...)
					return ownerID, cp, true
				}
			}
		}
		s.lookup.Remove(number)
	}

	for id, c := range s.clients {
		for _, a := range c.Accounts {
			if a.Number == number {
				s.lookup.Add(number, id)
				cp := a
				cp.Transactions = append([]bank.Transaction(nil), a.Transactions...)
				return id, cp, true
			}
		}
	}
	return "", bank.Account{}, false
}

func (s *Store) recordAuditLocked(clientID, accountNumber string, txn *bank.Transaction) {
	if s.audit == nil || txn == nil {
		return
	}
	if err := s.audit.RecordTransaction(clientID, accountNumber, *txn); err != nil {
		log.Printf("store: audit sink rejected %s on %s: %v", txn.ID, accountNumber, err)
	}
}

func lastTxn(a *bank.Account) *bank.Transaction {
	if len(a.Transactions) == 0 {
		return nil
	}
	return &a.Transactions[len(a.Transactions)-1]
}
