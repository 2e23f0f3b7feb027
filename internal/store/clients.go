package store

import (
	"github.com/securebank/bankd/internal/bank"
	"github.com/securebank/bankd/internal/codec"
)

// AddClient inserts a new client and persists. On snapshot failure the
// insertion is rolled back.
func (s *Store) AddClient(c bank.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.clients[c.AccountID]; ok {
		return ErrClientExists
	}

	cp := cloneClient(&c)
	s.clients[c.AccountID] = cp

	if err := s.saveLocked(); err != nil {
		delete(s.clients, c.AccountID)
		return err
	}
	return nil
}

// RemoveClient deletes a client and persists. Not exposed through the
// wire protocol; used by tooling.
func (s *Store) RemoveClient(accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.clients[accountID]
	if !ok {
		return ErrClientNotFound
	}

	delete(s.clients, accountID)
	s.lookup.Purge()

	if err := s.saveLocked(); err != nil {
		s.clients[accountID] = prev
		return err
	}
	return nil
}

// GetClient returns a deep copy of the client record.
func (s *Store) GetClient(accountID string) (bank.Client, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.clients[accountID]
	if !ok {
		return bank.Client{}, false
	}
	return *cloneClient(c), true
}

// Authenticate verifies credentials and returns a copy of the client.
func (s *Store) Authenticate(accountID, password string) (bank.Client, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.clients[accountID]
	if !ok || !codec.VerifyPassword(password, c.PasswordHash) {
		return bank.Client{}, false
	}
	return *cloneClient(c), true
}

// PassportExists reports whether any client carries the passport number.
func (s *Store) PassportExists(passport string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.clients {
		if c.PassportData == passport {
			return true
		}
	}
	return false
}

// VerifyClient flips the client to Verified and persists.
func (s *Store) VerifyClient(accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.clients[accountID]
	if !ok {
		return ErrClientNotFound
	}

	prev := c.Status
	c.Status = bank.Verified

	if err := s.saveLocked(); err != nil {
		c.Status = prev
		return err
	}
	return nil
}

// UpdateClientAccounts replaces a client's account list and persists.
func (s *Store) UpdateClientAccounts(accountID string, accounts []bank.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.clients[accountID]
	if !ok {
		return ErrClientNotFound
	}

	prev := c.Accounts
	c.Accounts = cloneAccounts(accounts)
	s.lookup.Purge()

	if err := s.saveLocked(); err != nil {
		c.Accounts = prev
		return err
	}
	return nil
}

// ClientIDs returns all client ids.
func (s *Store) ClientIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.clients))
	for id := range s.clients {
		ids = append(ids, id)
	}
	return ids
}

// ClientsByStatus returns copies of all clients in the given status.
func (s *Store) ClientsByStatus(status bank.ClientStatus) []bank.Client {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []bank.Client
	for _, c := range s.sortedClientsLocked() {
		if c.Status == status {
			out = append(out, c)
		}
	}
	return out
}

// ClientStatusOf returns the status of a client, if it exists.
func (s *Store) ClientStatusOf(accountID string) (bank.ClientStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.clients[accountID]
	if !ok {
		return 0, false
	}
	return c.Status, true
}

// ClientCount returns the number of registered clients.
func (s *Store) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// AccountCount returns the total number of accounts across clients.
func (s *Store) AccountCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accountCountLocked()
}

// TotalBalance sums all account balances.
func (s *Store) TotalBalance() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := 0.0
	for _, c := range s.clients {
		for _, a := range c.Accounts {
			total += a.Balance
		}
	}
	return total
}

func cloneClient(c *bank.Client) *bank.Client {
	cp := *c
	cp.Accounts = cloneAccounts(c.Accounts)
	return &cp
}

func cloneAccounts(accounts []bank.Account) []bank.Account {
	if accounts == nil {
		return nil
	}
	out := make([]bank.Account, len(accounts))
	for i, a := range accounts {
		out[i] = a
		out[i].Transactions = append([]bank.Transaction(nil), a.Transactions...)
	}
	return out
}
