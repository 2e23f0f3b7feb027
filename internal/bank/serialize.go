package bank

import (
	"bufio"
	"bytes"
	"fmt"
	"log"
	"strconv"
	"strings"
)

// Snapshot layout, plaintext before obfuscation. Every field is terminated
// by '|', records by '\n', clients separated by a line of "===":
//
//	<accountId>|<fullName>|<birthDate>|<passport>|<pwHash>|<statusInt>|<accountCount>|
//	<number>|<typeInt>|<balance>|<creditLimit>|<statusInt>|<txnCount>|
//	<txnId>|<timestamp>|<type>|<amount>|<description>|<targetAccount>|
//	===

const recordSeparator = "==="

// MarshalClients serializes clients into the plaintext snapshot layout.
func MarshalClients(clients []Client) []byte {
	var b strings.Builder

	for _, c := range clients {
		fmt.Fprintf(&b, "%s|%s|%s|%s|%s|%d|%d|\n",
			c.AccountID, c.FullName, c.BirthDate, c.PassportData,
			c.PasswordHash, int(c.Status), len(c.Accounts))

		for _, a := range c.Accounts {
			fmt.Fprintf(&b, "%s|%d|%s|%s|%d|%d|\n",
				a.Number, int(a.Type), FormatAmount(a.Balance),
				FormatAmount(a.CreditLimit), int(a.Status), len(a.Transactions))

			for _, txn := range a.Transactions {
				fmt.Fprintf(&b, "%s|%d|%s|%s|%s|%s|\n",
					txn.ID, txn.Timestamp, txn.Type,
					FormatAmount(txn.Amount), txn.Description, txn.TargetAccount)
			}
		}
		b.WriteString(recordSeparator + "\n")
	}

	return []byte(b.String())
}

// UnmarshalClients parses the plaintext snapshot layout. Malformed records
// are skipped with a diagnostic; they never abort the load. Transactions
// persisted without an id are assigned a fresh one.
func UnmarshalClients(data []byte) []Client {
	var clients []Client

	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)

	for sc.Scan() {
		line := sc.Text()
		if line == "" || line == recordSeparator {
			continue
		}

		client, err := parseClientLine(line)
		if err != nil {
			log.Printf("store: skipping malformed client line: %v", err)
			continue
		}

		accountCount := client.declaredAccounts
		ok := true
		for i := 0; i < accountCount && ok; i++ {
			if !sc.Scan() {
				log.Printf("store: missing account data for client %s", client.c.AccountID)
				break
			}
			acctLine := sc.Text()
			if acctLine == "" || acctLine == recordSeparator {
				log.Printf("store: missing account data for client %s", client.c.AccountID)
				break
			}

			account, txnCount, err := parseAccountLine(acctLine)
			if err != nil {
				log.Printf("store: skipping malformed account line for client %s: %v", client.c.AccountID, err)
				continue
			}

			for j := 0; j < txnCount; j++ {
				if !sc.Scan() {
					ok = false
					break
				}
				txnLine := sc.Text()
				if txnLine == "" || txnLine == recordSeparator {
					break
				}

				txn, err := parseTransactionLine(txnLine)
				if err != nil {
					log.Printf("store: skipping malformed transaction for account %s: %v", account.Number, err)
					continue
				}
				account.Transactions = append(account.Transactions, txn)
			}

			client.c.Accounts = append(client.c.Accounts, account)
		}

		clients = append(clients, client.c)
	}

	if err := sc.Err(); err != nil {
		log.Printf("store: snapshot scan aborted: %v", err)
	}

	return clients
}

type parsedClient struct {
	c                Client
	declaredAccounts int
}

func parseClientLine(line string) (parsedClient, error) {
	f := splitFields(line)
	if len(f) < 7 {
		return parsedClient{}, fmt.Errorf("%w: want 7 client fields, got %d", ErrMalformedRecord, len(f))
	}

	status, err := strconv.Atoi(f[5])
	if err != nil {
		return parsedClient{}, fmt.Errorf("%w: client status %q", ErrMalformedRecord, f[5])
	}
	count, err := strconv.Atoi(f[6])
	if err != nil || count < 0 {
		return parsedClient{}, fmt.Errorf("%w: account count %q", ErrMalformedRecord, f[6])
	}

	return parsedClient{
		c: Client{
			AccountID:    f[0],
			FullName:     f[1],
			BirthDate:    f[2],
			PassportData: f[3],
			PasswordHash: f[4],
			Status:       ClientStatus(status),
		},
		declaredAccounts: count,
	}, nil
}

func parseAccountLine(line string) (Account, int, error) {
	f := splitFields(line)
	if len(f) < 6 {
		return Account{}, 0, fmt.Errorf("%w: want 6 account fields, got %d", ErrMalformedRecord, len(f))
	}

	typeInt, err := strconv.Atoi(f[1])
	if err != nil {
		return Account{}, 0, fmt.Errorf("%w: account type %q", ErrMalformedRecord, f[1])
	}
	balance, err := strconv.ParseFloat(f[2], 64)
	if err != nil {
		return Account{}, 0, fmt.Errorf("%w: balance %q", ErrMalformedRecord, f[2])
	}
	limit, err := strconv.ParseFloat(f[3], 64)
	if err != nil {
		return Account{}, 0, fmt.Errorf("%w: credit limit %q", ErrMalformedRecord, f[3])
	}
	status, err := strconv.Atoi(f[4])
	if err != nil {
		return Account{}, 0, fmt.Errorf("%w: account status %q", ErrMalformedRecord, f[4])
	}
	txnCount, err := strconv.Atoi(f[5])
	if err != nil || txnCount < 0 {
		return Account{}, 0, fmt.Errorf("%w: transaction count %q", ErrMalformedRecord, f[5])
	}

	return Account{
		Number:      f[0],
		Type:        AccountType(typeInt),
		Balance:     balance,
		CreditLimit: limit,
		Status:      AccountStatus(status),
	}, txnCount, nil
}

func parseTransactionLine(line string) (Transaction, error) {
	f := splitFields(line)
	if len(f) < 6 {
		return Transaction{}, fmt.Errorf("%w: want 6 transaction fields, got %d", ErrMalformedRecord, len(f))
	}

	ts, err := strconv.ParseInt(f[1], 10, 64)
	if err != nil {
		return Transaction{}, fmt.Errorf("%w: timestamp %q", ErrMalformedRecord, f[1])
	}
	amount, err := strconv.ParseFloat(f[3], 64)
	if err != nil {
		return Transaction{}, fmt.Errorf("%w: amount %q", ErrMalformedRecord, f[3])
	}

	id := f[0]
	if id == "" {
		id = NewTransactionID()
	}

	return Transaction{
		ID:            id,
		Timestamp:     ts,
		Type:          f[2],
		Amount:        amount,
		Description:   f[4],
		TargetAccount: f[5],
	}, nil
}

// MarshalSettings serializes settings as a single pipe-terminated line.
func MarshalSettings(s Settings) []byte {
	return []byte(fmt.Sprintf("%s|%s|%s|%s|\n",
		FormatAmount(s.CreditInterestRate),
		FormatAmount(s.DepositInterestRate),
		FormatAmount(s.LargeOperationThreshold),
		FormatAmount(s.LargeLoanThreshold)))
}

// UnmarshalSettings parses a settings line.
func UnmarshalSettings(data []byte) (Settings, error) {
	line := strings.TrimRight(string(data), "\n")
	f := splitFields(line)
	if len(f) < 4 {
		return Settings{}, fmt.Errorf("%w: want 4 settings fields, got %d", ErrMalformedRecord, len(f))
	}

	var s Settings
	var err error
	if s.CreditInterestRate, err = strconv.ParseFloat(f[0], 64); err != nil {
		return Settings{}, fmt.Errorf("%w: credit rate %q", ErrMalformedRecord, f[0])
	}
	if s.DepositInterestRate, err = strconv.ParseFloat(f[1], 64); err != nil {
		return Settings{}, fmt.Errorf("%w: deposit rate %q", ErrMalformedRecord, f[1])
	}
	if s.LargeOperationThreshold, err = strconv.ParseFloat(f[2], 64); err != nil {
		return Settings{}, fmt.Errorf("%w: operation threshold %q", ErrMalformedRecord, f[2])
	}
	if s.LargeLoanThreshold, err = strconv.ParseFloat(f[3], 64); err != nil {
		return Settings{}, fmt.Errorf("%w: loan threshold %q", ErrMalformedRecord, f[3])
	}

	return s, nil
}

// MarshalApprovalRequest serializes one spool line:
// requestId|clientAccountId|operationType|amount|targetAccount|description|timestamp|status
func MarshalApprovalRequest(r ApprovalRequest) string {
	return fmt.Sprintf("%s|%s|%s|%s|%s|%s|%d|%s",
		r.RequestID, r.ClientAccountID, r.OperationType,
		FormatAmount(r.Amount), r.TargetAccount, r.Description,
		r.Timestamp, r.Status)
}

// UnmarshalApprovalRequest parses one spool line. The description is free
// text and may itself contain pipes (verification descriptions do), so the
// leading fields are taken from the front and timestamp/status from the
// back. Unparseable amounts fall back to zero.
func UnmarshalApprovalRequest(line string) (ApprovalRequest, error) {
	f := strings.Split(strings.TrimSuffix(line, "|"), "|")
	if len(f) < 8 {
		return ApprovalRequest{}, fmt.Errorf("%w: want 8 spool fields, got %d", ErrMalformedRecord, len(f))
	}

	amount, err := strconv.ParseFloat(f[3], 64)
	if err != nil {
		amount = 0
	}
	ts, err := strconv.ParseInt(f[len(f)-2], 10, 64)
	if err != nil {
		ts = 0
	}

	return ApprovalRequest{
		RequestID:       f[0],
		ClientAccountID: f[1],
		OperationType:   f[2],
		Amount:          amount,
		TargetAccount:   f[4],
		Description:     strings.Join(f[5:len(f)-2], "|"),
		Timestamp:       ts,
		Status:          f[len(f)-1],
	}, nil
}

// splitFields splits a pipe-terminated record, dropping the empty trailing
// element produced by the terminating '|'.
func splitFields(line string) []string {
	f := strings.Split(line, "|")
	if len(f) > 0 && f[len(f)-1] == "" {
		f = f[:len(f)-1]
	}
	return f
}
