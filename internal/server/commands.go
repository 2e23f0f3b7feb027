package server

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/securebank/bankd/internal/bank"
	"github.com/securebank/bankd/internal/store"
)

const (
	noticeLargeWithdrawal = "NOTICE: Large withdrawal requires security approval.\n" +
		"Request sent to security department. Please wait..."
	noticeLargeTransfer = "NOTICE: Large transfer requires security approval.\n" +
		"Request sent to security department. Please wait..."
	rejectedOrTimeoutError = "ERROR: Operation rejected by security or timeout exceeded"
	unverifiedDeniedError  = "ERROR: Operation not allowed for unverified accounts or amount too large"
)

func (s *Server) handleDeposit(sess *Session, args []string) string {
	if len(args) < 1 {
		return "ERROR: Usage: DEPOSIT <amount> [description]"
	}
	amount, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return "ERROR: Invalid amount"
	}
	description := optionalArg(args, 1)

	client, ok := s.sessionClient(sess)
	if !ok {
		return loginFirstError
	}
	if len(client.Accounts) == 0 {
		return "ERROR: No accounts available"
	}
	if !s.canPerformOperation(client, "DEPOSIT", amount) {
		return "ERROR: Operation not allowed for unverified accounts"
	}

	if _, err := s.store.Deposit(sess.accountID, 0, amount, description); err != nil {
		return depositError(err)
	}
	return "DEPOSIT successful"
}

func (s *Server) handleDepositTo(sess *Session, args []string) string {
	if len(args) < 2 {
		return "ERROR: Usage: DEPOSIT_TO <account_index> <amount> [description]"
	}
	idx, err1 := strconv.Atoi(args[0])
	amount, err2 := strconv.ParseFloat(args[1], 64)
	if err1 != nil || err2 != nil {
		return "ERROR: Invalid amount or account index"
	}
	description := optionalArg(args, 2)

	client, ok := s.sessionClient(sess)
	if !ok {
		return loginFirstError
	}
	if idx < 0 || idx >= len(client.Accounts) {
		return "ERROR: Invalid account index"
	}
	if !s.canPerformOperation(client, "DEPOSIT", amount) {
		return "ERROR: Operation not allowed for unverified accounts"
	}

	if _, err := s.store.Deposit(sess.accountID, idx, amount, description); err != nil {
		return depositError(err)
	}
	return "DEPOSIT successful to account " + client.Accounts[idx].Number
}

func (s *Server) handleWithdraw(sess *Session, args []string) string {
	if len(args) < 1 {
		return "ERROR: Usage: WITHDRAW <amount> [description]"
	}
	amount, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return "ERROR: Invalid amount"
	}
	return s.withdraw(sess, 0, amount, optionalArg(args, 1), false)
}

func (s *Server) handleWithdrawFrom(sess *Session, args []string) string {
	if len(args) < 2 {
		return "ERROR: Usage: WITHDRAW_FROM <account_index> <amount> [description]"
	}
	idx, err1 := strconv.Atoi(args[0])
	amount, err2 := strconv.ParseFloat(args[1], 64)
	if err1 != nil || err2 != nil {
		return "ERROR: Invalid amount or account index"
	}
	return s.withdraw(sess, idx, amount, optionalArg(args, 2), true)
}

func (s *Server) withdraw(sess *Session, idx int, amount float64, description string, named bool) string {
	client, ok := s.sessionClient(sess)
	if !ok {
		return loginFirstError
	}
	if len(client.Accounts) == 0 {
		return "ERROR: No accounts available"
	}
	if idx < 0 || idx >= len(client.Accounts) {
		return "ERROR: Invalid account index"
	}
	if !s.canPerformOperation(client, bank.OpWithdraw, amount) {
		return unverifiedDeniedError
	}

	if s.needsApproval(client, amount) {
		s.send(sess, noticeLargeWithdrawal)
		requestID := s.broker.SubmitOperation(sess.accountID, bank.OpWithdraw, amount, "", description)
		if !s.broker.WaitForDecision(requestID, s.waitTimeout) {
			return rejectedOrTimeoutError
		}
	}

	if _, err := s.store.Withdraw(sess.accountID, idx, amount, description); err != nil {
		return withdrawError(err)
	}
	if named {
		return "WITHDRAW successful from account " + client.Accounts[idx].Number
	}
	return "WITHDRAW successful"
}

func (s *Server) handleTransfer(sess *Session, args []string) string {
	if len(args) < 2 {
		return "ERROR: Usage: TRANSFER <target_accountID> <amount> [description]"
	}
	amount, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return "ERROR: Invalid amount"
	}
	return s.transfer(sess, 0, args[0], amount, optionalArg(args, 2), false)
}

func (s *Server) handleTransferFrom(sess *Session, args []string) string {
	if len(args) < 3 {
		return "ERROR: Usage: TRANSFER_FROM <account_index> <target_accountID> <amount> [description]"
	}
	idx, err1 := strconv.Atoi(args[0])
	amount, err2 := strconv.ParseFloat(args[2], 64)
	if err1 != nil || err2 != nil {
		return "ERROR: Invalid amount or account index"
	}
	return s.transfer(sess, idx, args[1], amount, optionalArg(args, 3), true)
}

func (s *Server) transfer(sess *Session, idx int, target string, amount float64, description string, named bool) string {
	client, ok := s.sessionClient(sess)
	if !ok {
		return loginFirstError
	}
	if len(client.Accounts) == 0 {
		return "ERROR: No accounts available"
	}
	if idx < 0 || idx >= len(client.Accounts) {
		return "ERROR: Invalid account index"
	}
	if !s.canPerformOperation(client, bank.OpTransfer, amount) {
		return unverifiedDeniedError
	}

	targetClient, found := s.store.GetClient(target)
	if !found || len(targetClient.Accounts) == 0 {
		return "ERROR: Target account not found"
	}

	if s.needsApproval(client, amount) {
		s.send(sess, noticeLargeTransfer)
		requestID := s.broker.SubmitOperation(sess.accountID, bank.OpTransfer, amount, target, description)
		if !s.broker.WaitForDecision(requestID, s.waitTimeout) {
			return rejectedOrTimeoutError
		}
	}

	if _, err := s.store.Transfer(sess.accountID, idx, target, amount, description); err != nil {
		return transferError(err)
	}
	if named {
		return "TRANSFER successful from account " + client.Accounts[idx].Number
	}
	return "TRANSFER successful"
}

// needsApproval reports whether the amount crosses the large-operation
// threshold for a verified client. Unverified clients never reach the
// approval path: their cap is a tenth of the threshold.
func (s *Server) needsApproval(client bank.Client, amount float64) bool {
	return client.Status == bank.Verified && amount > s.store.Settings().LargeOperationThreshold
}

func (s *Server) handleHistory(sess *Session, args []string) string {
	idx := 0
	if len(args) > 0 {
		parsed, err := strconv.Atoi(args[0])
		if err != nil {
			return "ERROR: Invalid account index"
		}
		idx = parsed
	}

	client, ok := s.sessionClient(sess)
	if !ok {
		return loginFirstError
	}
	if idx < 0 || idx >= len(client.Accounts) {
		return "ERROR: Invalid account index"
	}

	account := client.Accounts[idx]
	var sb strings.Builder
	fmt.Fprintf(&sb, "Transaction history for %s:\n", account.Number)

	for _, txn := range account.Transactions {
		fmt.Fprintf(&sb, "%s: %s $%s", txn.ID, txn.Type, bank.FormatAmount(txn.Amount))
		if txn.Description != "" {
			fmt.Fprintf(&sb, " (%s)", txn.Description)
		}
		if txn.TargetAccount != "" {
			fmt.Fprintf(&sb, " -> %s", txn.TargetAccount)
		}
		sb.WriteString("\n")
	}
	if len(account.Transactions) == 0 {
		sb.WriteString("No transactions found")
	}
	return sb.String()
}

func (s *Server) handleAccounts(sess *Session) string {
	client, ok := s.sessionClient(sess)
	if !ok {
		return loginFirstError
	}

	var sb strings.Builder
	sb.WriteString("Your accounts:\n")
	for i, account := range client.Accounts {
		fmt.Fprintf(&sb, "[%d] %s (%s): $%s",
			i, account.Number, account.Type, bank.FormatAmount(account.Balance))
		if account.CreditLimit > 0 {
			fmt.Fprintf(&sb, " (Credit limit: $%s)", bank.FormatAmount(account.CreditLimit))
		}
		sb.WriteString("\n")
	}
	if len(client.Accounts) == 0 {
		sb.WriteString("No accounts yet.")
	}
	return sb.String()
}

func (s *Server) handleCreateAccount(sess *Session, args []string) string {
	if len(args) < 1 {
		return "ERROR: Usage: CREATE_ACCOUNT <type>"
	}
	typeInt, err := strconv.Atoi(args[0])
	if err != nil {
		return "ERROR: Invalid account type"
	}
	accountType := bank.AccountType(typeInt)
	if !accountType.Valid() {
		return "ERROR: Invalid account type. Use: 0=Savings, 1=Checking, 2=Credit, 3=Deposit"
	}

	client, ok := s.sessionClient(sess)
	if !ok {
		return loginFirstError
	}
	if client.Status != bank.Verified && (accountType == bank.Credit || accountType == bank.Deposit) {
		return "ERROR: Credit and Deposit accounts require account verification"
	}
	if !s.canPerformOperation(client, "CREATE_ACCOUNT", 0) {
		return "ERROR: Cannot create accounts at this time"
	}

	account, err := s.store.CreateAccount(sess.accountID, accountType)
	if err != nil {
		return "ERROR: Cannot create accounts at this time"
	}

	response := fmt.Sprintf("SUCCESS: New %s account created: %s", account.Type, account.Number)
	if accountType == bank.Credit {
		response += fmt.Sprintf(" with credit limit: $%s", bank.FormatAmount(account.CreditLimit))
	}
	return response
}

func (s *Server) handleInfo(sess *Session) string {
	client, ok := s.sessionClient(sess)
	if !ok {
		return loginFirstError
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Client Information:\n"+
		"Account ID: %s\n"+
		"Full Name: %s\n"+
		"Birth Date: %s\n"+
		"Status: %s\n"+
		"Number of accounts: %d\n",
		client.AccountID, client.FullName, client.BirthDate, client.Status, len(client.Accounts))

	if client.Status != bank.Verified {
		fmt.Fprintf(&sb, "\nUNVERIFIED ACCOUNT LIMITATIONS:\n"+
			"- Max transaction: $%s\n"+
			"- No credit accounts\n"+
			"- No deposit accounts\n"+
			"- Awaiting security verification",
			bank.FormatAmount(s.store.Settings().UnverifiedLimit()))
	}
	return sb.String()
}

func optionalArg(args []string, idx int) string {
	if idx < len(args) {
		return args[idx]
	}
	return ""
}

func depositError(err error) string {
	if errors.Is(err, store.ErrSnapshotWrite) {
		return "ERROR: Deposit failed - could not save database"
	}
	return "ERROR: Deposit failed"
}

func withdrawError(err error) string {
	if errors.Is(err, store.ErrSnapshotWrite) {
		return "ERROR: Withdrawal failed - could not save database"
	}
	return "ERROR: Withdrawal failed - insufficient funds"
}

func transferError(err error) string {
	switch {
	case errors.Is(err, store.ErrSnapshotWrite):
		return "ERROR: Transfer failed - could not save database"
	case errors.Is(err, store.ErrClientNotFound), errors.Is(err, store.ErrAccountNotFound):
		return "ERROR: Target account not found"
	default:
		return "ERROR: Transfer failed - insufficient funds"
	}
}
