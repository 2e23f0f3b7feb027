package server

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/securebank/bankd/internal/bank"
	"github.com/securebank/bankd/internal/codec"
)

const welcomeBanner = "Welcome to Secure Bank System!\n" +
	"Available commands:\n" +
	"RATES - view current interest rates\n" +
	"REGISTER \"Full Name\" \"Birth Date\" \"Passport\" \"Password\" - create account\n" +
	"LOGIN <account_id> <password> - login to existing account\n" +
	"SUPERLOGIN <account_id> <password> - security officer login\n" +
	"HELP - show all commands"

const loginFirstError = "ERROR: Please login first. " +
	"Available commands without login: RATES, REGISTER, LOGIN, SUPERLOGIN, HELP"

const accessDeniedError = "ERROR: Access denied. Super user privileges required."

// processCommand dispatches one command line and returns the response
// plus whether the connection should be closed.
func (s *Server) processCommand(sess *Session, line string) (string, bool) {
	args := parseCommand(line)
	if len(args) == 0 {
		return "ERROR: Empty command", false
	}

	cmd := args[0]
	args = args[1:]

	// Commands available without authentication.
	switch cmd {
	case "RATES":
		return s.handleRates(), false
	case "HELP":
		return s.helpText(sess), false
	case "EXIT", "QUIT":
		return "Goodbye!", true
	case "REGISTER":
		if sess.authenticated() {
			return "ERROR: You are already logged in. Please logout first to register a new account.", false
		}
		return s.handleRegister(args), false
	case "LOGIN":
		if sess.authenticated() {
			return "ERROR: You are already logged in. Please logout first to login with different account.", false
		}
		return s.handleLogin(sess, args), false
	case "SUPERLOGIN":
		if sess.authenticated() {
			return "ERROR: You are already logged in. Please logout first to login with different account.", false
		}
		return s.handleSuperLogin(sess, args), false
	}

	if !sess.authenticated() {
		return loginFirstError, false
	}

	switch cmd {
	case "DEPOSIT":
		return s.handleDeposit(sess, args), false
	case "DEPOSIT_TO":
		return s.handleDepositTo(sess, args), false
	case "WITHDRAW":
		return s.handleWithdraw(sess, args), false
	case "WITHDRAW_FROM":
		return s.handleWithdrawFrom(sess, args), false
	case "TRANSFER":
		return s.handleTransfer(sess, args), false
	case "TRANSFER_FROM":
		return s.handleTransferFrom(sess, args), false
	case "HISTORY":
		return s.handleHistory(sess, args), false
	case "ACCOUNTS":
		return s.handleAccounts(sess), false
	case "CREATE_ACCOUNT":
		return s.handleCreateAccount(sess, args), false
	case "INFO":
		return s.handleInfo(sess), false
	case "PENDING_REQUESTS":
		return s.handlePendingRequests(sess), false
	case "PENDING_VERIFICATIONS":
		return s.handlePendingVerifications(sess), false
	case "APPROVE":
		return s.handleApprove(sess, args), false
	case "REJECT":
		return s.handleReject(sess, args), false
	case "VERIFY":
		return s.handleVerify(sess, args), false
	case "SET_RATES":
		return s.handleSetRates(sess, args), false
	case "SETTINGS":
		return s.handleSettings(sess), false
	case "LOGOUT":
		sess.logout()
		return "Logged out successfully", false
	case "TAKE_LOAN", "LOAN_PAYMENT":
		return "INFO: Loan functionality will be implemented in future version", false
	case "OPEN_DEPOSIT", "CLOSE_DEPOSIT":
		return "INFO: Deposit functionality will be implemented in future version", false
	case "LOAN_INFO":
		return "INFO: No active loans - functionality will be implemented in future version", false
	case "DEPOSIT_INFO":
		return "INFO: No active deposits - functionality will be implemented in future version", false
	case "ACCRUE_INTEREST":
		return "INFO: Interest accrual will be implemented in future version", false
	default:
		return "ERROR: Unknown command. Type HELP for available commands.", false
	}
}

func (s *Server) helpText(sess *Session) string {
	var sb strings.Builder
	sb.WriteString("Available commands:\n")
	sb.WriteString("RATES - view current interest rates\n")

	if !sess.authenticated() {
		sb.WriteString("REGISTER \"Full Name\" \"Birth Date\" \"Passport\" \"Password\" - create account\n")
		sb.WriteString("LOGIN <account_id> <password>\n")
		sb.WriteString("SUPERLOGIN <account_id> <password> - security officer login\n")
	} else {
		sb.WriteString("ACCOUNTS - list all your accounts\n")
		sb.WriteString("DEPOSIT <amount> [description] - deposit to first account\n")
		sb.WriteString("DEPOSIT_TO <account_index> <amount> [description] - deposit to specific account\n")
		sb.WriteString("WITHDRAW <amount> [description] - withdraw from first account\n")
		sb.WriteString("WITHDRAW_FROM <account_index> <amount> [description] - withdraw from specific account\n")
		sb.WriteString("TRANSFER <target_accountID> <amount> [description] - transfer from first account\n")
		sb.WriteString("TRANSFER_FROM <account_index> <target_accountID> <amount> [description]\n")
		sb.WriteString("HISTORY [account_index] - show transaction history\n")
		sb.WriteString("CREATE_ACCOUNT <type> - create new account (0=Savings, 1=Checking, 2=Credit, 3=Deposit)\n")
		sb.WriteString("INFO - show client information\n")

		if sess.operator {
			sb.WriteString("SECURITY OFFICER COMMANDS:\n")
			sb.WriteString("PENDING_REQUESTS - show pending operation requests\n")
			sb.WriteString("PENDING_VERIFICATIONS - show pending verification requests\n")
			sb.WriteString("APPROVE <request_index> - approve operation\n")
			sb.WriteString("REJECT <request_index> - reject operation\n")
			sb.WriteString("VERIFY <client_index> - verify client account\n")
			sb.WriteString("SET_RATES <credit_rate> <deposit_rate> - set interest rates\n")
			sb.WriteString("SETTINGS - show current bank settings\n")
		}

		sb.WriteString("LOGOUT - logout from system\n")
	}

	sb.WriteString("HELP - show this help\n")
	sb.WriteString("EXIT - quit the application")
	return sb.String()
}

func (s *Server) handleRates() string {
	settings := s.store.Settings()
	return fmt.Sprintf("Current Bank Rates:\n"+
		"Credit Interest Rate: %s%%\n"+
		"Deposit Interest Rate: %s%%\n"+
		"Large Operation Threshold: $%s\n"+
		"Large Loan Threshold: $%s\n\n"+
		"New users must be verified to access full functionality.",
		bank.FormatAmount(settings.CreditInterestRate),
		bank.FormatAmount(settings.DepositInterestRate),
		bank.FormatAmount(settings.LargeOperationThreshold),
		bank.FormatAmount(settings.LargeLoanThreshold))
}

func (s *Server) handleRegister(args []string) string {
	if len(args) < 4 {
		return "ERROR: Usage: REGISTER \"Full Name\" \"Birth Date\" \"Passport Data\" \"Password\"\n" +
			"Example: REGISTER \"Ivanov Ivan Ivanovich\" \"1990-05-15\" \"4510123456\" \"mypassword123\""
	}

	fullName := args[0]
	birthDate := args[1]
	passport := args[2]
	password := args[3]

	if len(fullName) < 5 || !strings.Contains(fullName, " ") {
		return "ERROR: Full name must be at least 5 characters long and contain first and last name separated by space"
	}
	if msg := validateBirthDate(birthDate); msg != "" {
		return msg
	}
	if len(passport) != 10 || !allDigits(passport) {
		return "ERROR: Passport data must be exactly 10 digits"
	}
	if len(password) < 6 {
		return "ERROR: Password must be at least 6 characters long"
	}
	if s.store.PassportExists(passport) {
		return "ERROR: User with this passport data already exists"
	}

	accountID := s.newAccountID()
	client := bank.Client{
		AccountID:    accountID,
		FullName:     fullName,
		BirthDate:    birthDate,
		PassportData: passport,
		PasswordHash: codec.HashPassword(password),
		Status:       bank.PendingVerification,
	}
	if err := s.store.AddClient(client); err != nil {
		return "ERROR: Registration failed"
	}

	description := fmt.Sprintf("Name: %s | Birth: %s | Passport: %s", fullName, birthDate, passport)
	s.broker.SubmitVerification(accountID, description)

	return fmt.Sprintf("SUCCESS: Registration completed!\n"+
		"Your account ID: %s (SAVE THIS!)\n"+
		"Full Name: %s\n"+
		"Status: PENDING VERIFICATION\n\n"+
		"As an unverified user, you have limited functionality:\n"+
		"- Max transaction: $%s\n"+
		"- No credit accounts\n"+
		"- No deposit accounts\n\n"+
		"Your account is awaiting security verification.\n"+
		"You can login now with: LOGIN %s %s",
		accountID, fullName,
		bank.FormatAmount(s.store.Settings().UnverifiedLimit()),
		accountID, password)
}

func (s *Server) newAccountID() string {
	for {
		id := bank.NewClientID()
		if _, exists := s.store.GetClient(id); !exists {
			return id
		}
	}
}

func validateBirthDate(birthDate string) string {
	if len(birthDate) != 10 || birthDate[4] != '-' || birthDate[7] != '-' {
		return "ERROR: Birth date must be in format YYYY-MM-DD"
	}
	year, err1 := strconv.Atoi(birthDate[0:4])
	month, err2 := strconv.Atoi(birthDate[5:7])
	day, err3 := strconv.Atoi(birthDate[8:10])
	if err1 != nil || err2 != nil || err3 != nil {
		return "ERROR: Invalid birth date format"
	}
	if year < 1900 || year > 2025 || month < 1 || month > 12 || day < 1 || day > 31 {
		return "ERROR: Invalid birth date"
	}
	return ""
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return len(s) > 0
}

func (s *Server) handleLogin(sess *Session, args []string) string {
	if len(args) != 2 {
		return "ERROR: Usage: LOGIN <account_id> <password>"
	}

	client, ok := s.store.Authenticate(args[0], args[1])
	if !ok {
		return "ERROR: Invalid account ID or password"
	}

	sess.login(client.AccountID, false)

	var sb strings.Builder
	fmt.Fprintf(&sb, "SUCCESS: Login successful\n"+
		"Account: %s\n"+
		"Status: %s\n"+
		"Accounts: %d",
		client.AccountID, client.Status, len(client.Accounts))

	if client.Status != bank.Verified {
		sb.WriteString("\n\nNOTE: Your account is not yet verified.\n" +
			"Some features are limited until security verification.")
	}
	return sb.String()
}

func (s *Server) handleSuperLogin(sess *Session, args []string) string {
	if len(args) != 2 {
		return "ERROR: Usage: SUPERLOGIN <account_id> <password>"
	}

	client, ok := s.store.Authenticate(args[0], args[1])
	if !ok || !bank.IsOperatorID(client.AccountID) {
		return "ERROR: Invalid security credentials"
	}

	sess.login(client.AccountID, true)
	return "SUCCESS: Security officer login successful"
}

// canPerformOperation applies the unverified-client policy gates. The
// operator is always Verified and passes through untouched.
func (s *Server) canPerformOperation(client bank.Client, opType string, amount float64) bool {
	if client.Status == bank.Verified {
		return true
	}
	switch opType {
	case bank.OpWithdraw, bank.OpTransfer:
		return amount <= s.store.Settings().UnverifiedLimit()
	case "CREDIT_OPERATION":
		return false
	default:
		return true
	}
}

// sessionClient re-resolves the session's client through the store.
func (s *Server) sessionClient(sess *Session) (bank.Client, bool) {
	return s.store.GetClient(sess.accountID)
}
