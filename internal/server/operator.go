package server

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/securebank/bankd/internal/approval"
	"github.com/securebank/bankd/internal/bank"
)

func (s *Server) handlePendingRequests(sess *Session) string {
	if !sess.operator {
		return accessDeniedError
	}

	requests := s.broker.List(approval.Operations)
	if len(requests) == 0 {
		return "No pending operation requests."
	}

	var sb strings.Builder
	sb.WriteString("Pending Operation Requests:\n")
	for i, req := range requests {
		fmt.Fprintf(&sb, "[%d] %s | Client: %s | Operation: %s | Amount: $%s",
			i, req.RequestID, req.ClientAccountID, req.OperationType, bank.FormatAmount(req.Amount))
		if req.TargetAccount != "" {
			fmt.Fprintf(&sb, " | To: %s", req.TargetAccount)
		}
		if req.Description != "" {
			fmt.Fprintf(&sb, " | Desc: %s", req.Description)
		}
		fmt.Fprintf(&sb, " | Time: %s\n", time.Unix(req.Timestamp, 0).Format(time.ANSIC))
	}
	return sb.String()
}

func (s *Server) handlePendingVerifications(sess *Session) string {
	if !sess.operator {
		return accessDeniedError
	}

	// Drop requests whose client is gone or already verified.
	s.broker.CleanupVerificationQueue(s.store)

	requests := s.broker.List(approval.Verifications)
	if len(requests) == 0 {
		return "No pending verification requests."
	}

	var sb strings.Builder
	sb.WriteString("Pending Verification Requests:\n")
	for i, req := range requests {
		name, passport := "Unknown", "Unknown"
		if client, ok := s.store.GetClient(req.ClientAccountID); ok {
			name, passport = client.FullName, client.PassportData
		}
		fmt.Fprintf(&sb, "[%d] %s | Client: %s | Name: %s | Passport: %s | Time: %s\n",
			i, req.RequestID, req.ClientAccountID, name, passport,
			time.Unix(req.Timestamp, 0).Format(time.ANSIC))
	}
	return sb.String()
}

func (s *Server) handleApprove(sess *Session, args []string) string {
	return s.decideRequest(sess, args, true)
}

func (s *Server) handleReject(sess *Session, args []string) string {
	return s.decideRequest(sess, args, false)
}

func (s *Server) decideRequest(sess *Session, args []string, approve bool) string {
	if !sess.operator {
		return accessDeniedError
	}
	usage := "ERROR: Usage: APPROVE <request_index>"
	if !approve {
		usage = "ERROR: Usage: REJECT <request_index>"
	}
	if len(args) < 1 {
		return usage
	}
	idx, err := strconv.Atoi(args[0])
	if err != nil {
		return "ERROR: Invalid request index"
	}

	req, err := s.broker.Decide(idx, approve, sess.accountID)
	switch {
	case errors.Is(err, approval.ErrQueueEmpty):
		return "ERROR: No pending requests"
	case err != nil:
		return "ERROR: Invalid request index"
	}

	if approve {
		return fmt.Sprintf("SUCCESS: Request %s approved", req.RequestID)
	}
	return fmt.Sprintf("SUCCESS: Request %s rejected", req.RequestID)
}

func (s *Server) handleVerify(sess *Session, args []string) string {
	if !sess.operator {
		return accessDeniedError
	}
	if len(args) < 1 {
		return "ERROR: Usage: VERIFY <verification_index>"
	}
	idx, err := strconv.Atoi(args[0])
	if err != nil {
		return "ERROR: Invalid verification index"
	}

	req, err := s.broker.VerificationAt(idx)
	switch {
	case errors.Is(err, approval.ErrQueueEmpty):
		return "ERROR: No pending verifications"
	case err != nil:
		return "ERROR: Invalid verification index"
	}

	if err := s.store.VerifyClient(req.ClientAccountID); err != nil {
		return fmt.Sprintf("ERROR: Failed to verify client %s", req.ClientAccountID)
	}
	s.broker.CompleteVerification(req.RequestID, sess.accountID)
	return fmt.Sprintf("SUCCESS: Client %s verified", req.ClientAccountID)
}

func (s *Server) handleSetRates(sess *Session, args []string) string {
	if !sess.operator {
		return accessDeniedError
	}
	if len(args) < 2 {
		return "ERROR: Usage: SET_RATES <credit_rate> <deposit_rate>"
	}

	creditRate, err1 := strconv.ParseFloat(args[0], 64)
	depositRate, err2 := strconv.ParseFloat(args[1], 64)
	if err1 != nil || err2 != nil {
		return "ERROR: Invalid rates"
	}

	settings := s.store.Settings()
	settings.CreditInterestRate = creditRate
	settings.DepositInterestRate = depositRate
	if err := s.store.SaveSettings(settings); err != nil {
		return "ERROR: Failed to save settings"
	}

	return fmt.Sprintf("SUCCESS: Interest rates updated\n"+
		"Credit Rate: %s%%\n"+
		"Deposit Rate: %s%%",
		bank.FormatAmount(creditRate), bank.FormatAmount(depositRate))
}

func (s *Server) handleSettings(sess *Session) string {
	if !sess.operator {
		return accessDeniedError
	}

	settings := s.store.Settings()
	return fmt.Sprintf("Bank Settings:\n"+
		"Credit Interest Rate: %s%%\n"+
		"Deposit Interest Rate: %s%%\n"+
		"Large Operation Threshold: $%s\n"+
		"Large Loan Threshold: $%s\n"+
		"Unverified User Limit: $%s",
		bank.FormatAmount(settings.CreditInterestRate),
		bank.FormatAmount(settings.DepositInterestRate),
		bank.FormatAmount(settings.LargeOperationThreshold),
		bank.FormatAmount(settings.LargeLoanThreshold),
		bank.FormatAmount(settings.UnverifiedLimit()))
}
