package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/securebank/bankd/internal/bank"
	"github.com/securebank/bankd/internal/config"
	"github.com/securebank/bankd/internal/storage/decisionlog"
	"github.com/securebank/bankd/internal/store"
)

var dumpDecisions bool

// dumpCmd prints the decrypted database contents for inspection.
var dumpCmd = &cobra.Command{
	Use:   "dump [db_path]",
	Short: "Print the decrypted database contents",
	Long: `Decrypt and print the account snapshot, bank settings and the
verification spool. With --decisions, also replay the archived operator
decisions from the decision log.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDump,
}

func init() {
	rootCmd.AddCommand(dumpCmd)
	dumpCmd.Flags().BoolVar(&dumpDecisions, "decisions", false, "include archived operator decisions")
}

func runDump(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return err
	}
	if len(args) > 0 {
		cfg.Database.Path = args[0]
	}

	st, err := store.New(cfg.Database.Path)
	if err != nil {
		return err
	}

	settings := st.Settings()
	fmt.Printf("Database: %s\n", cfg.Database.Path)
	fmt.Printf("Settings: credit %s%%, deposit %s%%, large-op threshold $%s, loan threshold $%s\n\n",
		bank.FormatAmount(settings.CreditInterestRate),
		bank.FormatAmount(settings.DepositInterestRate),
		bank.FormatAmount(settings.LargeOperationThreshold),
		bank.FormatAmount(settings.LargeLoanThreshold))

	ids := st.ClientIDs()
	fmt.Printf("Clients: %d\n", len(ids))
	for _, c := range allClientsSorted(st) {
		fmt.Printf("%s | %s | born %s | passport %s | %s | %d account(s)\n",
			c.AccountID, c.FullName, c.BirthDate, c.PassportData, c.Status, len(c.Accounts))
		for i, a := range c.Accounts {
			fmt.Printf("  [%d] %s (%s): $%s", i, a.Number, a.Type, bank.FormatAmount(a.Balance))
			if a.CreditLimit > 0 {
				fmt.Printf(" (credit limit $%s)", bank.FormatAmount(a.CreditLimit))
			}
			fmt.Printf(", %d transaction(s)\n", len(a.Transactions))
		}
	}

	if err := dumpSpool(cfg.Database.SpoolPath); err != nil {
		return err
	}

	if dumpDecisions {
		if err := dumpDecisionLog(cfg.DecisionLog.Path); err != nil {
			return err
		}
	}
	return nil
}

// allClientsSorted merges the verified-first store views into one
// deterministic listing.
func allClientsSorted(st *store.Store) []bank.Client {
	out := st.ClientsByStatus(bank.Verified)
	out = append(out, st.ClientsByStatus(bank.PendingVerification)...)
	out = append(out, st.ClientsByStatus(bank.Blocked)...)
	return out
}

func dumpSpool(path string) error {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		fmt.Println("\nVerification spool: empty")
		return nil
	}
	if err != nil {
		return err
	}

	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	fmt.Printf("\nVerification spool: %d request(s)\n", len(lines))
	for _, line := range lines {
		if req, err := bank.UnmarshalApprovalRequest(line); err == nil {
			fmt.Printf("  %s | %s | %s | %s\n",
				req.RequestID, req.ClientAccountID,
				time.Unix(req.Timestamp, 0).Format(time.ANSIC), req.Description)
		}
	}
	return nil
}

func dumpDecisionLog(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Println("\nDecision log: empty")
		return nil
	}

	dl, err := decisionlog.Open(path)
	if err != nil {
		return err
	}
	defer dl.Close()

	entries, err := dl.Entries()
	if err != nil {
		return err
	}
	fmt.Printf("\nDecision log: %d decision(s)\n", len(entries))
	for _, e := range entries {
		fmt.Printf("  %s | %s | %s $%s | %s | by %s\n",
			e.Request.RequestID, e.Request.ClientAccountID,
			e.Request.OperationType, bank.FormatAmount(e.Request.Amount),
			e.Request.Status, e.DecidedBy)
	}
	return nil
}
