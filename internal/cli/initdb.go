package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/securebank/bankd/internal/approval"
	"github.com/securebank/bankd/internal/bank"
	"github.com/securebank/bankd/internal/codec"
	"github.com/securebank/bankd/internal/config"
	"github.com/securebank/bankd/internal/store"
)

var initdbForce bool

// initdbCmd seeds a fresh database with demo clients.
var initdbCmd = &cobra.Command{
	Use:   "initdb [db_path]",
	Short: "Create a demo database",
	Long: `Create the encrypted snapshot and verification spool pre-populated
with demo clients: two verified customers, one customer awaiting
verification, and the built-in security officer.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInitdb,
}

func init() {
	rootCmd.AddCommand(initdbCmd)
	initdbCmd.Flags().BoolVar(&initdbForce, "force", false, "overwrite an existing database")
}

// demoClient assembles a fixture client whose accounts each carry an
// opening balance recorded as an "Initial deposit" transaction.
func demoClient(id, name, birth, passport, password string, status bank.ClientStatus, accounts []bank.Account) bank.Client {
	return bank.Client{
		AccountID:    id,
		FullName:     name,
		BirthDate:    birth,
		PassportData: passport,
		PasswordHash: codec.HashPassword(password),
		Status:       status,
		Accounts:     accounts,
	}
}

func demoAccount(number string, t bank.AccountType, opening, creditLimit float64) bank.Account {
	a := bank.Account{Number: number, Type: t, CreditLimit: creditLimit}
	if opening > 0 {
		a.Deposit(opening, "Initial deposit")
	}
	return a
}

func runInitdb(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return err
	}
	if len(args) > 0 {
		cfg.Database.Path = args[0]
	}

	if _, err := os.Stat(cfg.Database.Path); err == nil && !initdbForce {
		return fmt.Errorf("database %s already exists (use --force to overwrite)", cfg.Database.Path)
	}
	os.Remove(cfg.Database.Path)
	os.Remove(cfg.Database.Path + ".settings")
	os.Remove(cfg.Database.SpoolPath)

	st, err := store.New(cfg.Database.Path)
	if err != nil {
		return err
	}

	clients := []bank.Client{
		demoClient("ACC1001", "Ivanov Ivan Ivanovich", "1990-05-15", "4510123456", "password123",
			bank.Verified, []bank.Account{
				demoAccount("ACC1001_SAV_1", bank.Savings, 50000, 0),
				demoAccount("ACC1001_CHK_2", bank.Checking, 25000, 0),
				demoAccount("ACC1001_CRD_3", bank.Credit, 0, 50000),
			}),
		demoClient("ACC1002", "Petrova Anna Sergeevna", "1985-12-20", "4510654321", "qwerty456",
			bank.Verified, []bank.Account{
				demoAccount("ACC1002_SAV_1", bank.Savings, 75000, 0),
				demoAccount("ACC1002_DEP_2", bank.Deposit, 50000, 0),
			}),
		demoClient("ACC1003", "Sidorov Alexey Petrovich", "1995-08-10", "4510789123", "test789",
			bank.PendingVerification, []bank.Account{
				demoAccount("ACC1003_SAV_1", bank.Savings, 5000, 0),
			}),
		demoClient(bank.OperatorID, "Security Officer", "1980-01-01", bank.OperatorID, "superpass123",
			bank.Verified, []bank.Account{
				demoAccount("SUPER001_CHK_1", bank.Checking, 0, 0),
			}),
	}

	for _, c := range clients {
		if err := st.AddClient(c); err != nil {
			return fmt.Errorf("seed client %s: %w", c.AccountID, err)
		}
	}

	// The pending customer needs a spooled verification request so the
	// officer sees them right after the first server start.
	broker := approval.NewBroker(cfg.Database.SpoolPath)
	broker.SubmitVerification("ACC1003",
		"Name: Sidorov Alexey Petrovich | Birth: 1995-08-10 | Passport: 4510789123")
	broker.Flush()

	if !quiet {
		fmt.Printf("Database created: %s\n", cfg.Database.Path)
		fmt.Printf("Verification spool: %s\n", cfg.Database.SpoolPath)
		fmt.Printf("Clients: %d, accounts: %d, total balance: $%s\n",
			st.ClientCount(), st.AccountCount(), bank.FormatAmount(st.TotalBalance()))
		fmt.Println()
		fmt.Println("Demo credentials:")
		fmt.Println("  LOGIN ACC1001 password123   (verified)")
		fmt.Println("  LOGIN ACC1002 qwerty456     (verified)")
		fmt.Println("  LOGIN ACC1003 test789       (pending verification)")
		fmt.Println("  SUPERLOGIN SUPER001 superpass123")
	}
	return nil
}
