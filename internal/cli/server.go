package cli

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/securebank/bankd/internal/approval"
	"github.com/securebank/bankd/internal/config"
	"github.com/securebank/bankd/internal/server"
	"github.com/securebank/bankd/internal/storage/auditdb"
	"github.com/securebank/bankd/internal/storage/decisionlog"
	"github.com/securebank/bankd/internal/store"
)

var (
	// Server flags
	serverPort int
	serverBind string
)

// serverCmd represents the server command (default action)
var serverCmd = &cobra.Command{
	Use:   "server [port [db_path]]",
	Short: "Start the bank server",
	Long: `Start the bank server: listen for client connections, load the
encrypted account snapshot and the verification spool, and serve the
banking protocol until Enter is pressed on the console.

Positional arguments override the configured port and database path.
This is the default command when no subcommand is specified.`,
	Args: cobra.MaximumNArgs(2),
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(serverCmd)

	// Set server as the default command
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return serverCmd.RunE(cmd, args)
	}

	serverCmd.Flags().IntVarP(&serverPort, "port", "p", 0, "port to listen on (overrides config)")
	serverCmd.Flags().StringVar(&serverBind, "bind", "", "address to bind to (overrides config)")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return err
	}

	if serverPort != 0 {
		cfg.Server.Port = serverPort
	}
	if serverBind != "" {
		cfg.Server.Host = serverBind
	}
	if len(args) > 0 {
		port, err := strconv.Atoi(args[0])
		if err != nil || port < 1 || port > 65535 {
			return fmt.Errorf("invalid port %q", args[0])
		}
		cfg.Server.Port = port
	}
	if len(args) > 1 {
		cfg.Database.Path = args[1]
	}

	if quiet {
		log.SetOutput(io.Discard)
	}

	if !quiet {
		fmt.Println("Starting Secure Bank Server...")
		fmt.Printf("Port: %d\n", cfg.Server.Port)
		fmt.Printf("Database: %s\n", cfg.Database.Path)
	}

	st, err := store.New(cfg.Database.Path)
	if err != nil {
		return err
	}
	broker := approval.NewBroker(cfg.Database.SpoolPath)

	if cfg.Audit.Enabled {
		adb, err := auditdb.Open(cfg.Audit.Path)
		if err != nil {
			return fmt.Errorf("open audit index: %w", err)
		}
		defer adb.Close()
		st.SetAuditSink(adb)
	}
	if cfg.DecisionLog.Enabled {
		dl, err := decisionlog.Open(cfg.DecisionLog.Path)
		if err != nil {
			return fmt.Errorf("open decision log: %w", err)
		}
		defer dl.Close()
		broker.SetDecisionSink(dl)
	}

	srv, err := server.New(server.Options{
		Host:        cfg.Server.Host,
		Port:        cfg.Server.Port,
		Store:       st,
		Broker:      broker,
		WaitTimeout: cfg.Approval.WaitTimeout,
	})
	if err != nil {
		return err
	}
	if err := srv.Start(); err != nil {
		return err
	}

	fmt.Println("Bank server running. Press Enter to stop...")
	bufio.NewReader(os.Stdin).ReadString('\n')

	if err := srv.Stop(); err != nil {
		return err
	}
	fmt.Println("Server stopped.")
	return nil
}
