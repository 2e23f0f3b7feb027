package cli

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/securebank/bankd/internal/client"
)

// clientCmd represents the interactive terminal client
var clientCmd = &cobra.Command{
	Use:   "client [host [port]]",
	Short: "Connect to a bank server interactively",
	Long: `Connect to a running bank server and relay commands typed on the
console. Defaults to 127.0.0.1:8080 when host and port are omitted.`,
	Args: cobra.MaximumNArgs(2),
	RunE: runClient,
}

func init() {
	rootCmd.AddCommand(clientCmd)
}

func runClient(cmd *cobra.Command, args []string) error {
	host := "127.0.0.1"
	port := 8080

	if len(args) > 0 {
		host = args[0]
	}
	if len(args) > 1 {
		p, err := strconv.Atoi(args[1])
		if err != nil || p < 1 || p > 65535 {
			return fmt.Errorf("invalid port %q", args[1])
		}
		port = p
	}

	fmt.Println("Connecting to Secure Bank System...")
	fmt.Printf("Server: %s:%d\n", host, port)

	c, err := client.Dial(host, port)
	if err != nil {
		fmt.Println("Failed to connect to server")
		return err
	}

	return c.Run(os.Stdin, os.Stdout)
}
