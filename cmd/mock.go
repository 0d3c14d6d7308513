package cmd

import (
	"github.com/spf13/cobra"

	"github.com/s0up4200/reelpick/mockapi"
)

var mockAddr string

// mockServerCmd represents the mock-server command
var mockServerCmd = &cobra.Command{
	Use:   "mock-server",
	Short: "Run an in-memory recommendation service for local use",
	Long: `Serve the recommendation API from memory with seeded users and movies.

Seeded accounts: admin/admin123, viewer/viewer123, bob/viewer123.
Point the client at it with REELPICK_API_URL=http://localhost:8099/api`,
	Args: cobra.NoArgs,
	// no session or API client is needed to serve
	PersistentPreRunE: initializeConfig,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := cfg.Mock.Addr
		if cmd.Flags().Changed("addr") {
			addr = mockAddr
		}

		server := mockapi.New(mockapi.NewStore(), logger)
		return server.Start(cmd.Context(), addr)
	},
}

func init() {
	mockServerCmd.Flags().StringVar(&mockAddr, "addr", ":8099", "listen address")
	rootCmd.AddCommand(mockServerCmd)
}
