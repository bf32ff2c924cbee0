package main

import (
	"github.com/spf13/cobra"

	"safedrive/internal/mcpserver"
)

func newMCPCmd() *cobra.Command {
	var (
		addr     string
		readOnly bool
	)
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve raw SQL access over MCP (streamable HTTP)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = cfg.MCPAddr()
			}
			if !cmd.Flags().Changed("read-only") {
				readOnly = cfg.MCPReadOnly
			}

			ctx, stop := signalContext()
			defer stop()

			database, err := openDatabase(ctx)
			if err != nil {
				return err
			}
			defer database.Close()
			return mcpserver.New(database, readOnly).Serve(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default MCP_SERVER_HOST:MCP_SERVER_PORT)")
	cmd.Flags().BoolVar(&readOnly, "read-only", true, "reject statements that modify data")
	return cmd
}
