package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	dmcp "github.com/faucetdb/driftguard/internal/mcp"
)

func newMCPCmd() *cobra.Command {
	var (
		transport string
		addr      string
	)

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP server for AI agents",
		Long: `Start a Model Context Protocol server so agents can check their edits and
look up exact table, column and procedure names before writing code.

The stdio transport speaks JSON-RPC on stdin/stdout and logs to stderr. The
http transport serves Streamable HTTP on --addr.`,
		Example: `  driftguard mcp
  driftguard mcp --transport http --addr 127.0.0.1:3001`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if transport != dmcp.TransportStdio && transport != dmcp.TransportHTTP {
				return fmt.Errorf("unsupported transport %q; use %q or %q", transport, dmcp.TransportStdio, dmcp.TransportHTTP)
			}
			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			srv := dmcp.NewMCPServer(e.checks, e.store, versionString(), e.logger)
			return srv.Run(cmd.Context(), transport, addr, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&transport, "transport", dmcp.TransportStdio, "stdio or http")
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:3001", "listen address for --transport http")

	return cmd
}
