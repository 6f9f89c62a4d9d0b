package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/faucetdb/driftguard/internal/service"
)

func newBaselineCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "baseline",
		Short: "Manage accepted diagnostics",
		Long: `A baseline records diagnostics a project has accepted. 'driftguard check --baseline'
then reports only what is new, and lists accepted entries that no longer occur.`,
	}

	cmd.AddCommand(newBaselineAcceptCmd())
	cmd.AddCommand(newBaselineListCmd())
	cmd.AddCommand(newBaselineClearCmd())

	return cmd
}

// ---------- baseline accept ----------

func newBaselineAcceptCmd() *cobra.Command {
	var req service.CheckRequest

	cmd := &cobra.Command{
		Use:   "accept",
		Short: "Run a check and accept every diagnostic it reports",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			res, err := e.checks.Check(cmd.Context(), req, service.OriginCLI)
			if err != nil {
				return err
			}
			added, err := e.checks.AcceptBaseline(cmd.Context(), res.Report)
			if err != nil {
				return fmt.Errorf("save baseline: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Accepted %d new diagnostic(s) of %d reported into project %q\n",
				added, len(res.Report.Diagnostics), e.checks.Project())
			return nil
		},
	}

	inputFlags(cmd, &req, true)

	return cmd
}

// ---------- baseline list ----------

func newBaselineListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List accepted diagnostics",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			entries, err := e.store.ListBaseline(cmd.Context(), e.checks.Project())
			if err != nil {
				return fmt.Errorf("list baseline: %w", err)
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			}
			if len(entries) == 0 {
				fmt.Fprintln(out, "Baseline is empty. Use 'driftguard baseline accept' to create one.")
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "FINGERPRINT\tCATEGORY\tFILE\tACCEPTED\tMESSAGE")
			for _, en := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					en.Fingerprint, en.Category, en.File,
					en.AcceptedAt.Local().Format(time.DateOnly), en.Message)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

// ---------- baseline clear ----------

func newBaselineClearCmd() *cobra.Command {
	var fingerprint string

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove accepted diagnostics",
		Long:  "Remove every accepted diagnostic of the project, or one entry with --fingerprint.",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			project := e.checks.Project()
			if fingerprint != "" {
				if err := e.store.DeleteBaselineEntry(cmd.Context(), project, fingerprint); err != nil {
					return fmt.Errorf("remove baseline entry: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed baseline entry %s\n", fingerprint)
				return nil
			}

			n, err := e.store.ClearBaseline(cmd.Context(), project)
			if err != nil {
				return fmt.Errorf("clear baseline: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d baseline entries from project %q\n", n, project)
			return nil
		},
	}

	cmd.Flags().StringVar(&fingerprint, "fingerprint", "", "remove only the entry with this fingerprint")

	return cmd
}
