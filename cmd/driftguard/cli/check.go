package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/faucetdb/driftguard/internal/model"
	"github.com/faucetdb/driftguard/internal/service"
)

func newCheckCmd() *cobra.Command {
	var (
		req    service.CheckRequest
		format string
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check handlers, procedures and routes against the schema",
		Long: `Build the schema and procedure catalogs, extract every call site from the
handler sources and report inconsistencies. Paths given as flags replace the
configured inputs. The command exits 1 when any error is reported.`,
		Example: `  driftguard check
  driftguard check --schema db/migrations --handlers src/handlers --routes api.yaml
  driftguard check --service prod --handlers src --baseline --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, req, format)
		},
	}

	inputFlags(cmd, &req, true)
	cmd.Flags().BoolVar(&req.Baseline, "baseline", false, "suppress diagnostics accepted into the baseline")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: text or json")

	return cmd
}

func runCheck(cmd *cobra.Command, req service.CheckRequest, format string) error {
	printer, err := newPrinter(format, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	e, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	res, err := e.checks.Check(cmd.Context(), req, service.OriginCLI)
	if err != nil {
		return err
	}
	if err := printer.Report(cmd.OutOrStdout(), res.Report, res.Resolved); err != nil {
		return err
	}
	if res.Report.Status == model.StatusFailed {
		return ErrCheckFailed
	}
	return nil
}

// ---------- runs ----------

func newRunsCmd() *cobra.Command {
	var (
		limit      int
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent runs of the project",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			runs, err := e.checks.Runs(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("list runs: %w", err)
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(runs)
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded yet. Use 'driftguard check' to run one.")
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "STARTED\tORIGIN\tSTATUS\tERRORS\tWARNINGS\tSUPPRESSED\tDURATION")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
					r.StartedAt.Local().Format(time.DateTime), r.Origin, r.Status,
					r.Errors, r.Warnings, r.Suppressed, time.Duration(r.DurationMs)*time.Millisecond)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to show")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}
