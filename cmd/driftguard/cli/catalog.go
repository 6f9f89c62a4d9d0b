package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/faucetdb/driftguard/internal/baseline"
	"github.com/faucetdb/driftguard/internal/service"
)

func newCatalogCmd() *cobra.Command {
	var (
		req    service.CheckRequest
		format string
	)

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Print the schema and procedure catalogs",
		Long: `Print the tables and stored procedures driftguard resolves from the schema
inputs or a registered database. Statements that fail to parse are reported
on stderr as warnings.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			printer, err := newPrinter(format, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			cat, procs, diags, err := e.checks.Catalogs(cmd.Context(), req)
			if err != nil {
				return err
			}
			for _, d := range diags {
				e.logger.Warn(d.Message, "file", d.File, "line", d.Line, "category", d.Category)
			}
			return printer.Catalog(cmd.OutOrStdout(), cat, procs)
		},
	}

	inputFlags(cmd, &req, false)
	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: text or json")

	cmd.AddCommand(newCatalogDiffCmd())

	return cmd
}

// ---------- catalog diff ----------

func newCatalogDiffCmd() *cobra.Command {
	var (
		schema      []string
		serviceName string
		refresh     bool
		format      string
	)

	cmd := &cobra.Command{
		Use:   "diff",
		Short: "Compare the declared schema with a live database",
		Long: `Compare the tables declared by the DDL inputs with the tables of a registered
database. Objects the database has but the DDL lacks are additive; objects
the DDL declares that the database does not match are breaking. The command
exits 1 on breaking drift.`,
		Example: `  driftguard catalog diff --service prod
  driftguard catalog diff --service prod --schema db/migrations --refresh`,
		RunE: func(cmd *cobra.Command, args []string) error {
			printer, err := newPrinter(format, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			if serviceName == "" {
				serviceName = e.cfg.Inputs.Service
			}
			if serviceName == "" {
				return errors.New("--service is required")
			}
			if len(schema) == 0 {
				schema = e.cfg.Inputs.Schema
			}
			if len(schema) == 0 {
				return errors.New("no schema inputs to compare; pass --schema")
			}

			declared, _, _, err := e.checks.Catalogs(cmd.Context(), service.CheckRequest{Schema: schema})
			if err != nil {
				return fmt.Errorf("build declared catalog: %w", err)
			}
			live, _, err := e.checks.LiveCatalog(cmd.Context(), serviceName, refresh)
			if err != nil {
				return err
			}

			diff := baseline.DiffCatalogs(declared, live)
			if err := printer.Diff(cmd.OutOrStdout(), diff); err != nil {
				return err
			}
			if diff.HasBreaking {
				return ErrCheckFailed
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&schema, "schema", nil, "DDL files or directories (default: configured inputs)")
	cmd.Flags().StringVar(&serviceName, "service", "", "registered database to compare against")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "re-introspect the database instead of using its snapshot")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: text or json")

	return cmd
}
