package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// ErrCheckFailed is returned when a run reports errors or a catalog diff
// finds breaking drift. The report has already been written.
var ErrCheckFailed = errors.New("check failed")

var (
	cfgFile    string
	appVersion string
)

// Execute creates the root command tree and runs it. SIGINT cancels the
// command context.
func Execute(version, commit, date string) error {
	appVersion = version
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return newRootCmd(version, commit, date).ExecuteContext(ctx)
}

func newRootCmd(version, commit, date string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "driftguard",
		Short: "Check handler code against the database schema",
		Long: `driftguard: keep handler code, stored procedures and table names consistent with the schema.

driftguard reads DDL migrations (or introspects a live database), stored procedure
definitions, Python handler sources and OpenAPI routing documents. It reports
references to tables, columns and procedures that do not exist, record keys that
are read but never written, missing route handlers and table names that break the
naming rules, each with the closest existing name.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./driftguard.yaml)")
	cmd.PersistentFlags().String("data-dir", "", "data directory for the state database (default: ~/.driftguard)")
	cmd.PersistentFlags().String("project", "", "project name runs and baselines are stored under")
	cmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn or error")
	cmd.PersistentFlags().String("log-format", "", "log format: text or json")

	viper.BindPFlag("store.data_dir", cmd.PersistentFlags().Lookup("data-dir"))
	viper.BindPFlag("store.project", cmd.PersistentFlags().Lookup("project"))
	viper.BindPFlag("logging.level", cmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("logging.format", cmd.PersistentFlags().Lookup("log-format"))

	cobra.OnInitialize(initConfig)

	cmd.AddCommand(newCheckCmd())
	cmd.AddCommand(newCatalogCmd())
	cmd.AddCommand(newBaselineCmd())
	cmd.AddCommand(newRunsCmd())
	cmd.AddCommand(newDBCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newMCPCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newTokenCmd())
	cmd.AddCommand(newVersionCmd(version, commit, date))

	return cmd
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("driftguard")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.driftguard")
	}

	viper.SetEnvPrefix("DRIFTGUARD")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	viper.ReadInConfig() // Ignore error - config file is optional
}
