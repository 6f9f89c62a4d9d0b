package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/faucetdb/driftguard/internal/config"
	"github.com/faucetdb/driftguard/internal/connector"
	"github.com/faucetdb/driftguard/internal/connector/mssql"
	"github.com/faucetdb/driftguard/internal/connector/mysql"
	"github.com/faucetdb/driftguard/internal/connector/oracle"
	"github.com/faucetdb/driftguard/internal/connector/postgres"
	"github.com/faucetdb/driftguard/internal/connector/snowflake"
	"github.com/faucetdb/driftguard/internal/connector/sqlite"
	"github.com/faucetdb/driftguard/internal/report"
	"github.com/faucetdb/driftguard/internal/service"
)

// loadConfig reads the discovered config file, or the defaults when there is
// none, then applies DRIFTGUARD_* environment variables and flags.
func loadConfig() (*config.YAMLConfig, error) {
	cfg := config.DefaultYAMLConfig()
	if path := viper.ConfigFileUsed(); path != "" {
		loaded, err := config.LoadYAMLConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	// Viper also sees the file itself; expanding keeps ${VAR} values equal to
	// what LoadYAMLConfig produced.
	override := func(key string, dst *string) {
		if v := os.ExpandEnv(viper.GetString(key)); v != "" {
			*dst = v
		}
	}
	override("store.data_dir", &cfg.Store.DataDir)
	override("store.project", &cfg.Store.Project)
	override("logging.level", &cfg.Logging.Level)
	override("logging.format", &cfg.Logging.Format)
	override("inputs.service", &cfg.Inputs.Service)
	override("server.host", &cfg.Server.Host)
	override("server.root", &cfg.Server.Root)
	override("server.jwt_secret", &cfg.Server.JWTSecret)
	if viper.IsSet("server.port") {
		if port := viper.GetInt("server.port"); port > 0 {
			cfg.Server.Port = port
		}
	}
	return cfg, cfg.Validate()
}

// newLogger builds the process logger. Logs go to w so that stdout stays
// reserved for reports and the MCP stdio transport.
func newLogger(lc config.LoggingConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(lc.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(lc.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// resolveDataDir returns the configured data directory, or ~/.driftguard.
func resolveDataDir(cfg *config.YAMLConfig) string {
	if cfg.Store.DataDir != "" {
		return cfg.Store.DataDir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".driftguard")
}

// newRegistry creates a connector registry with all supported database drivers registered.
func newRegistry() *connector.Registry {
	registry := connector.NewRegistry()
	registry.RegisterDriver("postgres", postgres.New)
	registry.RegisterDriver("mysql", mysql.New)
	registry.RegisterDriver("mssql", mssql.New)
	registry.RegisterDriver("snowflake", snowflake.New)
	registry.RegisterDriver("sqlite", sqlite.New)
	registry.RegisterDriver("oracle", oracle.New)
	return registry
}

// env holds what most commands need: configuration, logger, state store and
// the check service over the local file system.
type env struct {
	cfg      *config.YAMLConfig
	logger   *slog.Logger
	store    *config.Store
	registry *connector.Registry
	checks   *service.CheckService
}

func openEnv(cmd *cobra.Command) (*env, error) {
	return openEnvFs(cmd, afero.NewOsFs())
}

func openEnvFs(cmd *cobra.Command, fsys afero.Fs) (*env, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg.Logging, cmd.ErrOrStderr())

	store, err := config.NewStore(resolveDataDir(cfg))
	if err != nil {
		return nil, fmt.Errorf("open state store: %w", err)
	}
	registry := newRegistry()
	checks, err := service.NewCheckService(cfg, fsys, store, registry, logger)
	if err != nil {
		store.Close()
		return nil, err
	}
	return &env{cfg: cfg, logger: logger, store: store, registry: registry, checks: checks}, nil
}

func (e *env) Close() {
	e.store.Close()
}

// newPrinter parses a --format value. Color is used only for terminals.
func newPrinter(format string, w io.Writer) (report.Printer, error) {
	f, err := report.ParseFormat(format)
	if err != nil {
		return report.Printer{}, err
	}
	p := report.Printer{Format: f}
	if file, ok := w.(*os.File); ok {
		p.Color = report.ColorFor(file)
	}
	return p, nil
}

// inputFlags registers the input path flags shared by check, catalog and
// baseline accept.
func inputFlags(cmd *cobra.Command, req *service.CheckRequest, withHandlers bool) {
	cmd.Flags().StringSliceVar(&req.Schema, "schema", nil, "DDL files or directories")
	cmd.Flags().StringSliceVar(&req.Procedures, "procedures", nil, "stored procedure definition files or directories")
	if withHandlers {
		cmd.Flags().StringSliceVar(&req.Handlers, "handlers", nil, "handler source files or directories")
		cmd.Flags().StringSliceVar(&req.Routes, "routes", nil, "OpenAPI routing documents or directories")
	}
	cmd.Flags().StringVar(&req.Service, "service", "", "registered database to use as the schema source")
	cmd.Flags().BoolVar(&req.Refresh, "refresh", false, "re-introspect --service instead of using its snapshot")
}

// versionString returns a display version string.
func versionString() string {
	if appVersion == "" || appVersion == "dev" {
		return "dev"
	}
	if strings.HasPrefix(appVersion, "v") {
		return appVersion
	}
	return "v" + appVersion
}
