package cli

import (
	"fmt"
	"net"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/faucetdb/driftguard/internal/server"
	"github.com/faucetdb/driftguard/internal/service"
)

const banner = `
     _      _  __ _                              _
  __| |_ __(_)/ _| |_ __ _ _   _  __ _ _ __ __| |
 / _' | '__| | |_| __/ _' | | | |/ _' | '__/ _' |
| (_| | |  | |  _| || (_| | |_| | (_| | | | (_| |
 \__,_|_|  |_|_|  \__\__, |\__,_|\__,_|_|  \__,_|
                     |___/
`

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the HTTP server that runs checks on request. Paths in requests resolve
against --root and cannot leave it. When server.jwt_secret is set every API
call needs a bearer token (see 'driftguard token').`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd)
		},
	}

	cmd.Flags().IntP("port", "p", 8484, "HTTP listen port")
	cmd.Flags().String("host", "127.0.0.1", "HTTP listen host")
	cmd.Flags().String("root", ".", "directory request paths resolve against")

	viper.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	viper.BindPFlag("server.host", cmd.Flags().Lookup("host"))
	viper.BindPFlag("server.root", cmd.Flags().Lookup("root"))

	return cmd
}

func runServe(cmd *cobra.Command) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	root := cfg.Server.Root
	if root == "" {
		root = "."
	}
	// Requests may only read below root.
	fsys := afero.NewReadOnlyFs(afero.NewBasePathFs(afero.NewOsFs(), root))

	e, err := openEnvFs(cmd, fsys)
	if err != nil {
		return err
	}
	defer e.Close()

	bodyLimit, err := cfg.Server.BodyLimit()
	if err != nil {
		return err
	}
	authSvc := service.NewAuthService(cfg.Server.JWTSecret)
	if !authSvc.Enabled() && !isLoopback(cfg.Server.Host) {
		e.logger.Warn("authentication is disabled on a non-loopback address; set server.jwt_secret",
			"host", cfg.Server.Host)
	}

	srvCfg := server.Config{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ShutdownTimeout: cfg.Server.Shutdown(15 * time.Second),
		CORSOrigins:     cfg.Server.CORS.Origins,
		CORSMethods:     cfg.Server.CORS.Methods,
		MaxBodySize:     bodyLimit,
		RateLimit:       cfg.Server.RateLimit,
		Version:         versionString(),
	}
	srv := server.New(srvCfg, e.checks, e.registry, e.store, authSvc, e.logger)

	out := cmd.OutOrStdout()
	base := "http://" + srvCfg.Addr()
	fmt.Fprint(out, banner)
	fmt.Fprintln(out)
	fmt.Fprintf(out, "→ driftguard %s\n", versionString())
	fmt.Fprintf(out, "→ Listening on %s\n", base)
	fmt.Fprintf(out, "→ Root:       %s\n", root)
	fmt.Fprintf(out, "→ OpenAPI:    %s/openapi.json\n", base)
	fmt.Fprintf(out, "→ Health:     %s/healthz\n", base)
	fmt.Fprintf(out, "→ Auth:       %s\n", enabledString(authSvc.Enabled()))
	fmt.Fprintln(out)

	return srv.Run(cmd.Context())
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func enabledString(b bool) string {
	if b {
		return "enabled"
	}
	return "disabled"
}
