package cmd

import (
	"fmt"
	"net"

	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"

	"github.com/addistalk/addistalk/routes"
	"github.com/addistalk/addistalk/utils"
)

const (
	tlsCertFlag = "tls-cert"
	tlsKeyFlag  = "tls-key"
)

var serveFlags = map[string]cobraflags.Flag{
	tlsCertFlag: &cobraflags.StringFlag{
		Name:  tlsCertFlag,
		Value: "",
		Usage: "TLS certificate file; serves HTTPS together with --tls-key",
	},
	tlsKeyFlag: &cobraflags.StringFlag{
		Name:  tlsKeyFlag,
		Value: "",
		Usage: "TLS private key file",
	},
}

func newServeCommand() *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Migrate the database and start the web server",
		Long: `Start the HTTP server. SIGTERM or SIGINT shuts it down gracefully,
SIGUSR2 restarts it without dropping the listening socket.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runServer(serveFlags[tlsCertFlag].GetString(), serveFlags[tlsKeyFlag].GetString())
		},
	}
	cobraflags.RegisterMap(serveCmd, serveFlags)
	return serveCmd
}

// serveCommand is the root command's default action: plain HTTP.
func serveCommand(_ *cobra.Command, _ []string) error {
	return runServer("", "")
}

func runServer(cert, key string) error {
	cfg, db, err := setup()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := migrate(db); err != nil {
		return err
	}

	r := routes.SetupRouter(db)
	addr := net.JoinHostPort("", cfg.App.Port)

	if cert != "" && key != "" {
		utils.Sugar.Infof("starting HTTPS server on %s (graceful)", addr)
		return utils.GraceServerTLS(addr, cert, key, r)
	}
	utils.Sugar.Infof("starting server on %s (graceful)", addr)
	return utils.GraceServer(addr, r)
}
