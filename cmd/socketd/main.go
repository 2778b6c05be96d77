// Socketd is a minimal WebSocket server that relays text messages between
// connected clients.
//
// Clients connect over plain TCP, optionally presenting a token in the
// handshake query string. Every text message a client sends is broadcast to
// the other clients. Local processes can inject messages through the admin
// port with 'socketd push'.
//
// Usage:
//
//	socketd serve [flags]
//	socketd push [flags] <payload>
//	socketd config init
//
// See 'socketd <command> --help' for available options.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/muurk/socketd/internal/auth"
	"github.com/muurk/socketd/internal/config"
	"github.com/muurk/socketd/internal/discovery"
	"github.com/muurk/socketd/internal/logging"
	"github.com/muurk/socketd/internal/server"
	"github.com/muurk/socketd/internal/ui"
	"github.com/muurk/socketd/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var configPath string

var rootCmd = &cobra.Command{
	Use:   "socketd",
	Short: "Minimal WebSocket relay server",
	Long: `A minimal WebSocket server speaking a small subset of RFC 6455 over plain TCP.

Text messages from one client are relayed to every other connected client.
Clients can be authorized with a token passed as ?token=... during the
handshake, checked against a static list, Redis, PostgreSQL or a JWT secret.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default: user config dir)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(pushCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// Serve command flags
var (
	host        string
	port        int
	adminPort   int
	logLevel    string
	logChannel  string
	authMode    string
	metricsAddr string
	advertise   bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the WebSocket server",
	Long: `Start the WebSocket server and run until interrupted.

Settings come from the config file, then SOCKETD_* environment variables,
then the flags below. Only flags given explicitly override the other sources.`,
	Example: `  # Start with defaults (127.0.0.1:9000, admin port 9001, no auth)
  socketd serve

  # Listen on all interfaces with debug logging
  socketd serve --host 0.0.0.0 --log-level debug

  # Require tokens and expose Prometheus metrics
  socketd serve --auth token --metrics-addr 127.0.0.1:9100

  # Write JSON logs to a file
  socketd serve --log-channel /var/log/socketd.log`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&host, "host", "", "Address to listen on")
	serveCmd.Flags().IntVar(&port, "port", 0, "Client WebSocket port")
	serveCmd.Flags().IntVar(&adminPort, "admin-port", 0, "Admin push port (0 disables)")
	serveCmd.Flags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	serveCmd.Flags().StringVar(&logChannel, "log-channel", "", "Log destination (stdout, stderr or a file path)")
	serveCmd.Flags().StringVar(&authMode, "auth", "", "Auth mode (none, token)")
	serveCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Address for /metrics, /healthz and /stats")
	serveCmd.Flags().BoolVar(&advertise, "mdns", false, "Advertise the server via mDNS")
}

// loadServeConfig merges the config file, environment and explicit flags.
func loadServeConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("host") {
		cfg.Host = host
	}
	if flags.Changed("port") {
		cfg.ClientPort = port
	}
	if flags.Changed("admin-port") {
		cfg.AdminPort = adminPort
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	if flags.Changed("log-channel") {
		cfg.Log.Channel = logChannel
	}
	if flags.Changed("auth") {
		cfg.Auth.Mode = authMode
	}
	if flags.Changed("metrics-addr") {
		cfg.MetricsAddr = metricsAddr
	}
	if flags.Changed("mdns") {
		cfg.MDNS.Enabled = advertise
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadServeConfig(cmd)
	if err != nil {
		return err
	}

	if err := logging.Initialize(cfg.Log.Level, cfg.Log.Channel); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer logging.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	authorizer, closeAuth, err := auth.New(ctx, cfg.Auth)
	if err != nil {
		return fmt.Errorf("failed to set up authorization: %w", err)
	}
	defer func() {
		if err := closeAuth(); err != nil {
			logging.Warn("Failed to close token store", zap.Error(err))
		}
	}()

	srv, err := server.New(cfg, authorizer)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	if ui.IsTerminal() {
		fmt.Println(serveBanner(cfg, authorizer.Mode()))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(gctx) })

	if cfg.MDNS.Enabled {
		g.Go(func() error { return advertiseServer(gctx, srv, cfg) })
	}

	return g.Wait()
}

func serveBanner(cfg *config.Config, mode string) string {
	admin := "disabled"
	if addr := cfg.AdminAddr(); addr != "" {
		admin = addr
	}
	metrics := "disabled"
	if cfg.MetricsAddr != "" {
		metrics = cfg.MetricsAddr
	}

	return ui.NewHeader("socketd", version.Full(),
		ui.Detail{Key: "Listen", Value: cfg.ClientAddr()},
		ui.Detail{Key: "Admin", Value: admin},
		ui.Detail{Key: "Metrics", Value: metrics},
		ui.Detail{Key: "Auth", Value: mode},
		ui.Detail{Key: "Rate limit", Value: fmt.Sprintf("%d msgs / %ds", cfg.RateLimit.Messages, cfg.RateLimit.PerSeconds)},
	).Render()
}

// advertiseServer registers the mDNS service once the listeners are bound
// and withdraws it on shutdown. Failure to advertise is not fatal.
func advertiseServer(ctx context.Context, srv *server.Server, cfg *config.Config) error {
	select {
	case <-srv.Ready():
	case <-ctx.Done():
		return nil
	}

	clientPort := cfg.ClientPort
	if addr, ok := srv.ClientAddr().(*net.TCPAddr); ok {
		clientPort = addr.Port
	}
	adminPort := 0
	if addr, ok := srv.AdminAddr().(*net.TCPAddr); ok {
		adminPort = addr.Port
	}

	adv, err := discovery.Advertise(cfg.MDNS.Instance, clientPort, adminPort, version.Version)
	if err != nil {
		logging.Warn("mDNS advertisement failed", zap.Error(err))
		return nil
	}

	<-ctx.Done()
	adv.Shutdown()
	return nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.Detailed())
	},
}
