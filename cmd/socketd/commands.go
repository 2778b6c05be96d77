package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/muurk/socketd/internal/config"
	"github.com/muurk/socketd/internal/discovery"
	"github.com/muurk/socketd/internal/push"
	"github.com/muurk/socketd/internal/ui"
)

// Push command flags
var (
	pushType     string
	pushUserID   string
	pushAddr     string
	pushJSON     bool
	pushDiscover bool
	pushInstance string
	pushRetries  int
	pushTimeout  int
	scanTimeout  int
	forceInit    bool
)

func init() {
	rootCmd.AddCommand(scanCmd)

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
}

// pushCmd writes one message to a running server's admin port
var pushCmd = &cobra.Command{
	Use:   "push [flags] <payload>",
	Short: "Send a message through a server's admin port",
	Long: `Send a message to connected clients through the admin push port.

Private messages go to the single connection identified as --user-id and are
dropped silently when that user is offline. Broadcasts go to every eligible
connection.

The payload is sent as a string unless --json is given, in which case it must
be valid JSON and is delivered as its JSON text.`,
	Example: `  # Broadcast to everyone on the local server
  socketd push "maintenance in 5 minutes"

  # Private message to user 42
  socketd push --type private --user-id 42 "your export is ready"

  # Structured payload
  socketd push --json '{"event":"refresh","data":{"page":"home"}}'

  # Find the server via mDNS instead of the config file
  socketd push --discover --instance chat-box "hello"`,
	Args: cobra.ExactArgs(1),
	RunE: runPush,
}

func init() {
	pushCmd.Flags().StringVar(&pushType, "type", push.TypeBroadcast, "Message type (broadcast, private)")
	pushCmd.Flags().StringVar(&pushUserID, "user-id", "", "Target user for private messages")
	pushCmd.Flags().StringVar(&pushAddr, "addr", "", "Admin address host:port (default: from config)")
	pushCmd.Flags().BoolVar(&pushJSON, "json", false, "Treat the payload as JSON")
	pushCmd.Flags().BoolVar(&pushDiscover, "discover", false, "Locate the server via mDNS")
	pushCmd.Flags().StringVar(&pushInstance, "instance", "", "mDNS instance name to match with --discover")
	pushCmd.Flags().IntVar(&pushRetries, "retries", 3, "Retries on transient network errors")
	pushCmd.Flags().IntVar(&pushTimeout, "timeout", 10, "Overall timeout in seconds")
}

// parsePayload converts the command-line payload into the value sent on the wire.
func parsePayload(arg string, asJSON bool) (interface{}, error) {
	if !asJSON {
		return arg, nil
	}
	if !jsoniter.Valid([]byte(arg)) {
		return nil, errors.New("payload is not valid JSON")
	}
	return jsoniter.RawMessage(arg), nil
}

func runPush(cmd *cobra.Command, args []string) error {
	switch pushType {
	case push.TypeBroadcast:
	case push.TypePrivate:
		if pushUserID == "" {
			return errors.New("--user-id is required for private messages")
		}
	default:
		return fmt.Errorf("unknown message type %q (expected broadcast or private)", pushType)
	}

	payload, err := parsePayload(args[0], pushJSON)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), time.Duration(pushTimeout)*time.Second)
	defer cancel()

	addr, err := resolveAdminAddr(ctx)
	if err != nil {
		fmt.Println(ui.NewFailureResult("Push", err, pushAddrHint).Render())
		return err
	}

	client := push.NewClient(addr)
	client.MaxRetries = pushRetries

	if pushType == push.TypePrivate {
		err = client.SendToUser(ctx, pushUserID, payload)
	} else {
		err = client.Broadcast(ctx, payload)
	}
	if err != nil {
		fmt.Println(ui.NewFailureResult("Push", errors.New(push.GetShortErrorMessage(err)), push.GetTroubleshootingHint(err)).Render())
		return err
	}

	details := []ui.Detail{
		{Key: "Server", Value: addr},
		{Key: "Type", Value: pushType},
	}
	if pushType == push.TypePrivate {
		details = append(details, ui.Detail{Key: "User", Value: pushUserID})
	}
	fmt.Println(ui.NewSuccessResult("Message sent", details...).Render())
	return nil
}

const pushAddrHint = `Check that the server is running with admin_port set
Pass --addr host:port to skip the config file
Use --discover if the server advertises itself via mDNS`

// resolveAdminAddr picks the admin address from --addr, mDNS or the config file.
func resolveAdminAddr(ctx context.Context) (string, error) {
	if pushAddr != "" {
		return pushAddr, nil
	}

	if pushDiscover {
		var inst *discovery.Instance
		err := ui.RunWithSpinner(ctx, "Looking for a socketd admin port...", func(ctx context.Context) error {
			var err error
			inst, err = discovery.NewScanner().FindAdmin(ctx, pushInstance)
			return err
		})
		if err != nil {
			return "", fmt.Errorf("discovery failed: %w", err)
		}
		return inst.AdminAddr(), nil
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return "", err
	}
	addr := cfg.AdminAddr()
	if addr == "" {
		return "", errors.New("admin port is disabled in the configuration")
	}
	return addr, nil
}

// scanCmd lists servers advertising on the local network
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for socketd servers on the local network",
	Long: `Scan for socketd servers using mDNS/DNS-SD discovery.

Only servers started with mDNS advertisement enabled will be found.`,
	Example: `  # Scan for 3 seconds (default)
  socketd scan

  # Longer scan for busy networks
  socketd scan --timeout 10`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().IntVar(&scanTimeout, "timeout", 3, "Scan timeout in seconds")
}

func runScan(cmd *cobra.Command, args []string) error {
	scanner := discovery.NewScanner()
	scanner.Timeout = time.Duration(scanTimeout) * time.Second

	var instances []*discovery.Instance
	label := fmt.Sprintf("Scanning for socketd servers (timeout: %ds)...", scanTimeout)
	if !ui.IsTerminal() {
		fmt.Println(label)
	}
	err := ui.RunWithSpinner(cmd.Context(), label, func(ctx context.Context) error {
		var err error
		instances, err = scanner.Scan(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}
	fmt.Println()

	if len(instances) == 0 {
		fmt.Println("No servers found.")
		fmt.Println("\nTroubleshooting:")
		fmt.Println("  - Start the server with --mdns or mdns.enabled: true")
		fmt.Println("  - Check that multicast traffic is allowed on this network")
		fmt.Println("  - Try increasing --timeout")
		return nil
	}

	fmt.Printf("Found %d server(s):\n\n", len(instances))
	for i, inst := range instances {
		fmt.Printf("%d. %s\n", i+1, inst)
		fmt.Printf("   WebSocket: %s\n", inst.WebSocketURL())
		if admin := inst.AdminAddr(); admin != "" {
			fmt.Printf("   Admin:     %s\n", admin)
		}
		if v := inst.GetMetadata("version"); v != "" {
			fmt.Printf("   Version:   %s\n", v)
		}
		fmt.Println()
	}
	return nil
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with default values",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := targetConfigPath()
		if err != nil {
			return err
		}

		if _, err := os.Stat(path); err == nil && !forceInit {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}

		if err := config.Default().Save(path); err != nil {
			return err
		}

		fmt.Println(ui.NewSuccessResult("Configuration written", ui.Detail{Key: "Path", Value: path}).Render())
		return nil
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&forceInit, "force", false, "Overwrite an existing file")
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long: `Print the configuration after merging the file and SOCKETD_* environment
variables. Secrets are printed as-is.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
		fmt.Print(string(data))
		return nil
	},
}

func targetConfigPath() (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	return config.GetConfigPath()
}
