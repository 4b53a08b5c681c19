package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"Tether/mcp"

	"github.com/spf13/cobra"
)

// Version is overridden at build time via -ldflags
var Version = "0.3.0"

var (
	flagConfig   string
	flagAdbPath  string
	flagDeviceID string
	flagListen   string
	flagLogLevel string
)

var rootCmd = &cobra.Command{
	Use:   "tether",
	Short: "UI automation bridge for Android devices",
	Long: "Tether exposes the device accessibility tree as a command surface\n" +
		"for AI agents and scripts, over MCP stdio or a line-based TCP protocol.",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the TCP command server",
	RunE: func(cmd *cobra.Command, args []string) error {
		bridge, cfg, cleanup, err := setupBridge()
		if err != nil {
			return err
		}
		defer cleanup()

		addr := cfg.Listen
		if flagListen != "" {
			addr = flagListen
		}
		if addr == "" {
			return fmt.Errorf("no listen address configured")
		}

		srv := NewTCPServer(bridge, addr, cfg.RateLimitPerSec)
		if err := srv.Start(); err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		defer srv.Stop()
		LogInfo("main").Str("addr", srv.Addr()).Msg("TCP server listening")

		waitForShutdown()
		return nil
	},
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the MCP server on stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		bridge, _, cleanup, err := setupBridge()
		if err != nil {
			return err
		}
		defer cleanup()

		// stdout belongs to the protocol; all logging goes to stderr
		return mcp.NewMCPServer(bridge).Start()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(Version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", defaultConfigPath(), "Path to config file")
	rootCmd.PersistentFlags().StringVar(&flagAdbPath, "adb", "", "Path to the adb binary (default: adb on PATH)")
	rootCmd.PersistentFlags().StringVar(&flagDeviceID, "device", "", "Device serial; empty uses the only connected device")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error")
	serveCmd.Flags().StringVar(&flagListen, "listen", "", "Listen address, overrides config")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(versionCmd)
}

// setupBridge loads config, initializes logging and the audit store, and
// attaches the adb-backed platform service. The returned cleanup closes
// everything in reverse order.
func setupBridge() (*Bridge, Config, func(), error) {
	cfg, err := LoadConfig(flagConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v, using defaults\n", err)
	}
	if flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}

	logCfg := DefaultLogConfig()
	logCfg.Level = ParseLogLevel(cfg.LogLevel)
	logCfg.FilePath = cfg.LogFile
	if err := InitLogger(logCfg); err != nil {
		return nil, cfg, nil, fmt.Errorf("failed to initialize logging: %w", err)
	}

	bridge := NewBridge(Version)
	bridge.SetCommandTimeout(cfg.CommandTimeout())
	bridge.Attach(NewAdbService(flagAdbPath, flagDeviceID))

	if cfg.Audit.Enabled {
		history, err := NewHistoryStore(cfg.Audit.Dir)
		if err != nil {
			LogWarn("main").Err(err).Msg("command history disabled")
		} else {
			bridge.SetHistory(history)
		}
	}

	// Hot-reload log level and command timeout on config file change
	watcher := NewConfigWatcher(flagConfig, func(next Config) {
		SetLogLevel(ParseLogLevel(next.LogLevel))
		bridge.SetCommandTimeout(next.CommandTimeout())
		LogInfo("main").Str("logLevel", next.LogLevel).Msg("config reloaded")
	})
	if err := watcher.Start(); err != nil {
		LogDebug("main").Err(err).Msg("config watcher not started")
	}

	cleanup := func() {
		watcher.Stop()
		bridge.Close()
		CloseLogger()
	}
	return bridge, cfg, cleanup, nil
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "tether.yaml"
	}
	return home + "/.tether/tether.yaml"
}

func waitForShutdown() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	LogInfo("main").Msg("shutting down")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
