// cmd/deskmate/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/signalnine/deskmate/internal/agent"
	"github.com/signalnine/deskmate/internal/config"
	"github.com/signalnine/deskmate/internal/connectivity"
	"github.com/signalnine/deskmate/internal/logging"
	"github.com/signalnine/deskmate/internal/session"
	"github.com/signalnine/deskmate/internal/ui"
)

var (
	configPath string
	baseURL    string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:           "deskmate",
	Short:         "Chat with the DeskMate desktop agent",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runChat,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")
	rootCmd.PersistentFlags().StringVar(&baseURL, "url", "", "agent service base URL (overrides config)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
}

// loadConfig reads .env, the config file and flag overrides, then sets up
// logging. interactive keeps logs off the terminal unless a file is set.
func loadConfig(cmd *cobra.Command, interactive bool) (*config.Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if baseURL != "" {
		cfg.BaseURL = baseURL
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	switch {
	case cfg.LogFile != "":
		if err := logging.EnableFileLogging(cfg.LogFile, cfg.LogLevel); err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
	case !interactive && cmd.Flags().Changed("log-level"):
		logging.Configure(cfg.LogLevel, os.Stderr)
	}
	return cfg, nil
}

// newClient wires a client and monitor around one shared state
func newClient(cfg *config.Config) (*agent.Client, *connectivity.Monitor) {
	state := connectivity.NewState()
	client := agent.New(cfg, state, logging.With("component", "agent"))
	monitor := connectivity.NewMonitor(client, state, cfg.HealthTimeout, logging.With("component", "monitor"))
	return client, monitor
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, true)
	if err != nil {
		return err
	}
	defer logging.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	client, monitor := newClient(cfg)
	engine := session.NewEngine(client, session.Options{
		LateEntries: cfg.LateEntries,
		Logger:      logging.With("component", "session"),
	})

	p := tea.NewProgram(ui.NewModel(ctx, engine, monitor, client.BaseURL()), tea.WithAltScreen(), tea.WithMouseCellMotion())
	monitor.State().OnChange(func(s connectivity.Status) {
		p.Send(ui.StatusMsg(s))
	})
	if cfg.ProbeInterval > 0 {
		go monitor.Watch(ctx, cfg.ProbeInterval)
	}

	logging.Info("session started", "base_url", client.BaseURL())
	_, err = p.Run()
	return err
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errCommandFailed) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
