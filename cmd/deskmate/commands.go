// cmd/deskmate/commands.go
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/signalnine/deskmate/internal/interpret"
	"github.com/signalnine/deskmate/internal/logging"
	"github.com/signalnine/deskmate/internal/session"
	"github.com/signalnine/deskmate/internal/stub"
	"github.com/signalnine/deskmate/internal/ui"
)

// errCommandFailed exits non-zero after the result was already printed
var errCommandFailed = errors.New("command failed")

var askCmd = &cobra.Command{
	Use:   "ask <command...>",
	Short: "Send one command and print the result",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, false)
		if err != nil {
			return err
		}
		defer logging.Close()

		client, _ := newClient(cfg)
		engine := session.NewEngine(client, session.Options{
			LateEntries: cfg.LateEntries,
			Logger:      logging.With("component", "session"),
		})

		entry, err := engine.Ask(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.NewPlainRenderer().Entry(entry))
		if entry.Kind == session.KindError {
			return errCommandFailed
		}
		return nil
	},
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check whether the agent service is reachable",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, false)
		if err != nil {
			return err
		}
		defer logging.Close()

		client, _ := newClient(cfg)
		if err := client.Health(cmd.Context()); err != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "unreachable: %s\n", err)
			return errCommandFailed
		}
		fmt.Fprintf(cmd.OutOrStdout(), "reachable: %s\n", client.BaseURL())
		return nil
	},
}

var intentCmd = &cobra.Command{
	Use:   "intent <command...>",
	Short: "Show how the service would read a command, without running it",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, false)
		if err != nil {
			return err
		}
		defer logging.Close()

		client, _ := newClient(cfg)
		intent, err := client.ParseIntent(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Intent: %s\n", intent.Intent)
		if intent.Target != "" {
			fmt.Fprintf(out, "Target: %s\n", intent.Target)
		}
		for i, s := range intent.Steps {
			fmt.Fprintf(out, "Step %d: %v\n", i+1, s["action"])
		}
		if len(intent.Assumptions) > 0 {
			fmt.Fprintf(out, "Assumptions: %s\n", strings.Join(intent.Assumptions, ", "))
		}
		if intent.ConfirmationRequired {
			fmt.Fprintln(out, interpret.ConfirmationLabel)
		}
		if intent.ClarificationQuestion != "" {
			fmt.Fprintf(out, "Question: %s\n", intent.ClarificationQuestion)
		}
		return nil
	},
}

var jobsCmd = &cobra.Command{
	Use:   "jobs [id]",
	Short: "List recent jobs, or show one job's result",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, false)
		if err != nil {
			return err
		}
		defer logging.Close()

		client, _ := newClient(cfg)
		out := cmd.OutOrStdout()

		if len(args) == 1 {
			job, err := client.Job(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Job %s (%s) %s\n", job.JobID, job.Status, job.CreatedAt)
			resp := job.DecodeResult()
			if resp == nil {
				fmt.Fprintln(out, job.Result)
				return nil
			}
			r := ui.NewPlainRenderer()
			units := interpret.Steps(resp.Steps)
			if len(units) == 0 {
				fmt.Fprintln(out, interpret.Summary(resp))
			}
			for _, u := range units {
				fmt.Fprintln(out, r.Unit(u))
			}
			return nil
		}

		jobs, err := client.Jobs(cmd.Context())
		if err != nil {
			return err
		}
		if len(jobs) == 0 {
			fmt.Fprintln(out, "no jobs")
			return nil
		}
		t := table.New().Border(lipgloss.NormalBorder()).Headers("JOB", "STATUS", "CREATED", "COMMAND")
		for _, j := range jobs {
			t.Row(j.JobID, j.Status, j.CreatedAt, j.Command)
		}
		fmt.Fprintln(out, t.String())
		return nil
	},
}

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "List files uploaded to the service",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, false)
		if err != nil {
			return err
		}
		defer logging.Close()

		client, _ := newClient(cfg)
		files, err := client.Files(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(files) == 0 {
			fmt.Fprintln(out, "no files")
			return nil
		}
		t := table.New().Border(lipgloss.NormalBorder()).Headers("FILE", "PATH", "UPLOADED")
		for _, f := range files {
			t.Row(f.Filename, f.FilePath, f.UploadedAt)
		}
		fmt.Fprintln(out, t.String())
		return nil
	},
}

var uploadCmd = &cobra.Command{
	Use:   "upload <path>",
	Short: "Upload a file to the service",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, false)
		if err != nil {
			return err
		}
		defer logging.Close()

		client, _ := newClient(cfg)
		info, err := client.UploadFile(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		msg := info.Message
		if msg == "" {
			msg = "uploaded"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", msg, info.FilePath)
		return nil
	},
}

var stubCmd = &cobra.Command{
	Use:   "stub",
	Short: "Run a local stub of the agent service",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, false)
		if err != nil {
			return err
		}
		if cfg.LogFile == "" {
			logging.Configure(cfg.LogLevel, os.Stderr)
		}
		defer logging.Close()

		srv, err := stub.NewServer(&cfg.Stub, logging.With("component", "stub"))
		if err != nil {
			return err
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		return srv.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(intentCmd)
	rootCmd.AddCommand(jobsCmd)
	rootCmd.AddCommand(filesCmd)
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(stubCmd)
}
