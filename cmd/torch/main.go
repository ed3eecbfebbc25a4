package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/AaronLay10/TorchBridge/internal/config"
	"github.com/AaronLay10/TorchBridge/internal/crossing"
	"github.com/AaronLay10/TorchBridge/internal/tui"
	"github.com/AaronLay10/TorchBridge/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		log.Fatalf("Error executing command: %v", err)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "torch",
		Short:         "Play the bridge and torch puzzle in the terminal",
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"puzzle file (default: $"+config.EnvConfigPath+" or the built-in puzzle)")

	load := func() (*config.PuzzleConfig, error) {
		if configPath != "" {
			return config.LoadPuzzleConfig(configPath)
		}
		return config.Load()
	}

	playCmd := &cobra.Command{
		Use:   "play",
		Short: "Start an interactive session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			sess, err := newSession(cfg, false)
			if err != nil {
				return err
			}
			return tui.Run(cmd.Context(), sess)
		},
	}

	var fast bool
	replayCmd := &cobra.Command{
		Use:   "replay",
		Short: "Play the stored solution and narrate each move",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			sess, err := newSession(cfg, fast)
			if err != nil {
				return err
			}
			return replay(cmd.Context(), sess, cmd.OutOrStdout())
		},
	}
	replayCmd.Flags().BoolVar(&fast, "fast", false, "skip the travel and step delays")

	rosterCmd := &cobra.Command{
		Use:   "roster",
		Short: "List the people in the puzzle",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), rosterTable(cfg))
			fmt.Fprintf(cmd.OutOrStdout(), "Goal: %d min\n", cfg.Puzzle.GoalMinutes)
			return nil
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "torch %s\n", version.Version)
		},
	}

	rootCmd.AddCommand(playCmd, replayCmd, rosterCmd, versionCmd)
	return rootCmd
}

func newSession(cfg *config.PuzzleConfig, fast bool) (*crossing.Session, error) {
	opts, err := crossing.OptionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	if fast {
		opts.TravelDelay = 0
		opts.StepDelay = 0
	}
	return crossing.NewSession(opts)
}

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)

func rosterTable(cfg *config.PuzzleConfig) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("KEY", "ID", "NAME", "MINUTES").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
	for i, a := range cfg.Actors {
		t.Row(fmt.Sprint(i+1), a.ID, a.Label, fmt.Sprint(a.Cost))
	}
	return t.String()
}
