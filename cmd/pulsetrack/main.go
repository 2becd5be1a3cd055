package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	configPath string
	localOnly  bool
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := &cobra.Command{
		Use:          "pulsetrack",
		Short:        "Student planner for classes, assignments, grades and workload",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.pulsetrack/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&localOnly, "local-only", false, "keep changes in memory and never open the database")

	// Account
	rootCmd.AddCommand(signupCmd())
	rootCmd.AddCommand(loginCmd())
	rootCmd.AddCommand(logoutCmd())
	rootCmd.AddCommand(whoamiCmd())

	// Records
	rootCmd.AddCommand(termCmd())
	rootCmd.AddCommand(classCmd())
	rootCmd.AddCommand(assignmentCmd())
	rootCmd.AddCommand(noteCmd())
	rootCmd.AddCommand(scaleCmd())
	rootCmd.AddCommand(weightsCmd())
	rootCmd.AddCommand(pulseCmd())
	rootCmd.AddCommand(setupCmd())
	rootCmd.AddCommand(syllabusCmd())

	// Views
	rootCmd.AddCommand(dashboardCmd())
	rootCmd.AddCommand(gradesCmd())
	rootCmd.AddCommand(whatIfCmd())
	rootCmd.AddCommand(calendarCmd())
	rootCmd.AddCommand(conflictsCmd())
	rootCmd.AddCommand(workloadCmd())
	rootCmd.AddCommand(streakCmd())
	rootCmd.AddCommand(searchCmd())
	rootCmd.AddCommand(changelogCmd())
	rootCmd.AddCommand(exportCmd())

	// Settings and server
	rootCmd.AddCommand(themeCmd())
	rootCmd.AddCommand(serveCmd())

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
