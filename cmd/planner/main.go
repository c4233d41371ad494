package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/nhle/weekly-planner/cmd/planner/commands"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "planner",
		Short: "Planejamento Semanal board",
		Long:  "A weekly planning board in the terminal. Tasks live in columns (workflow stages or days of the week) and carry an optional checklist.",
		RunE:  commands.RunBoard,
	}
	commands.AddGlobalFlags(rootCmd)

	rootCmd.AddCommand(commands.NewListCommand())
	rootCmd.AddCommand(commands.NewAddCommand())
	rootCmd.AddCommand(commands.NewMoveCommand())
	rootCmd.AddCommand(commands.NewDeleteCommand())
	rootCmd.AddCommand(commands.NewWhoamiCommand())
	rootCmd.AddCommand(commands.NewPublishCommand())
	rootCmd.AddCommand(commands.NewConfigCommand())

	if err := rootCmd.Execute(); err != nil {
		log.Printf("Command execution failed: %v", err)
		os.Exit(1)
	}
}
