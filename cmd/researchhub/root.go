package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var version = "dev"

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "researchhub",
	Short: "Research assistant for your paper library",
	Long: `ResearchHub answers questions about your paper library with an LLM that
can search, summarize, lint citations and check open access.

Usage:
  researchhub ask "What did I add about graph neural networks?"
  researchhub chat
  researchhub serve`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")

	rootCmd.AddCommand(askCmd, chatCmd)
	rootCmd.AddCommand(addCmd, selectCmd, summarizeCmd, synthesizeCmd, oaCmd)
	rootCmd.AddCommand(toolsCmd, statusCmd, serveCmd, serviceCmd)
}

func createLogger() *zap.Logger {
	if verbose {
		logger, _ := zap.NewDevelopment()
		return logger
	}
	logger, _ := zap.NewProduction()
	return logger
}

func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, a := range args {
		id, err := strconv.ParseInt(a, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid item id %q", a)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
