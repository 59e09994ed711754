package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask the assistant one question",
	Long: `Run the assistant once. Progress lines go to stderr, the answer to stdout.

Examples:
  researchhub ask "Find papers similar to item 12"
  researchhub ask "Summarize my selected papers"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		logger := createLogger()
		defer logger.Sync()

		a, err := newApp(ctx, logger, nil)
		if err != nil {
			return err
		}
		defer a.Close()

		return ask(ctx, a, strings.Join(args, " "))
	},
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive session; each line is an independent request",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		logger := createLogger()
		defer logger.Sync()

		a, err := newApp(ctx, logger, nil)
		if err != nil {
			return err
		}
		defer a.Close()

		stat, _ := os.Stdin.Stat()
		isPipe := (stat.Mode() & os.ModeCharDevice) == 0
		prompt := func() {
			if !isPipe {
				fmt.Print("researchhub> ")
			}
		}

		scanner := bufio.NewScanner(os.Stdin)
		prompt()
		for scanner.Scan() {
			input := strings.TrimSpace(scanner.Text())
			if input == "exit" || input == "quit" {
				break
			}
			if input != "" {
				if err := ask(ctx, a, input); err != nil {
					fmt.Fprintf(os.Stderr, "error: %v\n", err)
				}
			}
			prompt()
		}
		return scanner.Err()
	},
}

func ask(ctx context.Context, a *app, question string) error {
	res := a.agent.Run(ctx, question, func(status string) {
		fmt.Fprintln(os.Stderr, status)
	})
	if res.Err != nil {
		return res.Err
	}
	fmt.Println(res.Text)
	return nil
}
