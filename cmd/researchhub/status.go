package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/chris/researchhub/internal/orchestrator"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show collaborator and model availability",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, createLogger(), nil)
		if err != nil {
			return err
		}
		defer a.Close()

		st := a.orch.Status()
		pc := a.cfg.ProviderConfig()
		file := a.cfg.FileUsed()
		if file == "" {
			file = "(defaults and environment)"
		}
		fmt.Printf("config:   %s\n", file)
		fmt.Printf("model:    %s %s (%s)\n", pc.Provider, pc.Model, reachable(a.summaries.Available(ctx)))
		fmt.Printf("linter:   %s\n", describe(st.Linter, false))
		fmt.Printf("search:   %s\n", describe(st.Search, true))
		fmt.Printf("detected: %s\n", humanize.Time(st.DetectedAt))
		fmt.Printf("oa cache: %d days\n", int(a.cfg.Current().OACacheTTL()/(24*time.Hour)))
		return nil
	},
}

func reachable(ok bool) string {
	if ok {
		return "available"
	}
	return "unavailable"
}

func describe(av orchestrator.Availability, withReady bool) string {
	if !av.Available {
		return "not installed"
	}
	if withReady && !av.Ready {
		return "available, index not ready"
	}
	return "available"
}
