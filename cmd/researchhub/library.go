package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/chris/researchhub/internal/db"
	"github.com/chris/researchhub/internal/oa"
)

var newItem db.NewItem

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Add an item to the library and run the import hooks",
	Long: `Add an item. Depending on settings the new item is linted, checked for
open access, summarized and indexed.

Example:
  researchhub add --title "Attention Is All You Need" --year 2017 --doi 10.5555/3295222`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if newItem.Title == "" {
			return fmt.Errorf("--title is required")
		}
		ctx := cmd.Context()
		logger := createLogger()
		defer logger.Sync()

		a, err := newApp(ctx, logger, nil)
		if err != nil {
			return err
		}
		defer a.Close()

		id, err := a.db.AddItem(ctx, newItem)
		if err != nil {
			return err
		}
		item, err := a.db.GetItem(ctx, id)
		if err != nil {
			return err
		}
		rep := a.notifier.ItemsAdded(ctx, []db.Item{item})
		fmt.Printf("Added item %d.\n", id)
		if rep.Lint != nil {
			fmt.Printf("Citations: fixed %d, %d errors.\n", rep.Lint.Fixed, len(rep.Lint.Errors))
		}
		if rep.Summarized > 0 {
			fmt.Println("Summary stored.")
		}
		return nil
	},
}

var selectCmd = &cobra.Command{
	Use:   "select [item ids...]",
	Short: "Replace the current selection",
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := parseIDs(args)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		a, err := newApp(ctx, createLogger(), nil)
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.db.SetSelection(ctx, ids); err != nil {
			return err
		}
		fmt.Printf("%d item(s) selected.\n", len(ids))
		return nil
	},
}

var summarizeCmd = &cobra.Command{
	Use:   "summarize [item id]",
	Short: "Summarize a paper and store the summary as a note",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := parseIDs(args)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		a, err := newApp(ctx, createLogger(), nil)
		if err != nil {
			return err
		}
		defer a.Close()
		item, err := a.db.GetItem(ctx, ids[0])
		if err != nil {
			return err
		}
		text, err := a.summaries.SummarizeAndStore(ctx, item)
		if err != nil {
			return err
		}
		fmt.Println(text)
		return nil
	},
}

var synthesizeCmd = &cobra.Command{
	Use:   "synthesize [item ids...]",
	Short: "Synthesize themes across several papers",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := parseIDs(args)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		a, err := newApp(ctx, createLogger(), nil)
		if err != nil {
			return err
		}
		defer a.Close()
		items, err := a.db.GetItems(ctx, ids)
		if err != nil {
			return err
		}
		text, err := a.summaries.Synthesize(ctx, items)
		if err != nil {
			return err
		}
		fmt.Println(text)
		return nil
	},
}

var oaCmd = &cobra.Command{
	Use:   "oa [item ids...]",
	Short: "Check open access availability",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := parseIDs(args)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		a, err := newApp(ctx, createLogger(), nil)
		if err != nil {
			return err
		}
		defer a.Close()
		items, err := a.db.GetItems(ctx, ids)
		if err != nil {
			return err
		}
		statuses, err := a.oa.CheckItems(ctx, items)
		if err != nil {
			return err
		}
		for _, it := range items {
			st, ok := statuses[it.ID]
			if !ok {
				fmt.Printf("[%d] %s: check failed\n", it.ID, it.Title)
				continue
			}
			fmt.Println(describeOA(it, st, time.Now()))
		}
		return nil
	},
}

func describeOA(it db.Item, st oa.Status, now time.Time) string {
	state := "closed"
	if st.IsOpenAccess {
		state = "open access"
	}
	line := fmt.Sprintf("[%d] %s: %s (checked %s via %s)", it.ID, it.Title, state,
		humanize.RelTime(st.CheckedAt, now, "ago", "from now"), st.Source)
	if st.Location != "" {
		line += "\n    " + st.Location
	}
	return line
}

func init() {
	f := addCmd.Flags()
	f.StringVar(&newItem.Title, "title", "", "Item title")
	f.StringVar(&newItem.Authors, "authors", "", "Authors, comma separated")
	f.StringVar(&newItem.Year, "year", "", "Publication year")
	f.StringVar(&newItem.DOI, "doi", "", "DOI")
	f.StringVar(&newItem.Abstract, "abstract", "", "Abstract")
	f.StringVar(&newItem.ItemType, "type", "", "Item type (default journalArticle)")
}
