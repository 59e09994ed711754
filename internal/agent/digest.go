package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/chris/researchhub/internal/db"
	"github.com/chris/researchhub/internal/summary"
)

// DigestSource is what the digest prompt reads. *db.DB satisfies it.
type DigestSource interface {
	RecentItems(ctx context.Context, n int) ([]db.Item, error)
	GetNote(ctx context.Context, parentID int64, tag string) (string, error)
}

const digestInstruction = "Based on the above, write a short reading digest. Group related papers, " +
	"point out items that still lack a summary, and check open access for papers that have a DOI. " +
	"Keep it concise."

// BuildDigestPrompt lists the most recently added items, with any stored
// summaries, for a scheduled digest run.
func BuildDigestPrompt(ctx context.Context, src DigestSource, n int) (string, error) {
	items, err := src.RecentItems(ctx, n)
	if err != nil {
		return "", fmt.Errorf("building digest context: %w", err)
	}

	var b strings.Builder
	b.WriteString("It's time for the library digest.\n\n## Recently added\n")
	if len(items) == 0 {
		b.WriteString("Nothing was added recently.\n")
	}
	for _, it := range items {
		fmt.Fprintf(&b, "- [%d] %s", it.ID, it.Title)
		if it.Year != "" {
			fmt.Fprintf(&b, " (%s)", it.Year)
		}
		if it.DOI != "" {
			fmt.Fprintf(&b, " doi:%s", it.DOI)
		}
		b.WriteString("\n")
		note, err := src.GetNote(ctx, it.ID, summary.Tag)
		if err != nil {
			return "", fmt.Errorf("loading summary for item %d: %w", it.ID, err)
		}
		if note != "" {
			fmt.Fprintf(&b, "  summary: %s\n", summary.PlainText(note))
		}
	}

	b.WriteString("\n")
	b.WriteString(digestInstruction)
	return b.String(), nil
}
