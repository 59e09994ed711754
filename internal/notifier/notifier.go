// Package notifier reacts to items being added to the library: it lints
// citations, checks open access, summarizes and indexes the new items
// according to the current settings.
package notifier

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/chris/researchhub/internal/bridge"
	"github.com/chris/researchhub/internal/db"
	"github.com/chris/researchhub/internal/oa"
)

const backgroundTimeout = 5 * time.Minute

// Flags are read on every notification.
type Flags struct {
	AutoLint      bool
	OpenAccess    bool
	AutoSummarize bool
}

type FlagsFunc func() Flags

// Capabilities reports which collaborators are present right now.
// *orchestrator.Orchestrator satisfies it.
type Capabilities interface {
	CanFixCitations() bool
	CanSemanticSearch() bool
}

type CitationFixer interface {
	FixCitations(ctx context.Context, items []db.Item) bridge.FixResult
}

type OAChecker interface {
	CheckItems(ctx context.Context, items []db.Item) (map[int64]oa.Status, error)
}

type Summarizer interface {
	SummarizeAndStore(ctx context.Context, item db.Item) (string, error)
}

type Indexer interface {
	Index(ctx context.Context, items []db.Item) error
}

type Deps struct {
	Caps       Capabilities
	Citations  CitationFixer
	OpenAccess OAChecker
	Summaries  Summarizer
	Index      Indexer
}

// Report describes the synchronous part of one notification.
type Report struct {
	Regular    int
	Lint       *bridge.FixResult // nil when linting did not run
	Summarized int
	Background int // tasks started in the background
}

type Notifier struct {
	deps   Deps
	flags  FlagsFunc
	logger *zap.Logger
	wg     sync.WaitGroup
}

func New(deps Deps, flags FlagsFunc, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{deps: deps, flags: flags, logger: logger}
}

// ItemsAdded handles a batch of newly added items. Linting and
// summarizing finish before it returns; open-access checks and indexing
// continue in the background until Wait.
func (n *Notifier) ItemsAdded(ctx context.Context, items []db.Item) Report {
	var regular []db.Item
	for _, it := range items {
		if it.IsRegular() {
			regular = append(regular, it)
		}
	}
	rep := Report{Regular: len(regular)}
	if len(regular) == 0 {
		return rep
	}
	flags := n.flags()

	if flags.AutoLint && n.deps.Citations != nil && n.deps.Caps.CanFixCitations() {
		res := n.deps.Citations.FixCitations(ctx, regular)
		rep.Lint = &res
		for _, e := range res.Errors {
			n.logger.Info("auto-lint error", zap.String("error", e))
		}
	}

	if flags.OpenAccess && n.deps.OpenAccess != nil {
		rep.Background++
		n.background(ctx, "open access check", func(ctx context.Context) error {
			_, err := n.deps.OpenAccess.CheckItems(ctx, regular)
			return err
		})
	}

	if flags.AutoSummarize && n.deps.Summaries != nil {
		for _, it := range regular {
			if _, err := n.deps.Summaries.SummarizeAndStore(ctx, it); err != nil {
				n.logger.Info("auto-summarize skipped item", zap.Int64("item", it.ID), zap.Error(err))
				continue
			}
			rep.Summarized++
		}
	}

	if n.deps.Index != nil && n.deps.Caps.CanSemanticSearch() {
		rep.Background++
		n.background(ctx, "indexing", func(ctx context.Context) error {
			return n.deps.Index.Index(ctx, regular)
		})
	}
	return rep
}

// background runs task detached from the caller's cancellation.
func (n *Notifier) background(ctx context.Context, name string, task func(context.Context) error) {
	ctx = context.WithoutCancel(ctx)
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		ctx, cancel := context.WithTimeout(ctx, backgroundTimeout)
		defer cancel()
		if err := task(ctx); err != nil {
			n.logger.Warn("background task failed", zap.String("task", name), zap.Error(err))
		}
	}()
}

// Wait blocks until every background task has finished.
func (n *Notifier) Wait() {
	n.wg.Wait()
}
