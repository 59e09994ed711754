package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/chris/researchhub/config"
	"github.com/chris/researchhub/internal/agent"
	"github.com/chris/researchhub/internal/bridge"
	"github.com/chris/researchhub/internal/db"
	"github.com/chris/researchhub/internal/llm"
	"github.com/chris/researchhub/internal/notifier"
	"github.com/chris/researchhub/internal/oa"
	"github.com/chris/researchhub/internal/observe"
	"github.com/chris/researchhub/internal/orchestrator"
	"github.com/chris/researchhub/internal/summary"
	"github.com/chris/researchhub/internal/tools"
)

// app is the fully wired core shared by every command.
type app struct {
	cfg       *config.Store
	db        *db.DB
	logger    *zap.Logger
	orch      *orchestrator.Orchestrator
	linter    *bridge.Linter
	index     *bridge.QdrantIndex // nil when no qdrant host is configured
	search    *bridge.SemanticSearch
	oa        *oa.Checker
	summaries *summary.Summarizer
	registry  *tools.Registry
	agent     *agent.Agent
	notifier  *notifier.Notifier
}

func newApp(ctx context.Context, logger *zap.Logger, metrics *observe.Metrics) (*app, error) {
	store, err := config.Load(configPath, logger)
	if err != nil {
		return nil, err
	}
	cur := store.Current()

	database, err := db.Open(cur.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	a := &app{cfg: store, db: database, logger: logger}

	// The bridges consult the orchestrator and the orchestrator probes the
	// bridges, so the probes resolve their targets lazily.
	var linterProbe, searchProbe orchestrator.Probe
	if cur.Integrations.Linter && cur.Linter.Endpoint != "" {
		linterProbe = orchestrator.ProbeFunc(func(ctx context.Context) orchestrator.Availability {
			return a.linter.Probe(ctx)
		})
	}
	if cur.Integrations.Search && cur.Search.QdrantHost != "" {
		embedder := bridge.NewOpenAIEmbedder(cur.Search.EmbeddingURL, cur.Search.EmbeddingAPIKey, cur.Search.EmbeddingModel)
		a.index, err = bridge.NewQdrantIndex(bridge.QdrantConfig{
			Host:       cur.Search.QdrantHost,
			Port:       cur.Search.QdrantPort,
			APIKey:     cur.Search.QdrantAPIKey,
			UseTLS:     cur.Search.QdrantTLS,
			Collection: cur.Search.Collection,
		}, embedder, logger.Named("qdrant"))
		if err != nil {
			database.Close()
			return nil, err
		}
		searchProbe = a.index
	}
	a.orch = orchestrator.New(linterProbe, searchProbe, logger.Named("orchestrator"))

	endpoint := ""
	if cur.Integrations.Linter {
		endpoint = cur.Linter.Endpoint
	}
	a.linter = bridge.NewLinter(endpoint, database, a.orch, bridge.WithLinterLogger(logger.Named("linter")))

	var backend bridge.SearchBackend
	if a.index != nil {
		backend = a.index
	}
	a.search = bridge.NewSemanticSearch(backend, a.orch, bridge.WithSearchLogger(logger.Named("search")))

	a.oa = oa.NewChecker(func() oa.Settings {
		st := store.Current()
		return oa.Settings{Email: st.OpenAccess.Email, CacheTTL: st.OACacheTTL(), BaseURL: st.OpenAccess.UnpaywallURL}
	}, oa.NewStoreCache(database), database, oa.WithLogger(logger.Named("oa")), oa.WithMetrics(metrics))

	client := llm.NewDynamicClient(store.ProviderConfig, llm.WithLogger(logger.Named("llm")), llm.WithMetrics(metrics))
	a.summaries = summary.New(client, database, store.ProviderConfig, summary.WithLogger(logger.Named("summary")))

	a.registry, err = tools.NewDefaultRegistry(tools.Deps{
		Library:    database,
		Search:     a.search,
		Citations:  a.linter,
		OpenAccess: a.oa,
		Summaries:  a.summaries,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.agent = agent.New(client, a.registry, agent.WithLogger(logger.Named("agent")), agent.WithMetrics(metrics))

	var indexer notifier.Indexer
	if a.index != nil {
		indexer = a.search
	}
	a.notifier = notifier.New(notifier.Deps{
		Caps:       a.orch,
		Citations:  a.linter,
		OpenAccess: a.oa,
		Summaries:  a.summaries,
		Index:      indexer,
	}, func() notifier.Flags {
		in := store.Current().Integrations
		return notifier.Flags{AutoLint: in.AutoLintOnImport, OpenAccess: in.OpenAccess, AutoSummarize: in.AutoSummarize}
	}, logger.Named("notifier"))

	a.orch.Detect(ctx)
	return a, nil
}

// Close waits for background work and releases connections.
func (a *app) Close() error {
	if a.notifier != nil {
		a.notifier.Wait()
	}
	if a.index != nil {
		if err := a.index.Close(); err != nil {
			a.logger.Warn("closing qdrant client", zap.Error(err))
		}
	}
	return a.db.Close()
}
