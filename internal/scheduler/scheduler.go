// Package scheduler runs the periodic background jobs: collaborator
// re-detection, open-access refresh and pruning, and the optional digest.
package scheduler

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/tidwall/sjson"
	"go.uber.org/zap"

	"github.com/chris/researchhub/internal/agent"
	"github.com/chris/researchhub/internal/db"
	"github.com/chris/researchhub/internal/oa"
	"github.com/chris/researchhub/internal/observe"
	"github.com/chris/researchhub/internal/orchestrator"
)

const (
	defaultRefreshCount = 20
	defaultDigestCount  = 10
	jobTimeout          = 10 * time.Minute
)

// Config holds the cron expressions. An empty expression disables the job.
type Config struct {
	Detect       string
	OARefresh    string
	OAPrune      string
	Digest       string
	RefreshCount int // recent items re-checked by the OA refresh
	DigestCount  int
	WebhookURL   string
}

type Detector interface {
	Detect(ctx context.Context) orchestrator.Status
}

type OAService interface {
	CheckItems(ctx context.Context, items []db.Item) (map[int64]oa.Status, error)
	Prune(ctx context.Context) (int64, error)
}

type Library interface {
	agent.DigestSource
}

type Runner interface {
	Run(ctx context.Context, userMessage string, progress agent.ProgressFunc) *agent.Result
}

// Deps are the collaborators the jobs use. DM may be nil; digests then go
// to the webhook only.
type Deps struct {
	Detector   Detector
	OpenAccess OAService
	Library    Library
	Agent      Runner
	DM         func(content string) error
}

type Scheduler struct {
	cron   *cron.Cron
	cfg    Config
	deps   Deps
	http   *http.Client
	logger *zap.Logger
}

func New(cfg Config, deps Deps, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RefreshCount <= 0 {
		cfg.RefreshCount = defaultRefreshCount
	}
	if cfg.DigestCount <= 0 {
		cfg.DigestCount = defaultDigestCount
	}
	return &Scheduler{
		cron:   cron.New(),
		cfg:    cfg,
		deps:   deps,
		http:   observe.HTTPClient(),
		logger: logger,
	}
}

// Start registers the enabled jobs and starts the cron loop. A bad
// expression fails Start before anything runs.
func (s *Scheduler) Start() error {
	jobs := []struct {
		name string
		expr string
		run  func(context.Context) error
	}{
		{"detect", s.cfg.Detect, s.detect},
		{"oa_refresh", s.cfg.OARefresh, s.refreshOA},
		{"oa_prune", s.cfg.OAPrune, s.pruneOA},
		{"digest", s.cfg.Digest, s.digest},
	}
	registered := 0
	for _, j := range jobs {
		if j.expr == "" || !s.enabled(j.name) {
			continue
		}
		if _, err := s.cron.AddFunc(j.expr, s.wrap(j.name, j.run)); err != nil {
			return fmt.Errorf("schedule %s: invalid cron %q: %w", j.name, j.expr, err)
		}
		registered++
	}
	s.cron.Start()
	s.logger.Info("scheduler started", zap.Int("jobs", registered))
	return nil
}

// Stop halts the cron loop and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) enabled(name string) bool {
	switch name {
	case "detect":
		return s.deps.Detector != nil
	case "oa_refresh":
		return s.deps.OpenAccess != nil && s.deps.Library != nil
	case "oa_prune":
		return s.deps.OpenAccess != nil
	case "digest":
		return s.deps.Agent != nil && s.deps.Library != nil
	}
	return false
}

// wrap gives each run its own deadline and logs failures; jobs never stop
// the scheduler.
func (s *Scheduler) wrap(name string, run func(context.Context) error) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		start := time.Now()
		if err := run(ctx); err != nil {
			s.logger.Warn("job failed", zap.String("job", name), zap.Error(err))
			return
		}
		s.logger.Debug("job completed", zap.String("job", name), zap.Duration("elapsed", time.Since(start)))
	}
}

func (s *Scheduler) detect(ctx context.Context) error {
	s.deps.Detector.Detect(ctx)
	return nil
}

func (s *Scheduler) refreshOA(ctx context.Context) error {
	items, err := s.deps.Library.RecentItems(ctx, s.cfg.RefreshCount)
	if err != nil {
		return fmt.Errorf("listing recent items: %w", err)
	}
	statuses, err := s.deps.OpenAccess.CheckItems(ctx, items)
	if err != nil {
		return fmt.Errorf("checking open access: %w", err)
	}
	s.logger.Info("open access refreshed", zap.Int("items", len(items)), zap.Int("checked", len(statuses)))
	return nil
}

func (s *Scheduler) pruneOA(ctx context.Context) error {
	n, err := s.deps.OpenAccess.Prune(ctx)
	if err != nil {
		return fmt.Errorf("pruning open access cache: %w", err)
	}
	if n > 0 {
		s.logger.Info("open access cache pruned", zap.Int64("rows", n))
	}
	return nil
}

func (s *Scheduler) digest(ctx context.Context) error {
	prompt, err := agent.BuildDigestPrompt(ctx, s.deps.Library, s.cfg.DigestCount)
	if err != nil {
		return fmt.Errorf("building digest prompt: %w", err)
	}
	res := s.deps.Agent.Run(ctx, prompt, nil)
	if res.Err != nil {
		return fmt.Errorf("digest run: %w", res.Err)
	}
	return s.deliver(ctx, res.Text)
}

// deliver tries the owner's DMs first, then the webhook.
func (s *Scheduler) deliver(ctx context.Context, content string) error {
	if s.deps.DM != nil {
		err := s.deps.DM(content)
		if err == nil {
			return nil
		}
		s.logger.Info("digest DM failed", zap.Error(err))
	}
	if s.cfg.WebhookURL != "" {
		return s.postWebhook(ctx, content)
	}
	return fmt.Errorf("no delivery method available (no DM owner and no webhook)")
}

func (s *Scheduler) postWebhook(ctx context.Context, content string) error {
	body, err := sjson.Set("", "content", content)
	if err != nil {
		return fmt.Errorf("encoding webhook payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.WebhookURL, bytes.NewReader([]byte(body)))
	if err != nil {
		return fmt.Errorf("building webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("posting webhook: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
