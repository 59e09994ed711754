// Package orchestrator tracks which optional collaborators are reachable
// and gates the features that depend on them.
package orchestrator

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Availability is what a probe reports about one collaborator.
type Availability struct {
	Available bool `json:"available" yaml:"available"`
	Ready     bool `json:"ready" yaml:"ready"`
}

// Probe checks a collaborator. Implementations must not panic and should
// honour ctx.
type Probe interface {
	Probe(ctx context.Context) Availability
}

// ProbeFunc adapts a function to Probe.
type ProbeFunc func(ctx context.Context) Availability

func (f ProbeFunc) Probe(ctx context.Context) Availability { return f(ctx) }

type Status struct {
	Linter     Availability `json:"linter" yaml:"linter"`
	Search     Availability `json:"search" yaml:"search"`
	DetectedAt time.Time    `json:"detected_at" yaml:"detected_at"`
}

const probeTimeout = 5 * time.Second

type Orchestrator struct {
	linter Probe
	search Probe
	logger *zap.Logger

	mu     sync.RWMutex
	status Status
}

// New takes the linter and search probes; a nil probe means the
// collaborator is not installed.
func New(linter, search Probe, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{linter: linter, search: search, logger: logger}
}

// Detect probes every collaborator and stores the result.
func (o *Orchestrator) Detect(ctx context.Context) Status {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	var st Status
	if o.linter != nil {
		st.Linter = o.linter.Probe(ctx)
	}
	if o.search != nil {
		st.Search = o.search.Probe(ctx)
		if !st.Search.Available {
			st.Search.Ready = false
		}
	}
	st.DetectedAt = time.Now()

	o.mu.Lock()
	o.status = st
	o.mu.Unlock()

	o.logger.Info("plugin detection",
		zap.Bool("linter", st.Linter.Available),
		zap.Bool("search", st.Search.Available),
		zap.Bool("search_ready", st.Search.Ready))
	return st
}

// Refresh re-runs detection, for collaborators that came up after us.
func (o *Orchestrator) Refresh(ctx context.Context) Status {
	return o.Detect(ctx)
}

func (o *Orchestrator) Status() Status {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.status
}

func (o *Orchestrator) CanFixCitations() bool { return o.Status().Linter.Available }
func (o *Orchestrator) CanSemanticSearch() bool { return o.Status().Search.Available }

// The summarizer and the OA checker are built in.
func (o *Orchestrator) CanSummarize() bool { return true }
func (o *Orchestrator) CanCheckOpenAccess() bool { return true }
