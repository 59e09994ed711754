package bridge

import (
	"context"
	"sync"

	"github.com/chris/researchhub/internal/orchestrator"
)

// fakeDetector starts with status and switches to afterRefresh on Refresh.
type fakeDetector struct {
	mu           sync.Mutex
	status       orchestrator.Status
	afterRefresh orchestrator.Status
	refreshes    int
}

func (f *fakeDetector) Status() orchestrator.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

func (f *fakeDetector) Refresh(context.Context) orchestrator.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshes++
	f.status = f.afterRefresh
	return f.status
}

func searchUp() orchestrator.Status {
	return orchestrator.Status{Search: orchestrator.Availability{Available: true, Ready: true}}
}

func linterUp() orchestrator.Status {
	return orchestrator.Status{Linter: orchestrator.Availability{Available: true, Ready: true}}
}
