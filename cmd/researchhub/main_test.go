package main

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/chris/researchhub/internal/db"
	"github.com/chris/researchhub/internal/oa"
	"github.com/chris/researchhub/internal/orchestrator"
)

func TestParseIDs(t *testing.T) {
	got, err := parseIDs([]string{"3", "14", "1"})
	if err != nil {
		t.Fatalf("parseIDs: %v", err)
	}
	if diff := cmp.Diff([]int64{3, 14, 1}, got); diff != "" {
		t.Errorf("ids (-want +got):\n%s", diff)
	}
	if _, err := parseIDs([]string{"3", "x"}); err == nil || !strings.Contains(err.Error(), `"x"`) {
		t.Errorf("parseIDs error = %v", err)
	}
}

func TestDescribeOA(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	it := db.Item{ID: 4, Title: "Deep Learning"}

	got := describeOA(it, oa.Status{
		IsOpenAccess: true,
		Location:     "https://arxiv.org/pdf/1234.pdf",
		CheckedAt:    now.Add(-2 * time.Hour),
		Source:       oa.SourceUnpaywall,
	}, now)
	want := "[4] Deep Learning: open access (checked 2 hours ago via unpaywall)\n    https://arxiv.org/pdf/1234.pdf"
	if got != want {
		t.Errorf("describeOA =\n%q\nwant\n%q", got, want)
	}

	got = describeOA(it, oa.Status{CheckedAt: now, Source: oa.SourceNone}, now)
	if !strings.HasPrefix(got, "[4] Deep Learning: closed") || strings.Contains(got, "\n") {
		t.Errorf("describeOA closed = %q", got)
	}
}

func TestDescribeAvailability(t *testing.T) {
	tests := []struct {
		av        orchestrator.Availability
		withReady bool
		want      string
	}{
		{orchestrator.Availability{}, false, "not installed"},
		{orchestrator.Availability{Available: true}, false, "available"},
		{orchestrator.Availability{Available: true}, true, "available, index not ready"},
		{orchestrator.Availability{Available: true, Ready: true}, true, "available"},
	}
	for _, tt := range tests {
		if got := describe(tt.av, tt.withReady); got != tt.want {
			t.Errorf("describe(%+v, %v) = %q, want %q", tt.av, tt.withReady, got, tt.want)
		}
	}
}
