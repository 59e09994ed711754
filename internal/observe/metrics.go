// Package observe holds the OpenTelemetry instruments used across
// ResearchHub. A nil *Metrics is valid and records nothing.
package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/chris/researchhub"

type Metrics struct {
	// LLMDuration tracks chat call latency by provider.
	LLMDuration metric.Float64Histogram

	// LLMRequests counts chat calls. Attributes: provider, status.
	LLMRequests metric.Int64Counter

	// ToolDuration tracks tool execution latency.
	ToolDuration metric.Float64Histogram

	// ToolCalls counts tool invocations. Attributes: tool, status.
	ToolCalls metric.Int64Counter

	// AgentRuns counts finished runs. Attribute: outcome.
	AgentRuns metric.Int64Counter

	// OALookups counts open-access checks. Attribute: source
	// (cache, unpaywall, local, none).
	OALookups metric.Int64Counter
}

var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60,
}

func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.LLMDuration, err = m.Float64Histogram("researchhub.llm.duration",
		metric.WithDescription("Latency of LLM chat calls."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.LLMRequests, err = m.Int64Counter("researchhub.llm.requests",
		metric.WithDescription("LLM chat calls by provider and status."),
	); err != nil {
		return nil, err
	}
	if met.ToolDuration, err = m.Float64Histogram("researchhub.tool.duration",
		metric.WithDescription("Latency of agent tool execution."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ToolCalls, err = m.Int64Counter("researchhub.tool.calls",
		metric.WithDescription("Agent tool invocations by tool and status."),
	); err != nil {
		return nil, err
	}
	if met.AgentRuns, err = m.Int64Counter("researchhub.agent.runs",
		metric.WithDescription("Agent runs by outcome."),
	); err != nil {
		return nil, err
	}
	if met.OALookups, err = m.Int64Counter("researchhub.oa.lookups",
		metric.WithDescription("Open-access checks by answer source."),
	); err != nil {
		return nil, err
	}
	return met, nil
}

func (m *Metrics) RecordLLMCall(ctx context.Context, provider, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.LLMDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("provider", provider)))
	m.LLMRequests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("status", status),
	))
}

func (m *Metrics) RecordToolCall(ctx context.Context, tool, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.ToolDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("tool", tool)))
	m.ToolCalls.Add(ctx, 1, metric.WithAttributes(
		attribute.String("tool", tool),
		attribute.String("status", status),
	))
}

func (m *Metrics) RecordRun(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.AgentRuns.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *Metrics) RecordOALookup(ctx context.Context, source string) {
	if m == nil {
		return
	}
	m.OALookups.Add(ctx, 1, metric.WithAttributes(attribute.String("source", source)))
}
