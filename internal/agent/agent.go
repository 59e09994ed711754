// Package agent runs the bounded tool-calling conversation between the
// user, the model and the tool registry.
package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/chris/researchhub/internal/llm"
	"github.com/chris/researchhub/internal/observe"
	"github.com/chris/researchhub/internal/tools"
)

const (
	MaxIterations      = 10
	defaultParallelism = 4
)

type State int

const (
	Thinking State = iota
	ExecutingTools
	Done
	Exhausted
)

func (s State) String() string {
	switch s {
	case Thinking:
		return "thinking"
	case ExecutingTools:
		return "executing_tools"
	case Done:
		return "done"
	case Exhausted:
		return "exhausted"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// ProgressFunc receives a short status line before each tool runs. It is
// called from the goroutine that called Run.
type ProgressFunc func(status string)

// Result is the outcome of one run. Text is always set. Err is set only
// when the model call itself failed.
type Result struct {
	RunID      string
	Text       string
	State      State
	Iterations int
	Transcript []llm.Message
	Err        error
}

type Agent struct {
	client        llm.Client
	registry      *tools.Registry
	defs          []llm.ToolDefinition
	defTokens     int
	system        string
	maxIterations int
	parallelism   int
	logger        *zap.Logger
	metrics       *observe.Metrics
}

type Option func(*Agent)

func WithLogger(l *zap.Logger) Option { return func(a *Agent) { a.logger = l } }
func WithMetrics(m *observe.Metrics) Option { return func(a *Agent) { a.metrics = m } }
func WithSystemPrompt(p string) Option { return func(a *Agent) { a.system = p } }

// WithMaxIterations overrides the model-call cap.
func WithMaxIterations(n int) Option { return func(a *Agent) { a.maxIterations = n } }

// WithParallelism bounds how many sibling tool calls of one turn run at
// once. 1 runs them in order.
func WithParallelism(n int) Option { return func(a *Agent) { a.parallelism = n } }

// New builds an agent. The tool catalog is captured once and offered on
// every model call.
func New(client llm.Client, registry *tools.Registry, opts ...Option) *Agent {
	a := &Agent{
		client:        client,
		registry:      registry,
		defs:          registry.Definitions(),
		system:        llm.SystemPrompt,
		maxIterations: MaxIterations,
		parallelism:   defaultParallelism,
		logger:        zap.NewNop(),
	}
	for _, o := range opts {
		o(a)
	}
	if a.parallelism < 1 {
		a.parallelism = 1
	}
	a.defTokens = llm.EstimateToolsTokens(a.defs)
	return a
}

// Run answers userMessage, calling tools as the model asks. Each run starts
// from a fresh transcript. progress may be nil.
func (a *Agent) Run(ctx context.Context, userMessage string, progress ProgressFunc) *Result {
	res := &Result{RunID: uuid.NewString()}
	log := a.logger.With(zap.String("run", res.RunID))
	start := time.Now()

	transcript := []llm.Message{
		{Role: llm.RoleSystem, Content: a.system},
		{Role: llm.RoleUser, Content: userMessage},
	}
	defer func() {
		res.Transcript = transcript
		outcome := res.State.String()
		if res.Err != nil {
			outcome = "error"
		}
		a.metrics.RecordRun(ctx, outcome)
		log.Info("run finished",
			zap.String("outcome", outcome),
			zap.Int("iterations", res.Iterations),
			zap.Duration("elapsed", time.Since(start)))
	}()

	for i := 0; i < a.maxIterations; i++ {
		res.Iterations = i + 1
		res.State = Thinking
		log.Debug("calling model",
			zap.Int("iteration", i+1),
			zap.Int("est_tokens", llm.EstimateMessagesTokens(transcript)+a.defTokens))

		turn, err := a.client.Chat(ctx, transcript, a.defs)
		if err != nil {
			log.Warn("model call failed", zap.Int("iteration", i+1), zap.Error(err))
			res.Text = "Error: " + err.Error()
			res.Err = err
			res.State = Done
			return res
		}

		switch t := turn.(type) {
		case llm.ToolUse:
			res.State = ExecutingTools
			transcript = append(transcript, t.Assistant)
			results := a.execute(ctx, log, t.Calls, progress)
			transcript = append(transcript, t.Results(results)...)
		case llm.Final:
			res.Text = t.Text
			if res.Text == "" {
				res.Text = llm.NoResponse
			}
			transcript = append(transcript, llm.Message{Role: llm.RoleAssistant, Content: res.Text})
			res.State = Done
			return res
		default:
			res.Text = llm.NoResponse
			res.State = Done
			return res
		}
	}

	res.State = Exhausted
	res.Text = fmt.Sprintf("Reached max iterations (%d). Try a more specific request.", a.maxIterations)
	return res
}

// execute runs one turn's calls and returns a result for every call, in
// call order. Unknown tools get an explanatory result without running.
func (a *Agent) execute(ctx context.Context, log *zap.Logger, calls []llm.ToolCall, progress ProgressFunc) []llm.ToolResult {
	results := make([]llm.ToolResult, len(calls))
	var g errgroup.Group
	g.SetLimit(a.parallelism)

	for i, call := range calls {
		tool, ok := a.registry.Lookup(call.Name)
		if !ok {
			log.Warn("unknown tool requested", zap.String("tool", call.Name))
			results[i] = llm.ToolResult{CallID: call.ID, Content: "Unknown tool: " + call.Name}
			continue
		}
		if progress != nil {
			progress("Running " + call.Name + "...")
		}
		g.Go(func() error {
			results[i] = llm.ToolResult{CallID: call.ID, Content: a.invoke(ctx, log, tool, call)}
			return nil
		})
	}
	_ = g.Wait() // invoke never returns an error
	return results
}

// invoke runs one tool. Failures and panics become "Error: " results.
func (a *Agent) invoke(ctx context.Context, log *zap.Logger, tool tools.Tool, call llm.ToolCall) (content string) {
	start := time.Now()
	status := "ok"
	defer func() {
		if r := recover(); r != nil {
			status = "panic"
			content = fmt.Sprintf("Error: %v", r)
			log.Error("tool panicked", zap.String("tool", call.Name), zap.Any("panic", r))
		}
		a.metrics.RecordToolCall(ctx, call.Name, status, time.Since(start))
	}()

	out, err := tool.Invoke(ctx, call.Args)
	if err != nil {
		status = "error"
		log.Info("tool failed", zap.String("tool", call.Name), zap.Any("args", call.Args), zap.Error(err))
		return "Error: " + err.Error()
	}
	log.Debug("tool result", zap.String("tool", call.Name), zap.String("result", truncate(out, 200)))
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
