package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "missiondeck"

// Metrics holds all MissionDeck metric instruments.
type Metrics struct {
	RunsStarted   metric.Int64Counter
	RunsCompleted metric.Int64Counter
	RunsFailed    metric.Int64Counter
	Decisions     metric.Int64Counter
	ToolCalls     metric.Int64Counter
	RunDuration   metric.Float64Histogram
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.RunsStarted, err = meter.Int64Counter("missiondeck.runs.started",
		metric.WithDescription("Number of agent runs started"))
	if err != nil {
		return nil, err
	}

	m.RunsCompleted, err = meter.Int64Counter("missiondeck.runs.completed",
		metric.WithDescription("Number of agent runs completed"))
	if err != nil {
		return nil, err
	}

	m.RunsFailed, err = meter.Int64Counter("missiondeck.runs.failed",
		metric.WithDescription("Number of agent runs failed"))
	if err != nil {
		return nil, err
	}

	m.Decisions, err = meter.Int64Counter("missiondeck.decisions",
		metric.WithDescription("Number of decisions produced"))
	if err != nil {
		return nil, err
	}

	m.ToolCalls, err = meter.Int64Counter("missiondeck.toolcalls",
		metric.WithDescription("Number of tool calls"))
	if err != nil {
		return nil, err
	}

	m.RunDuration, err = meter.Float64Histogram("missiondeck.run.duration_seconds",
		metric.WithDescription("Agent run duration in seconds"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// ToolCall records one tool invocation, tagged by tool name.
func (m *Metrics) ToolCall(ctx context.Context, tool string) {
	m.ToolCalls.Add(ctx, 1, metric.WithAttributes(attribute.String("tool", tool)))
}
