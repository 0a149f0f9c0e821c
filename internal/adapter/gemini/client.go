// Package gemini implements the decision and planning ports against the
// Google generative-language API.
package gemini

import (
	"context"
	"fmt"
	"log/slog"

	"google.golang.org/genai"

	"github.com/Strob0t/MissionDeck/internal/config"
	"github.com/Strob0t/MissionDeck/internal/domain/agent"
	"github.com/Strob0t/MissionDeck/internal/domain/decision"
	"github.com/Strob0t/MissionDeck/internal/domain/task"
	"github.com/Strob0t/MissionDeck/internal/domain/tool"
	"github.com/Strob0t/MissionDeck/internal/port/decider"
	"github.com/Strob0t/MissionDeck/internal/resilience"
)

// Client talks to the Gemini API. It implements decider.Provider and
// decider.Planner.
type Client struct {
	genai        *genai.Client
	model        string
	costPerToken float64
	breaker      *resilience.Breaker
}

// NewClient creates a Gemini client from config. The API key must be set;
// config validation enforces this at startup.
func NewClient(ctx context.Context, cfg config.Gemini) (*Client, error) {
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &Client{
		genai:        gc,
		model:        cfg.Model,
		costPerToken: cfg.CostPerToken,
	}, nil
}

// SetBreaker attaches a circuit breaker to all outgoing model calls.
func (c *Client) SetBreaker(b *resilience.Breaker) {
	c.breaker = b
}

// Decide produces one structured decision for the agent's current
// iteration. API failures and malformed output never propagate: both
// degrade to a safe complete decision, per the provider contract.
func (c *Client) Decide(ctx context.Context, ag *agent.Agent, t *task.Task, missionContext string, previousResults []string) (decision.Decision, decision.Usage, error) {
	prompt := buildDecisionPrompt(ag, t, missionContext, previousResults)

	text, err := c.generateJSON(ctx, prompt)
	if err != nil {
		attrs := []any{"agent", ag.Name, "error", err}
		if c.breaker != nil {
			attrs = append(attrs, "breaker", c.breaker.State())
		}
		slog.Error("gemini decide failed", attrs...)
		return decision.Decision{
			Action:  decision.ActionComplete,
			Message: "I encountered an issue processing this request. Please try again.",
			Reason:  "Error: " + err.Error(),
		}, decision.Usage{}, nil
	}

	usage := c.usageFor(prompt, text)
	return parseDecision(text), usage, nil
}

// DecomposeGoal asks the model to break a user goal into agent and task
// templates. Parse and API errors surface to the caller; the planning
// service owns the single-agent fallback.
func (c *Client) DecomposeGoal(ctx context.Context, goal string) (*decider.Plan, error) {
	text, err := c.generateJSON(ctx, buildPlanPrompt(goal))
	if err != nil {
		return nil, fmt.Errorf("decompose goal: %w", err)
	}

	plan, err := parsePlan(text)
	if err != nil {
		return nil, fmt.Errorf("parse plan: %w", err)
	}
	return plan, nil
}

// generateJSON sends one prompt and returns the raw response text,
// requesting a JSON-typed response from the model.
func (c *Client) generateJSON(ctx context.Context, prompt string) (string, error) {
	var text string
	call := func() error {
		resp, err := c.genai.Models.GenerateContent(ctx, c.model, genai.Text(prompt), &genai.GenerateContentConfig{
			ResponseMIMEType: "application/json",
		})
		if err != nil {
			return err
		}
		text = resp.Text()
		return nil
	}

	var err error
	if c.breaker != nil {
		err = c.breaker.Execute(call)
	} else {
		err = call()
	}
	if err != nil {
		return "", err
	}
	return text, nil
}

// usageFor estimates the token and cost footprint of one call. A char/4
// heuristic stands in for a real tokenizer; only monotonic accumulation
// is contractual.
func (c *Client) usageFor(prompt, response string) decision.Usage {
	tokens := estimateTokens(prompt) + estimateTokens(response)
	return decision.Usage{
		Tokens:  tokens,
		CostUSD: float64(tokens) * c.costPerToken,
	}
}

func estimateTokens(s string) int {
	return (len(s) + 3) / 4
}

// enabledToolDescriptions returns catalog entries for the agent's enabled
// tools. Only enabled tools are ever offered to the model.
func enabledToolDescriptions(ag *agent.Agent) []tool.Description {
	out := make([]tool.Description, 0, len(ag.EnabledTools))
	for _, name := range ag.EnabledTools {
		if d, ok := tool.Catalog[name]; ok {
			out = append(out, d)
		}
	}
	return out
}
