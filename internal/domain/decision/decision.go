// Package decision defines the structured output of one agent thinking step.
package decision

import (
	"fmt"

	"github.com/Strob0t/MissionDeck/internal/domain"
	"github.com/Strob0t/MissionDeck/internal/domain/artifact"
)

// Action is the closed set of things an agent can decide to do.
// Dispatch on Action is exhaustive: adding a kind is a compile-visible
// change at every switch with a default error arm.
type Action string

const (
	ActionUseTool        Action = "use_tool"
	ActionCreateArtifact Action = "create_artifact"
	ActionAskUser        Action = "ask_user"
	ActionComplete       Action = "complete"
)

// Decision is a tagged variant: exactly the fields for its Action are set.
type Decision struct {
	Action Action `json:"action"`
	Reason string `json:"reason"`

	// use_tool
	Tool      string            `json:"tool,omitempty"`
	ToolInput map[string]string `json:"toolInput,omitempty"`

	// create_artifact
	ArtifactName    string        `json:"artifactName,omitempty"`
	ArtifactContent string        `json:"artifactContent,omitempty"`
	ArtifactType    artifact.Type `json:"artifactType,omitempty"`

	// ask_user / complete
	Message string `json:"message,omitempty"`
}

// Usage reports the estimated token and cost footprint of one decision call.
// The estimate is a character-count heuristic; only monotonic accumulation
// onto the agent is contractual.
type Usage struct {
	Tokens  int
	CostUSD float64
}

// Add returns the sum of two usages.
func (u Usage) Add(other Usage) Usage {
	return Usage{Tokens: u.Tokens + other.Tokens, CostUSD: u.CostUSD + other.CostUSD}
}

// Validate checks that the decision carries the fields its action requires.
func (d *Decision) Validate() error {
	switch d.Action {
	case ActionUseTool:
		if d.Tool == "" {
			return fmt.Errorf("%w: use_tool decision missing tool", domain.ErrValidation)
		}
	case ActionCreateArtifact:
		if d.ArtifactName == "" {
			return fmt.Errorf("%w: create_artifact decision missing artifactName", domain.ErrValidation)
		}
	case ActionAskUser, ActionComplete:
		// message may be empty; the run loop substitutes a default
	default:
		return fmt.Errorf("%w: unknown decision action %q", domain.ErrValidation, d.Action)
	}
	return nil
}
