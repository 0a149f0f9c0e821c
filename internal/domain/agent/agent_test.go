package agent

import (
	"errors"
	"testing"

	"github.com/Strob0t/MissionDeck/internal/domain"
)

func validAgent() *Agent {
	return &Agent{
		ID:           "a1",
		Name:         "Researcher",
		Status:       StatusIdle,
		SteeringX:    0.5,
		SteeringY:    0.5,
		Tools:        []string{"web_search"},
		EnabledTools: []string{"web_search"},
	}
}

func TestValidate(t *testing.T) {
	if err := validAgent().Validate(); err != nil {
		t.Fatalf("expected valid agent, got %v", err)
	}

	invalid := []func(*Agent){
		func(a *Agent) { a.Name = "" },
		func(a *Agent) { a.SteeringX = 1.2 },
		func(a *Agent) { a.SteeringY = -0.1 },
		func(a *Agent) { a.Status = "sleeping" },
	}
	for i, mutate := range invalid {
		a := validAgent()
		mutate(a)
		err := a.Validate()
		if err == nil {
			t.Errorf("case %d: expected validation error", i)
			continue
		}
		if !errors.Is(err, domain.ErrValidation) {
			t.Errorf("case %d: expected ErrValidation, got %v", i, err)
		}
	}
}

func TestIsCoordinator(t *testing.T) {
	a := validAgent()
	if a.IsCoordinator() {
		t.Error("regular agent must not be coordinator")
	}
	a.Name = CoordinatorName
	if !a.IsCoordinator() {
		t.Error("expected coordinator")
	}
}

func TestToolEnabled(t *testing.T) {
	a := validAgent()
	if !a.ToolEnabled("web_search") {
		t.Error("expected web_search enabled")
	}
	if a.ToolEnabled("code_writer") {
		t.Error("code_writer is not enabled")
	}
}
