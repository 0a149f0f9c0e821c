package gemini

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/Strob0t/MissionDeck/internal/domain/agent"
	"github.com/Strob0t/MissionDeck/internal/domain/artifact"
	"github.com/Strob0t/MissionDeck/internal/domain/decision"
	"github.com/Strob0t/MissionDeck/internal/domain/tool"
	"github.com/Strob0t/MissionDeck/internal/port/decider"
)

var reasonPattern = regexp.MustCompile(`"reason"\s*:\s*"([^"]+)"`)

// decisionWire is the model's raw decision shape. ToolInput values may be
// any JSON type; they are flattened to strings for the executor.
type decisionWire struct {
	Action          string         `json:"action"`
	Tool            string         `json:"tool"`
	ToolInput       map[string]any `json:"toolInput"`
	ArtifactName    string         `json:"artifactName"`
	ArtifactContent string         `json:"artifactContent"`
	ArtifactType    string         `json:"artifactType"`
	Message         string         `json:"message"`
	Reason          string         `json:"reason"`
}

// parseDecision turns raw model output into a valid Decision. Malformed
// output never propagates as an error: it degrades to a safe complete
// decision so one bad response cannot crash a mission.
func parseDecision(raw string) decision.Decision {
	content := extractJSON(raw)

	var wire decisionWire
	if err := json.Unmarshal([]byte(content), &wire); err != nil {
		slog.Warn("decision JSON parse failed", "error", err, "raw", truncate(content, 500))
		return malformedFallback(content)
	}

	d := decision.Decision{
		Action:          decision.Action(wire.Action),
		Reason:          wire.Reason,
		Tool:            wire.Tool,
		ToolInput:       flattenInput(wire.ToolInput),
		ArtifactName:    wire.ArtifactName,
		ArtifactContent: wire.ArtifactContent,
		ArtifactType:    artifact.Type(wire.ArtifactType),
		Message:         wire.Message,
	}
	if d.Action == decision.ActionCreateArtifact && !d.ArtifactType.Valid() {
		d.ArtifactType = artifact.TypeText
	}

	if err := d.Validate(); err != nil {
		slog.Warn("decision failed validation", "error", err, "raw", truncate(content, 500))
		return malformedFallback(content)
	}
	return d
}

// malformedFallback substitutes a safe complete decision, salvaging the
// reason field when it can still be extracted from the raw text.
func malformedFallback(content string) decision.Decision {
	reason := "Completed task with malformed output"
	if m := reasonPattern.FindStringSubmatch(content); m != nil {
		reason = m[1]
	}
	return decision.Decision{
		Action:  decision.ActionComplete,
		Message: "Research completed - check artifacts for detailed results",
		Reason:  reason,
	}
}

// planWire is the model's raw decomposition shape.
type planWire struct {
	Agents []struct {
		Name            string   `json:"name"`
		Description     string   `json:"description"`
		Tools           []string `json:"tools"`
		InitialSteering *struct {
			X float64 `json:"x"`
			Y float64 `json:"y"`
		} `json:"initial_steering"`
		AxisLabels *struct {
			XMin string `json:"x_min"`
			XMax string `json:"x_max"`
			YMin string `json:"y_min"`
			YMax string `json:"y_max"`
		} `json:"axis_labels"`
	} `json:"agents"`
	Tasks []struct {
		Goal            string   `json:"goal"`
		SuccessCriteria string   `json:"successCriteria"`
		Inputs          []string `json:"inputs"`
		AgentIndex      int      `json:"agentIndex"`
	} `json:"tasks"`
}

// parsePlan turns raw model output into agent and task templates. Tool
// lists are filtered to the supported vocabulary.
func parsePlan(raw string) (*decider.Plan, error) {
	content := extractJSON(raw)

	var wire planWire
	if err := json.Unmarshal([]byte(content), &wire); err != nil {
		return nil, fmt.Errorf("unmarshal plan: %w (content: %s)", err, truncate(content, 200))
	}
	if len(wire.Agents) == 0 {
		return nil, fmt.Errorf("plan has no agents")
	}

	plan := &decider.Plan{}
	for _, a := range wire.Agents {
		tmpl := decider.AgentTemplate{
			Name:        a.Name,
			Description: a.Description,
			Tools:       tool.FilterKnown(a.Tools),
			SteeringX:   0.5,
			SteeringY:   0.5,
		}
		if a.InitialSteering != nil {
			tmpl.SteeringX = a.InitialSteering.X
			tmpl.SteeringY = a.InitialSteering.Y
		}
		if a.AxisLabels != nil {
			tmpl.AxisLabels = &agent.AxisLabels{
				XMin: withDefault(a.AxisLabels.XMin, "Concise"),
				XMax: withDefault(a.AxisLabels.XMax, "Detailed"),
				YMin: withDefault(a.AxisLabels.YMin, "Factual"),
				YMax: withDefault(a.AxisLabels.YMax, "Creative"),
			}
		}
		plan.Agents = append(plan.Agents, tmpl)
	}

	for _, t := range wire.Tasks {
		plan.Tasks = append(plan.Tasks, decider.TaskTemplate{
			Goal:            t.Goal,
			SuccessCriteria: t.SuccessCriteria,
			Inputs:          t.Inputs,
			AgentIndex:      t.AgentIndex,
		})
	}
	return plan, nil
}

// extractJSON attempts to extract a JSON object from a string that may
// contain markdown fences or other surrounding text.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "```json") {
		s = strings.TrimPrefix(s, "```json")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		return strings.TrimSpace(s)
	}
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		return strings.TrimSpace(s)
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}

	return s
}

func flattenInput(in map[string]any) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		switch val := v.(type) {
		case string:
			out[k] = val
		default:
			out[k] = fmt.Sprint(val)
		}
	}
	return out
}

func withDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
