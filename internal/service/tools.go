package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/Strob0t/MissionDeck/internal/domain/artifact"
	"github.com/Strob0t/MissionDeck/internal/domain/tool"
)

// ToolExecutor executes a named side-effect action and returns a textual
// result. It never returns an error to the run loop: misses and unknown
// tools come back as structured JSON the agent itself must interpret.
type ToolExecutor struct {
	latency time.Duration
}

// NewToolExecutor creates a ToolExecutor with the given simulated base latency.
func NewToolExecutor(latency time.Duration) *ToolExecutor {
	return &ToolExecutor{latency: latency}
}

// Execute runs the named tool against the input parameters and the current
// artifact set. Latency is simulated but bounded and cancellable.
func (e *ToolExecutor) Execute(ctx context.Context, name string, input map[string]string, artifacts []artifact.Artifact) string {
	e.sleep(ctx)

	switch name {
	case tool.WebSearch:
		query := input["query"]
		return mustJSON(map[string]any{
			"results": []map[string]string{
				{"title": "Result for: " + query, "snippet": "Found relevant information about the topic...", "url": "https://example.com/1"},
				{"title": "More on: " + query, "snippet": "Additional details and context...", "url": "https://example.com/2"},
			},
			"summary": fmt.Sprintf("Search completed for %q. Found 2 relevant results with key insights.", query),
		})
	case tool.AnalyzeData:
		return mustJSON(map[string]any{
			"insights": []string{
				"Pattern identified: correlation between variables",
				"Anomaly detected in dataset segment 3",
				"Trend analysis shows upward trajectory",
			},
			"confidence": 0.85,
			"summary":    fmt.Sprintf("Analysis complete. %s analysis revealed 3 key insights.", input["analysisType"]),
		})
	case tool.CodeWriter:
		lang := input["language"]
		code := fmt.Sprintf("// Generated %s code for: %s\nfunction solution() {\n  // Implementation here\n  return result;\n}", lang, input["task"])
		return mustJSON(map[string]any{
			"code":     code,
			"language": lang,
			"summary":  fmt.Sprintf("Generated %s code for the specified task.", lang),
		})
	case tool.ReadFile:
		return readArtifact(input["filename"], artifacts)
	default:
		return mustJSON(map[string]any{"error": "Unknown tool: " + name})
	}
}

// readArtifact resolves an artifact by exact name. A miss is not an error
// condition: it returns a structured result enumerating available names.
func readArtifact(filename string, artifacts []artifact.Artifact) string {
	names := make([]string, 0, len(artifacts))
	for _, a := range artifacts {
		if a.Name == filename {
			return mustJSON(map[string]any{
				"filename":  a.Name,
				"type":      a.Type,
				"content":   a.Content,
				"createdBy": a.CreatedBy,
				"summary":   fmt.Sprintf("Successfully read file %q (%s)", a.Name, a.Type),
			})
		}
		names = append(names, a.Name)
	}

	available := "No files available"
	if len(names) > 0 {
		available = strings.Join(names, ", ")
	}
	return mustJSON(map[string]any{
		"error":          fmt.Sprintf("File %q not found", filename),
		"availableFiles": available,
	})
}

// sleep simulates tool latency with jitter, bounded by the context.
func (e *ToolExecutor) sleep(ctx context.Context) {
	if e.latency <= 0 {
		return
	}
	jitter := time.Duration(rand.Int64N(int64(e.latency) + 1))
	select {
	case <-time.After(e.latency + jitter):
	case <-ctx.Done():
	}
}

func mustJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf(`{"error":%q}`, err.Error())
	}
	return string(data)
}
