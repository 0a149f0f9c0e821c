package gemini

import (
	"fmt"
	"strings"

	"github.com/Strob0t/MissionDeck/internal/domain/agent"
	"github.com/Strob0t/MissionDeck/internal/domain/task"
)

// buildDecisionPrompt constructs the per-iteration prompt. The coordinator
// gets a dedicated conversational prompt restricted to the complete action;
// worker agents get the full tool-and-artifact decision prompt.
func buildDecisionPrompt(ag *agent.Agent, t *task.Task, missionContext string, previousResults []string) string {
	if ag.IsCoordinator() {
		return buildCoordinatorPrompt(ag, t, missionContext, previousResults)
	}

	var b strings.Builder

	fmt.Fprintf(&b, "You are an AI agent named %q with the following description: %s\n\n", ag.Name, ag.Description)
	fmt.Fprintf(&b, "Your current task:\nGoal: %s\nSuccess Criteria: %s\nIteration: %d of %d\n\n",
		t.Goal, t.SuccessCriteria, t.IterationCount, t.MaxIterations)

	fmt.Fprintf(&b, "Steering parameters (0-1 scale):\n")
	fmt.Fprintf(&b, "- Autonomy (X): %.2f (%s)\n", ag.SteeringX, describeAutonomy(ag.SteeringX))
	fmt.Fprintf(&b, "- Speed vs Quality (Y): %.2f (%s)\n", ag.SteeringY, describeQuality(ag.SteeringY))

	if ag.AxisLabels != nil {
		fmt.Fprintf(&b, "\nAxis Labels:\n")
		fmt.Fprintf(&b, "- X-axis (Autonomy): Low (%s), High (%s)\n", ag.AxisLabels.XMin, ag.AxisLabels.XMax)
		fmt.Fprintf(&b, "- Y-axis (Speed vs Quality): Low (%s), High (%s)\n", ag.AxisLabels.YMin, ag.AxisLabels.YMax)
	}

	b.WriteString("\nAvailable tools:\n")
	for _, d := range enabledToolDescriptions(ag) {
		fmt.Fprintf(&b, "- %s: %s\n", d.Name, d.Description)
	}

	fmt.Fprintf(&b, "\nContext from user:\n%s\n", missionContext)

	b.WriteString("\nPrevious results from this task:\n")
	if len(previousResults) > 0 {
		b.WriteString(strings.Join(previousResults, "\n---\n"))
	} else {
		b.WriteString("None yet")
	}

	b.WriteString(`

Based on this information, decide your next action. You MUST respond with valid JSON in this exact format:
{
  "action": "use_tool" | "create_artifact" | "complete" | "ask_user",
  "tool": "tool_name (if action is use_tool)",
  "toolInput": { "param": "value" } (if action is use_tool),
  "artifactName": "filename.ext (if action is create_artifact)",
  "artifactContent": "content as a single string - escape ALL quotes and newlines properly (if action is create_artifact)",
  "artifactType": "markdown" | "json" | "text" | "code" (if action is create_artifact),
  "message": "message for user (if action is ask_user or complete)",
  "reason": "brief explanation of why you chose this action"
}

CRITICAL: When creating artifacts, artifactContent MUST be a properly escaped JSON string. All quotes must be escaped as \" and all newlines as \n.

Important:
- If you have enough information, create an artifact with your findings/output
- When naming artifacts, use descriptive names without iteration numbers (e.g., "analysis_report.md" NOT "analysis_iteration_3.md")
- Only reference iterations if they actually exist in the previous results
- Complete the task once you've produced meaningful output
- Respect the steering parameters for autonomy and thoroughness
- Stay focused on the specific goal`)

	return b.String()
}

// buildCoordinatorPrompt restricts the coordinator to conversational
// complete responses: never tools, never artifacts.
func buildCoordinatorPrompt(ag *agent.Agent, t *task.Task, missionContext string, previousResults []string) string {
	question := strings.TrimPrefix(t.Goal, "Answer user question: ")

	ctx := missionContext
	if ctx == "" {
		ctx = "No active mission"
	}
	available := "None"
	if len(previousResults) > 0 {
		available = strings.Join(previousResults, ", ")
	}

	return fmt.Sprintf(`You are the %s, the ONLY agent that handles user chat messages.

User question: %s

Current mission context: %s
Available artifacts: %s

Your role:
- Answer ALL user questions conversationally
- Explain what the system can do and what artifacts are available
- Guide users on next steps
- Be friendly and helpful
- NEVER create artifacts or use tools
- NEVER mention "iterations" unless they're explicitly visible in the data

Respond with valid JSON:
{
  "action": "complete",
  "message": "Your direct answer to the user (be natural and conversational)",
  "reason": "Answering user chat"
}

Keep responses under 100 words unless more detail is needed.`, ag.Name, question, ctx, available)
}

// buildPlanPrompt constructs the goal-decomposition prompt.
func buildPlanPrompt(goal string) string {
	return fmt.Sprintf(`You are a mission planner for an AI agent system. Analyze the following goal and decompose it into agents and tasks.

User Goal: %q

Create a plan with 1-3 specialized agents and their tasks. Respond with valid JSON in this exact format:
{
  "agents": [
    {
      "name": "AgentName",
      "description": "What this agent specializes in",
      "tools": ["tool1", "tool2"],
      "initial_steering": {
        "x": 0.5,
        "y": 0.5
      },
      "axis_labels": {
        "x_min": "Brief/Concise label for low X value",
        "x_max": "Detailed/Verbose label for high X value",
        "y_min": "Label representing low Y (e.g., Factual, Speed, etc.)",
        "y_max": "Label representing high Y (e.g., Creative, Quality, etc.)"
      }
    }
  ],
  "tasks": [
    {
      "goal": "Specific task goal",
      "successCriteria": "How to know when done",
      "inputs": ["any required inputs"],
      "agentIndex": 0
    }
  ]
}

Available tools: web_search, analyze_data, code_writer

Keep it focused - maximum 3 agents, 1-2 tasks per agent. Match tools to agent purpose.`, goal)
}

func describeAutonomy(x float64) string {
	switch {
	case x < 0.3:
		return "low - ask for guidance often"
	case x > 0.7:
		return "high - work independently"
	default:
		return "medium - balance guidance and autonomy"
	}
}

func describeQuality(y float64) string {
	switch {
	case y < 0.3:
		return "prioritize speed"
	case y > 0.7:
		return "prioritize thoroughness"
	default:
		return "balanced"
	}
}
