// Package tool defines the fixed tool vocabulary agents can be granted.
package tool

// Tool name constants.
const (
	WebSearch   = "web_search"
	AnalyzeData = "analyze_data"
	CodeWriter  = "code_writer"
	ReadFile    = "read_file"
)

// Description documents a tool for the decision prompt.
type Description struct {
	Name        string
	Description string
}

// Catalog lists every supported tool with its prompt description.
var Catalog = map[string]Description{
	WebSearch:   {Name: WebSearch, Description: "Search the web for information on a topic"},
	AnalyzeData: {Name: AnalyzeData, Description: "Analyze data and extract insights"},
	CodeWriter:  {Name: CodeWriter, Description: "Write code in various programming languages"},
	ReadFile:    {Name: ReadFile, Description: "Read the contents of a file or artifact by name"},
}

// PlannerVocabulary is the tool set the planner may assign to new agents.
// read_file is always offered separately and not part of planning output.
var PlannerVocabulary = []string{WebSearch, AnalyzeData, CodeWriter}

// Known reports whether name is in the supported vocabulary.
func Known(name string) bool {
	_, ok := Catalog[name]
	return ok
}

// FilterKnown returns names restricted to the planner vocabulary.
func FilterKnown(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		for _, v := range PlannerVocabulary {
			if n == v {
				out = append(out, n)
				break
			}
		}
	}
	return out
}
