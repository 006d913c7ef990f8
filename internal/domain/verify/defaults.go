package verify

import "github.com/target/workmarket/internal/core"

// Dependencies are the collaborators the built-in verifiers need.
type Dependencies struct {
	Python PythonOptions
	Judge  core.Judge
}

// DefaultRegistry returns the built-in verifiers in dispatch order with the
// acceptance-criteria heuristic as fallback.
func DefaultRegistry(deps Dependencies) *Registry {
	return NewRegistry(AcceptanceCriteria{},
		JSONList{},
		MDTable{},
		NewPythonTest(deps.Python),
		NewPythonAnswer(deps.Python),
		NewPythonRun(deps.Python),
		NewLLMJudge(deps.Judge),
		AcceptanceCriteria{},
	)
}
