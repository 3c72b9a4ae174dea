package projects

import (
	"strings"

	"github.com/sells-group/proximity-cli/internal/resolve"
)

// Phase is the lifecycle bucket of a project.
type Phase string

const (
	PhaseOperation    Phase = "operation"
	PhaseConstruction Phase = "construction"
	PhaseSuspended    Phase = "suspended"
	PhaseEvaluation   Phase = "evaluation"
	PhasePending      Phase = "pending"
)

// keywordRule maps normalized keywords to a value.
type keywordRule[T any] struct {
	value    T
	keywords []string
}

var phaseRules = []keywordRule[Phase]{
	{PhaseOperation, []string{"operacion", "terminado"}},
	{PhaseConstruction, []string{"constru", "ejecucion"}},
	{PhaseSuspended, []string{"suspendido", "cancelado"}},
	{PhaseEvaluation, []string{"evaluacion"}},
}

// Phase classifies the project's stage column, falling back to its state.
func (p Project) Phase() Phase {
	v, _ := matchRules(p.First(ColStage, ColState), phaseRules)
	if v == "" {
		return PhasePending
	}
	return v
}

// matchRules returns the value of the first rule with a keyword contained
// in the normalized text.
func matchRules[T any](text string, rules []keywordRule[T]) (T, bool) {
	norm := resolve.Normalize(text)
	if norm != "" {
		for _, r := range rules {
			for _, k := range r.keywords {
				if strings.Contains(norm, k) {
					return r.value, true
				}
			}
		}
	}
	var zero T
	return zero, false
}
