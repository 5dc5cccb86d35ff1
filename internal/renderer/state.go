package renderer

import "fmt"

// State is a step of a page render.
type State string

const (
	StateResolveRoute        State = "resolve_route"
	StateAnalyzeRequirements State = "analyze_requirements"
	StateLoadData            State = "load_data"
	StateExecute             State = "execute"
	StateSuccess             State = "success"
	StateError               State = "error"
)

var transitions = map[State][]State{
	StateResolveRoute:        {StateAnalyzeRequirements, StateError},
	StateAnalyzeRequirements: {StateLoadData, StateError},
	StateLoadData:            {StateExecute, StateAnalyzeRequirements, StateError},
	StateExecute:             {StateSuccess, StateError},
}

// CanTransitionTo reports whether next may follow s. LoadData may return to
// AnalyzeRequirements when a missing entity downgrades the route to 404.
func (s State) CanTransitionTo(next State) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether s ends a render.
func (s State) IsTerminal() bool {
	return s == StateSuccess || s == StateError
}

type machine struct {
	state State
	trail []State
}

func newMachine() *machine {
	return &machine{state: StateResolveRoute, trail: []State{StateResolveRoute}}
}

func (m *machine) to(next State) error {
	if !m.state.CanTransitionTo(next) {
		return fmt.Errorf("invalid render transition %s -> %s", m.state, next)
	}
	m.state = next
	m.trail = append(m.trail, next)
	return nil
}
