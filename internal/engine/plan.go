package engine

import "github.com/studiowebux/perfgate/internal/scenario"

// Phase tells whether an executor's samples are measured
type Phase string

const (
	PhaseWarmup Phase = "warmup"
	PhaseMain   Phase = "main"
)

// WarmupSuffix is appended to a scenario name for its warmup executor
const WarmupSuffix = "__warmup"

// Executor is one shared-iterations step of a plan
type Executor struct {
	Name       string            `json:"name"`
	Phase      Phase             `json:"phase"`
	VUs        int               `json:"vus"`
	Iterations int               `json:"iterations"`
	Scenario   scenario.Scenario `json:"-"`
}

// Plan returns the executors for scenarios, in run order
func Plan(scenarios []scenario.Scenario) []Executor {
	executors := make([]Executor, 0, len(scenarios)*2)
	for _, s := range scenarios {
		if s.Warmup > 0 {
			executors = append(executors, Executor{
				Name:       s.Name + WarmupSuffix,
				Phase:      PhaseWarmup,
				VUs:        s.WarmupWorkers(),
				Iterations: s.Warmup,
				Scenario:   s,
			})
		}
		executors = append(executors, Executor{
			Name:       s.Name,
			Phase:      PhaseMain,
			VUs:        s.Concurrency,
			Iterations: s.Iterations,
			Scenario:   s,
		})
	}
	return executors
}

// Measured reports whether the executor's samples feed the scenario metrics
func (e Executor) Measured() bool {
	return e.Phase == PhaseMain
}
