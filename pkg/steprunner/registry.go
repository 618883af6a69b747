package steprunner

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/arnavsurve/portalstep/pkg/types"
)

// ErrUnknownStepType is returned by GetRunner when no factory is registered
// for a step's type.
var ErrUnknownStepType = errors.New("unknown step type")

type RunnerFactory func(ctx types.ExecutionContext) (StepRunner, error)

var (
	mu sync.RWMutex
	// registry stores each type of step runner's factory function. GetRunner calls the appropriate StepRunner
	// factory function to yield a new instance of that StepRunner
	registry = map[types.StepType]RunnerFactory{}
)

// This is called in each step runner's init() function to register its factory function with the registry.
// This allows GetRunner to return an instance of the appropriate StepRunner, using the registry to resolve
// the runner's factory.
func RegisterRunnerFactory(stepType types.StepType, factory RunnerFactory) {
	mu.Lock()
	defer mu.Unlock()
	registry[stepType] = factory
}

// GetRunner returns an instance of the appropriate StepRunner based on the step's 'type' field,
// calling the corresponding runner's factory function from the registry.
func GetRunner(ctx types.ExecutionContext) (StepRunner, error) {
	stepType := ctx.Step.Type
	mu.RLock()
	factory, ok := registry[stepType]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStepType, stepType)
	}

	return factory(ctx)
}

// Registered lists the registered step types in sorted order.
func Registered() []types.StepType {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]types.StepType, 0, len(registry))
	for t := range registry {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
