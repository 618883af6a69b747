package steprunner

import (
	"context"
	"fmt"
	"time"

	"github.com/arnavsurve/portalstep/pkg/events"
	"github.com/arnavsurve/portalstep/pkg/types"
)

// DefaultTimeout bounds element and navigation operations that do not set
// their own 'timeout'.
const DefaultTimeout = 30 * time.Second

// Timeout reads the step's 'timeout' param (milliseconds), falling back to def.
func Timeout(step types.Step, def time.Duration) (time.Duration, error) {
	d, err := step.Params.Millis("timeout", def)
	if err != nil {
		return 0, fmt.Errorf("%s step %q: %w", step.Type, step.ID, err)
	}
	if d == 0 {
		return def, nil
	}
	return d, nil
}

// RequireString returns the named param or an error naming the step.
func RequireString(step types.Step, key string) (string, error) {
	v := step.Params.String(key)
	if v == "" {
		return "", fmt.Errorf("%s step %q must define '%s'", step.Type, step.ID, key)
	}
	return v, nil
}

// EmitStatus sends a status event attributed to the running step.
func EmitStatus(ctx types.ExecutionContext, msg string) {
	if ctx.Events == nil {
		return
	}
	err := ctx.Events.Emit(events.Event{
		Type:     events.TypeStatus,
		StepID:   ctx.Step.ID,
		StepType: string(ctx.Step.Type),
		Label:    ctx.Step.Label,
		Step:     ctx.Path,
		Message:  msg,
	})
	if err != nil && ctx.Logger != nil {
		ctx.Logger.Warn().Err(err).Msg("Could not emit status event")
	}
}

// WithTimeout derives the per-operation context for a page call.
func WithTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
