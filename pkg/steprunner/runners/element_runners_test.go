package runners_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/arnavsurve/portalstep/pkg/browser/browsertest"
	"github.com/arnavsurve/portalstep/pkg/steprunner"
	_ "github.com/arnavsurve/portalstep/pkg/steprunner/runners"
	"github.com/arnavsurve/portalstep/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_AllStepTypes(t *testing.T) {
	assert.ElementsMatch(t, []types.StepType{
		types.StepLogin, types.StepNavigate, types.StepClick, types.StepFill,
		types.StepSelect, types.StepWait, types.StepScreenshot, types.StepExtractText,
		types.StepDownload, types.StepKeyboard, types.StepLoop, types.StepConditional,
	}, steprunner.Registered())

	_, err := steprunner.GetRunner(types.ExecutionContext{Step: step("x", "hover", nil)})
	assert.ErrorIs(t, err, steprunner.ErrUnknownStepType)
}

func TestRunners_Validate(t *testing.T) {
	tests := []struct {
		name     string
		step     types.Step
		errorMsg string
	}{
		{"navigate without url", step("n", types.StepNavigate, nil), "must define 'url'"},
		{"navigate bad wait_until", step("n", types.StepNavigate, types.Params{"url": "https://x", "wait_until": "forever"}), "wait_until"},
		{"navigate negative timeout", step("n", types.StepNavigate, types.Params{"url": "https://x", "timeout": -1}), "must not be negative"},
		{"click without selector", step("c", types.StepClick, types.Params{}), "must define 'selector'"},
		{"fill without value", step("f", types.StepFill, types.Params{"selector": "#a"}), "must define 'value'"},
		{"fill bad clear", step("f", types.StepFill, types.Params{"selector": "#a", "value": "x", "clear": "sometimes"}), "must be a boolean"},
		{"select without values", step("s", types.StepSelect, types.Params{"selector": "#a"}), "either 'value' or 'values'"},
		{"select with both", step("s", types.StepSelect, types.Params{"selector": "#a", "value": "1", "values": []any{"2"}}), "only define either"},
		{"keyboard without key", step("k", types.StepKeyboard, types.Params{"selector": "#a"}), "must define 'key'"},
		{"wait state without selector", step("w", types.StepWait, types.Params{"state": "hidden"}), "without 'selector'"},
		{"wait bad state", step("w", types.StepWait, types.Params{"selector": "#a", "state": "shiny"}), "state"},
		{"wait bad duration", step("w", types.StepWait, types.Params{"duration": "soon"}), "duration"},
		{"extract without variable", step("e", types.StepExtractText, types.Params{"selector": "#a"}), "must define 'variable'"},
		{"download without selector", step("d", types.StepDownload, nil), "must define 'selector'"},
		{"screenshot bad full_page", step("s", types.StepScreenshot, types.Params{"full_page": "maybe"}), "full_page"},
		{"login without url", step("l", types.StepLogin, nil), "must define 'url'"},
		{"login bad mfa_timeout", step("l", types.StepLogin, types.Params{"url": "https://x", "mfa_timeout": "never"}), "mfa_timeout"},
		{"loop without count", step("l", types.StepLoop, types.Params{"steps": []any{}}), "must define 'count'"},
		{"loop negative count", step("l", types.StepLoop, types.Params{"count": -2}), "must not be negative"},
		{"loop non-numeric count", step("l", types.StepLoop, types.Params{"count": "{rows}"}), "must be an integer"},
		{"loop steps not a list", step("l", types.StepLoop, types.Params{"count": 1, "steps": "click"}), "must be a list of steps"},
		{"conditional without selector", step("c", types.StepConditional, nil), "must define 'condition_selector'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := steprunner.GetRunner(types.ExecutionContext{Step: tt.step})
			require.NoError(t, err)
			err = r.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorMsg)
		})
	}
}

func TestNavigateRunner(t *testing.T) {
	h := newHarness(t)
	h.page.Redirects["https://portal.edu"] = "https://portal.edu/home"

	result, err := h.run1(t, step("go", types.StepNavigate, types.Params{"url": "https://portal.edu", "wait_until": "domcontentloaded"}))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"url": "https://portal.edu"}, result.Output)
	assert.Equal(t, "https://portal.edu/home", h.page.CurrentURL)

	h.page.Errors["navigate:https://down"] = context.DeadlineExceeded
	_, err = h.run1(t, step("go", types.StepNavigate, types.Params{"url": "https://down"}))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), `navigating to "https://down"`)
}

func TestClickRunner_NotFoundIsFatal(t *testing.T) {
	h := newHarness(t)
	h.page.Missing["#gone"] = true

	_, err := h.run1(t, step("c", types.StepClick, types.Params{"selector": "#gone"}))
	require.Error(t, err)
	assert.ErrorIs(t, err, browsertest.ErrNotFound)

	_, err = h.run1(t, step("c", types.StepClick, types.Params{"selector": "#here"}))
	require.NoError(t, err)
	assert.Equal(t, []string{"click:#gone", "click:#here"}, h.page.CallsWithPrefix("click:"))
}

func TestFillRunner(t *testing.T) {
	h := newHarness(t)

	_, err := h.run1(t, step("f", types.StepFill, types.Params{"selector": "#q", "value": "first"}))
	require.NoError(t, err)
	_, err = h.run1(t, step("f", types.StepFill, types.Params{"selector": "#q", "value": "second"}))
	require.NoError(t, err)
	got, _ := h.page.Filled("#q")
	assert.Equal(t, "second", got, "clear defaults to true")

	_, err = h.run1(t, step("f", types.StepFill, types.Params{"selector": "#q", "value": "+more", "clear": false}))
	require.NoError(t, err)
	got, _ = h.page.Filled("#q")
	assert.Equal(t, "second+more", got)

	_, err = h.run1(t, step("f", types.StepFill, types.Params{"selector": "#q", "value": ""}))
	require.NoError(t, err)
	got, _ = h.page.Filled("#q")
	assert.Equal(t, "", got)
}

func TestSelectRunner(t *testing.T) {
	h := newHarness(t)

	_, err := h.run1(t, step("s", types.StepSelect, types.Params{"selector": "#term", "value": "fall"}))
	require.NoError(t, err)
	got, _ := h.page.Filled("#term")
	assert.Equal(t, "fall", got)

	_, err = h.run1(t, step("s", types.StepSelect, types.Params{"selector": "#courses", "values": []any{"101", 202}}))
	require.NoError(t, err)
	got, _ = h.page.Filled("#courses")
	assert.Equal(t, "101,202", got)
}

func TestKeyboardRunner(t *testing.T) {
	h := newHarness(t)

	_, err := h.run1(t, step("k", types.StepKeyboard, types.Params{"key": "Enter"}))
	require.NoError(t, err)
	_, err = h.run1(t, step("k", types.StepKeyboard, types.Params{"key": "Tab", "selector": "#q"}))
	require.NoError(t, err)

	assert.Equal(t, []string{"press:Enter", "press:#q:Tab"}, h.page.CallsWithPrefix("press:"))
	assert.Equal(t, []string{"Enter", "Tab"}, h.page.Pressed())
}

func TestWaitRunner(t *testing.T) {
	t.Run("selector state", func(t *testing.T) {
		h := newHarness(t)
		h.page.Hidden["#spinner"] = true
		_, err := h.run1(t, step("w", types.StepWait, types.Params{"selector": "#spinner", "state": "hidden"}))
		require.NoError(t, err)
		assert.Equal(t, []string{"wait:#spinner:hidden"}, h.page.Calls())
	})

	t.Run("selector timeout is fatal", func(t *testing.T) {
		h := newHarness(t)
		h.page.Missing["#late"] = true
		_, err := h.run1(t, step("w", types.StepWait, types.Params{"selector": "#late", "timeout": 50}))
		require.Error(t, err)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("network idle by default", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.run1(t, step("w", types.StepWait, nil))
		require.NoError(t, err)
		assert.Equal(t, []string{"wait:networkidle"}, h.page.Calls())
	})

	t.Run("duration then selector", func(t *testing.T) {
		h := newHarness(t)
		start := time.Now()
		_, err := h.run1(t, step("w", types.StepWait, types.Params{"duration": 20, "selector": "#ready"}))
		require.NoError(t, err)
		assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
		assert.Equal(t, []string{"wait:#ready:visible"}, h.page.Calls())
	})

	t.Run("duration only", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.run1(t, step("w", types.StepWait, types.Params{"duration": "15ms"}))
		require.NoError(t, err)
		assert.Empty(t, h.page.Calls())
	})

	t.Run("duration honours cancellation", func(t *testing.T) {
		h := newHarness(t)
		r := h.runner(t, h.ctx(step("w", types.StepWait, types.Params{"duration": 60000})))
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := r.Run(ctx)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestExtractTextRunner(t *testing.T) {
	h := newHarness(t)
	h.page.Texts["#gpa"] = "\n  3.85  \t"

	result, err := h.run1(t, step("e", types.StepExtractText, types.Params{"selector": "#gpa", "variable": "gpa"}))
	require.NoError(t, err)
	assert.Equal(t, "3.85", h.run.Vars["gpa"])
	assert.Equal(t, map[string]any{"variable": "gpa", "value": "3.85"}, result.Output)

	h.page.Missing["#nothing"] = true
	_, err = h.run1(t, step("e", types.StepExtractText, types.Params{"selector": "#nothing", "variable": "x"}))
	require.Error(t, err)
	_, set := h.run.Vars["x"]
	assert.False(t, set)
}

func TestRunnerErrorsWrapPageErrors(t *testing.T) {
	h := newHarness(t)
	boom := errors.New("target crashed")
	h.page.Errors["fill:#a"] = boom

	_, err := h.run1(t, step("f", types.StepFill, types.Params{"selector": "#a", "value": "v"}))
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), `filling "#a"`)
}
