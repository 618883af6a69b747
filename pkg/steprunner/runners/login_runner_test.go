package runners_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/arnavsurve/portalstep/pkg/browser/browsertest"
	"github.com/arnavsurve/portalstep/pkg/credentials"
	"github.com/arnavsurve/portalstep/pkg/events"
	"github.com/arnavsurve/portalstep/pkg/steprunner"
	"github.com/arnavsurve/portalstep/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	portalURL = "https://canvas.example.edu/login"
	idpURL    = "https://login.idp.example.com/authorize?client=canvas"
	mfaURL    = "https://login.idp.example.com/mfa/approve"
	homeURL   = "https://canvas.example.edu/dashboard"
)

var testCreds = credentials.Static{Email: "student@example.edu", Password: "hunter2"}

type failingProvider struct{ err error }

func (f failingProvider) Credentials() (credentials.Credentials, error) {
	return credentials.Credentials{}, f.err
}

func loginStep(extra types.Params) types.Step {
	params := types.Params{
		"url":                   portalURL,
		"sso_selector":          "#sso",
		"idp_url_pattern":       "login.idp.example.com",
		"email_submit_selector": "#next",
		"submit_selector":       "#signin",
		"mfa_url_pattern":       "/mfa/",
		"timeout":               1000,
		"mfa_timeout":           2000,
	}
	for k, v := range extra {
		params[k] = v
	}
	return step("login", types.StepLogin, params)
}

func TestLoginRunner_FullFlowWithMFA(t *testing.T) {
	h := newHarness(t)
	h.page.URLAfter["click:#sso"] = idpURL
	h.page.URLAfter["click:#signin"] = mfaURL
	h.page.URLAfter["waiturl:/mfa/"] = homeURL

	ctx := h.ctx(loginStep(types.Params{"stay_signed_in_selector": "#kmsi"}))
	ctx.Credentials = testCreds
	result, err := h.runner(t, ctx).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"navigate:" + portalURL,
		"click:#sso",
		"fill:input[type=\"email\"]",
		"click:#next",
		"fill:input[type=\"password\"]",
		"click:#signin",
		"waiturl:/mfa/",
		"click:#kmsi",
	}, h.page.Calls())

	email, _ := h.page.Filled(`input[type="email"]`)
	password, _ := h.page.Filled(`input[type="password"]`)
	assert.Equal(t, "student@example.edu", email)
	assert.Equal(t, "hunter2", password)

	status := h.events.OfType(events.TypeStatus)
	require.Len(t, status, 2)
	assert.Contains(t, status[0].Message, "second-factor")
	assert.Equal(t, "login", status[0].StepID)
	assert.Equal(t, "1", status[0].Step)

	assert.Equal(t, map[string]any{"url": homeURL}, result.Output)
}

func TestLoginRunner_MFATimeout(t *testing.T) {
	h := newHarness(t)
	h.page.URLAfter["click:#sso"] = idpURL
	h.page.URLAfter["click:#signin"] = mfaURL

	ctx := h.ctx(loginStep(nil))
	ctx.Credentials = testCreds
	_, err := h.runner(t, ctx).Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "waiting for second-factor approval")
}

func TestLoginRunner_ToleratesMissingElements(t *testing.T) {
	h := newHarness(t)
	for _, sel := range []string{"#sso", `input[type="email"]`, "#next", `input[type="password"]`, "#signin"} {
		h.page.Missing[sel] = true
	}
	h.page.Redirects[portalURL] = idpURL

	ctx := h.ctx(loginStep(nil))
	ctx.Credentials = testCreds
	_, err := h.runner(t, ctx).Run(context.Background())
	require.NoError(t, err)

	_, filled := h.page.Filled(`input[type="email"]`)
	assert.False(t, filled)
	assert.Empty(t, h.events.OfType(events.TypeStatus))
}

func TestLoginRunner_AlreadySignedIn(t *testing.T) {
	h := newHarness(t)
	h.page.Redirects[portalURL] = homeURL
	h.page.Missing["#sso"] = true

	ctx := h.ctx(loginStep(nil))
	ctx.Credentials = testCreds
	result, err := h.runner(t, ctx).Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, h.page.CallsWithPrefix("fill:"))
	assert.Equal(t, map[string]any{"url": homeURL}, result.Output)
}

func TestLoginRunner_DefaultSelectorsWithoutIdPPattern(t *testing.T) {
	h := newHarness(t)
	ctx := h.ctx(step("login", types.StepLogin, types.Params{"url": portalURL}))
	ctx.Credentials = testCreds

	_, err := h.runner(t, ctx).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"navigate:" + portalURL,
		`fill:input[type="email"]`,
		`click:input[type="submit"]`,
		`fill:input[type="password"]`,
		`click:input[type="submit"]`,
	}, h.page.Calls())
}

func TestLoginRunner_NavigationFailureIsFatal(t *testing.T) {
	h := newHarness(t)
	h.page.Errors["navigate:"+portalURL] = errors.New("net::ERR_NAME_NOT_RESOLVED")

	ctx := h.ctx(loginStep(nil))
	ctx.Credentials = testCreds
	_, err := h.runner(t, ctx).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "navigating to portal")
	assert.Len(t, h.page.Calls(), 1)
}

func TestLoginRunner_CredentialFailures(t *testing.T) {
	h := newHarness(t)

	ctx := h.ctx(loginStep(nil))
	_, err := h.runner(t, ctx).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no credentials provider")

	ctx.Credentials = failingProvider{err: errors.New("missing 'password'")}
	_, err = h.runner(t, ctx).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading credentials")
	assert.Empty(t, h.page.Calls(), "credentials are loaded before the portal is opened")
}

// budgetPage records how long each click and fill was allowed to take.
type budgetPage struct {
	*browsertest.Page

	mu      sync.Mutex
	budgets map[string]time.Duration
}

func (b *budgetPage) note(ctx context.Context, key string) {
	deadline, ok := ctx.Deadline()
	b.mu.Lock()
	defer b.mu.Unlock()
	if !ok {
		b.budgets[key] = -1
		return
	}
	b.budgets[key] = time.Until(deadline)
}

func (b *budgetPage) Click(ctx context.Context, selector string) error {
	b.note(ctx, "click:"+selector)
	return b.Page.Click(ctx, selector)
}

func (b *budgetPage) Fill(ctx context.Context, selector, value string, clear bool) error {
	b.note(ctx, "fill:"+selector)
	return b.Page.Fill(ctx, selector, value, clear)
}

func TestLoginRunner_OptionalActionsUseShortBound(t *testing.T) {
	tests := []struct {
		name  string
		extra types.Params
		limit time.Duration
	}{
		{"default", types.Params{"timeout": 30000}, 5 * time.Second},
		{"configured", types.Params{"timeout": 30000, "optional_timeout": 250}, 250 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			page := &budgetPage{Page: h.page, budgets: map[string]time.Duration{}}
			for _, sel := range []string{"#sso", `input[type="email"]`, "#next", `input[type="password"]`, "#signin"} {
				h.page.Missing[sel] = true
			}

			extra := types.Params{"idp_url_pattern": nil, "mfa_url_pattern": nil}
			for k, v := range tt.extra {
				extra[k] = v
			}
			ctx := h.ctx(loginStep(extra))
			ctx.Page = page
			ctx.Credentials = testCreds

			_, err := h.runner(t, ctx).Run(context.Background())
			require.NoError(t, err)

			require.Len(t, page.budgets, 5)
			for key, budget := range page.budgets {
				assert.Greater(t, budget, time.Duration(0), key)
				assert.LessOrEqual(t, budget, tt.limit, key)
			}
		})
	}
}

func TestLoginRunner_RejectsNegativeOptionalTimeout(t *testing.T) {
	h := newHarness(t)
	r, err := steprunner.GetRunner(h.ctx(loginStep(types.Params{"optional_timeout": -5})))
	require.NoError(t, err)
	assert.ErrorContains(t, r.Validate(), "optional_timeout")
}
