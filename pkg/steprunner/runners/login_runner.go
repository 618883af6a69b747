package runners

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/arnavsurve/portalstep/pkg/browser"
	"github.com/arnavsurve/portalstep/pkg/steprunner"
	"github.com/arnavsurve/portalstep/pkg/types"
)

const (
	defaultEmailSelector    = `input[type="email"]`
	defaultPasswordSelector = `input[type="password"]`
	defaultSubmitSelector   = `input[type="submit"]`
	defaultMFATimeout       = 5 * time.Minute
	defaultOptionalTimeout  = 5 * time.Second
)

// LoginRunner signs in through a portal's SSO flow. Only the initial
// navigation and the second-factor wait are required; every click and fill
// in between is skipped when its element is absent, so a partially
// authenticated session walks straight through. Those optional actions are
// bounded by 'optional_timeout' rather than 'timeout'.
type LoginRunner struct {
	StepCtx types.ExecutionContext

	url                  string
	ssoSelector          string
	idpURLPattern        string
	emailSelector        string
	emailSubmitSelector  string
	passwordSelector     string
	submitSelector       string
	staySignedInSelector string
	mfaURLPattern        string
	mfaTimeout           time.Duration
	optionalTimeout      time.Duration
	timeout              time.Duration
}

func init() {
	steprunner.RegisterRunnerFactory(types.StepLogin, func(ctx types.ExecutionContext) (steprunner.StepRunner, error) {
		return &LoginRunner{
			StepCtx: ctx,
		}, nil
	})
}

func (lr *LoginRunner) Validate() error {
	step := lr.StepCtx.Step
	params := step.Params

	var err error
	if lr.url, err = steprunner.RequireString(step, "url"); err != nil {
		return err
	}

	lr.ssoSelector = params.String("sso_selector")
	lr.idpURLPattern = params.String("idp_url_pattern")
	lr.emailSelector = params.StringOr("email_selector", defaultEmailSelector)
	lr.emailSubmitSelector = params.StringOr("email_submit_selector", defaultSubmitSelector)
	lr.passwordSelector = params.StringOr("password_selector", defaultPasswordSelector)
	lr.submitSelector = params.StringOr("submit_selector", defaultSubmitSelector)
	lr.staySignedInSelector = params.String("stay_signed_in_selector")
	lr.mfaURLPattern = params.String("mfa_url_pattern")

	if lr.mfaTimeout, err = params.Millis("mfa_timeout", defaultMFATimeout); err != nil {
		return fmt.Errorf("login step %q: %w", step.ID, err)
	}
	if lr.optionalTimeout, err = params.Millis("optional_timeout", defaultOptionalTimeout); err != nil {
		return fmt.Errorf("login step %q: %w", step.ID, err)
	}
	if lr.optionalTimeout == 0 {
		lr.optionalTimeout = defaultOptionalTimeout
	}
	lr.timeout, err = steprunner.Timeout(step, steprunner.DefaultTimeout)
	return err
}

func (lr *LoginRunner) Run(ctx context.Context) (*types.StepResult, error) {
	logger := lr.StepCtx.Logger
	page := lr.StepCtx.Page

	if lr.StepCtx.Credentials == nil {
		return nil, fmt.Errorf("login step %q: no credentials provider configured", lr.StepCtx.Step.ID)
	}
	creds, err := lr.StepCtx.Credentials.Credentials()
	if err != nil {
		return nil, fmt.Errorf("loading credentials: %w", err)
	}

	logger.Info().Str("url", lr.url).Msg("Opening portal")
	navCtx, cancel := steprunner.WithTimeout(ctx, lr.timeout)
	err = page.Navigate(navCtx, lr.url, browser.WaitLoad)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("navigating to portal %q: %w", lr.url, err)
	}

	if lr.ssoSelector != "" {
		lr.optional(ctx, "click sso entry", func(c context.Context) error {
			return page.Click(c, lr.ssoSelector)
		})
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	onIdP := true
	if lr.idpURLPattern != "" {
		current, err := page.URL(ctx)
		if err != nil {
			return nil, fmt.Errorf("reading page URL: %w", err)
		}
		onIdP = strings.Contains(current, lr.idpURLPattern)
		if !onIdP {
			logger.Info().Str("url", current).Msg("Not on the identity provider, assuming an existing session")
		}
	}

	if onIdP {
		actions := []struct {
			name string
			fn   func(context.Context) error
		}{
			{"fill email", func(c context.Context) error { return page.Fill(c, lr.emailSelector, creds.Email, true) }},
			{"submit email", func(c context.Context) error { return page.Click(c, lr.emailSubmitSelector) }},
			{"fill password", func(c context.Context) error { return page.Fill(c, lr.passwordSelector, creds.Password, true) }},
			{"submit password", func(c context.Context) error { return page.Click(c, lr.submitSelector) }},
		}
		for _, a := range actions {
			lr.optional(ctx, a.name, a.fn)
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
	}

	if err := lr.waitForMFA(ctx); err != nil {
		return nil, err
	}

	if lr.staySignedInSelector != "" {
		lr.optional(ctx, "confirm stay signed in", func(c context.Context) error {
			return page.Click(c, lr.staySignedInSelector)
		})
	}

	final, err := page.URL(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading page URL: %w", err)
	}
	logger.Info().Str("url", final).Msg("Login finished")
	return &types.StepResult{Output: map[string]any{"url": final}}, nil
}

// waitForMFA blocks while the page sits on the second-factor challenge.
func (lr *LoginRunner) waitForMFA(ctx context.Context) error {
	if lr.mfaURLPattern == "" {
		return nil
	}
	page := lr.StepCtx.Page

	current, err := page.URL(ctx)
	if err != nil {
		return fmt.Errorf("reading page URL: %w", err)
	}
	if !strings.Contains(current, lr.mfaURLPattern) {
		return nil
	}

	steprunner.EmitStatus(lr.StepCtx, fmt.Sprintf("Waiting up to %s for second-factor approval", lr.mfaTimeout))
	lr.StepCtx.Logger.Warn().Str("url", current).Msg("Second-factor challenge detected, waiting for approval")

	mfaCtx, cancel := steprunner.WithTimeout(ctx, lr.mfaTimeout)
	defer cancel()
	if err := page.WaitForURLExcluding(mfaCtx, lr.mfaURLPattern); err != nil {
		return fmt.Errorf("waiting for second-factor approval: %w", err)
	}
	steprunner.EmitStatus(lr.StepCtx, "Second-factor approval received")
	return nil
}

func (lr *LoginRunner) optional(ctx context.Context, action string, fn func(context.Context) error) {
	opCtx, cancel := steprunner.WithTimeout(ctx, lr.optionalTimeout)
	defer cancel()
	if err := fn(opCtx); err != nil {
		lr.StepCtx.Logger.Debug().Err(err).Str("action", action).Msg("Optional login action skipped")
	}
}
