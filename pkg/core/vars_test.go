package core_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/arnavsurve/portalstep/pkg/core"
	"github.com/arnavsurve/portalstep/pkg/log"
	"github.com/arnavsurve/portalstep/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestResolveVarfile(t *testing.T) {
	tempDir := t.TempDir()
	varfilePath := filepath.Join(tempDir, "test_vars.yml")

	t.Setenv("TEST_ENV_VAR", "env_value")

	varfileContent := `
plain_var: plain_value
env_var: "{env.TEST_ENV_VAR}"
spaced_env_var: "{ env.TEST_ENV_VAR }"
empty_env_var: "{env.NONEXISTENT_VAR}"
not_env: "prefix {env.TEST_ENV_VAR}"
number: 42
`

	require.NoError(t, os.WriteFile(varfilePath, []byte(varfileContent), 0644))

	vars, err := core.ResolveVarfile(varfilePath, log.Nop())
	require.NoError(t, err)

	assert.Equal(t, "plain_value", vars["plain_var"])
	assert.Equal(t, "env_value", vars["env_var"])
	assert.Equal(t, "env_value", vars["spaced_env_var"])
	assert.Equal(t, "", vars["empty_env_var"])
	assert.Equal(t, "prefix {env.TEST_ENV_VAR}", vars["not_env"])
	assert.Equal(t, "42", vars["number"])

	_, err = core.ResolveVarfile("nonexistent_file.yml", nil)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "reading varfile")

	invalidPath := filepath.Join(tempDir, "invalid.yml")
	require.NoError(t, os.WriteFile(invalidPath, []byte("invalid: yaml: ]:"), 0644))
	_, err = core.ResolveVarfile(invalidPath, nil)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "parsing varfile YAML")
}

func TestInterpolate(t *testing.T) {
	vars := map[string]string{
		"path":       "login",
		"user.email": "a@b.c",
		"index":      "3",
		"braces":     "{path}",
		"2fa":        "123456",
		"first name": "Ada",
		"ünï":        "u",
		"term-id":    "fa24",
	}

	tests := []struct {
		template string
		want     string
	}{
		{"https://x/{path}", "https://x/login"},
		{"#row-{index} td", "#row-3 td"},
		{"{user.email}", "a@b.c"},
		{"{unknown} stays", "{unknown} stays"},
		{"code={2fa}", "code=123456"},
		{"Hello {first name}", "Hello Ada"},
		{"{ünï}/{term-id}", "u/fa24"},
		{"{path}{path}", "loginlogin"},
		{"{ path }", "{ path }"},
		{"{{path}}", "{login}"},
		{"{braces}", "{path}"},
		{"no placeholders", "no placeholders"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.template, func(t *testing.T) {
			assert.Equal(t, tt.want, core.Interpolate(tt.template, vars))
		})
	}
}

func TestInterpolate_Property(t *testing.T) {
	keyGen := rapid.StringMatching(`[^{}]{1,8}`)
	literalGen := rapid.StringMatching(`[a-zA-Z0-9 /:.#-]{0,8}`)

	rapid.Check(t, func(t *rapid.T) {
		vars := rapid.MapOf(keyGen, rapid.String()).Draw(t, "vars")
		pieces := rapid.IntRange(0, 6).Draw(t, "pieces")

		var template, want strings.Builder
		for i := 0; i < pieces; i++ {
			literal := literalGen.Draw(t, "literal")
			template.WriteString(literal)
			want.WriteString(literal)

			key := keyGen.Draw(t, "key")
			if rapid.Bool().Draw(t, "absent") {
				key = "missing_" + key
			}
			template.WriteString("{" + key + "}")
			if val, ok := vars[key]; ok {
				want.WriteString(val)
			} else {
				want.WriteString("{" + key + "}")
			}
		}

		assert.Equal(t, want.String(), core.Interpolate(template.String(), vars))
	})
}

func TestResolveParams(t *testing.T) {
	nested := []any{map[string]any{"id": "inner", "type": "click", "params": map[string]any{"selector": "#{index}"}}}
	params := types.Params{
		"url":     "https://x/{path}",
		"count":   3,
		"clear":   false,
		"values":  []any{"{path}", "b"},
		"steps":   nested,
		"literal": "plain",
	}

	resolved := core.ResolveParams(params, map[string]string{"path": "login", "index": "1"})

	assert.Equal(t, "https://x/login", resolved["url"])
	assert.Equal(t, 3, resolved["count"])
	assert.Equal(t, false, resolved["clear"])
	assert.Equal(t, []any{"{path}", "b"}, resolved["values"])
	assert.Equal(t, nested, resolved["steps"])
	assert.Equal(t, "plain", resolved["literal"])

	// The workflow's own params are left as written.
	assert.Equal(t, "https://x/{path}", params["url"])
	assert.Nil(t, core.ResolveParams(nil, nil))
}

func TestParseVarOverrides(t *testing.T) {
	vars, err := core.ParseVarOverrides([]string{"path=login", "url=https://x/?a=b", "empty="})
	require.NoError(t, err)
	assert.Equal(t, core.VarContext{"path": "login", "url": "https://x/?a=b", "empty": ""}, vars)

	for _, bad := range []string{"novalue", "=x", " =x"} {
		_, err := core.ParseVarOverrides([]string{bad})
		assert.Error(t, err, bad)
	}
}

func TestMergeVars_Precedence(t *testing.T) {
	wf := &core.Workflow{Inputs: []core.Input{
		{Name: "a", Default: "default-a"},
		{Name: "b", Default: "default-b"},
		{Name: "c", Default: "default-c"},
	}}

	merged := core.MergeVars(wf,
		core.VarContext{"b": "varfile-b", "c": "varfile-c"},
		core.VarContext{"c": "cli-c", "d": "cli-d"},
	)
	assert.Equal(t, core.VarContext{
		"a": "default-a",
		"b": "varfile-b",
		"c": "cli-c",
		"d": "cli-d",
	}, merged)
}

func TestInterpolate_OverrideKeysOutsideIdentifierSyntax(t *testing.T) {
	overrides, err := core.ParseVarOverrides([]string{"2fa=123456", "first name=Ada"})
	require.NoError(t, err)

	params := core.ResolveParams(types.Params{
		"selector": "input[value='{2fa}']",
		"value":    "{first name}",
	}, core.MergeVars(nil, overrides))

	assert.Equal(t, "input[value='123456']", params.String("selector"))
	assert.Equal(t, "Ada", params.String("value"))
}
