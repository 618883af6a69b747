package core

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/arnavsurve/portalstep/pkg/types"
	"gopkg.in/yaml.v3"
)

// VarContext holds resolved input variables.
type VarContext map[string]string

// placeholderRe matches {key} placeholders. A key is any run of characters
// other than braces, so "{2fa}" and "{first name}" are placeholders too.
var placeholderRe = regexp.MustCompile(`\{([^{}]+)\}`)

// envRe matches a varfile value that is entirely an {env.NAME} reference.
var envRe = regexp.MustCompile(`^\s*\{\s*env\.([A-Za-z_][A-Za-z0-9_]*)\s*\}\s*$`)

// Interpolate replaces every {key} whose key is in vars with its value.
// Unknown keys are left as written. The result is not scanned
// again, so values containing braces are inserted literally.
func Interpolate(template string, vars map[string]string) string {
	if !strings.Contains(template, "{") {
		return template
	}
	return placeholderRe.ReplaceAllStringFunc(template, func(match string) string {
		key := match[1 : len(match)-1]
		if val, ok := vars[key]; ok {
			return val
		}
		return match
	})
}

// Placeholders lists the keys referenced in template, in order.
func Placeholders(template string) []string {
	var keys []string
	for _, m := range placeholderRe.FindAllStringSubmatch(template, -1) {
		keys = append(keys, m[1])
	}
	return keys
}

// ResolveParams returns a copy of params with every top-level string value
// interpolated. Numbers, booleans, lists and nested step lists are copied
// untouched.
func ResolveParams(params types.Params, vars map[string]string) types.Params {
	if params == nil {
		return nil
	}
	resolved := params.Clone()
	for k, v := range resolved {
		if s, ok := v.(string); ok {
			resolved[k] = Interpolate(s, vars)
		}
	}
	return resolved
}

// ResolveVarfile loads a YAML varfile and resolves {env.NAME} values from the
// environment. Unset variables resolve to "" and are logged when logger is set.
func ResolveVarfile(path string, logger Logger) (VarContext, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading varfile %q: %w", path, err)
	}

	var rawVars map[string]string
	if err := yaml.Unmarshal(data, &rawVars); err != nil {
		return nil, fmt.Errorf("parsing varfile YAML from %q: %w", path, err)
	}

	resolvedCtx := make(VarContext, len(rawVars))
	for key, val := range rawVars {
		match := envRe.FindStringSubmatch(val)
		if match == nil {
			resolvedCtx[key] = val
			continue
		}
		envVal, exists := os.LookupEnv(match[1])
		if !exists && logger != nil {
			logger.Warn().Str("env", match[1]).Str("key", key).Msg("Environment variable not set for varfile key")
		}
		resolvedCtx[key] = envVal
	}
	return resolvedCtx, nil
}

// ParseVarOverrides parses key=value command-line arguments.
func ParseVarOverrides(args []string) (VarContext, error) {
	vars := make(VarContext, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid variable %q, expected key=value", arg)
		}
		vars[key] = value
	}
	return vars, nil
}

// MergeVars layers the variable sources of a run: workflow input defaults,
// then each context in order, later ones winning.
func MergeVars(wf *Workflow, layers ...VarContext) VarContext {
	merged := make(VarContext)
	if wf != nil {
		for _, input := range wf.Inputs {
			if input.Default != "" {
				merged[input.Name] = input.Default
			}
		}
	}
	for _, layer := range layers {
		for k, v := range layer {
			merged[k] = v
		}
	}
	return merged
}
