package security

import (
	"sort"
	"strings"
	"sync"

	"github.com/arnavsurve/portalstep/pkg/core"
)

const mask = "********"

// Redactor masks known secret values. Secrets can be added while the run is
// in flight (the login password is only known once a login step loads it).
type Redactor struct {
	mu      sync.RWMutex
	secrets []string
}

// NewRedactor collects the values of secret workflow inputs.
func NewRedactor(inputs []core.Input, varCtx core.VarContext) *Redactor {
	r := &Redactor{}
	for _, input := range inputs {
		if input.Secret {
			if val, ok := varCtx[input.Name]; ok {
				r.Add(val)
			}
		}
	}
	return r
}

// Add registers another secret. Empty and duplicate values are ignored.
func (r *Redactor) Add(secret string) {
	if secret == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.secrets {
		if s == secret {
			return
		}
	}
	r.secrets = append(r.secrets, secret)
	// Longest first so a secret is masked before any secret it contains.
	sort.SliceStable(r.secrets, func(i, j int) bool {
		return len(r.secrets[i]) > len(r.secrets[j])
	})
}

// Secrets returns the registered secrets, longest first.
func (r *Redactor) Secrets() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.secrets...)
}

func (r *Redactor) Redact(s string) string {
	if r == nil {
		return s
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, secret := range r.secrets {
		s = strings.ReplaceAll(s, secret, mask)
	}
	return s
}
