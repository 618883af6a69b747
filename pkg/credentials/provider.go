// Package credentials loads the portal login used by login steps.
package credentials

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// EnvFile names the environment variable that overrides the default
// credentials file location.
const EnvFile = "PORTALSTEP_CREDENTIALS_FILE"

// Credentials is a decoded login.
type Credentials struct {
	Email    string
	Password string
}

// Provider hands out the run's credentials.
type Provider interface {
	Credentials() (Credentials, error)
}

// DefaultPath resolves the credentials file: EnvFile if set, otherwise
// ~/.portalstep/credentials.json.
func DefaultPath() string {
	if p := os.Getenv(EnvFile); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".portalstep", "credentials.json")
	}
	return filepath.Join(home, ".portalstep", "credentials.json")
}

// storedBundle is the on-disk format. The password is base64 encoded.
// JSON files are read through the YAML decoder.
type storedBundle struct {
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

// FileProvider reads and decodes a credentials file the first time it is
// asked, then serves the cached result (or error) for the rest of the run.
type FileProvider struct {
	Path string
	// OnLoad is called once with the decoded credentials, e.g. to register
	// the password with a redactor.
	OnLoad func(Credentials)

	once  sync.Once
	creds Credentials
	err   error
}

func NewFileProvider(path string) *FileProvider {
	return &FileProvider{Path: path}
}

func (p *FileProvider) Credentials() (Credentials, error) {
	p.once.Do(func() {
		p.creds, p.err = readFile(p.Path)
		if p.err == nil && p.OnLoad != nil {
			p.OnLoad(p.creds)
		}
	})
	return p.creds, p.err
}

func readFile(path string) (Credentials, error) {
	if path == "" {
		return Credentials{}, errors.New("no credentials file configured")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Credentials{}, fmt.Errorf("reading credentials file %q: %w", path, err)
	}

	var bundle storedBundle
	if err := yaml.Unmarshal(data, &bundle); err != nil {
		return Credentials{}, fmt.Errorf("parsing credentials file %q: %w", path, err)
	}
	if strings.TrimSpace(bundle.Email) == "" {
		return Credentials{}, fmt.Errorf("credentials file %q is missing 'email'", path)
	}
	if bundle.Password == "" {
		return Credentials{}, fmt.Errorf("credentials file %q is missing 'password'", path)
	}

	password, err := base64.StdEncoding.DecodeString(strings.TrimSpace(bundle.Password))
	if err != nil {
		return Credentials{}, fmt.Errorf("decoding password in credentials file %q: %w", path, err)
	}
	return Credentials{Email: strings.TrimSpace(bundle.Email), Password: string(password)}, nil
}

// Static serves fixed credentials.
type Static Credentials

func (s Static) Credentials() (Credentials, error) {
	return Credentials(s), nil
}
