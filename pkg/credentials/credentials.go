// Package credentials stores agent app identifiers and tokens in
// credentials.toml inside the .qfagent/ directory.
package credentials

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/BurntSushi/toml"

	"github.com/papercomputeco/qfagent/pkg/dotdir"
)

const (
	credentialsFile = "credentials.toml"

	currentVersion = 0

	// DefaultApp is the app name used when none is given.
	DefaultApp = "default"

	// EnvAppID and EnvAppToken override whatever is stored on disk.
	EnvAppID    = "QFAGENT_APP_ID"
	EnvAppToken = "QFAGENT_APP_TOKEN"
)

// ErrNoCredentials is returned by Resolve when neither the file nor the
// environment yields a complete app credential.
var ErrNoCredentials = errors.New("no app credentials configured")

// Manager manages reading and writing credentials.toml in the .qfagent/ directory.
type Manager struct {
	ddm        *dotdir.Manager
	targetPath string
}

// NewManager creates a new credentials Manager. If override is non-empty it is
// used as the .qfagent/ directory; otherwise the standard dotdir resolution applies.
func NewManager(override string) (*Manager, error) {
	mgr := &Manager{
		ddm: dotdir.NewManager(),
	}

	target, err := mgr.ddm.Target(override)
	if err != nil {
		return nil, err
	}

	mgr.targetPath = filepath.Join(target, credentialsFile)

	return mgr, nil
}

// Load reads credentials.toml from the target directory.
// Returns an empty Credentials if the file does not exist.
func (m *Manager) Load() (*Credentials, error) {
	data, err := os.ReadFile(m.targetPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Credentials{
				Version: currentVersion,
				Apps:    make(map[string]AppCredential),
			}, nil
		}
		return nil, fmt.Errorf("reading credentials: %w", err)
	}

	creds := &Credentials{}
	if err := toml.Unmarshal(data, creds); err != nil {
		return nil, fmt.Errorf("parsing credentials: %w", err)
	}

	if creds.Apps == nil {
		creds.Apps = make(map[string]AppCredential)
	}

	return creds, nil
}

// Save writes credentials to credentials.toml with 0600 permissions.
func (m *Manager) Save(creds *Credentials) error {
	if creds == nil {
		return errors.New("cannot save nil credentials")
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(creds); err != nil {
		return fmt.Errorf("encoding credentials: %w", err)
	}

	if err := os.WriteFile(m.targetPath, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing credentials: %w", err)
	}

	return nil
}

// SetApp stores the credential for the named app. The first app stored
// becomes the default.
func (m *Manager) SetApp(name string, cred AppCredential) error {
	if name == "" {
		return errors.New("app name must not be empty")
	}
	if !cred.Complete() {
		return errors.New("app_id and app_token must both be set")
	}

	creds, err := m.Load()
	if err != nil {
		return err
	}

	creds.Apps[name] = cred
	if creds.Default == "" {
		creds.Default = name
	}

	return m.Save(creds)
}

// GetApp returns the stored credential for the named app, or the default app
// when name is empty. The boolean is false when nothing is stored.
func (m *Manager) GetApp(name string) (AppCredential, bool, error) {
	creds, err := m.Load()
	if err != nil {
		return AppCredential{}, false, err
	}

	if name == "" {
		name = creds.Default
	}

	cred, ok := creds.Apps[name]
	return cred, ok, nil
}

// RemoveApp deletes the stored credential for an app.
func (m *Manager) RemoveApp(name string) error {
	creds, err := m.Load()
	if err != nil {
		return err
	}

	delete(creds.Apps, name)
	if creds.Default == name {
		creds.Default = ""
	}

	return m.Save(creds)
}

// ListApps returns the sorted names of apps that have stored credentials.
func (m *Manager) ListApps() ([]string, error) {
	creds, err := m.Load()
	if err != nil {
		return nil, err
	}

	apps := make([]string, 0, len(creds.Apps))
	for name := range creds.Apps {
		apps = append(apps, name)
	}

	sort.Strings(apps)

	return apps, nil
}

// Resolve returns the credential to use for name. QFAGENT_APP_ID and
// QFAGENT_APP_TOKEN each replace the stored value when set.
func (m *Manager) Resolve(name string) (AppCredential, error) {
	cred, _, err := m.GetApp(name)
	if err != nil {
		return AppCredential{}, err
	}

	if v := os.Getenv(EnvAppID); v != "" {
		cred.AppID = v
	}
	if v := os.Getenv(EnvAppToken); v != "" {
		cred.AppToken = v
	}

	if !cred.Complete() {
		return AppCredential{}, ErrNoCredentials
	}

	return cred, nil
}

// GetTarget returns the resolved path to the credentials file.
func (m *Manager) GetTarget() string {
	return m.targetPath
}
