// Package config manages the named-account configuration file and resolves
// the credentials a workspace starts from. Resolution order: explicit
// credentials, then the MP_* environment quad, then the named or default
// account from the config file.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/catherinevee/mixport/internal/credentials"
	mperrors "github.com/catherinevee/mixport/internal/errors"
)

// Environment variables read at workspace construction. When all four are
// present they override any configured account.
const (
	EnvUsername  = "MP_USERNAME"
	EnvSecret    = "MP_SECRET"
	EnvProjectID = "MP_PROJECT_ID"
	EnvRegion    = "MP_REGION"
)

// Account is one named entry in the configuration file.
type Account struct {
	Name      string `yaml:"name" validate:"required"`
	Username  string `yaml:"username" validate:"required"`
	Secret    string `yaml:"secret" validate:"required"`
	ProjectID string `yaml:"project_id" validate:"required"`
	Region    string `yaml:"region" validate:"omitempty,oneof=us eu in US EU IN"`
	Default   bool   `yaml:"default,omitempty"`
}

// File is the on-disk configuration document.
type File struct {
	Accounts []Account `yaml:"accounts"`
}

// DefaultPath returns the standard config file location,
// ~/.mixport/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".mixport", "config.yaml"), nil
}

// Load reads the configuration file at path. A missing file yields an empty
// document, not an error.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &File{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, mperrors.Wrap(mperrors.KindConfig, "parse config", err)
	}
	v := validator.New()
	for i := range f.Accounts {
		if err := v.Struct(&f.Accounts[i]); err != nil {
			return nil, mperrors.Newf(mperrors.KindConfig,
				"invalid account %q: %v", f.Accounts[i].Name, err)
		}
	}
	return &f, nil
}

// Save writes the configuration file with owner-only permissions. The
// containing directory is created as needed.
func Save(path string, f *File) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Account returns the named account, or nil when absent.
func (f *File) Account(name string) *Account {
	for i := range f.Accounts {
		if f.Accounts[i].Name == name {
			return &f.Accounts[i]
		}
	}
	return nil
}

// DefaultAccount returns the account flagged default, else the sole account,
// else nil.
func (f *File) DefaultAccount() *Account {
	for i := range f.Accounts {
		if f.Accounts[i].Default {
			return &f.Accounts[i]
		}
	}
	if len(f.Accounts) == 1 {
		return &f.Accounts[0]
	}
	return nil
}

// Upsert adds or replaces an account by name.
func (f *File) Upsert(a Account) {
	for i := range f.Accounts {
		if f.Accounts[i].Name == a.Name {
			f.Accounts[i] = a
			return
		}
	}
	f.Accounts = append(f.Accounts, a)
}

// Remove deletes an account by name. It reports whether the account existed.
func (f *File) Remove(name string) bool {
	for i := range f.Accounts {
		if f.Accounts[i].Name == name {
			f.Accounts = append(f.Accounts[:i], f.Accounts[i+1:]...)
			return true
		}
	}
	return false
}

// SetDefault flags the named account as default, clearing the flag
// elsewhere. It reports whether the account existed.
func (f *File) SetDefault(name string) bool {
	found := false
	for i := range f.Accounts {
		isTarget := f.Accounts[i].Name == name
		f.Accounts[i].Default = isTarget
		found = found || isTarget
	}
	return found
}

// credentialsFromAccount builds a validated bundle from a config account.
func credentialsFromAccount(a *Account) (credentials.Credentials, error) {
	region, err := credentials.ParseRegion(a.Region)
	if err != nil {
		return credentials.Credentials{}, mperrors.Newf(mperrors.KindConfig,
			"account %q: %v", a.Name, err)
	}
	return credentials.New(a.Username, a.Secret, a.ProjectID, region)
}

// EnvCredentials builds a bundle from the MP_* environment quad. It returns
// false when any of the four variables is unset.
func EnvCredentials() (credentials.Credentials, bool, error) {
	username := os.Getenv(EnvUsername)
	secret := os.Getenv(EnvSecret)
	projectID := os.Getenv(EnvProjectID)
	regionName := os.Getenv(EnvRegion)
	if username == "" || secret == "" || projectID == "" || regionName == "" {
		return credentials.Credentials{}, false, nil
	}
	region, err := credentials.ParseRegion(regionName)
	if err != nil {
		return credentials.Credentials{}, false,
			mperrors.Newf(mperrors.KindConfig, "%s: %v", EnvRegion, err)
	}
	creds, err := credentials.New(username, secret, projectID, region)
	if err != nil {
		return credentials.Credentials{}, false, err
	}
	return creds, true, nil
}

// Resolve produces the credentials for a workspace. The environment quad
// wins over the config file; account selects a named entry, otherwise the
// default account applies. configPath "" means DefaultPath.
func Resolve(account, configPath string) (credentials.Credentials, error) {
	if creds, ok, err := EnvCredentials(); err != nil {
		return credentials.Credentials{}, err
	} else if ok {
		return creds, nil
	}

	if configPath == "" {
		var err error
		configPath, err = DefaultPath()
		if err != nil {
			return credentials.Credentials{}, err
		}
	}
	f, err := Load(configPath)
	if err != nil {
		return credentials.Credentials{}, err
	}

	var entry *Account
	if account != "" {
		entry = f.Account(account)
		if entry == nil {
			return credentials.Credentials{}, mperrors.Newf(mperrors.KindConfig,
				"account %q not found in %s", account, configPath)
		}
	} else {
		entry = f.DefaultAccount()
		if entry == nil {
			return credentials.Credentials{}, mperrors.New(mperrors.KindConfig,
				"no credentials: set MP_USERNAME/MP_SECRET/MP_PROJECT_ID/MP_REGION or configure an account")
		}
	}
	return credentialsFromAccount(entry)
}
