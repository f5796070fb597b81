// Package ownedregistry models an "owned registry": a source directory
// that a user edits directly, holding registry.toml, a keys/ directory of
// signing keys, and the source record tree rooted at root_record_path. It
// is grounded on original_source/src/owned/registry.rs's OwnedRegistry,
// with file locking borrowed from
// cuelang.org/go/internal/cueconfig's use of
// github.com/rogpeppe/go-internal/lockedfile to guard registry.toml
// against concurrent writers.
package ownedregistry

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"github.com/rogpeppe/go-internal/lockedfile"

	"github.com/rrrmake/rrrmake/internal/assets"
	"github.com/rrrmake/rrrmake/internal/reglib"
	"github.com/rrrmake/rrrmake/internal/registrycfg"
	"github.com/rrrmake/rrrmake/internal/rrrerrors"
	"github.com/rrrmake/rrrmake/internal/sourcetree"
)

const configFileName = "registry.toml"

// Registry is a loaded (or freshly generated) owned registry: its root
// directory, resolved config, and the signing keys loaded from
// config.SigningKeyPaths, in the same order.
type Registry struct {
	DirectoryPath string
	Config        registrycfg.Config
	SigningKeys   []*reglib.SigningKey

	unlock func()
}

// ConfigPath returns the conventional registry.toml path for a registry
// directory.
func ConfigPath(directoryPath string) string {
	return filepath.Join(directoryPath, configFileName)
}

// Load reads an existing owned registry from directoryPath, holding an
// exclusive advisory lock (on the registry.toml.lock file beside its
// registry.toml) for the lifetime of the returned Registry. Callers must
// call Close when done.
func Load(directoryPath string) (*Registry, error) {
	configPath := ConfigPath(directoryPath)
	unlock, err := lockedfile.MutexAt(configPath + ".lock").Lock()
	if err != nil {
		return nil, fmt.Errorf("ownedregistry: locking %q: %w", configPath, err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		unlock()
		return nil, fmt.Errorf("ownedregistry: reading %q: %w", configPath, err)
	}
	var config registrycfg.Config
	if err := toml.Unmarshal(data, &config); err != nil {
		unlock()
		return nil, fmt.Errorf("ownedregistry: decoding %q: %w", configPath, err)
	}

	signingKeys, err := loadSigningKeys(directoryPath, config.SigningKeyPaths)
	if err != nil {
		unlock()
		return nil, err
	}

	return &Registry{
		DirectoryPath: directoryPath,
		Config:        config,
		SigningKeys:   signingKeys,
		unlock:        unlock,
	}, nil
}

func loadSigningKeys(directoryPath string, relativePaths []string) ([]*reglib.SigningKey, error) {
	keys := make([]*reglib.SigningKey, 0, len(relativePaths))
	for _, relativePath := range relativePaths {
		path := filepath.Join(directoryPath, relativePath)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("ownedregistry: reading signing key %q: %w", path, err)
		}
		key, err := reglib.LoadSigningKeyPKCS8PEM(data)
		if err != nil {
			return nil, fmt.Errorf("ownedregistry: decoding signing key %q: %w", path, err)
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// Close releases the lock guarding the registry's registry.toml.
func (r *Registry) Close() error {
	if r.unlock != nil {
		r.unlock()
		r.unlock = nil
	}
	return nil
}

// SaveConfig writes r.Config back to registry.toml.
func (r *Registry) SaveConfig() error {
	data, err := toml.Marshal(r.Config)
	if err != nil {
		return fmt.Errorf("ownedregistry: encoding %q: %w", ConfigPath(r.DirectoryPath), err)
	}
	if err := os.WriteFile(ConfigPath(r.DirectoryPath), data, 0o666); err != nil {
		return fmt.Errorf("ownedregistry: writing %q: %w", ConfigPath(r.DirectoryPath), err)
	}
	return nil
}

// StagingDirectoryPath, RevisionsDirectoryPath, PublishedDirectoryPath and
// RootRecordPath resolve r.Config's relative paths against the registry's
// own directory.
func (r *Registry) StagingDirectoryPath() string {
	return filepath.Join(r.DirectoryPath, r.Config.StagingDirectoryPath)
}

func (r *Registry) RevisionsDirectoryPath() string {
	return filepath.Join(r.DirectoryPath, r.Config.RevisionsDirectoryPath)
}

func (r *Registry) PublishedDirectoryPath() string {
	return filepath.Join(r.DirectoryPath, r.Config.PublishedDirectoryPath)
}

func (r *Registry) RootRecordPath() string {
	return filepath.Join(r.DirectoryPath, r.Config.RootRecordPath)
}

// LoadRootRecord loads the registry's root source record and, recursively,
// every successive record beneath it.
func (r *Registry) LoadRootRecord() (sourcetree.Record, error) {
	return sourcetree.LoadFromDirectory(r.RootRecordPath(), r.Config.DefaultRecordParameters)
}

// Generate creates a new owned registry at directoryPath: it extracts the
// embedded source directory template, generates a signing key, and writes
// out a registry.toml with the standard defaults, per
// original_source/src/owned/registry.rs's generate().
func Generate(directoryPath string, overwrite bool) (*Registry, error) {
	info, err := os.Stat(directoryPath)
	switch {
	case err == nil:
		if !info.IsDir() {
			return nil, fmt.Errorf("ownedregistry: %q is not a directory", directoryPath)
		}
		if !overwrite {
			entries, err := os.ReadDir(directoryPath)
			if err != nil {
				return nil, fmt.Errorf("ownedregistry: reading %q: %w", directoryPath, err)
			}
			if len(entries) > 0 {
				return nil, &rrrerrors.RegistryAlreadyExistsError{Path: directoryPath}
			}
		}
	case errors.Is(err, os.ErrNotExist):
		if err := os.MkdirAll(directoryPath, 0o777); err != nil {
			return nil, fmt.Errorf("ownedregistry: creating %q: %w", directoryPath, err)
		}
	default:
		return nil, fmt.Errorf("ownedregistry: stat %q: %w", directoryPath, err)
	}

	configPath := ConfigPath(directoryPath)
	unlock, err := lockedfile.MutexAt(configPath + ".lock").Lock()
	if err != nil {
		return nil, fmt.Errorf("ownedregistry: locking %q: %w", configPath, err)
	}

	if err := assets.ExtractSourceDirectoryTemplate(directoryPath); err != nil {
		unlock()
		return nil, fmt.Errorf("ownedregistry: extracting template: %w", err)
	}

	keysDir := filepath.Join(directoryPath, registrycfg.SigningKeysDirectory)
	if err := os.MkdirAll(keysDir, 0o777); err != nil {
		unlock()
		return nil, fmt.Errorf("ownedregistry: creating %q: %w", keysDir, err)
	}

	signingKey, err := reglib.GenerateSigningKey()
	if err != nil {
		unlock()
		return nil, err
	}
	pemBytes, err := signingKey.MarshalPKCS8PEM()
	if err != nil {
		unlock()
		return nil, err
	}
	keyRelativePath := filepath.Join(registrycfg.SigningKeysDirectory, signingKey.FileName())
	keyAbsolutePath := filepath.Join(directoryPath, keyRelativePath)
	keyFileFlags := os.O_WRONLY | os.O_CREATE | os.O_EXCL
	if overwrite {
		keyFileFlags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}
	keyFile, err := os.OpenFile(keyAbsolutePath, keyFileFlags, 0o600)
	if err != nil {
		unlock()
		return nil, fmt.Errorf("ownedregistry: creating %q: %w", keyAbsolutePath, err)
	}
	if _, err := keyFile.Write(pemBytes); err != nil {
		keyFile.Close()
		unlock()
		return nil, fmt.Errorf("ownedregistry: writing %q: %w", keyAbsolutePath, err)
	}
	if err := keyFile.Close(); err != nil {
		unlock()
		return nil, fmt.Errorf("ownedregistry: closing %q: %w", keyAbsolutePath, err)
	}

	rootPredecessorNonce, err := reglib.RandomNonce(32)
	if err != nil {
		unlock()
		return nil, err
	}
	hashSalt, err := reglib.RandomNonce(16)
	if err != nil {
		unlock()
		return nil, err
	}

	config := registrycfg.New(rootPredecessorNonce, hashSalt)
	config.SigningKeyPaths = []string{keyRelativePath}

	registry := &Registry{
		DirectoryPath: directoryPath,
		Config:        config,
		SigningKeys:   []*reglib.SigningKey{signingKey},
		unlock:        unlock,
	}
	if err := registry.SaveConfig(); err != nil {
		unlock()
		return nil, err
	}
	return registry, nil
}

// AsRegistryLibraryConfig converts r's config into the shape
// internal/reglib needs to create or open a target registry, per
// original_source/src/owned/registry.rs's "impl From<&OwnedRegistry<L>> for
// RegistryConfig".
func (r *Registry) AsRegistryLibraryConfig() reglib.RegistryConfig {
	verifyingKeys := make([]ed25519.PublicKey, len(r.SigningKeys))
	for i, key := range r.SigningKeys {
		verifyingKeys[i] = key.Public()
	}
	return reglib.RegistryConfig{
		Hash:          r.Config.Hash,
		KDF:           r.Config.KDF,
		VerifyingKeys: verifyingKeys,
	}
}
