// Package registrycfg models a registry's own configuration
// (registry.toml), per spec.md §3's "Registry Config": the hash and KDF
// parameters every record in the registry is keyed under, the record
// parameter defaults every record inherits from, and the paths a build
// reads from and writes to. It is grounded on
// original_source/src/owned/registry.rs's OwnedRegistryConfig.
package registrycfg

import (
	"github.com/rrrmake/rrrmake/internal/recordcfg"
	"github.com/rrrmake/rrrmake/internal/reglib"
)

// Config is a registry's on-disk configuration, read from and written to
// registry.toml at the registry's root.
type Config struct {
	Hash                           reglib.HashParams                   `toml:"hash"`
	KDF                            reglib.KDFParams                    `toml:"kdf"`
	DefaultRecordParameters        recordcfg.RecordParametersUnresolved `toml:"default_record_parameters"`
	RootRecordPath                 string                               `toml:"root_record_path"`
	StagingDirectoryPath           string                               `toml:"staging_directory_path"`
	RevisionsDirectoryPath         string                               `toml:"revisions_directory_path"`
	PublishedDirectoryPath         string                               `toml:"published_directory_path"`
	SigningKeyPaths                []string                            `toml:"signing_key_paths"`
	MaxVersionLookahead            int                                  `toml:"max_version_lookahead"`
	MaxCollisionResolutionAttempts int                                  `toml:"max_collision_resolution_attempts"`
}

// RootRecordKey returns a record key with an empty name and the registry's
// root predecessor nonce. The emitter does not key the root record with
// it: it uses the root record's own configured name together with this
// same nonce.
func (c Config) RootRecordKey() reglib.RecordKey {
	return reglib.RecordKey{
		RecordName:       nil,
		PredecessorNonce: c.KDF.RootPredecessorNonce,
	}
}

// Default parameter values a freshly generated registry is configured
// with, mirroring generate()'s literal defaults in
// original_source/src/owned/registry.rs.
const (
	DefaultRootRecordPath                = "root"
	DefaultStagingDirectoryPath           = "target/staging"
	DefaultRevisionsDirectoryPath         = "target/revisions"
	DefaultPublishedDirectoryPath         = "target/published"
	DefaultMaxVersionLookahead            = 8
	DefaultMaxCollisionResolutionAttempts = 8
	SigningKeysDirectory                  = "keys"
)

// New builds the Config a freshly generated registry is configured with,
// given a root predecessor nonce and hash salt that have already been
// randomly generated (generation needs the raw reglib.SigningKey to write
// its PEM file alongside the config, so Generate in
// internal/ownedregistry constructs the SigningKeyPaths field itself).
func New(rootPredecessorNonce reglib.Nonce, hashSalt []byte) Config {
	return Config{
		Hash: reglib.HashParams{
			Algorithm: reglib.HashAlgorithmArgon2,
			Argon2:    reglib.DefaultArgon2Params(hashSalt),
		},
		KDF: reglib.KDFParams{
			Algorithm:            reglib.KDFAlgorithmHKDF,
			HKDF:                 reglib.DefaultHKDFParams(),
			RootPredecessorNonce: rootPredecessorNonce,
		},
		DefaultRecordParameters: recordcfg.DefaultRecordParametersUnresolved(),
		RootRecordPath:          DefaultRootRecordPath,
		StagingDirectoryPath:    DefaultStagingDirectoryPath,
		RevisionsDirectoryPath:  DefaultRevisionsDirectoryPath,
		PublishedDirectoryPath:  DefaultPublishedDirectoryPath,
		MaxVersionLookahead:            DefaultMaxVersionLookahead,
		MaxCollisionResolutionAttempts: DefaultMaxCollisionResolutionAttempts,
	}
}
