package reglib

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

func hexEncode(b []byte) string { return hex.EncodeToString(b) }

func encodeBase64(b []byte) string { return base64.StdEncoding.EncodeToString(b) }

func decodeBase64(s string) ([]byte, error) { return base64.StdEncoding.DecodeString(s) }

// Metadata is a record's metadata, resolved (spec.md §3 Record Metadata).
type Metadata struct {
	CreatedAt *time.Time
}

// Record is the output record the compiler constructs for one source
// record: metadata plus the concatenated data payload.
type Record struct {
	Metadata Metadata
	Data     []byte
}

// Equal reports structural equality, the comparison the emitter uses to
// decide whether a new version needs to be written (spec.md §4.4 step 5).
func (r Record) Equal(other Record) bool {
	if !bytesEqual(r.Data, other.Data) {
		return false
	}
	switch {
	case r.Metadata.CreatedAt == nil && other.Metadata.CreatedAt == nil:
		return true
	case r.Metadata.CreatedAt == nil || other.Metadata.CreatedAt == nil:
		return false
	default:
		return r.Metadata.CreatedAt.Equal(*other.Metadata.CreatedAt)
	}
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// StoredVersion is one version of a record as held by a target Registry.
type StoredVersion struct {
	Version uint64
	Nonce   Nonce
	Record  Record
}

// RegistryConfig is the subset of a registry's configuration the registry
// library needs in order to create and address a target registry: its
// hash/KDF parameters (for callers to derive keys and nonces) and the
// verifying keys new record signatures must check against.
type RegistryConfig struct {
	Hash          HashParams
	KDF           KDFParams
	VerifyingKeys []ed25519.PublicKey
}

// Registry is the in-flight *target* registry the emitter writes into. It
// is the concrete stand-in for "the registry library's Registry" that
// spec.md §4.4 calls out as an external collaborator: on-disk state keyed
// by hashed key, one append-only version list per key.
//
// Storage layout (on disk, under directoryPath):
//
//	records/<hex hashed key>/v<N>.json
//
// Each version file holds the signed, (optionally) encrypted record body
// plus its nonce, so that a concurrently-killed build leaves at most one
// partially-written trailing file behind (spec.md §5 Cancellation): writes
// go to a temp file and are renamed into place atomically.
type Registry struct {
	directoryPath string
	config        RegistryConfig
	logger        *zap.Logger

	mu    sync.Mutex
	cache map[string][]StoredVersion
}

type storedVersionFile struct {
	Version   uint64 `json:"version"`
	Nonce     string `json:"nonce"`
	Signature string `json:"signature"`
	CreatedAt *int64 `json:"created_at,omitempty"`
	Data      string `json:"data"`
	Encrypted bool   `json:"encrypted"`
	// Algorithm is set whenever Encrypted is true, so that readVersion can
	// reconstruct the SegmentEncryption Decrypt needs without consulting
	// the record's current config (which may have changed since this
	// version was written).
	Algorithm EncryptionAlgorithm `json:"algorithm,omitempty"`
}

// CreateRegistry creates a fresh target registry at directoryPath. If
// overwrite is false the directory must not already contain a records/
// subdirectory.
func CreateRegistry(directoryPath string, config RegistryConfig, overwrite bool, logger *zap.Logger) (*Registry, error) {
	recordsDir := filepath.Join(directoryPath, "records")
	if !overwrite {
		if _, err := os.Stat(recordsDir); err == nil {
			return nil, fmt.Errorf("reglib: target registry already has records at %q", recordsDir)
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("reglib: stat %q: %w", recordsDir, err)
		}
	}
	if err := os.MkdirAll(recordsDir, 0o777); err != nil {
		return nil, fmt.Errorf("reglib: creating target registry directory: %w", err)
	}
	return &Registry{
		directoryPath: directoryPath,
		config:        config,
		logger:        logger,
		cache:         make(map[string][]StoredVersion),
	}, nil
}

func (r *Registry) keyDir(hashedKey HashedKey) string {
	return filepath.Join(r.directoryPath, "records", hashedKey.String())
}

// ListVersions lists existing versions of hashedKey, most recent last,
// bounded by maxVersionLookahead (how far past the last known version to
// probe for concurrently-appended versions) and
// maxCollisionResolutionAttempts (how many distinct nonces to try when two
// records share a version-and-nonce slot). This stand-in implementation
// has no concurrent writers and no hash collisions to resolve, so both
// bounds are accepted and ignored: every on-disk version file of the key
// is read.
func (r *Registry) ListVersions(ctx context.Context, hashedKey HashedKey, maxVersionLookahead, maxCollisionResolutionAttempts int) ([]StoredVersion, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if cached, ok := r.cache[hashedKey.String()]; ok {
		return cached, nil
	}

	dir := r.keyDir(hashedKey)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reglib: listing versions at %q: %w", dir, err)
	}

	var versions []StoredVersion
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		var version uint64
		if _, err := fmt.Sscanf(entry.Name(), "v%d.json", &version); err != nil {
			continue
		}
		stored, err := r.readVersion(dir, entry.Name(), hashedKey)
		if err != nil {
			return nil, err
		}
		versions = append(versions, stored)
	}
	sort.Slice(versions, func(i, j int) bool { return versions[i].Version < versions[j].Version })
	r.cache[hashedKey.String()] = versions
	return versions, nil
}

func (r *Registry) readVersion(dir, name string, hashedKey HashedKey) (StoredVersion, error) {
	path := filepath.Join(dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		return StoredVersion{}, fmt.Errorf("reglib: reading %q: %w", path, err)
	}
	var file storedVersionFile
	if err := json.Unmarshal(data, &file); err != nil {
		return StoredVersion{}, fmt.Errorf("reglib: decoding %q: %w", path, err)
	}
	var nonce Nonce
	if err := nonce.UnmarshalText([]byte(file.Nonce)); err != nil {
		return StoredVersion{}, fmt.Errorf("reglib: decoding nonce in %q: %w", path, err)
	}
	payload, err := decodeBase64(file.Data)
	if err != nil {
		return StoredVersion{}, fmt.Errorf("reglib: decoding payload in %q: %w", path, err)
	}
	var enc *SegmentEncryption
	if file.Encrypted {
		enc = &SegmentEncryption{Algorithm: file.Algorithm}
	}
	plaintext, err := Decrypt(hashedKey, payload, enc)
	if err != nil {
		return StoredVersion{}, fmt.Errorf("reglib: decrypting %q: %w", path, err)
	}
	record := Record{Data: plaintext}
	if file.CreatedAt != nil {
		t := time.Unix(*file.CreatedAt, 0).UTC()
		record.Metadata.CreatedAt = &t
	}
	return StoredVersion{Version: file.Version, Nonce: nonce, Record: record}, nil
}

// SaveRecord signs and stores record as the given version of hashedKey,
// encrypting its data with enc if non-nil, and returns the fresh nonce the
// version was stored under. Atomicity of the write (spec.md §5) is
// provided by a temp-file-then-rename sequence.
func (r *Registry) SaveRecord(
	ctx context.Context,
	signingKeys []*SigningKey,
	hashedKey HashedKey,
	record Record,
	version uint64,
	enc *SegmentEncryption,
) (Nonce, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	if len(signingKeys) == 0 {
		return nil, fmt.Errorf("reglib: no signing keys available")
	}

	nonce, err := RandomNonce(16)
	if err != nil {
		return nil, err
	}

	payload, err := Encrypt(hashedKey, record.Data, enc)
	if err != nil {
		return nil, fmt.Errorf("reglib: encrypting record: %w", err)
	}
	signature, err := signingKeys[0].Sign(payload)
	if err != nil {
		return nil, fmt.Errorf("reglib: signing record: %w", err)
	}

	file := storedVersionFile{
		Version:   version,
		Nonce:     hexEncode(nonce),
		Signature: hexEncode(signature),
		Data:      encodeBase64(payload),
		Encrypted: enc != nil,
	}
	if enc != nil {
		file.Algorithm = enc.Algorithm
	}
	if record.Metadata.CreatedAt != nil {
		unix := record.Metadata.CreatedAt.Unix()
		file.CreatedAt = &unix
	}

	dir := r.keyDir(hashedKey)
	if err := os.MkdirAll(dir, 0o777); err != nil {
		return nil, fmt.Errorf("reglib: creating %q: %w", dir, err)
	}
	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("reglib: encoding version: %w", err)
	}
	finalPath := filepath.Join(dir, fmt.Sprintf("v%d.json", version))
	tmpPath := finalPath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o666); err != nil {
		return nil, fmt.Errorf("reglib: writing %q: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return nil, fmt.Errorf("reglib: renaming %q to %q: %w", tmpPath, finalPath, err)
	}

	r.mu.Lock()
	r.cache[hashedKey.String()] = append(r.cache[hashedKey.String()], StoredVersion{
		Version: version, Nonce: nonce, Record: record,
	})
	r.mu.Unlock()

	if r.logger != nil {
		r.logger.Debug("saved record version",
			zap.String("hashed_key", hashedKey.String()),
			zap.Uint64("version", version),
		)
	}
	return nonce, nil
}
