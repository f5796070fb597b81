package reglib

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/hkdf"
)

// RecordName is a record's name, a raw byte sequence per spec.md §3 (in
// practice the UTF-8 bytes of a directory's final path component, or an
// explicit name field in record.toml).
type RecordName []byte

// Nonce is a predecessor or succession nonce (see spec.md GLOSSARY). It
// round-trips through TOML as a hex string.
type Nonce []byte

func (n Nonce) MarshalText() ([]byte, error) {
	return []byte(hex.EncodeToString(n)), nil
}

func (n *Nonce) UnmarshalText(text []byte) error {
	decoded, err := hex.DecodeString(string(text))
	if err != nil {
		return fmt.Errorf("reglib: invalid nonce hex: %w", err)
	}
	*n = decoded
	return nil
}

// HashedKey is the deterministic hash of a RecordKey under a registry's
// hash parameters: the address under which a record's versions live.
type HashedKey []byte

func (k HashedKey) String() string {
	return hex.EncodeToString(k)
}

// RecordKey identifies a record within a predecessor chain: its name and
// the predecessor nonce inherited from its parent (or the registry's root
// predecessor nonce, for the root record itself).
type RecordKey struct {
	RecordName       RecordName
	PredecessorNonce Nonce
}

// HashKey computes hashed_key = hash(key, registry.hash_params), per
// spec.md §3. The Argon2 key-derivation function doubles as the hash here,
// the same way the original Rust implementation treats a password-hash
// algorithm as the registry's key-hashing primitive.
func HashKey(key RecordKey, params HashParams) (HashedKey, error) {
	if params.Algorithm != HashAlgorithmArgon2 {
		return nil, fmt.Errorf("reglib: unsupported hash algorithm %q", params.Algorithm)
	}
	input := encodeRecordKey(key)
	out := argon2.IDKey(
		input,
		params.Argon2.Salt,
		params.Argon2.TimeCost,
		params.Argon2.MemoryKiB,
		params.Argon2.Parallelism,
		params.Argon2.KeyLength,
	)
	return HashedKey(out), nil
}

// DeriveSuccessionNonce derives succession_nonce_of(this) =
// derive_succession_nonce(hashed_key, registry.kdf_params), per spec.md §3.
func DeriveSuccessionNonce(hashedKey HashedKey, params KDFParams) (Nonce, error) {
	if params.Algorithm != KDFAlgorithmHKDF {
		return nil, fmt.Errorf("reglib: unsupported KDF algorithm %q", params.Algorithm)
	}
	reader := hkdf.New(newHashFunc(params.HKDF.Hash), hashedKey, nil, []byte(params.HKDF.Info))
	out := make([]byte, params.HKDF.OutputLength)
	if _, err := io.ReadFull(reader, out); err != nil {
		return nil, fmt.Errorf("reglib: hkdf expand: %w", err)
	}
	return Nonce(out), nil
}

// RandomNonce generates a fresh, unguessable nonce of the given length,
// used to seed a freshly generated registry's root predecessor nonce.
func RandomNonce(length int) (Nonce, error) {
	out := make([]byte, length)
	if _, err := rand.Read(out); err != nil {
		return nil, fmt.Errorf("reglib: generating random nonce: %w", err)
	}
	return Nonce(out), nil
}

// encodeRecordKey produces a canonical byte encoding of a RecordKey,
// length-prefixing both fields so that no combination of name/nonce bytes
// can collide across the boundary between them.
func encodeRecordKey(key RecordKey) []byte {
	buf := make([]byte, 0, 8+len(key.RecordName)+len(key.PredecessorNonce))
	buf = appendUint64(buf, uint64(len(key.RecordName)))
	buf = append(buf, key.RecordName...)
	buf = appendUint64(buf, uint64(len(key.PredecessorNonce)))
	buf = append(buf, key.PredecessorNonce...)
	return buf
}

func appendUint64(buf []byte, v uint64) []byte {
	var tmp [8]byte
	for i := 0; i < 8; i++ {
		tmp[i] = byte(v >> (8 * i))
	}
	return append(buf, tmp[:]...)
}
