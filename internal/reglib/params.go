// Package reglib stands in for the "external registry library" that
// spec.md §1 and §6 treat as a collaborator outside this repository's
// scope: segment layout, encryption, key derivation, hashing, signing, and
// collision resolution. The compiler above this package (internal/emitter,
// internal/ownedregistry) is implemented strictly against the interface
// spec.md §3/§4.4 describe; this package supplies one concrete
// implementation of that interface — using crypto/ed25519, golang.org/x/crypto's
// argon2 and hkdf, and crypto/aes — so the repository builds and runs
// end to end. See DESIGN.md for why this package exists at all.
package reglib

// HashAlgorithm names the key-hashing scheme.
type HashAlgorithm string

// HashAlgorithmArgon2 is the only supported algorithm, and the one a
// freshly generated registry is configured with.
const HashAlgorithmArgon2 HashAlgorithm = "argon2"

// Argon2Params holds the Argon2id tuning parameters.
type Argon2Params struct {
	TimeCost    uint32 `toml:"time_cost"`
	MemoryKiB   uint32 `toml:"memory_kib"`
	Parallelism uint8  `toml:"parallelism"`
	KeyLength   uint32 `toml:"key_length"`
	// Salt is fixed per registry so that hashing a given (record_name,
	// predecessor_nonce) pair is deterministic across runs, as §8's
	// "identity determinism" property requires.
	Salt []byte `toml:"salt"`
}

// DefaultArgon2Params returns the parameters a freshly generated registry
// is configured with, using the given salt (Generate passes a random one).
func DefaultArgon2Params(salt []byte) Argon2Params {
	return Argon2Params{
		TimeCost:    1,
		MemoryKiB:   64 * 1024,
		Parallelism: 4,
		KeyLength:   32,
		Salt:        salt,
	}
}

// HashParams is the registry-wide key-hashing configuration.
type HashParams struct {
	Algorithm HashAlgorithm `toml:"algorithm"`
	Argon2    Argon2Params  `toml:"argon2"`
}

// KDFAlgorithm names the key-derivation scheme used to derive a child's
// succession nonce from its parent's hashed key.
type KDFAlgorithm string

// KDFAlgorithmHKDF is the only supported algorithm.
const KDFAlgorithmHKDF KDFAlgorithm = "hkdf"

// HKDFParams holds HKDF tuning parameters.
type HKDFParams struct {
	Hash string `toml:"hash"` // "sha256"
	Info string `toml:"info"`
	// OutputLength is the length, in bytes, of a derived succession nonce.
	OutputLength uint32 `toml:"output_length"`
}

// DefaultHKDFParams returns the parameters a freshly generated registry is
// configured with.
func DefaultHKDFParams() HKDFParams {
	return HKDFParams{
		Hash:         "sha256",
		Info:         "rrrmake-succession-nonce",
		OutputLength: 32,
	}
}

// KDFParams is the registry-wide key-derivation configuration, including
// the root record's predecessor nonce.
type KDFParams struct {
	Algorithm            KDFAlgorithm `toml:"algorithm"`
	HKDF                 HKDFParams   `toml:"hkdf"`
	RootPredecessorNonce Nonce        `toml:"root_predecessor_nonce"`
}
