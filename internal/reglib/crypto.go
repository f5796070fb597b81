package reglib

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"hash"
)

func newHashFunc(name string) func() hash.Hash {
	switch name {
	case "sha256", "":
		return sha256.New
	default:
		// The registry library only ships sha256 today; an unrecognised
		// name falls back to it rather than panicking, since hash params
		// come from a trusted, self-generated registry.toml.
		return sha256.New
	}
}

// SigningAlgorithm names a record-signing scheme.
type SigningAlgorithm string

// SigningAlgorithmEd25519 is the only supported algorithm.
const SigningAlgorithmEd25519 SigningAlgorithm = "ed25519"

// SigningKey is a loaded (or freshly generated) signing key, private half
// included: Owned Registries hold the private keys needed to sign new
// record versions.
type SigningKey struct {
	Algorithm SigningAlgorithm
	Private   ed25519.PrivateKey
}

// Public returns the verifying (public) half of the key.
func (k *SigningKey) Public() ed25519.PublicKey {
	return k.Private.Public().(ed25519.PublicKey)
}

// FileName returns the conventional on-disk file name for this key, per
// spec.md §4.3 step 4: "keys/key_<algorithm>.pem".
func (k *SigningKey) FileName() string {
	return fmt.Sprintf("key_%s.pem", k.Algorithm)
}

// Sign signs data with the key.
func (k *SigningKey) Sign(data []byte) ([]byte, error) {
	return ed25519.Sign(k.Private, data), nil
}

// GenerateSigningKey generates a fresh Ed25519 signing key.
func GenerateSigningKey() (*SigningKey, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("reglib: generating signing key: %w", err)
	}
	return &SigningKey{Algorithm: SigningAlgorithmEd25519, Private: priv}, nil
}

const pkcs8PEMBlockType = "PRIVATE KEY"

// MarshalPKCS8PEM encodes the key as a PKCS#8 PEM block, per spec.md §4.3
// step 4.
func (k *SigningKey) MarshalPKCS8PEM() ([]byte, error) {
	der, err := x509.MarshalPKCS8PrivateKey(k.Private)
	if err != nil {
		return nil, fmt.Errorf("reglib: marshaling PKCS#8 key: %w", err)
	}
	block := &pem.Block{Type: pkcs8PEMBlockType, Bytes: der}
	return pem.EncodeToMemory(block), nil
}

// LoadSigningKeyPKCS8PEM parses a PKCS#8 PEM-encoded signing key, the
// inverse of MarshalPKCS8PEM.
func LoadSigningKeyPKCS8PEM(data []byte) (*SigningKey, error) {
	block, _ := pem.Decode(data)
	if block == nil || block.Type != pkcs8PEMBlockType {
		return nil, fmt.Errorf("reglib: no PKCS#8 PEM block found")
	}
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("reglib: parsing PKCS#8 key: %w", err)
	}
	priv, ok := key.(ed25519.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("reglib: unsupported private key type %T", key)
	}
	return &SigningKey{Algorithm: SigningAlgorithmEd25519, Private: priv}, nil
}

// EncryptionAlgorithm names an encryption scheme for a record's segments.
type EncryptionAlgorithm string

// EncryptionAlgorithmAES256GCM is the only supported algorithm.
const EncryptionAlgorithmAES256GCM EncryptionAlgorithm = "aes256gcm"

// SegmentEncryption carries a record's resolved encryption choice, derived
// from recordcfg.EncryptionParameters.
type SegmentEncryption struct {
	Algorithm      EncryptionAlgorithm
	PaddingToBytes uint64
}

// Encrypt derives a per-record AEAD key from the hashed key (so that
// decrypting a record never requires storing a separate encryption key
// anywhere), pads the plaintext up to the nearest multiple of
// PaddingToBytes, and seals it with AES-256-GCM.
func Encrypt(hashedKey HashedKey, plaintext []byte, enc *SegmentEncryption) ([]byte, error) {
	if enc == nil {
		return plaintext, nil
	}
	if enc.Algorithm != EncryptionAlgorithmAES256GCM {
		return nil, fmt.Errorf("reglib: unsupported encryption algorithm %q", enc.Algorithm)
	}
	gcm, err := newGCM(hashedKey)
	if err != nil {
		return nil, err
	}
	padded := padTo(plaintext, enc.PaddingToBytes)
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("reglib: generating AEAD nonce: %w", err)
	}
	sealed := gcm.Seal(nonce, nonce, padded, nil)
	return sealed, nil
}

// Decrypt is the inverse of Encrypt: it opens the AES-256-GCM seal and
// strips the length-prefixed padding, returning the original plaintext.
func Decrypt(hashedKey HashedKey, ciphertext []byte, enc *SegmentEncryption) ([]byte, error) {
	if enc == nil {
		return ciphertext, nil
	}
	if enc.Algorithm != EncryptionAlgorithmAES256GCM {
		return nil, fmt.Errorf("reglib: unsupported encryption algorithm %q", enc.Algorithm)
	}
	gcm, err := newGCM(hashedKey)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < gcm.NonceSize() {
		return nil, fmt.Errorf("reglib: ciphertext shorter than nonce")
	}
	nonce, sealed := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	padded, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("reglib: decrypting record: %w", err)
	}
	return unpad(padded), nil
}

func newGCM(hashedKey HashedKey) (cipher.AEAD, error) {
	key := sha256.Sum256(hashedKey) // AES-256 needs a 32-byte key regardless of the hash's key length
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("reglib: constructing AES cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("reglib: constructing GCM mode: %w", err)
	}
	return gcm, nil
}

// padTo prefixes data with its length and pads the result up to the next
// multiple of paddingToBytes (if paddingToBytes is zero, only the length
// prefix is added).
func padTo(data []byte, paddingToBytes uint64) []byte {
	if paddingToBytes == 0 {
		return prependLength(data)
	}
	prefixed := prependLength(data)
	total := uint64(len(prefixed))
	rem := total % paddingToBytes
	if rem == 0 {
		return prefixed
	}
	padding := make([]byte, paddingToBytes-rem)
	return append(prefixed, padding...)
}

func unpad(data []byte) []byte {
	length, rest := readLength(data)
	if int(length) > len(rest) {
		return rest
	}
	return rest[:length]
}

func prependLength(data []byte) []byte {
	out := appendUint64(nil, uint64(len(data)))
	return append(out, data...)
}

func readLength(data []byte) (uint64, []byte) {
	if len(data) < 8 {
		return 0, data
	}
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(data[i]) << (8 * i)
	}
	return v, data[8:]
}
