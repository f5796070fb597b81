package reglib_test

import (
	"context"
	"testing"
	"time"

	"github.com/go-quicktest/qt"

	"github.com/rrrmake/rrrmake/internal/reglib"
)

func TestSaveAndListVersions(t *testing.T) {
	dir := t.TempDir()
	registry, err := reglib.CreateRegistry(dir, reglib.RegistryConfig{}, false, nil)
	qt.Assert(t, qt.IsNil(err))

	key, err := reglib.GenerateSigningKey()
	qt.Assert(t, qt.IsNil(err))

	hashedKey := reglib.HashedKey([]byte("hashed-key-under-test"))
	createdAt := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	record := reglib.Record{
		Metadata: reglib.Metadata{CreatedAt: &createdAt},
		Data:     []byte("hello world"),
	}

	ctx := context.Background()
	_, err = registry.SaveRecord(ctx, []*reglib.SigningKey{key}, hashedKey, record, 0, nil)
	qt.Assert(t, qt.IsNil(err))

	versions, err := registry.ListVersions(ctx, hashedKey, 8, 8)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.HasLen(versions, 1))
	qt.Assert(t, qt.Equals(versions[0].Version, uint64(0)))
	qt.Assert(t, qt.DeepEquals(versions[0].Record.Data, record.Data))
	qt.Assert(t, qt.IsTrue(versions[0].Record.Equal(record)))
}

func TestSaveAndListVersionsDecryptsStoredPayload(t *testing.T) {
	dir := t.TempDir()
	registry, err := reglib.CreateRegistry(dir, reglib.RegistryConfig{}, false, nil)
	qt.Assert(t, qt.IsNil(err))

	key, err := reglib.GenerateSigningKey()
	qt.Assert(t, qt.IsNil(err))

	hashedKey := reglib.HashedKey([]byte("encrypted-hashed-key"))
	record := reglib.Record{Data: []byte("plaintext body")}
	enc := &reglib.SegmentEncryption{Algorithm: reglib.EncryptionAlgorithmAES256GCM, PaddingToBytes: 64}

	ctx := context.Background()
	_, err = registry.SaveRecord(ctx, []*reglib.SigningKey{key}, hashedKey, record, 0, enc)
	qt.Assert(t, qt.IsNil(err))

	// A fresh Registry over the same directory has no cached versions, so
	// ListVersions must read and decrypt the stored file.
	reopened, err := reglib.CreateRegistry(dir, reglib.RegistryConfig{}, true, nil)
	qt.Assert(t, qt.IsNil(err))

	versions, err := reopened.ListVersions(ctx, hashedKey, 8, 8)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.HasLen(versions, 1))
	qt.Assert(t, qt.DeepEquals(versions[0].Record.Data, record.Data))
	qt.Assert(t, qt.IsTrue(versions[0].Record.Equal(record)))
}

func TestListVersionsMissingKeyIsEmpty(t *testing.T) {
	dir := t.TempDir()
	registry, err := reglib.CreateRegistry(dir, reglib.RegistryConfig{}, false, nil)
	qt.Assert(t, qt.IsNil(err))

	versions, err := registry.ListVersions(context.Background(), reglib.HashedKey([]byte("missing")), 8, 8)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.HasLen(versions, 0))
}

func TestRecordEqualDetectsDataChange(t *testing.T) {
	a := reglib.Record{Data: []byte("a")}
	b := reglib.Record{Data: []byte("b")}
	qt.Assert(t, qt.IsFalse(a.Equal(b)))
	qt.Assert(t, qt.IsTrue(a.Equal(a)))
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	hashedKey := reglib.HashedKey([]byte("another-hashed-key"))
	enc := &reglib.SegmentEncryption{Algorithm: reglib.EncryptionAlgorithmAES256GCM, PaddingToBytes: 64}
	plaintext := []byte("segment payload")

	ciphertext, err := reglib.Encrypt(hashedKey, plaintext, enc)
	qt.Assert(t, qt.IsNil(err))

	decrypted, err := reglib.Decrypt(hashedKey, ciphertext, enc)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.DeepEquals(decrypted, plaintext))
}

func TestSigningKeyPKCS8RoundTrip(t *testing.T) {
	key, err := reglib.GenerateSigningKey()
	qt.Assert(t, qt.IsNil(err))

	pemBytes, err := key.MarshalPKCS8PEM()
	qt.Assert(t, qt.IsNil(err))

	loaded, err := reglib.LoadSigningKeyPKCS8PEM(pemBytes)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.DeepEquals(loaded.Public(), key.Public()))
}
