package ownedregistry_test

import (
	"testing"

	"github.com/go-quicktest/qt"

	"github.com/rrrmake/rrrmake/internal/ownedregistry"
)

func TestGenerateThenLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()

	generated, err := ownedregistry.Generate(dir, false)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.HasLen(generated.SigningKeys, 1))
	qt.Assert(t, qt.IsNil(generated.Close()))

	loaded, err := ownedregistry.Load(dir)
	qt.Assert(t, qt.IsNil(err))
	defer loaded.Close()

	qt.Assert(t, qt.Equals(loaded.Config.RootRecordPath, generated.Config.RootRecordPath))
	qt.Assert(t, qt.Equals(loaded.Config.StagingDirectoryPath, generated.Config.StagingDirectoryPath))
	qt.Assert(t, qt.DeepEquals(loaded.Config.SigningKeyPaths, generated.Config.SigningKeyPaths))
	qt.Assert(t, qt.DeepEquals([]byte(loaded.Config.KDF.RootPredecessorNonce), []byte(generated.Config.KDF.RootPredecessorNonce)))
	qt.Assert(t, qt.HasLen(loaded.SigningKeys, 1))
	qt.Assert(t, qt.DeepEquals(loaded.SigningKeys[0].Public(), generated.SigningKeys[0].Public()))

	root, err := loaded.LoadRootRecord()
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.HasLen(root.Successive, 2))
}

func TestGenerateRejectsNonEmptyDirectoryWithoutForce(t *testing.T) {
	dir := t.TempDir()

	first, err := ownedregistry.Generate(dir, false)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.IsNil(first.Close()))

	_, err = ownedregistry.Generate(dir, false)
	qt.Assert(t, qt.IsNotNil(err))
}

func TestGenerateOverwriteSucceedsOnNonEmptyDirectory(t *testing.T) {
	dir := t.TempDir()

	first, err := ownedregistry.Generate(dir, false)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.IsNil(first.Close()))

	second, err := ownedregistry.Generate(dir, true)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.IsNil(second.Close()))
}
