package assets_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-quicktest/qt"

	"github.com/rrrmake/rrrmake/internal/assets"
)

func TestExtractSourceDirectoryTemplateShape(t *testing.T) {
	dir := t.TempDir()
	qt.Assert(t, qt.IsNil(assets.ExtractSourceDirectoryTemplate(dir)))

	for _, path := range []string{
		"root/record.toml",
		"root/data.md",
		"root/overview/record.toml",
		"root/overview/data.md",
		"root/guide/record.toml",
		"root/guide/data.md",
		"root/guide/details/record.toml",
		"root/guide/details/data.md",
	} {
		info, err := os.Stat(filepath.Join(dir, path))
		qt.Assert(t, qt.IsNil(err), qt.Commentf("missing %s", path))
		qt.Assert(t, qt.IsFalse(info.IsDir()))
	}

	overviewEntries, err := os.ReadDir(filepath.Join(dir, "root", "overview"))
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.HasLen(overviewEntries, 2))
}

func TestExtractSourceDirectoryTemplateFailsOnExistingFile(t *testing.T) {
	dir := t.TempDir()
	qt.Assert(t, qt.IsNil(os.WriteFile(filepath.Join(dir, "root"), []byte("not a directory"), 0o644)))

	err := assets.ExtractSourceDirectoryTemplate(dir)
	qt.Assert(t, qt.IsNotNil(err))
}
