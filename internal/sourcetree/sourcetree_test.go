package sourcetree_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-quicktest/qt"

	"github.com/rrrmake/rrrmake/internal/recordcfg"
	"github.com/rrrmake/rrrmake/internal/sourcetree"
)

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	qt.Assert(t, qt.IsNil(os.WriteFile(path, []byte(contents), 0o666)))
}

func TestLoadFromDirectorySynthesizesMissingConfig(t *testing.T) {
	root := t.TempDir()
	recordDir := filepath.Join(root, "overview")
	qt.Assert(t, qt.IsNil(os.MkdirAll(recordDir, 0o777)))

	record, err := sourcetree.LoadFromDirectory(recordDir, recordcfg.DefaultRecordParametersUnresolved())
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(string(record.Config.Name), "overview"))
	qt.Assert(t, qt.Equals(record.Config.Parameters.SplittingStrategy, recordcfg.SplittingStrategyFill))
}

func TestLoadFromDirectoryDetectsDuplicateSuccessiveNames(t *testing.T) {
	root := t.TempDir()
	qt.Assert(t, qt.IsNil(os.MkdirAll(filepath.Join(root, "a"), 0o777)))
	qt.Assert(t, qt.IsNil(os.MkdirAll(filepath.Join(root, "b"), 0o777)))
	writeFile(t, filepath.Join(root, "a", "record.toml"), "name = \"dup\"\nsplitting_strategy = \"fill\"\n")
	writeFile(t, filepath.Join(root, "b", "record.toml"), "name = \"dup\"\nsplitting_strategy = \"fill\"\n")

	_, err := sourcetree.LoadFromDirectory(root, recordcfg.DefaultRecordParametersUnresolved())
	qt.Assert(t, qt.ErrorMatches(err, ".*duplicate successive record.*"))
}

func TestDataPathsNonIndexed(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "data.txt"), "hello")
	record := sourcetree.Record{DirectoryPath: dir}
	paths, err := record.DataPaths()
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.HasLen(paths, 1))
}

func TestDataPathsIndexedContiguous(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "data.0.bin"), "a")
	writeFile(t, filepath.Join(dir, "data.1.bin"), "b")
	writeFile(t, filepath.Join(dir, "data.2.bin"), "c")
	record := sourcetree.Record{DirectoryPath: dir}
	paths, err := record.DataPaths()
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.HasLen(paths, 3))
}

func TestDataPathsRejectsMixedIndexing(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "data.txt"), "a")
	writeFile(t, filepath.Join(dir, "data.0.bin"), "b")
	record := sourcetree.Record{DirectoryPath: dir}
	_, err := record.DataPaths()
	qt.Assert(t, qt.ErrorMatches(err, ".*mix non-indexed and indexed.*"))
}

func TestDataPathsRejectsGapInIndex(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "data.0.bin"), "a")
	writeFile(t, filepath.Join(dir, "data.2.bin"), "c")
	record := sourcetree.Record{DirectoryPath: dir}
	_, err := record.DataPaths()
	qt.Assert(t, qt.ErrorMatches(err, ".*not contiguous.*"))
}

func TestDataPathsRejectsDuplicateNonIndexed(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "data.txt"), "a")
	writeFile(t, filepath.Join(dir, "data.bin"), "b")
	record := sourcetree.Record{DirectoryPath: dir}
	_, err := record.DataPaths()
	qt.Assert(t, qt.ErrorMatches(err, ".*conflicting record data files.*"))
}

func TestDataPathsNoDataFilesIsEmpty(t *testing.T) {
	dir := t.TempDir()
	record := sourcetree.Record{DirectoryPath: dir}
	paths, err := record.DataPaths()
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.HasLen(paths, 0))
}
