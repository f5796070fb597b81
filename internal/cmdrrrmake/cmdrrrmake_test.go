package cmdrrrmake_test

import (
	"testing"

	"github.com/go-quicktest/qt"
	"go.uber.org/zap"

	"github.com/rrrmake/rrrmake/internal/cmdrrrmake"
)

func TestNewThenMake(t *testing.T) {
	logger := zap.NewNop()
	dir := t.TempDir()

	root := cmdrrrmake.NewRootCommand(logger)
	root.SetArgs([]string{"new", dir})
	qt.Assert(t, qt.IsNil(root.Execute()))

	root = cmdrrrmake.NewRootCommand(logger)
	root.SetArgs([]string{"make", "--input-directory", dir})
	qt.Assert(t, qt.IsNil(root.Execute()))
}

func TestNewRejectsNonEmptyDirectoryWithoutForce(t *testing.T) {
	logger := zap.NewNop()
	dir := t.TempDir()

	root := cmdrrrmake.NewRootCommand(logger)
	root.SetArgs([]string{"new", dir})
	qt.Assert(t, qt.IsNil(root.Execute()))

	root = cmdrrrmake.NewRootCommand(logger)
	root.SetArgs([]string{"new", dir})
	qt.Assert(t, qt.IsNotNil(root.Execute()))
}
