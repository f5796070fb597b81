// Command rrrmake is the command-line surface for the source-directory
// compiler, a thin collaborator around internal/ownedregistry and
// internal/emitter (spec.md §6). It is grounded on cuelang.org/go's cmd/cue
// package's use of cobra for subcommand dispatch.
package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/rrrmake/rrrmake/internal/cmdrrrmake"
)

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintln(os.Stderr, "rrrmake: failed to initialize logger:", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	if err := cmdrrrmake.NewRootCommand(logger).Execute(); err != nil {
		logger.Error("command failed", zap.Error(err))
		logger.Sync() //nolint:errcheck
		os.Exit(1)
	}
}
