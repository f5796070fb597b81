// Package cmdrrrmake wires the rrrmake binary's subcommands (new, make)
// onto the core packages, grounded on the cobra root/subcommand harness
// pattern used across the example pack's CLI tools, and on
// original_source/src/cmd/mod.rs's Command enum (New{directory, force},
// Make{input_directory, output_directory, force}).
package cmdrrrmake

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rrrmake/rrrmake/internal/emitter"
	"github.com/rrrmake/rrrmake/internal/ownedregistry"
	"github.com/rrrmake/rrrmake/internal/reglib"
	"github.com/rrrmake/rrrmake/internal/rrrmakeversion"
)

// experiments are optional behavior toggles read from the
// RRRMAKE_EXPERIMENT environment variable, e.g.
// RRRMAKE_EXPERIMENT=forcerebuild=1.
type experiments struct {
	// ForceRebuild treats every record as changed, as if --force were
	// passed to every make invocation.
	ForceRebuild bool
}

const experimentEnvVar = "RRRMAKE_EXPERIMENT"

// parseExperiments reads experimentEnvVar's comma-separated name[=value]
// list, e.g. "forcerebuild" or "forcerebuild=0". A bare name is short for
// name=true. Unknown names are reported but don't stop parsing the rest.
func parseExperiments(env string) (experiments, error) {
	var exp experiments
	if env == "" {
		return exp, nil
	}
	var unknown []string
	for _, elem := range strings.Split(env, ",") {
		name, valueStr, hasValue := strings.Cut(elem, "=")
		value := true
		if hasValue {
			v, err := strconv.ParseBool(valueStr)
			if err != nil {
				return experiments{}, fmt.Errorf("invalid bool value for %s: %w", name, err)
			}
			value = v
		}
		switch strings.ToLower(name) {
		case "forcerebuild":
			exp.ForceRebuild = value
		default:
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		return exp, fmt.Errorf("unknown experiment(s): %s", strings.Join(unknown, ", "))
	}
	return exp, nil
}

// NewRootCommand builds the rrrmake root command and its subcommands.
func NewRootCommand(logger *zap.Logger) *cobra.Command {
	exp, err := parseExperiments(os.Getenv(experimentEnvVar))
	if err != nil {
		logger.Warn("ignoring malformed experiment flags", zap.String("env", experimentEnvVar), zap.Error(err))
	}

	root := &cobra.Command{
		Use:           "rrrmake",
		Short:         "Compile a source directory into a signed, versioned registry",
		Version:       rrrmakeversion.ModuleVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newNewCommand(logger))
	root.AddCommand(newMakeCommand(logger, exp))
	return root
}

func newNewCommand(logger *zap.Logger) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "new <directory>",
		Short: "Generate a new owned registry at <directory>",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			directory := args[0]
			registry, err := ownedregistry.Generate(directory, force)
			if err != nil {
				return fmt.Errorf("new: %w", err)
			}
			defer registry.Close()
			logger.Info("generated registry", zap.String("directory", directory))
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite a non-empty target directory")
	return cmd
}

func newMakeCommand(logger *zap.Logger, exp experiments) *cobra.Command {
	var (
		inputDirectory string
		force          bool
		publish        bool
	)
	cmd := &cobra.Command{
		Use:   "make",
		Short: "Build a target registry from the source directory's root record",
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := ownedregistry.Load(inputDirectory)
			if err != nil {
				return fmt.Errorf("make: %w", err)
			}
			defer input.Close()

			root, err := input.LoadRootRecord()
			if err != nil {
				return fmt.Errorf("make: loading root record: %w", err)
			}

			rebuild := force || exp.ForceRebuild

			target, err := reglib.CreateRegistry(input.StagingDirectoryPath(), input.AsRegistryLibraryConfig(), rebuild, logger)
			if err != nil {
				return fmt.Errorf("make: creating target registry: %w", err)
			}

			stats, err := emitter.Run(context.Background(), target, input, root, emitter.Options{
				MaxVersionLookahead:            input.Config.MaxVersionLookahead,
				MaxCollisionResolutionAttempts: input.Config.MaxCollisionResolutionAttempts,
				Force:                          rebuild,
			}, logger)
			if err != nil {
				return fmt.Errorf("make: %w", err)
			}

			logger.Info("build complete",
				zap.Int("total", stats.Total()),
				zap.Int("created", stats.RecordsCreated),
				zap.Int("updated", stats.RecordsUpdated),
				zap.Int("unchanged", stats.RecordsUnchanged),
			)

			if publish {
				logger.Warn("publish requested but not yet implemented; staged build left in place")
			}

			return nil
		},
	}
	cmd.Flags().StringVar(&inputDirectory, "input-directory", ".", "source directory to build")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing target registry records")
	cmd.Flags().BoolVar(&publish, "publish", false, "publish the build to revisions/published (not yet implemented)")
	return cmd
}
