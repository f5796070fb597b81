// Package emitter implements the recursive record emitter: the traversal
// that walks a loaded source record tree and writes versioned records into
// a target registry, per spec.md §4.4. It is grounded on
// original_source/src/lib.rs's make_recursive, generalized to carry
// real version-decision logic (the original leaves the lookahead,
// collision-attempt, and force parameters as literal TODOs) and to thread
// stats and a logger through the recursion the way
// cuelang.org/go/mod/modregistry's Client.PutModule compares an existing
// module's digest before deciding whether a push is a no-op.
package emitter

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/rrrmake/rrrmake/internal/ownedregistry"
	"github.com/rrrmake/rrrmake/internal/reglib"
	"github.com/rrrmake/rrrmake/internal/rrrerrors"
	"github.com/rrrmake/rrrmake/internal/sourcetree"
)

// Stats accumulates counts across an entire emitter run, per spec.md §4.4.
type Stats struct {
	RecordsCreated   int
	RecordsUpdated   int
	RecordsUnchanged int
}

// Total is the number of records examined.
func (s Stats) Total() int {
	return s.RecordsCreated + s.RecordsUpdated + s.RecordsUnchanged
}

// Changed reports whether anything was created or updated.
func (s Stats) Changed() bool {
	return s.RecordsCreated > 0 || s.RecordsUpdated > 0
}

// Options bounds the per-record version decision (spec.md §4.4 step 5).
type Options struct {
	MaxVersionLookahead           int
	MaxCollisionResolutionAttempts int
	Force                          bool
}

// Run walks root (and every successive record beneath it), emitting each
// into targetRegistry under input's hash/KDF parameters and signing keys.
// The root record's key uses input.Config.RootRecordKey's predecessor
// nonce; every descendant's predecessor nonce is the succession nonce
// derived from its parent's hashed key.
func Run(
	ctx context.Context,
	targetRegistry *reglib.Registry,
	input *ownedregistry.Registry,
	root sourcetree.Record,
	opts Options,
	logger *zap.Logger,
) (Stats, error) {
	var stats Stats
	predecessorNonce := input.Config.KDF.RootPredecessorNonce
	err := emitRecord(ctx, targetRegistry, input, root, predecessorNonce, "", &stats, opts, logger)
	return stats, err
}

func emitRecord(
	ctx context.Context,
	targetRegistry *reglib.Registry,
	input *ownedregistry.Registry,
	record sourcetree.Record,
	predecessorNonce reglib.Nonce,
	pathPrefix string,
	stats *Stats,
	opts Options,
	logger *zap.Logger,
) error {
	recordPath := pathPrefix + "/" + string(record.Config.Name)

	readResult, ok, err := record.Read()
	if err != nil {
		return fmt.Errorf("emitter: reading %q: %w", recordPath, err)
	}
	if !ok {
		return fmt.Errorf("emitter: %q: %w", recordPath, rrrerrors.ErrDataFileMissing)
	}

	outputRecord := reglib.Record{
		Metadata: reglib.Metadata{CreatedAt: record.Config.Metadata.CreatedAt},
		Data:     readResult.Data,
	}

	key := reglib.RecordKey{
		RecordName:       reglib.RecordName(record.Config.Name),
		PredecessorNonce: predecessorNonce,
	}
	hashedKey, err := reglib.HashKey(key, input.Config.Hash)
	if err != nil {
		return rrrerrors.WrapRegistryLibrary(fmt.Sprintf("hashing key for %q", recordPath), err)
	}

	var encryption *reglib.SegmentEncryption
	if record.Config.Parameters.Encryption != nil {
		encryption = &reglib.SegmentEncryption{
			Algorithm:      reglib.EncryptionAlgorithm(record.Config.Parameters.Encryption.Algorithm),
			PaddingToBytes: record.Config.Parameters.Encryption.SegmentPaddingToBytes,
		}
	}

	existingVersions, err := targetRegistry.ListVersions(ctx, hashedKey, opts.MaxVersionLookahead, opts.MaxCollisionResolutionAttempts)
	if err != nil {
		return rrrerrors.WrapRegistryLibrary(fmt.Sprintf("listing versions for %q", recordPath), err)
	}

	var version uint64
	switch {
	case len(existingVersions) == 0:
		version = 0
		stats.RecordsCreated++
	default:
		latest := existingVersions[len(existingVersions)-1]
		if !opts.Force && latest.Record.Equal(outputRecord) {
			stats.RecordsUnchanged++
			if logger != nil {
				logger.Debug("record unchanged", zap.String("path", recordPath), zap.Uint64("version", latest.Version))
			}
			return recurseSuccessive(ctx, targetRegistry, input, record, hashedKey, pathPrefix, stats, opts, logger)
		}
		version = latest.Version + 1
		stats.RecordsUpdated++
	}

	if _, err := targetRegistry.SaveRecord(ctx, input.SigningKeys, hashedKey, outputRecord, version, encryption); err != nil {
		return rrrerrors.WrapRegistryLibrary(fmt.Sprintf("saving %q", recordPath), err)
	}
	if logger != nil {
		logger.Info("emitted record", zap.String("path", recordPath), zap.Uint64("version", version))
	}

	return recurseSuccessive(ctx, targetRegistry, input, record, hashedKey, pathPrefix, stats, opts, logger)
}

func recurseSuccessive(
	ctx context.Context,
	targetRegistry *reglib.Registry,
	input *ownedregistry.Registry,
	record sourcetree.Record,
	hashedKey reglib.HashedKey,
	pathPrefix string,
	stats *Stats,
	opts Options,
	logger *zap.Logger,
) error {
	successionNonce, err := reglib.DeriveSuccessionNonce(hashedKey, input.Config.KDF)
	if err != nil {
		return rrrerrors.WrapRegistryLibrary("deriving succession nonce", err)
	}

	childPathPrefix := pathPrefix + "/" + string(record.Config.Name)
	for _, successive := range record.Successive {
		if err := emitRecord(ctx, targetRegistry, input, successive, successionNonce, childPathPrefix, stats, opts, logger); err != nil {
			return err
		}
	}
	return nil
}
