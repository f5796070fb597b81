// Package recordcfg models the per-record configuration described in
// spec.md §3 ("Record Parameters", "Record Metadata", "Record Config"): a
// resolved shape used by runtime code, an unresolved shape used for
// on-disk storage and registry-to-record inheritance, and the merge/resolve
// operations that connect them. It mirrors the split kept by
// original_source/src/owned/record.rs (OwnedRecordConfig vs
// OwnedRecordConfigUnresolved), and the resolved/unresolved split
// cuelang.org/go/mod/modfile keeps between a parsed module.cue File and the
// values it exposes once validated.
package recordcfg

import (
	"time"

	"github.com/rrrmake/rrrmake/internal/option"
	"github.com/rrrmake/rrrmake/internal/rrrerrors"
)

// EncryptionAlgorithm names an encryption scheme a segment may be stored
// under. The registry library (internal/reglib) is the sole interpreter of
// this value; the core only threads it through.
type EncryptionAlgorithm string

// EncryptionAlgorithmAES256GCM is the only algorithm the generated
// registry template defaults to.
const EncryptionAlgorithmAES256GCM EncryptionAlgorithm = "aes256gcm"

// EncryptionParameters is the resolved form: both fields present.
type EncryptionParameters struct {
	Algorithm             EncryptionAlgorithm
	SegmentPaddingToBytes uint64
}

// EncryptionParametersUnresolved mirrors EncryptionParameters with every
// field optional, so that a record directory's record.toml may specify
// only part of the encryption parameters and inherit the rest.
type EncryptionParametersUnresolved struct {
	Algorithm             *EncryptionAlgorithm `toml:"algorithm,omitempty"`
	SegmentPaddingToBytes *uint64              `toml:"segment_padding_to_bytes,omitempty"`
}

// Or implements the §4.1 merge rule: take this side's field if present,
// otherwise fall back.
func (u EncryptionParametersUnresolved) Or(fallback EncryptionParametersUnresolved) EncryptionParametersUnresolved {
	out := u
	if out.Algorithm == nil {
		out.Algorithm = fallback.Algorithm
	}
	if out.SegmentPaddingToBytes == nil {
		out.SegmentPaddingToBytes = fallback.SegmentPaddingToBytes
	}
	return out
}

// Resolve succeeds only when every field is present.
func (u EncryptionParametersUnresolved) Resolve() (EncryptionParameters, bool) {
	if u.Algorithm == nil || u.SegmentPaddingToBytes == nil {
		return EncryptionParameters{}, false
	}
	return EncryptionParameters{
		Algorithm:             *u.Algorithm,
		SegmentPaddingToBytes: *u.SegmentPaddingToBytes,
	}, true
}

// FromResolvedEncryption converts a resolved EncryptionParameters back to its
// unresolved shape, used when saving a record's config back to disk.
func FromResolvedEncryption(p EncryptionParameters) EncryptionParametersUnresolved {
	return EncryptionParametersUnresolved{
		Algorithm:             &p.Algorithm,
		SegmentPaddingToBytes: &p.SegmentPaddingToBytes,
	}
}

// SplittingStrategy is the tagged variant of spec.md §3: Fill (the
// registry library splits the data into maximum-size segments
// automatically) or Manual (pre-split files, segment boundaries are file
// boundaries).
type SplittingStrategy string

const (
	SplittingStrategyFill   SplittingStrategy = "fill"
	SplittingStrategyManual SplittingStrategy = "manual"
)

// RecordParameters is the resolved form of a record's parameters.
type RecordParameters struct {
	SplittingStrategy SplittingStrategy
	// Encryption is nil when the record explicitly has no encryption.
	Encryption *EncryptionParameters
}

// RecordParametersUnresolved mirrors RecordParameters, with Encryption
// carried as a DoubleOption so that a record (or the registry defaults)
// can leave the choice unset, explicitly disable encryption, or set it.
type RecordParametersUnresolved struct {
	SplittingStrategy *SplittingStrategy                             `toml:"splitting_strategy,omitempty"`
	Encryption        option.DoubleOption[EncryptionParametersUnresolved] `toml:"encryption,omitempty"`
}

// Or implements the §4.1 merge rule across both fields.
func (u RecordParametersUnresolved) Or(fallback RecordParametersUnresolved) RecordParametersUnresolved {
	out := u
	if out.SplittingStrategy == nil {
		out.SplittingStrategy = fallback.SplittingStrategy
	}
	out.Encryption = option.Or(out.Encryption, fallback.Encryption)
	return out
}

// Resolve resolves splitting strategy and encryption together. Encryption
// resolution follows the three-valued rule: unset is an error (it should
// never reach Resolve — Or above should have replaced it with a fallback,
// even if that fallback is itself unset), explicit-none resolves to "no
// encryption", and some resolves the wrapped EncryptionParametersUnresolved.
func (u RecordParametersUnresolved) Resolve() (RecordParameters, error) {
	if u.SplittingStrategy == nil {
		return RecordParameters{}, rrrerrors.ErrIncompleteRecordParameters
	}
	encUnresolved, present := option.Resolve(u.Encryption)
	if !present {
		return RecordParameters{}, rrrerrors.ErrIncompleteRecordParameters
	}
	var encryption *EncryptionParameters
	if encUnresolved != nil {
		resolved, ok := encUnresolved.Resolve()
		if !ok {
			return RecordParameters{}, rrrerrors.ErrIncompleteRecordParameters
		}
		encryption = &resolved
	}
	return RecordParameters{
		SplittingStrategy: *u.SplittingStrategy,
		Encryption:        encryption,
	}, nil
}

// FromResolvedParameters converts a resolved RecordParameters back to its
// unresolved shape.
func FromResolvedParameters(p RecordParameters) RecordParametersUnresolved {
	strategy := p.SplittingStrategy
	var encryption option.DoubleOption[EncryptionParametersUnresolved]
	if p.Encryption == nil {
		encryption = option.DoubleExplicitNone[EncryptionParametersUnresolved]()
	} else {
		encryption = option.DoubleSome(FromResolvedEncryption(*p.Encryption))
	}
	return RecordParametersUnresolved{
		SplittingStrategy: &strategy,
		Encryption:        encryption,
	}
}

// DefaultRecordParametersUnresolved is what a freshly generated registry
// ships as its registry-wide default_record_parameters: Fill splitting,
// AES-256-GCM with 1 KiB padding.
func DefaultRecordParametersUnresolved() RecordParametersUnresolved {
	resolved := RecordParameters{
		SplittingStrategy: SplittingStrategyFill,
		Encryption: &EncryptionParameters{
			Algorithm:             EncryptionAlgorithmAES256GCM,
			SegmentPaddingToBytes: 1024,
		},
	}
	return FromResolvedParameters(resolved)
}

// Metadata is a record's metadata: currently just an optional creation
// timestamp, stored as RFC 3339 text.
type Metadata struct {
	CreatedAt *time.Time `toml:"created_at,omitempty"`
}

// Unresolved is the on-disk shape of a record.toml file: name, metadata,
// and the record's own (possibly partial) parameters, flattened into the
// same table the way original_source's #[serde(flatten)] does.
type Unresolved struct {
	Name     string   `toml:"name"`
	Metadata Metadata `toml:"metadata"`
	RecordParametersUnresolved
}

// Config is the resolved, in-memory form of a record's configuration.
type Config struct {
	Name       []byte
	Metadata   Metadata
	Parameters RecordParameters
}

// Resolve merges u's parameters against the registry (or ancestor-record)
// defaults and resolves the result.
func (u Unresolved) Resolve(defaults RecordParametersUnresolved) (Config, error) {
	parameters, err := u.RecordParametersUnresolved.Or(defaults).Resolve()
	if err != nil {
		return Config{}, err
	}
	return Config{
		Name:       []byte(u.Name),
		Metadata:   u.Metadata,
		Parameters: parameters,
	}, nil
}

// ToUnresolved converts a resolved Config back into the on-disk shape,
// used by Save.
func (c Config) ToUnresolved() Unresolved {
	return Unresolved{
		Name:                       string(c.Name),
		Metadata:                   c.Metadata,
		RecordParametersUnresolved: FromResolvedParameters(c.Parameters),
	}
}
