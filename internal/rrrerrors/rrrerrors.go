// Package rrrerrors collects the structured error kinds named in the
// source-tree/registry compiler's error taxonomy. Every fallible operation
// in the core surfaces one of these, wrapped with fmt.Errorf("...: %w", ...)
// as it propagates, so that callers can still recover the original kind
// with errors.As.
package rrrerrors

import (
	"errors"
	"fmt"
)

// DuplicateSuccessiveRecordError is raised when two child directories of a
// source record resolve to the same record name.
type DuplicateSuccessiveRecordError struct {
	Parent string
	Name   string
}

func (e *DuplicateSuccessiveRecordError) Error() string {
	return fmt.Sprintf("duplicate successive record %q of parent %q", e.Name, e.Parent)
}

// RegistryAlreadyExistsError is raised when a registry generation target is
// a non-empty directory and overwrite was not requested.
type RegistryAlreadyExistsError struct {
	Path string
}

func (e *RegistryAlreadyExistsError) Error() string {
	return fmt.Sprintf("registry already exists at path %q", e.Path)
}

// ErrIncompleteRecordParameters is raised when parameter resolution fails
// after merging with the registry defaults.
var ErrIncompleteRecordParameters = errors.New("incomplete record parameters")

// InvalidPathSegmentError is raised when a record name cannot be
// synthesized from a directory's final path component.
type InvalidPathSegmentError struct {
	Path   string
	Reason string
}

func (e *InvalidPathSegmentError) Error() string {
	return fmt.Sprintf("cannot derive a record name from path %q: %s", e.Path, e.Reason)
}

// DataFilesMalformedError is raised when a record's data files mix indexed
// and non-indexed modes, repeat an index, skip an index, or contain more
// than one non-indexed file.
type DataFilesMalformedError struct {
	DirectoryPath string
	Reason        string
}

func (e *DataFilesMalformedError) Error() string {
	return fmt.Sprintf("malformed data files in %q: %s", e.DirectoryPath, e.Reason)
}

// ErrDataFileMissing is raised when a record that is read has no data file.
var ErrDataFileMissing = errors.New("record has no data file")

// RegistryLibraryError wraps any failure surfaced by the external
// registry/crypto library (internal/reglib in this repository).
type RegistryLibraryError struct {
	Op  string
	Err error
}

func (e *RegistryLibraryError) Error() string {
	return fmt.Sprintf("registry library: %s: %v", e.Op, e.Err)
}

func (e *RegistryLibraryError) Unwrap() error {
	return e.Err
}

// WrapRegistryLibrary wraps err, if non-nil, as a RegistryLibraryError.
func WrapRegistryLibrary(op string, err error) error {
	if err == nil {
		return nil
	}
	return &RegistryLibraryError{Op: op, Err: err}
}
