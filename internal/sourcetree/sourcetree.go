// Package sourcetree loads the human-editable source directory described
// in spec.md §2/§3: a tree of directories, each holding an optional
// record.toml and zero or more data files, recursively nested as
// successive records. It mirrors the loading half of
// original_source/src/owned/record.rs's OwnedRecord, reading the
// same record.toml shape (internal/recordcfg) and the same data-file
// discovery rules.
package sourcetree

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/rrrmake/rrrmake/internal/recordcfg"
	"github.com/rrrmake/rrrmake/internal/rrrerrors"
)

const configFileName = "record.toml"
const dataFileStem = "data"

// Record is one loaded source record: its directory, resolved config, and
// successive records (its children, in directory-read order).
type Record struct {
	DirectoryPath string
	Config        recordcfg.Config
	Successive    []Record
}

// ConfigPath returns the conventional record.toml path for a record
// directory.
func ConfigPath(directoryPath string) string {
	return filepath.Join(directoryPath, configFileName)
}

// LoadFromDirectory loads directoryPath and, recursively, every
// subdirectory as a successive record, resolving each record's parameters
// against defaults (the registry's default_record_parameters for the root
// record, the parent's resolved parameters for every other record, per
// spec.md §4.1).
func LoadFromDirectory(directoryPath string, defaults recordcfg.RecordParametersUnresolved) (Record, error) {
	unresolved, err := loadConfig(directoryPath)
	if err != nil {
		return Record{}, err
	}
	config, err := unresolved.Resolve(defaults)
	if err != nil {
		return Record{}, fmt.Errorf("sourcetree: resolving %q: %w", directoryPath, err)
	}

	entries, err := os.ReadDir(directoryPath)
	if err != nil {
		return Record{}, fmt.Errorf("sourcetree: reading %q: %w", directoryPath, err)
	}

	childDefaults := recordcfg.FromResolvedParameters(config.Parameters)

	var successive []Record
	seenNames := make(map[string]struct{})
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		childPath := filepath.Join(directoryPath, entry.Name())
		child, err := LoadFromDirectory(childPath, childDefaults)
		if err != nil {
			return Record{}, err
		}
		name := string(child.Config.Name)
		if _, exists := seenNames[name]; exists {
			return Record{}, &rrrerrors.DuplicateSuccessiveRecordError{
				Parent: directoryPath,
				Name:   name,
			}
		}
		seenNames[name] = struct{}{}
		successive = append(successive, child)
	}

	return Record{DirectoryPath: directoryPath, Config: config, Successive: successive}, nil
}

// loadConfig reads directoryPath's record.toml, or synthesizes one from the
// directory's final path component and filesystem creation time when no
// record.toml exists, per spec.md §3 Record Config ("absent record.toml").
func loadConfig(directoryPath string) (recordcfg.Unresolved, error) {
	data, err := os.ReadFile(ConfigPath(directoryPath))
	switch {
	case err == nil:
		var unresolved recordcfg.Unresolved
		if err := toml.Unmarshal(data, &unresolved); err != nil {
			return recordcfg.Unresolved{}, fmt.Errorf("sourcetree: decoding %q: %w", ConfigPath(directoryPath), err)
		}
		return unresolved, nil
	case os.IsNotExist(err):
		return synthesizeConfig(directoryPath)
	default:
		return recordcfg.Unresolved{}, fmt.Errorf("sourcetree: reading %q: %w", ConfigPath(directoryPath), err)
	}
}

func synthesizeConfig(directoryPath string) (recordcfg.Unresolved, error) {
	name := filepath.Base(directoryPath)
	if name == "" || name == "." || name == string(filepath.Separator) {
		return recordcfg.Unresolved{}, &rrrerrors.InvalidPathSegmentError{
			Path:   directoryPath,
			Reason: "the record directory lacks a usable name",
		}
	}
	info, err := os.Stat(directoryPath)
	if err != nil {
		return recordcfg.Unresolved{}, fmt.Errorf("sourcetree: stat %q: %w", directoryPath, err)
	}
	createdAt := creationTime(info)
	return recordcfg.Unresolved{
		Name:     name,
		Metadata: recordcfg.Metadata{CreatedAt: &createdAt},
	}, nil
}

// Save writes r's config to disk (creating the directory if needed), the
// inverse of LoadFromDirectory for a single record, failing if a
// record.toml already exists, per the original implementation's use of
// create_new.
func (r Record) Save() error {
	if err := os.MkdirAll(r.DirectoryPath, 0o777); err != nil {
		return fmt.Errorf("sourcetree: creating %q: %w", r.DirectoryPath, err)
	}
	data, err := toml.Marshal(r.Config.ToUnresolved())
	if err != nil {
		return fmt.Errorf("sourcetree: encoding config for %q: %w", r.DirectoryPath, err)
	}
	path := ConfigPath(r.DirectoryPath)
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o666)
	if err != nil {
		return fmt.Errorf("sourcetree: creating %q: %w", path, err)
	}
	defer file.Close()
	if _, err := file.Write(data); err != nil {
		return fmt.Errorf("sourcetree: writing %q: %w", path, err)
	}
	return nil
}

// ReadResult is the concatenated data payload for a record, plus (for
// Manual splitting) the byte offsets at which each underlying data file
// but the last ended, used to reconstruct Manual segment boundaries at
// emission time.
type ReadResult struct {
	Data    []byte
	SplitAt []int
}

// Read concatenates a record's data files in discovery order. It returns
// ok=false, with no error, if the record has no data files at all; the
// emitter treats that as rrrerrors.ErrDataFileMissing.
func (r Record) Read() (result ReadResult, ok bool, err error) {
	paths, err := r.DataPaths()
	if err != nil {
		return ReadResult{}, false, err
	}
	if len(paths) == 0 {
		return ReadResult{}, false, nil
	}

	var splitAt []int
	if r.Config.Parameters.SplittingStrategy == recordcfg.SplittingStrategyManual {
		splitAt = make([]int, 0, len(paths))
	}

	var buf bytes.Buffer
	for _, path := range paths {
		file, err := os.Open(path)
		if err != nil {
			return ReadResult{}, false, fmt.Errorf("sourcetree: opening %q: %w", path, err)
		}
		_, err = io.Copy(&buf, file)
		closeErr := file.Close()
		if err != nil {
			return ReadResult{}, false, fmt.Errorf("sourcetree: reading %q: %w", path, err)
		}
		if closeErr != nil {
			return ReadResult{}, false, fmt.Errorf("sourcetree: closing %q: %w", path, closeErr)
		}
		if splitAt != nil {
			splitAt = append(splitAt, buf.Len())
		}
	}
	if splitAt != nil {
		// The final boundary coincides with the end of the data; the
		// original implementation drops it since a trailing split point
		// carries no information a reader doesn't already have.
		splitAt = splitAt[:len(splitAt)-1]
	}

	return ReadResult{Data: buf.Bytes(), SplitAt: splitAt}, true, nil
}

type dataFileEntry struct {
	index *int
	path  string
}

// DataPaths discovers and validates a record's data files, per
// spec.md §3's "Data file discovery" rules: files are named either "data"
// or "data.<ext>" (non-indexed), or "data.<N>.<ext>" (indexed; a name with
// no second dot, such as "data.3", counts as non-indexed); a record's
// data files must be either all non-indexed or all indexed, never mixed;
// indexed files must have unique, contiguous indexes starting from the
// smallest index present.
func (r Record) DataPaths() ([]string, error) {
	entries, err := os.ReadDir(r.DirectoryPath)
	if err != nil {
		return nil, fmt.Errorf("sourcetree: reading %q: %w", r.DirectoryPath, err)
	}

	var results []dataFileEntry
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		stem, rest, hasDot := strings.Cut(name, ".")
		if stem != dataFileStem {
			continue
		}
		if !hasDot {
			results = append(results, dataFileEntry{path: filepath.Join(r.DirectoryPath, name)})
			continue
		}
		first, _, hasSecondDot := strings.Cut(rest, ".")
		if hasSecondDot {
			if index, err := strconv.Atoi(first); err == nil {
				idx := index
				results = append(results, dataFileEntry{index: &idx, path: filepath.Join(r.DirectoryPath, name)})
				continue
			}
		}
		results = append(results, dataFileEntry{path: filepath.Join(r.DirectoryPath, name)})
	}

	if len(results) == 0 {
		return nil, nil
	}

	sort.SliceStable(results, func(i, j int) bool {
		ii, ij := results[i].index, results[j].index
		switch {
		case ii == nil && ij == nil:
			return results[i].path < results[j].path
		case ii == nil:
			return true
		case ij == nil:
			return false
		case *ii != *ij:
			return *ii < *ij
		default:
			return results[i].path < results[j].path
		}
	})

	indexed := results[0].index != nil
	for _, entry := range results {
		if (entry.index != nil) != indexed {
			return nil, &rrrerrors.DataFilesMalformedError{
				DirectoryPath: r.DirectoryPath,
				Reason:        "cannot mix non-indexed and indexed record data files",
			}
		}
	}

	// A non-indexed record has at most one data file: two non-indexed
	// entries are indistinguishable (both carry index == none) and so
	// collide the same way two entries sharing an explicit index do.
	for i := 0; i+1 < len(results); i++ {
		a, b := results[i], results[i+1]
		sameIndex := (a.index == nil && b.index == nil) || (a.index != nil && b.index != nil && *a.index == *b.index)
		if !sameIndex {
			continue
		}
		if indexed {
			return nil, &rrrerrors.DataFilesMalformedError{
				DirectoryPath: r.DirectoryPath,
				Reason:        fmt.Sprintf("multiple conflicting record data files with index %d exist: %s, %s", *a.index, a.path, b.path),
			}
		}
		return nil, &rrrerrors.DataFilesMalformedError{
			DirectoryPath: r.DirectoryPath,
			Reason:        fmt.Sprintf("multiple conflicting record data files exist: %s, %s", a.path, b.path),
		}
	}

	if indexed {
		for i := 0; i+1 < len(results); i++ {
			a, b := results[i], results[i+1]
			if *a.index+1 != *b.index {
				return nil, &rrrerrors.DataFilesMalformedError{
					DirectoryPath: r.DirectoryPath,
					Reason:        fmt.Sprintf("indexed record data files are not contiguous, missing index %d", *a.index+1),
				}
			}
		}
	}

	paths := make([]string, len(results))
	for i, entry := range results {
		paths[i] = entry.path
	}
	return paths, nil
}

// creationTime approximates a directory's creation time. The standard
// library exposes no portable creation timestamp, so this falls back to
// the modification time, matching it closely enough for freshly created
// record directories (which are never modified between mkdir and the
// first load).
func creationTime(info os.FileInfo) time.Time {
	return info.ModTime().UTC()
}
