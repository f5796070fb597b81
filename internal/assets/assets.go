// Package assets embeds the source directory template a freshly generated
// registry is seeded with: a root record plus two successive records
// ("overview" and "guide", the latter with its own successive "details"
// record), mirroring original_source/src/assets.rs's
// SOURCE_DIRECTORY_TEMPLATE (there built with include_dir!, here built
// with embed.FS).
package assets

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

//go:embed template
var templateFS embed.FS

const templateRoot = "template"

// ExtractSourceDirectoryTemplate writes the embedded template tree into
// directoryPath, creating subdirectories as needed. Unlike the original's
// extract_with_locks, no lock map is threaded through here: the registry
// directory is already exclusively locked by the caller
// (internal/ownedregistry.Generate) before extraction begins, so a
// per-file lock map would duplicate that protection.
func ExtractSourceDirectoryTemplate(directoryPath string) error {
	return fs.WalkDir(templateFS, templateRoot, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		relativePath, err := filepath.Rel(templateRoot, path)
		if err != nil {
			return err
		}
		targetPath := filepath.Join(directoryPath, relativePath)
		if entry.IsDir() {
			if relativePath == "." {
				return nil
			}
			return os.MkdirAll(targetPath, 0o777)
		}
		data, err := templateFS.ReadFile(path)
		if err != nil {
			return fmt.Errorf("assets: reading embedded %q: %w", path, err)
		}
		if err := os.MkdirAll(filepath.Dir(targetPath), 0o777); err != nil {
			return err
		}
		return os.WriteFile(targetPath, data, 0o666)
	})
}
