// Package layout materializes Bazel-style runfiles trees and manifests.
//
// A Spec describes the runfiles of one executable the same way a Bazel rule
// sees them: File objects with an execroot-relative Path and a ShortPath.
package layout

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// RepoMappingName is the name of the repository mapping manifest inside a
// runfiles directory.
const RepoMappingName = "_repo_mapping"

// Spec describes a set of runfiles belonging to an executable.
type Spec struct {
	// WorkspaceName is the name of the main repository. Runfiles whose short
	// path does not start with "../" live under this name.
	WorkspaceName string `json:"workspace_name"`

	// Executable is the binary the runfiles belong to. It may be nil when
	// only the runfiles tree is wanted.
	Executable *File `json:"executable"`

	// ExecutableName is the file name of the executable in the generated
	// tree. The runfiles directory is named ExecutableName + ".runfiles".
	ExecutableName string `json:"executable_name"`

	// Files is the set of runfile dependencies of the executable.
	Files []*File `json:"files"`

	// RepoMappingManifest translates apparent repository names to canonical
	// ones. It may be nil when bzlmod is not enabled.
	//
	// See https://github.com/bazelbuild/proposals/blob/main/designs/2022-07-21-locating-runfiles-with-bzlmod.md
	RepoMappingManifest *File `json:"repo_mapping_manifest"`
}

// File contains information about a bazel File object.
//
// See https://bazel.build/rules/lib/builtins/File.
type File struct {
	Path      string `json:"path"`
	ShortPath string `json:"short_path"`
}

// ReadSpec parses a JSON encoded Spec from path.
func ReadSpec(path string) (*Spec, error) {
	specBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading input spec: %w", err)
	}
	spec := &Spec{}
	if err := json.Unmarshal(specBytes, spec); err != nil {
		return nil, fmt.Errorf("error parsing spec at %s: %w", path, err)
	}
	if spec.ExecutableName == "" {
		return nil, fmt.Errorf("spec at %s has no executable_name", path)
	}
	return spec, nil
}

// Entry is one file of a materialized tree.
type Entry struct {
	// Name is the slash-separated location relative to the tree root.
	Name string
	// Source is the file the entry is copied from.
	Source *File
}

// RunfilesDir returns the slash-separated name of the runfiles directory
// relative to the tree root.
func (s *Spec) RunfilesDir() string {
	return s.ExecutableName + ".runfiles"
}

// Rlocationpath returns the path a runfiles library is asked for to find f.
func (s *Spec) Rlocationpath(f *File) string {
	if s.RepoMappingManifest != nil && f.Path == s.RepoMappingManifest.Path {
		return RepoMappingName
	}
	// Data dependencies in repositories other than the root repo have prefix "../".
	withoutPrefix := strings.TrimPrefix(f.ShortPath, "../")
	if f.ShortPath != withoutPrefix {
		return withoutPrefix
	}
	return path.Join(s.WorkspaceName, f.ShortPath)
}

// NameInTree returns the location of f relative to the directory that holds
// the executable.
func (s *Spec) NameInTree(f *File) string {
	if s.Executable != nil && f.Path == s.Executable.Path {
		return s.ExecutableName
	}
	return path.Join(s.RunfilesDir(), s.Rlocationpath(f))
}

func (s *Spec) allFiles() []*File {
	var all []*File
	if s.Executable != nil {
		all = append(all, s.Executable)
	}
	all = append(all, s.Files...)
	if s.RepoMappingManifest != nil {
		all = append(all, s.RepoMappingManifest)
	}
	return all
}

// Entries returns every file of the tree sorted by name.
func (s *Spec) Entries() []Entry {
	var entries []Entry
	for _, f := range s.allFiles() {
		entries = append(entries, Entry{Name: s.NameInTree(f), Source: f})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name < entries[j].Name
	})
	return entries
}

// WriteTree copies the executable and its runfiles below root, preserving
// file permissions. It returns the entries written.
func (s *Spec) WriteTree(ctx context.Context, root string) ([]Entry, error) {
	return writeEntries(ctx, root, s.Entries())
}

// WriteRunfiles copies the runfiles, without the executable, into dir so
// that dir can serve as RUNFILES_DIR. Entry names are rlocationpaths.
func (s *Spec) WriteRunfiles(ctx context.Context, dir string) ([]Entry, error) {
	var entries []Entry
	for _, f := range s.allFiles() {
		if s.Executable != nil && f.Path == s.Executable.Path {
			continue
		}
		entries = append(entries, Entry{Name: s.Rlocationpath(f), Source: f})
	}
	return writeEntries(ctx, dir, entries)
}

func writeEntries(ctx context.Context, root string, entries []Entry) ([]Entry, error) {
	var written []Entry
	lock := sync.Mutex{}
	push := func(e Entry) {
		lock.Lock()
		defer lock.Unlock()
		written = append(written, e)
	}

	eg, ctx := errgroup.WithContext(ctx)
	for _, entry := range entries {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			dst := filepath.Join(root, filepath.FromSlash(entry.Name))
			if err := copyFile(entry.Source.Path, dst); err != nil {
				return fmt.Errorf("error copying %q (short_path = %q): %w", entry.Source.Path, entry.Source.ShortPath, err)
			}
			push(entry)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("error writing runfiles tree: %w", err)
	}
	sort.Slice(written, func(i, j int) bool {
		return written[i].Name < written[j].Name
	})
	return written, nil
}

// WriteManifest writes a runfiles manifest mapping each rlocationpath to the
// absolute path of its source file. The executable is not listed.
func (s *Spec) WriteManifest(w io.Writer) error {
	var lines []string
	for _, f := range s.Files {
		abs, err := filepath.Abs(f.Path)
		if err != nil {
			return fmt.Errorf("error resolving %q: %w", f.Path, err)
		}
		lines = append(lines, s.Rlocationpath(f)+" "+abs)
	}
	if s.RepoMappingManifest != nil {
		abs, err := filepath.Abs(s.RepoMappingManifest.Path)
		if err != nil {
			return fmt.Errorf("error resolving %q: %w", s.RepoMappingManifest.Path, err)
		}
		lines = append(lines, RepoMappingName+" "+abs)
	}
	sort.Strings(lines)
	for _, line := range lines {
		if _, err := io.WriteString(w, line+"\n"); err != nil {
			return fmt.Errorf("error writing manifest: %w", err)
		}
	}
	return nil
}

// WriteManifestFile writes the manifest to path, creating parent
// directories as needed.
func (s *Spec) WriteManifestFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := s.WriteManifest(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func copyFile(src, dst string) error {
	fileInfo, err := os.Stat(src)
	if err != nil {
		return err
	}
	contents, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	if err := os.WriteFile(dst, contents, fileInfo.Mode().Perm()); err != nil {
		return err
	}
	// WriteFile does not change the mode of an existing file, and the umask
	// may have masked bits.
	return os.Chmod(dst, fileInfo.Mode().Perm())
}
