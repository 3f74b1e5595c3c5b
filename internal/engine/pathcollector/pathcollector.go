// Package pathcollector walks a task's declared input paths into a
// deterministic, platform-independent list of filesystem entries
// suitable for absorbing into a cache-key fingerprint.
package pathcollector

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/toastbuild/toast/internal/fielderr"
)

// Kind identifies the type of filesystem object an Entry describes.
type Kind int

const (
	KindFile Kind = iota
	KindDir
	KindSymlink
)

// OSPath is a relative path recorded in a platform-independent,
// slash-separated form so that two identical source trees produce the
// same cache key regardless of the host path separator.
type OSPath []byte

// String returns the path as a forward-slash-separated string.
func (p OSPath) String() string {
	return string(p)
}

func newOSPath(relSlashPath string) OSPath {
	return OSPath(relSlashPath)
}

// Entry describes a single file, directory, or symlink found under a
// collected root.
type Entry struct {
	RelPath    OSPath
	Kind       Kind
	Mode       fs.FileMode
	Content    []byte // set for KindFile
	LinkTarget []byte // set for KindSymlink
}

// Collect walks each of includes, resolved relative to root, and
// returns every entry found, excluding anything whose relative path
// falls under one of excludes. A dangling symlink is recorded like any
// other symlink, never treated as an error: cache keys must be
// computable for trees a task hasn't produced its outputs in yet.
//
// Each include root is walked on its own goroutine (task-internal
// filesystem reads, unlike container I/O, carry no ordering
// requirement — spec §5 only mandates that operations against the
// same container never interleave). The final lexicographic sort over
// the merged result, not completion order, is what makes the output
// deterministic.
func Collect(root string, includes, excludes []string) ([]Entry, error) {
	excludeSet := make(map[string]bool, len(excludes))
	for _, e := range excludes {
		excludeSet[toSlash(e)] = true
	}

	results := make([][]Entry, len(includes))
	g := new(errgroup.Group)
	for i, include := range includes {
		i, include := i, include
		g.Go(func() error {
			absRoot := filepath.Join(root, include)
			walked, err := walkOne(root, absRoot, excludeSet)
			if err != nil {
				return err
			}
			results[i] = walked
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var entries []Entry
	seen := make(map[string]bool)
	for _, walked := range results {
		for _, e := range walked {
			key := e.RelPath.String()
			if seen[key] {
				continue
			}
			seen[key] = true
			entries = append(entries, e)
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].RelPath.String() < entries[j].RelPath.String()
	})
	return entries, nil
}

func walkOne(root, absRoot string, excludeSet map[string]bool) ([]Entry, error) {
	var entries []Entry

	err := filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return fielderr.With(fielderr.Wrap(err, "failed to walk input path"), "path", path)
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return fielderr.Wrap(relErr, "failed to compute relative path")
		}
		relSlash := toSlash(rel)

		if excluded(relSlash, excludeSet) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		entry, err := buildEntry(path, relSlash, d)
		if err != nil {
			return err
		}
		entries = append(entries, entry)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func buildEntry(path, relSlash string, d fs.DirEntry) (Entry, error) {
	info, err := d.Info()
	if err != nil {
		return Entry{}, fielderr.With(fielderr.Wrap(err, "failed to stat path"), "path", path)
	}

	switch {
	case info.Mode()&os.ModeSymlink != 0:
		target, err := os.Readlink(path)
		if err != nil {
			return Entry{}, fielderr.With(fielderr.Wrap(err, "failed to read symlink"), "path", path)
		}
		return Entry{
			RelPath:    newOSPath(relSlash),
			Kind:       KindSymlink,
			Mode:       readableMode(info.Mode()),
			LinkTarget: []byte(toSlash(target)),
		}, nil
	case info.IsDir():
		return Entry{
			RelPath: newOSPath(relSlash),
			Kind:    KindDir,
			Mode:    readableMode(info.Mode()),
		}, nil
	default:
		content, err := os.ReadFile(path) //nolint:gosec // path is derived from a declared input root
		if err != nil {
			return Entry{}, fielderr.With(fielderr.Wrap(err, "failed to read input file"), "path", path)
		}
		return Entry{
			RelPath: newOSPath(relSlash),
			Kind:    KindFile,
			Mode:    readableMode(info.Mode()),
			Content: content,
		}, nil
	}
}

// readableMode reduces a file mode to the world-readable permission
// subset so cache keys don't depend on host umask noise.
func readableMode(m fs.FileMode) fs.FileMode {
	return m & (fs.ModePerm &^ 0o022)
}

func excluded(relSlash string, excludeSet map[string]bool) bool {
	if excludeSet[relSlash] {
		return true
	}
	for excluded := range excludeSet {
		if strings.HasPrefix(relSlash, excluded+"/") {
			return true
		}
	}
	return false
}

func toSlash(p string) string {
	return filepath.ToSlash(p)
}
