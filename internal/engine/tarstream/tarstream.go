// Package tarstream builds and extracts the POSIX tar streams the run
// loop pipes to and from the container executor (spec §4.5): input
// entries already collected by pathcollector are archived without a
// second filesystem walk, and output streams extracted from a
// container are staged before an atomic move to their final host
// destination.
package tarstream

import (
	"archive/tar"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/toastbuild/toast/internal/engine/pathcollector"
	"github.com/toastbuild/toast/internal/fielderr"
)

// BuildFromEntries writes entries to w as a POSIX tar stream, in the
// order given, preserving relative path, mode, and symlink targets.
// Callers are expected to have already produced entries in the
// deterministic order pathcollector.Collect returns, so no further
// sorting happens here.
func BuildFromEntries(w io.Writer, entries []pathcollector.Entry) error {
	tw := tar.NewWriter(w)
	for _, entry := range entries {
		if err := writeEntry(tw, entry); err != nil {
			return fielderr.With(fielderr.Wrap(err, "failed to write tar entry"), "path", entry.RelPath.String())
		}
	}
	return tw.Close()
}

func writeEntry(tw *tar.Writer, entry pathcollector.Entry) error {
	header := &tar.Header{
		Name: entry.RelPath.String(),
		Mode: int64(entry.Mode.Perm()),
	}

	switch entry.Kind {
	case pathcollector.KindDir:
		header.Typeflag = tar.TypeDir
		header.Name += "/"
	case pathcollector.KindSymlink:
		header.Typeflag = tar.TypeSymlink
		header.Linkname = string(entry.LinkTarget)
	default:
		header.Typeflag = tar.TypeReg
		header.Size = int64(len(entry.Content))
	}

	if err := tw.WriteHeader(header); err != nil {
		return err
	}
	if entry.Kind == pathcollector.KindFile {
		_, err := tw.Write(entry.Content)
		return err
	}
	return nil
}

// Extract extracts the POSIX tar archive read from r into destDir,
// creating it if necessary.
func Extract(r io.Reader, destDir string) error {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fielderr.Wrap(err, "failed to create extraction directory")
	}

	tr := tar.NewReader(r)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fielderr.Wrap(err, "failed to read tar entry")
		}

		target := filepath.Join(destDir, filepath.FromSlash(header.Name))
		if err := extractEntry(tr, header, target); err != nil {
			return err
		}
	}
}

func extractEntry(tr *tar.Reader, header *tar.Header, target string) error {
	switch header.Typeflag {
	case tar.TypeDir:
		return os.MkdirAll(target, 0o755)
	case tar.TypeSymlink:
		return os.Symlink(header.Linkname, target)
	default:
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(header.Mode)) //nolint:gosec // mode comes from a tar stream this process produced or received from the configured container CLI
		if err != nil {
			return fielderr.Wrap(err, "failed to create extracted file")
		}
		defer f.Close() //nolint:errcheck // best-effort close after a successful write
		_, err = io.Copy(f, tr) //nolint:gosec // archive size is bounded by the task's own declared outputs
		return err
	}
}

// AtomicMove moves src to dst, falling back to a recursive copy when
// they are not on the same filesystem (os.Rename's EXDEV case), per
// spec §4.6 phase 7 ("the move uses copy-then-rename when source and
// destination straddle filesystems").
func AtomicMove(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fielderr.Wrap(err, "failed to create destination directory")
	}

	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	tmp := dst + ".toast-partial"
	if err := copyTree(src, tmp); err != nil {
		_ = os.RemoveAll(tmp)
		return fielderr.Wrap(err, "failed to copy across filesystems")
	}
	if err := os.Rename(tmp, dst); err != nil {
		_ = os.RemoveAll(tmp)
		return fielderr.Wrap(err, "failed to rename copied output into place")
	}
	return os.RemoveAll(src)
}

func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		in, err := os.Open(path) //nolint:gosec // path is within a temp staging directory this process created
		if err != nil {
			return err
		}
		defer in.Close() //nolint:errcheck // best-effort close after a successful read

		out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode())
		if err != nil {
			return err
		}
		defer out.Close() //nolint:errcheck // best-effort close after a successful write

		_, err = io.Copy(out, in)
		return err
	})
}
