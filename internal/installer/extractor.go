package installer

import (
	"archive/tar"    // For reading .tar archives
	"archive/zip"    // For reading .zip archives
	"compress/bzip2" // For reading .bz2 compressed data
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bodgit/sevenzip"         // For reading .7z archives
	"github.com/klauspost/compress/gzip" // For reading .gz compressed data
	"github.com/klauspost/compress/zstd" // For reading .zst compressed data
	"github.com/xi2/xz"                  // For reading .xz compressed data

	"epic-postinstall/internal/logger"
	"epic-postinstall/internal/release"
)

// extractArchive unpacks src into dest according to its archive extension.
func extractArchive(src, dest string) error {
	ext := release.ArchiveExtension(src)
	logger.Debug("Extracting %s (%s) into %s", src, ext, dest)

	switch ext {
	case ".zip":
		return extractZip(src, dest)
	case ".7z":
		return extract7z(src, dest)
	case ".tar.gz", ".tgz", ".tar.xz", ".tar.zst", ".tar.bz2":
		return extractTarArchive(src, dest, ext)
	default:
		return fmt.Errorf("unsupported archive format: %s", filepath.Base(src))
	}
}

// extractTarArchive handles the compressed tar variants.
func extractTarArchive(src, dest, ext string) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()

	var reader io.Reader
	switch ext {
	case ".tar.gz", ".tgz":
		gr, err := gzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("gzip: %w", err)
		}
		defer gr.Close()
		reader = gr
	case ".tar.bz2":
		reader = bzip2.NewReader(f)
	case ".tar.xz":
		xzr, err := xz.NewReader(f, 0)
		if err != nil {
			return fmt.Errorf("xz: %w", err)
		}
		reader = xzr
	case ".tar.zst":
		zr, err := zstd.NewReader(f)
		if err != nil {
			return fmt.Errorf("zstd: %w", err)
		}
		defer zr.Close()
		reader = zr
	}

	tr := tar.NewReader(reader)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("tar: %w", err)
		}

		target, err := safeJoin(dest, hdr.Name)
		if err != nil {
			return err
		}
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := writeEntry(dest, target, tr, hdr.FileInfo().Mode()); err != nil {
				return err
			}
		case tar.TypeSymlink:
			if err := writeSymlink(dest, target, hdr.Linkname); err != nil {
				return err
			}
		default:
			logger.Debug("Skipping %s (tar type %c)", hdr.Name, hdr.Typeflag)
		}
	}
}

// extractZip extracts a .zip archive.
func extractZip(src, dest string) error {
	r, err := zip.OpenReader(src)
	if err != nil {
		return fmt.Errorf("zip: %w", err)
	}
	defer r.Close()

	for _, f := range r.File {
		if err := extractFile(dest, f.Name, f.FileInfo(), f.Open); err != nil {
			return err
		}
	}
	return nil
}

// extract7z handles .7z extraction using the sevenzip library.
func extract7z(src, dest string) error {
	r, err := sevenzip.OpenReader(src)
	if err != nil {
		return fmt.Errorf("7z: %w", err)
	}
	defer r.Close()

	for _, f := range r.File {
		if err := extractFile(dest, f.Name, f.FileInfo(), f.Open); err != nil {
			return err
		}
	}
	return nil
}

// extractFile writes one entry of a random-access archive (zip, 7z).
func extractFile(dest, name string, info fs.FileInfo, open func() (io.ReadCloser, error)) error {
	target, err := safeJoin(dest, name)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return os.MkdirAll(target, 0755)
	}
	isLink := info.Mode()&fs.ModeSymlink != 0
	if !isLink && !info.Mode().IsRegular() {
		logger.Debug("Skipping %s (mode %s)", name, info.Mode())
		return nil
	}

	rc, err := open()
	if err != nil {
		return fmt.Errorf("open %s: %w", name, err)
	}
	defer rc.Close()

	if isLink {
		// Zip and 7z store the link target as the entry body.
		linkname, err := io.ReadAll(io.LimitReader(rc, maxLinkLen))
		if err != nil {
			return fmt.Errorf("read link %s: %w", name, err)
		}
		return writeSymlink(dest, target, string(linkname))
	}
	return writeEntry(dest, target, rc, info.Mode())
}

const maxLinkLen = 4096

func writeEntry(dest, target string, r io.Reader, mode fs.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}
	// An earlier symlink entry may have redirected a parent directory.
	if err := checkResolved(dest, filepath.Dir(target)); err != nil {
		return err
	}
	if err := os.Remove(target); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	perm := mode.Perm() | 0600
	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return fmt.Errorf("write %s: %w", target, err)
	}
	return out.Close()
}

// writeSymlink recreates an archive symlink at target. Links that are
// absolute or point outside dest are skipped.
func writeSymlink(dest, target, linkname string) error {
	if linkname == "" || filepath.IsAbs(linkname) || !within(dest, filepath.Join(filepath.Dir(target), linkname)) {
		logger.Warn("Skipping symlink %s -> %s: it points outside the archive", target, linkname)
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}
	if err := checkResolved(dest, filepath.Dir(target)); err != nil {
		return err
	}
	if err := os.Remove(target); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.Symlink(linkname, target)
}

// checkResolved fails if dir, after following symlinks, is not inside dest.
func checkResolved(dest, dir string) error {
	realDest, err := filepath.EvalSymlinks(dest)
	if err != nil {
		return err
	}
	realDir, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return err
	}
	if !within(realDest, realDir) {
		return fmt.Errorf("archive path %s escapes the extraction directory through a symlink", dir)
	}
	return nil
}

// safeJoin joins an archive entry name onto dest and rejects names that
// would land outside it.
func safeJoin(dest, name string) (string, error) {
	target := filepath.Join(dest, name)
	if !within(dest, target) {
		return "", fmt.Errorf("archive entry %q escapes the extraction directory", name)
	}
	return target, nil
}

// within reports whether path is root or lexically below it.
func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(os.PathSeparator)) && !filepath.IsAbs(rel)
}

// findExecutable walks root depth-first in lexical order and returns the first
// regular file named exactly command. A symlink named command counts when it
// resolves to a regular file inside root. Extra matches are logged, not fatal.
func findExecutable(root, command string) (string, error) {
	realRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return "", err
	}

	var matches []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Name() != command {
			return nil
		}
		switch {
		case d.Type().IsRegular():
			matches = append(matches, path)
		case d.Type()&fs.ModeSymlink != 0 && linksToFileIn(realRoot, path):
			matches = append(matches, path)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	switch len(matches) {
	case 0:
		return "", ErrExecutableNotFound
	case 1:
		return matches[0], nil
	default:
		rel := make([]string, len(matches))
		for i, m := range matches {
			rel[i], _ = filepath.Rel(root, m)
		}
		logger.Warn("Archive contains %d files named %s (%s); using %s", len(matches), command, strings.Join(rel, ", "), rel[0])
		return matches[0], nil
	}
}

func linksToFileIn(realRoot, path string) bool {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		logger.Debug("Ignoring dangling symlink %s", path)
		return false
	}
	info, err := os.Stat(resolved)
	return err == nil && info.Mode().IsRegular() && within(realRoot, resolved)
}

// copyFile copies src to dst with mode, replacing dst if it exists. A src
// symlink is followed.
// Copying rather than renaming tolerates a temp directory on another device.
func copyFile(src, dst string, mode os.FileMode) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source failed: %w", err)
	}
	defer in.Close()

	if err := os.Remove(dst); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("replace %s: %w", dst, err)
	}
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("create target failed: %w", err)
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copy failed: %w", err)
	}
	return nil
}
