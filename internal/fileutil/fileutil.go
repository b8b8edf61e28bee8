package fileutil

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// CopyFileVerified copies src to dst through a temp file in dst's
// directory, checks the written bytes against a SHA-256 of the source, and
// only then renames the temp file into place. dst keeps src's permissions.
func CopyFileVerified(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	srcSum, dstSum := sha256.New(), sha256.New()
	n, err := io.Copy(io.MultiWriter(tmp, dstSum), io.TeeReader(in, srcSum))
	if err != nil {
		return err
	}
	switch {
	case n != info.Size():
		return fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", info.Size(), n)
	case !bytes.Equal(srcSum.Sum(nil), dstSum.Sum(nil)):
		return errors.New("copy hash mismatch: file corrupted during copy")
	}
	if err := tmp.Chmod(info.Mode().Perm()); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, dst); err != nil {
		return err
	}
	committed = true
	return nil
}

// SameDevice reports whether a and b live on the same filesystem. b may not
// exist yet, in which case its nearest existing parent is used.
func SameDevice(a, b string) (bool, error) {
	var sa, sb unix.Stat_t
	if err := unix.Stat(a, &sa); err != nil {
		return false, fmt.Errorf("stat %s: %w", a, err)
	}
	target := b
	for {
		err := unix.Stat(target, &sb)
		if err == nil {
			break
		}
		if !errors.Is(err, unix.ENOENT) {
			return false, fmt.Errorf("stat %s: %w", target, err)
		}
		parent := filepath.Dir(target)
		if parent == target {
			return false, fmt.Errorf("stat %s: %w", b, err)
		}
		target = parent
	}
	return sa.Dev == sb.Dev, nil
}

// LinkOrCopy hardlinks src to dst, falling back to a verified copy when the
// two paths are on different filesystems or the link is refused.
func LinkOrCopy(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	same, err := SameDevice(src, dst)
	if err == nil && same {
		if err := os.Link(src, dst); err == nil {
			return nil
		} else if errors.Is(err, os.ErrExist) {
			return err
		}
	}
	if _, err := os.Lstat(dst); err == nil {
		return fmt.Errorf("link %s: %w", dst, os.ErrExist)
	}
	return CopyFileVerified(src, dst)
}

// MoveFile renames src to dst, copying across filesystems when needed.
func MoveFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	if !errors.Is(err, unix.EXDEV) {
		return err
	}
	if err := CopyFileVerified(src, dst); err != nil {
		return err
	}
	return os.Remove(src)
}
