package materialize

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// copyFileVerified copies src into a temp file beside dst, re-reads the temp
// file to check its size and SHA256 against the source, then renames it over
// dst. Any failure leaves an existing dst untouched.
func copyFileVerified(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	srcHasher := sha256.New()
	var copied int64
	return replaceFile(dst,
		func(tmp *os.File) error {
			copied, err = io.Copy(tmp, io.TeeReader(in, srcHasher))
			return err
		},
		func(tmpName string) error {
			size, sum, err := hashFile(tmpName)
			if err != nil {
				return fmt.Errorf("verify copy: %w", err)
			}
			if size != copied {
				return fmt.Errorf("copy size mismatch: source %d bytes, written %d bytes", copied, size)
			}
			if !bytes.Equal(sum, srcHasher.Sum(nil)) {
				return fmt.Errorf("copy hash mismatch: file corrupted during copy")
			}
			return nil
		},
	)
}

// writeFileAtomic writes content through a temp file so a crash never leaves
// a truncated sidecar.
func writeFileAtomic(dst string, content []byte) error {
	return replaceFile(dst, func(tmp *os.File) error {
		_, err := tmp.Write(content)
		return err
	}, nil)
}

// replaceFile fills a temp file in dst's directory, optionally verifies it
// once closed, and renames it into place. The temp file is removed on failure.
func replaceFile(dst string, fill func(*os.File) error, verify func(tmpName string) error) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpName)
		}
	}()

	if err = fill(tmp); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if verify != nil {
		if err = verify(tmpName); err != nil {
			return err
		}
	}
	if err = os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpName, dst)
}

func hashFile(path string) (int64, []byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, nil, err
	}
	defer f.Close()
	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return 0, nil, err
	}
	return n, h.Sum(nil), nil
}
