package bundler

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Reader returns the text of a resolved path.
type Reader interface {
	Read(path string) (string, error)
}

// ReadError reports a failed read. It unwraps to the underlying error, so
// errors.Is(err, fs.ErrNotExist) tells a missing file from other failures.
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string {
	if errors.Is(e.Err, fs.ErrNotExist) {
		return fmt.Sprintf("file not found: %s", e.Path)
	}
	return fmt.Sprintf("read %s: %v", e.Path, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// IsNotFound reports whether err was caused by a missing file.
func IsNotFound(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

// DirReader reads files from the OS. Relative paths are taken relative to
// Root; absolute paths are used as they are.
type DirReader struct {
	Root string
}

func (r DirReader) Read(p string) (string, error) {
	full := filepath.FromSlash(p)
	if !filepath.IsAbs(full) && r.Root != "" {
		full = filepath.Join(r.Root, full)
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return "", &ReadError{Path: p, Err: err}
	}
	return string(data), nil
}

// FSReader reads from an fs.FS. A leading slash is dropped because fs.FS
// names are always relative to the file system root.
type FSReader struct {
	FS fs.FS
}

func (r FSReader) Read(p string) (string, error) {
	name := path.Clean(strings.TrimPrefix(p, "/"))
	data, err := fs.ReadFile(r.FS, name)
	if err != nil {
		return "", &ReadError{Path: p, Err: err}
	}
	return string(data), nil
}
