package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Local keeps artifacts as files in a single directory that the HTTP
// server republishes under the public prefix.
type Local struct {
	dir   string
	namer *Namer
}

// NewLocal returns a filesystem store rooted at dir.
func NewLocal(dir string, namer *Namer) *Local {
	return &Local{dir: dir, namer: namer}
}

// Prepare creates the storage directory and checks it is writable.
func (l *Local) Prepare() error {
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return writeErr("create dir", err)
	}
	check, err := os.CreateTemp(l.dir, ".writable-*")
	if err != nil {
		return writeErr("check dir", err)
	}
	name := check.Name()
	_ = check.Close()
	return os.Remove(name)
}

func (l *Local) Save(ctx context.Context, key string, payload io.Reader, size int64, ext string) (string, error) {
	if payload == nil {
		return "", writeErr("save", errors.New("empty payload"))
	}
	if err := ctx.Err(); err != nil {
		return "", writeErr("save", err)
	}

	name := l.namer.Name(key, ext)
	dst := filepath.Join(l.dir, name)

	f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", writeErr("create file", err)
	}

	written, copyErr := io.Copy(f, payload)
	closeErr := f.Close()
	if copyErr == nil && size >= 0 && written != size {
		copyErr = fmt.Errorf("short write: %d of %d bytes", written, size)
	}
	if err := errors.Join(copyErr, closeErr); err != nil {
		_ = os.Remove(dst)
		return "", writeErr("write file", err)
	}
	return name, nil
}

func (l *Local) Delete(_ context.Context, ref string) error {
	if !validRef(ref) {
		return fmt.Errorf("%w: %q", ErrInvalidRef, ref)
	}
	return os.Remove(filepath.Join(l.dir, ref))
}
