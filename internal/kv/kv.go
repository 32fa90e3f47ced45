// Package kv holds the durable key-value backends the todo store writes to.
package kv

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

var (
	// ErrUnknownBackend is returned by Open for an unrecognised backend name.
	ErrUnknownBackend = errors.New("unknown storage backend")
	// ErrInvalidKey is returned for empty keys or keys that would escape the data dir.
	ErrInvalidKey = errors.New("invalid key")
)

// KV is a string-valued key-value store.
// Get reports ok == false with a nil error when the key is absent.
type KV interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
}

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Backends lists every name Open understands.
func Backends() []string {
	return []string{BackendFile, BackendSQLite, BackendMemory}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Open builds the backend named by backend, rooted at path.
// For "file" path is a directory; for "sqlite" it is the database file.
// The returned Closer is always non-nil on success.
func Open(backend, path string) (KV, io.Closer, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case BackendFile, "":
		f, err := NewFile(path)
		if err != nil {
			return nil, nil, err
		}
		return f, nopCloser{}, nil
	case BackendSQLite:
		s, err := OpenSQLite(path)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	case BackendMemory:
		return NewMemory(), nopCloser{}, nil
	}
	return nil, nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
}

func checkKey(key string) error {
	if strings.TrimSpace(key) == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}
