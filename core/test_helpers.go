package core

import (
	"os"
	"testing"
)

// SetupTempStore builds a fresh temp directory, an initialized Store
// over it, and registers cleanup on tb.
func SetupTempStore(tb testing.TB, opts ...Option) (store *Store, path string) {
	tb.Helper()

	path, err := os.MkdirTemp("", "rvm_test_*")
	if err != nil {
		tb.Fatalf("MkdirTemp failed: %v", err)
	}

	store, err = Init(path, opts...)
	if err != nil {
		_ = os.RemoveAll(path)
		tb.Fatalf("Init(%q) failed: %v", path, err)
	}

	tb.Cleanup(func() {
		_ = os.RemoveAll(path)
	})

	return store, path
}
