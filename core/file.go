package core

import (
	"os"
	"path/filepath"
)

// writeFileAtomic atomically replaces the file at path with the full
// contents of data. It writes to a temp file in the same directory,
// fsyncs it, renames it over the old path, then fsyncs the directory
// so the rename itself is durable.
func writeFileAtomic(path string, data []byte) (rerr error) {
	tmpPath := path + ".tmp"

	defer func() {
		if rerr != nil {
			_ = os.Remove(tmpPath)
		}
	}()

	tmpf, err := os.OpenFile(tmpPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}

	if _, err := tmpf.Write(data); err != nil {
		_ = tmpf.Close()
		return err
	}

	if err := tmpf.Sync(); err != nil {
		_ = tmpf.Close()
		return err
	}

	if err := tmpf.Close(); err != nil {
		return err
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close() // nolint:errcheck

	return d.Sync()
}

// createFileDurable ensures path exists (creating it empty if not)
// and that both the file and its containing directory entry are
// fsynced, so the file's existence survives a crash.
func createFileDurable(path string) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close() // nolint:errcheck

	if err := f.Sync(); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close() // nolint:errcheck

	return d.Sync()
}
