package core

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
)

// appendTransactionLog writes the log-writing half of commit: one
// "TRANSACTION" header line followed by every modification of every
// segment in t, in order, each as a four-line triple whose payload is
// the segment's *current* bytes (the committed new value, not the
// undo pre-image). Builds each line with a single buffered writer and
// flushes once. The on-disk format is plain text with no checksum
// field — callers depend on the exact byte layout of a record, and a
// checksum would change it; a torn or corrupt record is instead
// caught by parseLog's structural checks (bad integer, short payload).
func (s *Store) appendTransactionLog(t *transaction) error {
	f, err := os.OpenFile(s.logPath(), os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	defer f.Close() // nolint:errcheck

	w := bufio.NewWriter(f)

	if _, err := w.WriteString("TRANSACTION\n"); err != nil {
		return fmt.Errorf("write log: %w", err)
	}

	for _, seg := range t.segs {
		for _, m := range seg.mods {
			if err := writeModificationTriple(w, seg.segname, m.offset, m.size, seg.buf[m.offset:m.offset+m.size]); err != nil {
				return fmt.Errorf("write log: %w", err)
			}
		}
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush log: %w", err)
	}

	if s.fsyncOnCommit {
		if err := f.Sync(); err != nil {
			return fmt.Errorf("fsync log: %w", err)
		}
	}

	return nil
}

// writeModificationTriple writes the four lines of one modification
// record: segname, decimal offset, decimal size, then the raw payload
// terminated by a single newline.
func writeModificationTriple(w *bufio.Writer, segname string, offset, size int, payload []byte) error {
	if _, err := w.WriteString(segname); err != nil {
		return err
	}
	if err := w.WriteByte('\n'); err != nil {
		return err
	}
	if _, err := w.WriteString(strconv.Itoa(offset)); err != nil {
		return err
	}
	if err := w.WriteByte('\n'); err != nil {
		return err
	}
	if _, err := w.WriteString(strconv.Itoa(size)); err != nil {
		return err
	}
	if err := w.WriteByte('\n'); err != nil {
		return err
	}
	if _, err := w.Write(payload); err != nil {
		return err
	}
	return w.WriteByte('\n')
}
