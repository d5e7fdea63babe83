package core

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
)

const transactionHeader = "TRANSACTION"

// logRecord is one parsed modification triple from the log: the
// segment it targets, the byte range, and the redo payload.
type logRecord struct {
	segname string
	offset  int
	size    int
	payload []byte
}

// parseLog walks data as a sequence of transaction blocks (a
// "TRANSACTION" header line followed by one or more four-line
// modification triples) and returns the triples of every complete
// block in file order, plus whatever unparsed suffix remains once a
// complete triple can no longer be read. That suffix starts at the
// header of the block that could not be finished, and none of that
// block's triples are returned. A clean log always ends exactly on a
// record boundary, so tail is ordinarily empty; a log torn mid-write
// by a crash leaves its incomplete tail in place rather than erroring
// the whole replay.
func parseLog(data []byte) (records []logRecord, tail []byte, err error) {
	pos := 0

	for pos < len(data) {
		blockStart := pos
		blockRecords := len(records)
		header, next, ok := readLine(data, pos)
		if !ok || header != transactionHeader {
			return records, data[blockStart:], nil
		}
		pos = next

		for pos < len(data) {
			segname, afterName, ok := readLine(data, pos)
			if !ok {
				return records[:blockRecords], data[blockStart:], nil
			}
			if segname == transactionHeader {
				break // next block begins here; outer loop re-reads it
			}

			offsetLine, afterOffset, ok := readLine(data, afterName)
			if !ok {
				return records[:blockRecords], data[blockStart:], nil
			}
			offset, convErr := strconv.Atoi(offsetLine)
			if convErr != nil {
				return nil, nil, fmt.Errorf("%w: offset %q: %v", ErrCorruptLog, offsetLine, convErr)
			}

			sizeLine, afterSize, ok := readLine(data, afterOffset)
			if !ok {
				return records[:blockRecords], data[blockStart:], nil
			}
			size, convErr := strconv.Atoi(sizeLine)
			if convErr != nil {
				return nil, nil, fmt.Errorf("%w: size %q: %v", ErrCorruptLog, sizeLine, convErr)
			}
			if offset < 0 || size < 0 {
				return nil, nil, fmt.Errorf("%w: negative offset/size in %q record", ErrCorruptLog, segname)
			}

			if afterSize+size+1 > len(data) {
				return records[:blockRecords], data[blockStart:], nil
			}
			payload := data[afterSize : afterSize+size]
			if data[afterSize+size] != '\n' {
				return nil, nil, fmt.Errorf("%w: payload for %q not newline-terminated", ErrCorruptLog, segname)
			}

			pos = afterSize + size + 1
			records = append(records, logRecord{segname: segname, offset: offset, size: size, payload: payload})
		}
	}

	return records, nil, nil
}

// readLine returns the text before the next '\n' at or after pos, and
// the position just past that newline. ok is false when no newline
// appears before the end of data (an incomplete trailing line).
func readLine(data []byte, pos int) (line string, next int, ok bool) {
	idx := bytes.IndexByte(data[pos:], '\n')
	if idx < 0 {
		return "", pos, false
	}
	return string(data[pos : pos+idx]), pos + idx + 1, true
}

// replayAndTruncate is invoked at every Map and Unmap: parse the log,
// apply every triple of every complete transaction block to both the loaded
// segment (if any) and the backing file, then rewrite the log to hold
// only whatever unparsed tail remained (ordinarily none). Rewriting
// to the unparsed tail rather than to empty keeps a torn trailing
// record — one truncated mid-write by a crash — in place so a later
// replay can still recognize and apply it once the rest of that write
// lands.
func (s *Store) replayAndTruncate() error {
	s.onReplayStart()

	path := s.logPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("replay: read log: %w", err)
	}
	if len(data) == 0 {
		return nil
	}

	records, tail, err := parseLog(data)
	if err != nil {
		return fmt.Errorf("replay: %w", err)
	}
	if len(records) == 0 {
		return nil
	}

	for _, rec := range records {
		if err := s.applyRecord(rec); err != nil {
			return fmt.Errorf("replay: apply %q@%d: %w", rec.segname, rec.offset, err)
		}
	}

	if err := writeFileAtomic(path, tail); err != nil {
		return fmt.Errorf("replay: truncate log: %w", err)
	}

	return nil
}

// applyRecord copies a record's payload into the live segment buffer
// when that segment is currently loaded and the range fits, and
// unconditionally applies it to the backing file, extending the file
// if necessary.
func (s *Store) applyRecord(rec logRecord) error {
	if seg, ok := s.catalog[rec.segname]; ok {
		if rec.offset+rec.size <= seg.size {
			copy(seg.buf[rec.offset:rec.offset+rec.size], rec.payload)
		}
	}

	path := backingFilePath(s.dir, rec.segname)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("open backing file %q: %w", path, err)
	}
	defer f.Close() // nolint:errcheck

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat backing file %q: %w", path, err)
	}

	needed := int64(rec.offset + rec.size)
	if info.Size() < needed {
		if err := f.Truncate(needed); err != nil {
			return fmt.Errorf("extend backing file %q: %w", path, err)
		}
	}

	if _, err := f.WriteAt(rec.payload, int64(rec.offset)); err != nil {
		return fmt.Errorf("write backing file %q: %w", path, err)
	}

	return nil
}
