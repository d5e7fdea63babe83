package core

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
)

// Store is the RVM handle's engine: the prefix directory, the segment
// catalog, and the live transaction table. One Store is created per
// rvm.Init call; it has no explicit shutdown.
type Store struct {
	dir          string
	catalog      map[string]*segment
	transactions map[TransID]*transaction
	transCtr     int64

	mu sync.Mutex

	fsyncOnCommit bool
	checkOrphans  bool
	onReplayStart func()
}

// Option configures a Store at construction time, in the functional-
// options style.
type Option func(*Store)

// WithFsyncOnCommit fsyncs the log file after every appended
// transaction block, trading commit latency for durability against an
// OS-level crash between the append and the kernel's own write-back.
func WithFsyncOnCommit(b bool) Option {
	return func(s *Store) { s.fsyncOnCommit = b }
}

// WithOrphanCheck enables or disables the best-effort scan for
// leftover temp files from an interrupted log rewrite. On by default.
func WithOrphanCheck(b bool) Option {
	return func(s *Store) { s.checkOrphans = b }
}

// WithOnReplayStart installs a hook invoked every time log replay
// begins, for deterministic test synchronization.
func WithOnReplayStart(f func()) Option {
	return func(s *Store) { s.onReplayStart = f }
}

// Init creates dir if it doesn't already exist and returns a Store
// rooted there, with an empty catalog and no live transactions.
func Init(dir string, opts ...Option) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("init: %w: directory is required", ErrInvalidArgument)
	}
	if len(dir) > MaxNameLen {
		return nil, fmt.Errorf("init %q: %w", dir, ErrNameTooLong)
	}

	s := &Store{
		dir:           dir,
		catalog:       make(map[string]*segment),
		transactions:  make(map[TransID]*transaction),
		checkOrphans:  true,
		onReplayStart: func() {},
	}

	for _, opt := range opts {
		opt(s)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("init %q: mkdir: %w", dir, err)
	}

	if err := createFileDurable(s.logPath()); err != nil {
		return nil, fmt.Errorf("init %q: %w", dir, err)
	}

	if s.checkOrphans {
		s.checkOrphanedSegments()
	}

	return s, nil
}

func (s *Store) logPath() string {
	return filepath.Join(s.dir, "rvm.log")
}

// checkOrphanedSegments scans the prefix directory for temp files left
// behind by an interrupted atomic log rewrite (writeFileAtomic always
// cleans its own ".tmp" file up on success; a crash mid-rewrite can
// leave one behind). Never fails the surrounding call, only logs.
func (s *Store) checkOrphanedSegments() {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		log.Printf("rvm: checkOrphanedSegments: read dir %q: %v", s.dir, err)
		return
	}

	actual := mapset.NewSet[string]()
	expected := mapset.NewSet[string]()
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		actual.Add(name)
		if !strings.HasSuffix(name, ".tmp") {
			expected.Add(name)
		}
	}

	if strays := actual.Difference(expected); strays.Cardinality() != 0 {
		log.Printf("rvm: warning: leftover temp files in %q: %v", s.dir, strays)
	}
}

// Map returns a byte slice backing segname, creating it at size bytes
// if it doesn't exist, loading committed contents if it does, and
// growing it in place if a larger size is requested of an already-
// mapped segment.
func (s *Store) Map(segname string, size int) ([]byte, error) {
	if s == nil {
		return nil, fmt.Errorf("map: %w", ErrInvalidArgument)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if segname == "" {
		return nil, fmt.Errorf("map: %w: segname is required", ErrInvalidArgument)
	}
	if len(segname) > MaxNameLen {
		return nil, fmt.Errorf("map %q: %w", segname, ErrNameTooLong)
	}
	if size < 0 {
		return nil, fmt.Errorf("map %q: %w: negative size", segname, ErrInvalidArgument)
	}

	if seg, ok := s.catalog[segname]; ok {
		if seg.curTrans != TransNull {
			return nil, fmt.Errorf("map %q: %w", segname, ErrSegmentBusy)
		}
		if size <= seg.size {
			return seg.buf, nil
		}
		if err := seg.grow(s.dir, size); err != nil {
			return nil, fmt.Errorf("map %q: %w", segname, err)
		}
		return seg.buf, nil
	}

	if err := s.replayAndTruncate(); err != nil {
		return nil, fmt.Errorf("map %q: %w", segname, err)
	}

	seg, err := loadOrCreateSegment(s.dir, segname, size)
	if err != nil {
		return nil, fmt.Errorf("map %q: %w", segname, err)
	}
	s.catalog[segname] = seg

	return seg.buf, nil
}

// Unmap releases a mapped segment, replaying any pending log records
// into it first. The backing file is left on disk.
func (s *Store) Unmap(segbase []byte) error {
	if s == nil {
		return fmt.Errorf("unmap: %w", ErrInvalidArgument)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seg := findSegmentByBase(s.catalog, segbase)
	if seg == nil {
		return fmt.Errorf("unmap: %w", ErrNotMapped)
	}
	if seg.curTrans != TransNull {
		return fmt.Errorf("unmap %q: %w", seg.segname, ErrSegmentBusy)
	}

	if err := s.replayAndTruncate(); err != nil {
		return fmt.Errorf("unmap %q: %w", seg.segname, err)
	}

	delete(s.catalog, seg.segname)
	return nil
}

// Destroy removes a segment's backing file. A no-op while the segment
// is still mapped.
func (s *Store) Destroy(segname string) error {
	if s == nil {
		return fmt.Errorf("destroy: %w", ErrInvalidArgument)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.catalog[segname]; ok {
		return nil
	}

	path := backingFilePath(s.dir, segname)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("destroy %q: %w", segname, err)
	}
	return nil
}
