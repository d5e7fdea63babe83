package core

import (
	"fmt"
	"sync/atomic"
)

// TransID identifies a live transaction. Two values are reserved
// sentinels: TransNull for "no transaction" and TransInvalid for "the
// operation that would have produced this id failed". Every other
// value, starting at 1, names a real, in-flight transaction.
type TransID int64

const (
	TransNull    TransID = 0
	TransInvalid TransID = -1
)

// transaction binds a fixed, ordered set of segments exclusively to
// one in-flight caller. Segments are locked on BeginTrans and
// released on CommitTrans/AbortTrans; the slice order is the order
// commit writes modification triples to the log in.
type transaction struct {
	id   TransID
	segs []*segment
}

func (s *Store) claimTransID() TransID {
	return TransID(atomic.AddInt64(&s.transCtr, 1))
}

// BeginTrans claims exclusive ownership of every listed segment under
// one new transaction id. It fails (returning TransInvalid) if any
// listed segment is not loaded or is already owned by another
// transaction.
func (s *Store) BeginTrans(segbases [][]byte) (TransID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(segbases) == 0 {
		return TransInvalid, fmt.Errorf("begin_trans: %w: no segments given", ErrInvalidArgument)
	}

	segs := make([]*segment, 0, len(segbases))
	seen := make(map[*segment]bool, len(segbases))
	for _, base := range segbases {
		seg := findSegmentByBase(s.catalog, base)
		if seg == nil {
			return TransInvalid, fmt.Errorf("begin_trans: %w", ErrNotMapped)
		}
		if seg.curTrans != TransNull {
			return TransInvalid, fmt.Errorf("begin_trans %q: %w", seg.segname, ErrSegmentBusy)
		}
		if seen[seg] {
			return TransInvalid, fmt.Errorf("begin_trans: %w: segment %q listed twice", ErrInvalidArgument, seg.segname)
		}
		seen[seg] = true
		segs = append(segs, seg)
	}

	id := s.claimTransID()
	for _, seg := range segs {
		seg.curTrans = id
	}
	s.transactions[id] = &transaction{id: id, segs: segs}

	return id, nil
}

func (s *Store) lookupTrans(tid TransID) *transaction {
	if tid == TransNull || tid == TransInvalid {
		return nil
	}
	return s.transactions[tid]
}

// AboutToModify captures the pre-image of segbase[offset:offset+size]
// into the segment's undo queue before the caller overwrites it. A
// no-op (returning an error) if tid is a sentinel, segbase isn't
// mapped, or the segment isn't owned by tid.
func (s *Store) AboutToModify(tid TransID, segbase []byte, offset, size int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.lookupTrans(tid)
	if t == nil {
		return fmt.Errorf("about_to_modify: %w", ErrUnknownTransaction)
	}

	seg := findSegmentByBase(s.catalog, segbase)
	if seg == nil {
		return fmt.Errorf("about_to_modify: %w", ErrNotMapped)
	}
	if seg.curTrans != tid {
		return fmt.Errorf("about_to_modify %q: %w", seg.segname, ErrSegmentBusy)
	}
	if offset < 0 || size < 0 || offset+size > seg.size {
		return fmt.Errorf("about_to_modify %q: %w: range [%d,%d) exceeds size %d",
			seg.segname, ErrInvalidArgument, offset, offset+size, seg.size)
	}

	undo := make([]byte, size)
	copy(undo, seg.buf[offset:offset+size])
	seg.mods = append(seg.mods, modification{offset: offset, size: size, undo: undo})

	return nil
}

// CommitTrans appends every queued modification's *new* bytes to the
// log as one redo block, then discards undo state and releases the
// segments.
func (s *Store) CommitTrans(tid TransID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.lookupTrans(tid)
	if t == nil {
		return fmt.Errorf("commit_trans: %w", ErrUnknownTransaction)
	}

	if err := s.appendTransactionLog(t); err != nil {
		return fmt.Errorf("commit_trans: %w", err)
	}

	for _, seg := range t.segs {
		seg.mods = nil
		seg.curTrans = TransNull
	}
	delete(s.transactions, tid)

	return nil
}

// AbortTrans undoes every queued modification in LIFO order (so
// overlapping ranges unwind back to the state at BeginTrans), then
// releases the segments. No log record is written.
func (s *Store) AbortTrans(tid TransID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.lookupTrans(tid)
	if t == nil {
		return fmt.Errorf("abort_trans: %w", ErrUnknownTransaction)
	}

	for _, seg := range t.segs {
		for i := len(seg.mods) - 1; i >= 0; i-- {
			m := seg.mods[i]
			copy(seg.buf[m.offset:m.offset+m.size], m.undo)
		}
		seg.mods = nil
		seg.curTrans = TransNull
	}
	delete(s.transactions, tid)

	return nil
}
