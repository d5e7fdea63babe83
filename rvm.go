// Package rvm implements a Recoverable Virtual Memory facility: an
// embedded, single-process library giving an application durable,
// transactional updates to named regions of its own address space.
//
// An application names persistent regions ("segments"), maps them
// into memory with Map, edits them in place through the returned
// slice inside a transaction, and is guaranteed that either all edits
// of a committed transaction survive a crash or none of them do.
package rvm

import (
	"fmt"

	"github.com/epokhe/rvm/core"
)

// TransID identifies a live transaction, or one of the two reserved
// sentinel values below.
type TransID = core.TransID

const (
	TransNull    = core.TransNull
	TransInvalid = core.TransInvalid
)

// Sentinel errors. See core.Err* for the full set; these are
// re-exported so callers never need to import the core package
// directly.
var (
	ErrInvalidArgument    = core.ErrInvalidArgument
	ErrNameTooLong        = core.ErrNameTooLong
	ErrSegmentBusy        = core.ErrSegmentBusy
	ErrNotMapped          = core.ErrNotMapped
	ErrUnknownTransaction = core.ErrUnknownTransaction
	ErrCorruptLog         = core.ErrCorruptLog
)

// Option configures an RVM at Init time.
type Option = core.Option

var (
	WithFsyncOnCommit = core.WithFsyncOnCommit
	WithOrphanCheck   = core.WithOrphanCheck
	WithOnReplayStart = core.WithOnReplayStart
)

// RVM is a process-wide handle, one per call to Init. It owns the
// prefix directory and the catalog of currently mapped segments.
type RVM struct {
	store *core.Store
}

// Init creates directory if absent, and returns a handle whose prefix
// is exactly the directory given. Fails with ErrInvalidArgument when
// directory is empty and ErrNameTooLong when it exceeds
// core.MaxNameLen bytes.
func Init(directory string, opts ...Option) (*RVM, error) {
	store, err := core.Init(directory, opts...)
	if err != nil {
		return nil, fmt.Errorf("rvm: init: %w", err)
	}
	return &RVM{store: store}, nil
}

// Map returns a byte slice backing segname, mapping it into the
// process for the first time if necessary.
func (r *RVM) Map(segname string, size int) ([]byte, error) {
	if r == nil {
		return nil, fmt.Errorf("rvm: map: %w", ErrInvalidArgument)
	}
	return r.store.Map(segname, size)
}

// Unmap releases a previously mapped segment.
func (r *RVM) Unmap(segbase []byte) error {
	if r == nil {
		return fmt.Errorf("rvm: unmap: %w", ErrInvalidArgument)
	}
	return r.store.Unmap(segbase)
}

// Destroy removes a segment's backing storage. A no-op while mapped.
func (r *RVM) Destroy(segname string) error {
	if r == nil {
		return fmt.Errorf("rvm: destroy: %w", ErrInvalidArgument)
	}
	return r.store.Destroy(segname)
}

// BeginTrans starts a transaction owning the given mapped segments.
func (r *RVM) BeginTrans(segbases [][]byte) (TransID, error) {
	if r == nil {
		return TransInvalid, fmt.Errorf("rvm: begin_trans: %w", ErrInvalidArgument)
	}
	return r.store.BeginTrans(segbases)
}

// AboutToModify declares intent to modify a byte range before it's
// overwritten, so the transaction can undo it on abort.
func (r *RVM) AboutToModify(tid TransID, segbase []byte, offset, size int) error {
	if r == nil {
		return fmt.Errorf("rvm: about_to_modify: %w", ErrInvalidArgument)
	}
	return r.store.AboutToModify(tid, segbase, offset, size)
}

// CommitTrans durably commits every modification made under tid.
func (r *RVM) CommitTrans(tid TransID) error {
	if r == nil {
		return fmt.Errorf("rvm: commit_trans: %w", ErrInvalidArgument)
	}
	return r.store.CommitTrans(tid)
}

// AbortTrans discards every modification made under tid, restoring
// the segments to their state at BeginTrans.
func (r *RVM) AbortTrans(tid TransID) error {
	if r == nil {
		return fmt.Errorf("rvm: abort_trans: %w", ErrInvalidArgument)
	}
	return r.store.AbortTrans(tid)
}
