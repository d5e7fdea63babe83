package core

import "errors"

// Sentinel errors returned by the engine. Invalid-argument and no-op
// conditions resolve to one of these so a caller can distinguish
// "did nothing" from success with errors.Is, rather than the engine
// silently swallowing the condition. The exception is Destroy of a
// still-mapped segment, which does nothing and returns nil.
var (
	ErrInvalidArgument    = errors.New("rvm: invalid argument")
	ErrNameTooLong        = errors.New("rvm: name exceeds 128 bytes")
	ErrSegmentBusy        = errors.New("rvm: segment owned by another transaction")
	ErrNotMapped          = errors.New("rvm: segment is not mapped")
	ErrUnknownTransaction = errors.New("rvm: unknown or sentinel transaction")
	ErrCorruptLog         = errors.New("rvm: corrupt log record")
)

// MaxNameLen is the size limit placed on both the init directory path
// and any segment name.
const MaxNameLen = 128
