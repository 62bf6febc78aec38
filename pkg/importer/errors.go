package importer

import "errors"

// Fatal error classes. Both abort the import; neither is retried.
var (
	// ErrNotImplemented marks known gaps: multi-buffer mesh groups and
	// enumeration values outside the recognized set.
	ErrNotImplemented = errors.New("not implemented")
	// ErrOutOfRange marks an index that does not resolve to a source or
	// built entity.
	ErrOutOfRange = errors.New("index out of range")
)
