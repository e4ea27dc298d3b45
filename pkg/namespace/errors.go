package namespace

import "errors"

// Error is a domain error from namespace operations.
//
// These cover business outcomes (name not found, already exists) and the
// consistency conditions the cache layer can detect (stale metadata, corrupt
// node chain). Transport failures are not wrapped in Error; they pass
// through to callers verbatim.
type Error struct {
	// Code is the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Path is the name or path the error relates to, when applicable.
	Path string
}

func (e *Error) Error() string {
	if e.Path != "" {
		return e.Message + ": " + e.Path
	}
	return e.Message
}

// ErrorCode categorizes a namespace Error.
type ErrorCode int

const (
	// ErrNotFound indicates the name does not exist (possibly cached as a
	// confirmed-absent entry).
	ErrNotFound ErrorCode = iota

	// ErrExist indicates a name already exists where one was being created.
	ErrExist

	// ErrNotDirectory indicates a directory operation hit a non-directory.
	ErrNotDirectory

	// ErrIsDirectory indicates a file operation hit a directory.
	ErrIsDirectory

	// ErrNotEmpty indicates a directory removal target still has entries.
	ErrNotEmpty

	// ErrInvalidArgument indicates bad caller input (empty name, "." or ".."
	// where a real name is required). Rejected before any request is built.
	ErrInvalidArgument

	// ErrNameTooLong indicates a name component exceeds the mount's limit.
	// Rejected before any request is built.
	ErrNameTooLong

	// ErrStaleMetadata indicates the reply reconciliation detected an
	// inconsistency the cache cannot repair: a repeated no-trace reply for
	// the same logical operation, or a fallback lookup binding an object
	// that contradicts the mutation just performed. Never retried silently.
	ErrStaleMetadata

	// ErrRetryExhausted indicates the bounded path-reconstruction retry loop
	// hit its cap; transient, safe to retry at a higher level.
	ErrRetryExhausted

	// ErrCorruptNode indicates a cache node's parent chain violates the
	// arena invariants. This is a logic bug, never swallowed.
	ErrCorruptNode

	// ErrShutdown indicates the client has been closed or never mounted.
	ErrShutdown
)

func (c ErrorCode) String() string {
	switch c {
	case ErrNotFound:
		return "not found"
	case ErrExist:
		return "already exists"
	case ErrNotDirectory:
		return "not a directory"
	case ErrIsDirectory:
		return "is a directory"
	case ErrNotEmpty:
		return "directory not empty"
	case ErrInvalidArgument:
		return "invalid argument"
	case ErrNameTooLong:
		return "name too long"
	case ErrStaleMetadata:
		return "stale metadata"
	case ErrRetryExhausted:
		return "retry limit exceeded"
	case ErrCorruptNode:
		return "corrupt cache node"
	case ErrShutdown:
		return "client shut down"
	default:
		return "unknown"
	}
}

// IsCode reports whether err is (or wraps) a namespace Error with the given
// code.
func IsCode(err error, code ErrorCode) bool {
	var nserr *Error
	if errors.As(err, &nserr) {
		return nserr.Code == code
	}
	return false
}

// IsNotFound is shorthand for IsCode(err, ErrNotFound).
func IsNotFound(err error) bool {
	return IsCode(err, ErrNotFound)
}
