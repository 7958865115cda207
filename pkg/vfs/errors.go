package vfs

import "errors"

// FSError represents a domain error from filesystem operations.
//
// Protocol handlers translate FSError codes to protocol reply codes
// (e.g., FTP 550).
type FSError struct {
	// Code is the error category
	Code ErrorCode

	// Message is a human-readable error description
	Message string

	// Path is the path related to the error (if applicable)
	Path string
}

// Error implements the error interface.
func (e *FSError) Error() string {
	if e.Path != "" {
		return e.Message + ": " + e.Path
	}
	return e.Message
}

// ErrorCode represents the category of a filesystem error.
type ErrorCode int

const (
	// ErrNotFound indicates a path segment does not exist
	ErrNotFound ErrorCode = iota

	// ErrNotDirectory indicates a directory was expected (or traversed) but a
	// file was found
	ErrNotDirectory

	// ErrIsDirectory indicates a file was expected but a directory was found
	ErrIsDirectory

	// ErrInvalidName indicates a name that cannot be stored (empty, ".", "..",
	// or containing a separator)
	ErrInvalidName
)

func (c ErrorCode) String() string {
	switch c {
	case ErrNotFound:
		return "NotFound"
	case ErrNotDirectory:
		return "NotDirectory"
	case ErrIsDirectory:
		return "IsDirectory"
	case ErrInvalidName:
		return "InvalidName"
	default:
		return "Unknown"
	}
}

// IsPathNotFound reports whether err means a path could not be resolved to a
// usable node: a missing segment or a traversal through a file.
func IsPathNotFound(err error) bool {
	var fsErr *FSError
	if !errors.As(err, &fsErr) {
		return false
	}
	return fsErr.Code == ErrNotFound || fsErr.Code == ErrNotDirectory
}

// HasCode reports whether err is an *FSError with the given code.
func HasCode(err error, code ErrorCode) bool {
	var fsErr *FSError
	return errors.As(err, &fsErr) && fsErr.Code == code
}
