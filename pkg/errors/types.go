package errors

import (
	goErrors "errors"
	"fmt"
)

// Kind classifies failures so that they can be reported consistently even
// though they are all handled the same way by the issue scheduler.
type Kind int

const (
	// Unknown is the kind of errors that weren't tagged.
	Unknown Kind = iota

	// IOError is an unreadable file or a short read while fingerprinting.
	IOError

	// SnapshotCorrupt is a persisted snapshot that couldn't be parsed.
	SnapshotCorrupt

	// NetworkError is an unreachable peer or a non-success response.
	NetworkError

	// InvalidChoice is a resolution invoked with a choice it doesn't offer.
	InvalidChoice

	// StateRace is a resolution request for an issue that doesn't exist or
	// is in an incompatible state.
	StateRace
)

func (k Kind) String() string {
	switch k {
	case IOError:
		return "IOError"
	case SnapshotCorrupt:
		return "SnapshotCorrupt"
	case NetworkError:
		return "NetworkError"
	case InvalidChoice:
		return "InvalidChoice"
	case StateRace:
		return "StateRace"
	default:
		return "Unknown"
	}
}

type kindError struct {
	kind Kind
	err  error
}

func (err kindError) Error() string {
	return err.err.Error()
}

func (err kindError) Unwrap() error {
	return err.err
}

// WithKind tags `err` with `kind` without changing its message.
func WithKind(err error, kind Kind) error {
	if err == nil {
		return nil
	}
	return kindError{kind: kind, err: err}
}

// KindOf returns the outermost kind that `err` was tagged with.
func KindOf(err error) Kind {
	var tagged kindError
	if goErrors.As(err, &tagged) {
		return tagged.kind
	}
	return Unknown
}

// FileNotFound represents when we were unable to access a file
// because the path didn't exist.
type FileNotFound struct {
	Path string
}

func (err FileNotFound) Error() string {
	return fmt.Sprintf("%q does not exist", err.Path)
}

// HTTPError is a non-success response from the peer.
type HTTPError struct {
	Method     string
	URL        string
	StatusCode int
	Status     string
}

func (err HTTPError) Error() string {
	return fmt.Sprintf("%s %s: %s", err.Method, err.URL, err.Status)
}

// ErrShortRead occurs when fewer bytes than expected could be read from a
// file.
var ErrShortRead = New("short read")
