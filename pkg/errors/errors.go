package errors

import (
	"errors"
	"fmt"
)

// Kind classifies where in the acquisition pipeline an error happened
type Kind string

const (
	KindLoad     Kind = "load"
	KindUpload   Kind = "upload"
	KindSearch   Kind = "search"
	KindDownload Kind = "download"
	KindBounds   Kind = "bounds"
)

var (
	// ErrNoLocation is returned when the upload response carries no redirect target
	ErrNoLocation = errors.New("response has no Location header")
	// ErrInvalidContent marks a fetched body that failed size/signature validation
	ErrInvalidContent = errors.New("invalid content")
	// ErrInvalidTransition is returned by journal state changes that are not allowed
	ErrInvalidTransition = errors.New("invalid state transition")
)

// Error is a typed error carrying the pipeline stage it came from
type Error struct {
	Kind Kind
	Op   string
	URL  string
	Err  error
}

func (e *Error) Error() string {
	msg := string(e.Kind) + " error"
	if e.Op != "" {
		msg += " in " + e.Op
	}
	if e.URL != "" {
		msg += fmt.Sprintf(" (%s)", e.URL)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Load wraps a failure to read or decode a local source image
func Load(op, path string, err error) error {
	return &Error{Kind: KindLoad, Op: op, URL: path, Err: err}
}

// Upload wraps an unexpected response from the search upload endpoint
func Upload(op, url string, err error) error {
	return &Error{Kind: KindUpload, Op: op, URL: url, Err: err}
}

// Search wraps IO failures while scraping result pages
func Search(op, url string, err error) error {
	return &Error{Kind: KindSearch, Op: op, URL: url, Err: err}
}

// Download wraps network, IO and validation failures of a single download
func Download(op, url string, err error) error {
	return &Error{Kind: KindDownload, Op: op, URL: url, Err: err}
}

// Bounds reports invalid user-supplied ranges or templates
func Bounds(op string, format string, args ...interface{}) error {
	return &Error{Kind: KindBounds, Op: op, Err: fmt.Errorf(format, args...)}
}

// IsKind reports whether any error in err's chain is an *Error of the given kind
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
