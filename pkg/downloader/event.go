package downloader

import (
	"errors"

	errs "imgharvest/pkg/errors"
)

// Status is the outcome code of a download event
type Status int

const (
	Saved Status = iota
	Invalid
	Resolving
	Failed
)

func (s Status) String() string {
	switch s {
	case Saved:
		return "saved"
	case Invalid:
		return "invalid"
	case Resolving:
		return "resolving"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Event is one download notification
type Event struct {
	Status  Status
	URL     string
	Path    string
	Size    int64
	Message string
}

// EventListener receives download events
type EventListener interface {
	OnDownload(Event)
}

// EventFunc adapts a function to EventListener
type EventFunc func(Event)

func (f EventFunc) OnDownload(e Event) { f(e) }

var discardEvents EventListener = EventFunc(func(Event) {})

func isInvalid(err error) bool {
	return errors.Is(err, errs.ErrInvalidContent)
}
