package runner

import (
	"github.com/abdul-hamid-achik/sheetspec/packages/assertions"
	"github.com/abdul-hamid-achik/sheetspec/packages/collection"
	"github.com/abdul-hamid-achik/sheetspec/packages/http"
)

type EventKind int

const (
	// EventRequest reports one finished request, successful or not
	EventRequest EventKind = iota + 1
	// EventDone is sent once, after every request event
	EventDone
)

func (k EventKind) String() string {
	switch k {
	case EventRequest:
		return "request"
	case EventDone:
		return "done"
	default:
		return "unknown"
	}
}

type Event struct {
	Kind EventKind
	// Index is the position of Item in the collection.
	Index      int
	Item       collection.Item
	Response   *http.Response
	Assertions []*assertions.Result
	Err        error
}

// Passed reports whether the request completed and every assertion held.
func (e Event) Passed() bool {
	return e.Kind == EventRequest && e.Err == nil && assertions.AllPassed(e.Assertions)
}

// DoneEvent returns the terminal event.
func DoneEvent() Event {
	return Event{Kind: EventDone, Index: -1}
}
