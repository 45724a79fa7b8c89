package router

import "fmt"

// HistoryMode selects how a committed navigation is recorded.
type HistoryMode int

const (
	// Push appends a new history entry.
	Push HistoryMode = iota
	// Replace overwrites the current history entry.
	Replace
)

func (m HistoryMode) String() string {
	if m == Replace {
		return "replace"
	}
	return "push"
}

// Cause records which trigger produced a request.
type Cause int

const (
	CauseClick Cause = iota
	CausePop
	CauseInitial
	CauseDirect
)

func (c Cause) String() string {
	switch c {
	case CauseClick:
		return "click"
	case CausePop:
		return "pop"
	case CauseInitial:
		return "initial"
	case CauseDirect:
		return "direct"
	default:
		return fmt.Sprintf("Cause(%d)", int(c))
	}
}

// Request is one navigation. Seq is assigned by the engine loop in trigger
// order and is zero until then.
type Request struct {
	Target string // same-origin path, e.g. "/about.html"
	Mode   HistoryMode
	Seq    uint64
	Cause  Cause
}

// State is the engine's navigation state.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// EventKind identifies an engine event.
type EventKind int

const (
	EventStarted EventKind = iota
	EventCommitted
	EventFailed
	EventDiscarded // a superseded request finished
)

func (k EventKind) String() string {
	switch k {
	case EventStarted:
		return "started"
	case EventCommitted:
		return "committed"
	case EventFailed:
		return "failed"
	case EventDiscarded:
		return "discarded"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event is delivered to Options.OnEvent from the engine loop.
type Event struct {
	Kind    EventKind
	Request Request
	Err     error // set for EventFailed, and for EventDiscarded when the stale request failed
}
