package session

// State is the top-level state of a signing session.
type State int

const (
	Idle State = iota
	Loading
	Ready
	Composing
	Submitting
	Error
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Composing:
		return "composing"
	case Submitting:
		return "submitting"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Event drives a State transition.
type Event int

const (
	// EventLoad starts loading a new document, from any state.
	EventLoad Event = iota
	EventLoaded
	EventLoadFailed
	// EventCompose starts a download or send.
	EventCompose
	// EventComposed finishes a download.
	EventComposed
	EventComposeFailed
	// EventSubmit hands a composed document to the submitter.
	EventSubmit
	EventSubmitted
	EventSubmitFailed
	// EventReset returns to Idle, from any state.
	EventReset
)

func (e Event) String() string {
	switch e {
	case EventLoad:
		return "load"
	case EventLoaded:
		return "loaded"
	case EventLoadFailed:
		return "load-failed"
	case EventCompose:
		return "compose"
	case EventComposed:
		return "composed"
	case EventComposeFailed:
		return "compose-failed"
	case EventSubmit:
		return "submit"
	case EventSubmitted:
		return "submitted"
	case EventSubmitFailed:
		return "submit-failed"
	case EventReset:
		return "reset"
	default:
		return "unknown"
	}
}

// Reduce returns the state that follows s on e. ok is false when e is not
// allowed in s, in which case s is returned unchanged.
func Reduce(s State, e Event) (next State, ok bool) {
	switch e {
	case EventLoad:
		return Loading, true
	case EventReset:
		return Idle, true
	}

	switch s {
	case Loading:
		switch e {
		case EventLoaded:
			return Ready, true
		case EventLoadFailed:
			return Error, true
		}
	case Ready:
		if e == EventCompose {
			return Composing, true
		}
	case Composing:
		switch e {
		case EventComposed, EventComposeFailed:
			return Ready, true
		case EventSubmit:
			return Submitting, true
		}
	case Submitting:
		switch e {
		case EventSubmitted, EventSubmitFailed:
			return Ready, true
		}
	}
	return s, false
}
