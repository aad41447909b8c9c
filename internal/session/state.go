package session

import "github.com/kk-code-lab/rbrowse/internal/protocol"

// State is the connection lifecycle state.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
	Errored
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Errored:
		return "errored"
	default:
		return "disconnected"
	}
}

// Event is delivered to Options.OnEvent, in order, from a single goroutine.
type Event interface {
	isEvent()
}

// StateChanged reports a lifecycle transition. Err is set for Disconnected
// and Errored when a transport error caused the drop.
type StateChanged struct {
	State State
	Err   error
}

// VisitorResolved carries the identifier sent in the handshake.
type VisitorResolved struct {
	ID string
}

// FrameReceived carries a decoded frame. For Files frames and ERROR replies
// RequestedPath is the path the response answers. Unmatched is set when the
// response cannot be tied to a single request; it must not be applied.
type FrameReceived struct {
	Frame         protocol.Frame
	RequestedPath string
	Unmatched     bool
}

// DecodeFailed reports a dropped frame. Previous state should be kept.
type DecodeFailed struct {
	Err           error
	RequestedPath string
	Unmatched     bool
}

func (StateChanged) isEvent()    {}
func (VisitorResolved) isEvent() {}
func (FrameReceived) isEvent()   {}
func (DecodeFailed) isEvent()    {}
