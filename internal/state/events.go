package state

import (
	"strings"

	"github.com/kk-code-lab/rbrowse/internal/protocol"
	"github.com/kk-code-lab/rbrowse/internal/session"
)

// ActionFromEvent translates a session event into the action the reducer
// understands. It returns nil for events with no UI effect.
func ActionFromEvent(ev session.Event) Action {
	switch e := ev.(type) {
	case session.StateChanged:
		return ConnectionStateAction{State: e.State, Err: e.Err}
	case session.VisitorResolved:
		return VisitorResolvedAction{ID: e.ID}
	case session.DecodeFailed:
		return DecodeFailedAction{Err: e.Err, RequestedPath: e.RequestedPath, Unmatched: e.Unmatched}
	case session.FrameReceived:
		switch f := e.Frame.(type) {
		case protocol.Files:
			return ListingReceivedAction{RequestedPath: e.RequestedPath, Entries: f.Entries, Unmatched: e.Unmatched}
		case protocol.Config:
			return ConfigReceivedAction{Config: f.Config}
		case protocol.Info:
			if f.IsError() {
				msg := strings.TrimPrefix(f.Text, protocol.PrefixError+": ")
				return ListingFailedAction{RequestedPath: e.RequestedPath, Message: msg, Unmatched: e.Unmatched}
			}
			return InfoReceivedAction{Text: f.Text}
		}
	}
	return nil
}
