package stream

import (
	"github.com/docmatch/notifier/pkg/statemachine"
)

// State of a stream session.
type State string

const (
	StateConnecting     State = "connecting"
	StateAuthenticating State = "authenticating"
	StateRegistered     State = "registered"
	StateClosed         State = "closed"
)

// Event moves a session between states.
type Event string

const (
	EventRequest       Event = "request"
	EventAuthenticated Event = "authenticated"
	EventRejected      Event = "rejected"
	EventDisconnected  Event = "disconnected"
)

// NewSessionMachine builds the handshake state machine for one session.
func NewSessionMachine(observers ...statemachine.Observer[State, Event]) *statemachine.Machine[State, Event] {
	opts := []statemachine.Option[State, Event]{
		statemachine.WithTransition[State, Event](StateConnecting, StateAuthenticating, EventRequest),
		statemachine.WithTransition[State, Event](StateAuthenticating, StateRegistered, EventAuthenticated),
		statemachine.WithTransition[State, Event](StateAuthenticating, StateClosed, EventRejected),
		statemachine.WithTransitionFrom[State, Event](
			[]State{StateConnecting, StateAuthenticating, StateRegistered},
			StateClosed, EventDisconnected,
		),
	}
	for _, o := range observers {
		opts = append(opts, statemachine.WithObserver(o))
	}
	return statemachine.New(StateConnecting, opts...)
}
