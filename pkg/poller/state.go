package poller

import (
	"github.com/docmatch/notifier/pkg/statemachine"
)

// State of a poller.
type State string

const (
	StateIdle    State = "idle"
	StatePolling State = "polling"
	StatePaused  State = "paused"
	StateStopped State = "stopped"
)

// Event moves a poller between states.
type Event string

const (
	EventStart  Event = "start"
	EventPause  Event = "pause"
	EventResume Event = "resume"
	EventStop   Event = "stop"
)

func newMachine(observers ...statemachine.Observer[State, Event]) *statemachine.Machine[State, Event] {
	opts := []statemachine.Option[State, Event]{
		statemachine.WithTransition[State, Event](StateIdle, StatePolling, EventStart),
		statemachine.WithTransition[State, Event](StatePolling, StatePaused, EventPause),
		statemachine.WithTransition[State, Event](StatePaused, StatePolling, EventResume),
		statemachine.WithTransitionFrom[State, Event](
			[]State{StateIdle, StatePolling, StatePaused},
			StateStopped, EventStop,
		),
	}
	for _, o := range observers {
		opts = append(opts, statemachine.WithObserver(o))
	}
	return statemachine.New(StateIdle, opts...)
}
