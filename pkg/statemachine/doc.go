// Package statemachine is a small generic finite state machine.
//
// States and events are any comparable types, usually string-based enums:
//
//	type Phase string
//	type Signal string
//
//	m := statemachine.New[Phase, Signal](Connecting,
//	    statemachine.WithTransition(Connecting, Authenticating, Authenticate),
//	    statemachine.WithTransition(Authenticating, Registered, Accept,
//	        statemachine.WithAction(register),
//	    ),
//	    statemachine.WithTransitionFrom([]Phase{Connecting, Authenticating, Registered}, Closed, Close),
//	)
//
//	if err := m.Fire(ctx, Authenticate); err != nil {
//	    // NoTransitionError or RejectedError
//	}
//
// Guards run under the machine lock and must not call back into the same
// machine. Actions run before the state changes; an action error aborts the
// transition. Observers run after the change, outside the lock.
//
// The stream handshake and the reconcile poller are both modelled with it.
package statemachine
