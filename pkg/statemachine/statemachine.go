package statemachine

import (
	"context"
	"fmt"
	"sync"
)

// Guard decides at fire time whether a transition may proceed.
type Guard[S, E comparable] func(ctx context.Context, from S, event E) bool

// Action runs a side effect before the state changes. An error aborts the
// transition and leaves the machine in its current state.
type Action[S, E comparable] func(ctx context.Context, from, to S, event E) error

// Observer is notified after every completed transition.
type Observer[S, E comparable] func(from, to S, event E)

type transition[S, E comparable] struct {
	to      S
	guards  []Guard[S, E]
	actions []Action[S, E]
}

// Machine is a concurrency-safe finite state machine over comparable state
// and event types. Transitions are looked up by [from][event]; when several
// are registered for the same pair, the first whose guards all pass wins.
type Machine[S, E comparable] struct {
	mu        sync.RWMutex
	initial   S
	current   S
	table     map[S]map[E][]transition[S, E]
	observers []Observer[S, E]
}

func (m *Machine[S, E]) addTransition(from, to S, event E, guards []Guard[S, E], actions []Action[S, E]) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.table[from]; !ok {
		m.table[from] = make(map[E][]transition[S, E])
	}
	m.table[from][event] = append(m.table[from][event], transition[S, E]{
		to:      to,
		guards:  guards,
		actions: actions,
	})
}

// Current returns the current state.
func (m *Machine[S, E]) Current() S {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Is reports whether the machine is in state s.
func (m *Machine[S, E]) Is(s S) bool {
	return m.Current() == s
}

// Fire applies event to the current state.
func (m *Machine[S, E]) Fire(ctx context.Context, event E) error {
	m.mu.Lock()

	from := m.current
	candidates, ok := m.table[from][event]
	if !ok || len(candidates) == 0 {
		m.mu.Unlock()
		return &NoTransitionError{State: fmt.Sprint(from), Event: fmt.Sprint(event)}
	}

	t, ok := pick(ctx, from, event, candidates)
	if !ok {
		m.mu.Unlock()
		return &RejectedError{State: fmt.Sprint(from), Event: fmt.Sprint(event)}
	}

	for _, action := range t.actions {
		if err := action(ctx, from, t.to, event); err != nil {
			m.mu.Unlock()
			return fmt.Errorf("action failed: %w", err)
		}
	}

	m.current = t.to
	observers := m.observers
	m.mu.Unlock()

	for _, o := range observers {
		o(from, t.to, event)
	}
	return nil
}

// CanFire reports whether Fire(event) would find a transition whose guards
// pass. Actions are not run.
func (m *Machine[S, E]) CanFire(ctx context.Context, event E) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := pick(ctx, m.current, event, m.table[m.current][event])
	return ok
}

// Reset returns the machine to its initial state without running actions.
func (m *Machine[S, E]) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = m.initial
}

func pick[S, E comparable](ctx context.Context, from S, event E, candidates []transition[S, E]) (transition[S, E], bool) {
	for _, t := range candidates {
		passed := true
		for _, g := range t.guards {
			if !g(ctx, from, event) {
				passed = false
				break
			}
		}
		if passed {
			return t, true
		}
	}
	return transition[S, E]{}, false
}
