package poller

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/docmatch/notifier/pkg/logger"
	"github.com/docmatch/notifier/pkg/statemachine"
)

// DefaultIntervals is the escalation schedule. The last step repeats.
var DefaultIntervals = []time.Duration{5 * time.Second, 10 * time.Second, 15 * time.Second}

var (
	ErrAlreadyStarted = errors.New("poller already started")
	ErrNoFetchFunc    = errors.New("poller fetch func is required")
)

// FetchFunc reloads the client view.
type FetchFunc func(ctx context.Context) error

// Poller calls a FetchFunc on an escalating interval.
type Poller struct {
	fetch     FetchFunc
	intervals []time.Duration
	logger    *slog.Logger
	machine   *statemachine.Machine[State, Event]

	mu   sync.Mutex
	step int

	wake     chan struct{}
	stop     chan struct{}
	stopOnce sync.Once
}

// Option configures a Poller.
type Option func(*Poller)

// WithIntervals replaces the escalation schedule. Non-positive steps are
// dropped; an empty result keeps the default.
func WithIntervals(steps ...time.Duration) Option {
	return func(p *Poller) {
		var valid []time.Duration
		for _, s := range steps {
			if s > 0 {
				valid = append(valid, s)
			}
		}
		if len(valid) > 0 {
			p.intervals = valid
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Poller) {
		if l != nil {
			p.logger = l
		}
	}
}

// New creates an idle poller.
func New(fetch FetchFunc, opts ...Option) *Poller {
	p := &Poller{
		fetch:     fetch,
		intervals: DefaultIntervals,
		logger:    slog.Default(),
		wake:      make(chan struct{}, 1),
		stop:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With(logger.Component("poller"))
	p.machine = newMachine(func(from, to State, event Event) {
		p.logger.Debug("poller state changed",
			slog.String("from", string(from)),
			slog.String("to", string(to)),
			slog.String("event", string(event)),
		)
	})
	return p
}

// Run polls until ctx is done or Stop is called. The first fetch happens
// after the first interval.
func (p *Poller) Run(ctx context.Context) error {
	if p.fetch == nil {
		return ErrNoFetchFunc
	}
	if err := p.machine.Fire(ctx, EventStart); err != nil {
		return errors.Join(ErrAlreadyStarted, err)
	}
	defer p.Stop()

	timer := time.NewTimer(p.Interval())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-p.stop:
			return nil
		case <-p.wake:
			if p.machine.Is(StatePolling) {
				timer.Reset(p.Interval())
			} else {
				timer.Stop()
			}
		case <-timer.C:
			if !p.machine.Is(StatePolling) {
				continue
			}
			if err := p.fetch(ctx); err != nil && ctx.Err() == nil {
				p.logger.WarnContext(ctx, "poll failed", logger.Error(err))
			}
			p.advance()
			timer.Reset(p.Interval())
		}
	}
}

// State returns the current state.
func (p *Poller) State() State {
	return p.machine.Current()
}

// Interval returns the delay before the next fetch.
func (p *Poller) Interval() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.intervals[min(p.step, len(p.intervals)-1)]
}

// Reset returns to the first interval.
func (p *Poller) Reset() {
	p.mu.Lock()
	p.step = 0
	p.mu.Unlock()
	p.signal()
}

// Pause stops fetching until Resume.
func (p *Poller) Pause() error {
	if err := p.machine.Fire(context.Background(), EventPause); err != nil {
		return err
	}
	p.signal()
	return nil
}

// Resume restarts fetching from the first interval.
func (p *Poller) Resume() error {
	if err := p.machine.Fire(context.Background(), EventResume); err != nil {
		return err
	}
	p.Reset()
	return nil
}

// Stop ends Run. Safe to call more than once.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() {
		_ = p.machine.Fire(context.Background(), EventStop)
		close(p.stop)
	})
}

func (p *Poller) advance() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.step < len(p.intervals)-1 {
		p.step++
	}
}

func (p *Poller) signal() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}
