package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	errs "github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/jrsteele09/go-auth-session/refresh"
	"github.com/jrsteele09/go-auth-session/session"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type State int

const (
	Stopped State = iota
	Running
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Running:
		return "running"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Session is the part of the session store the scheduler drives
type Session interface {
	Refresh(ctx context.Context) error
	ExpiresAt() time.Time
}

// Source is a Session whose authentication changes can be observed
type Source interface {
	Session
	IsAuthenticated() bool
	Subscribe(fn func(session.Session)) (unsubscribe func())
}

// task is one running refresh loop
type task struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Scheduler keeps the access token fresh while the user is signed in.
// It owns at most one refresh loop at a time.
type Scheduler struct {
	session Session
	policy  Policy
	logger  zerolog.Logger
	nowFunc func() time.Time

	mu   sync.Mutex
	task *task
}

type Option func(*Scheduler)

func WithPolicy(policy Policy) Option {
	return func(s *Scheduler) {
		s.policy = policy
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

func WithNowFunc(now func() time.Time) Option {
	return func(s *Scheduler) {
		s.nowFunc = now
	}
}

func New(session Session, options ...Option) *Scheduler {
	s := &Scheduler{
		session: session,
		policy:  DefaultPolicy(),
		logger:  log.Logger,
		nowFunc: time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// Start replaces any running loop with a new one. Calling it repeatedly never leaves
// more than one loop alive.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()

	taskCtx, cancel := context.WithCancel(ctx)
	t := &task{cancel: cancel, done: make(chan struct{})}
	s.task = t
	go s.run(taskCtx, t)
}

// Stop cancels the running loop and waits for it to exit
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.task == nil {
		return Stopped
	}
	select {
	case <-s.task.done:
		return Stopped
	default:
		return Running
	}
}

func (s *Scheduler) stopLocked() {
	if s.task == nil {
		return
	}
	s.task.cancel()
	<-s.task.done
	s.task = nil
}

// run never takes s.mu: Stop holds it while waiting for run to return
func (s *Scheduler) run(ctx context.Context, t *task) {
	defer close(t.done)
	defer t.cancel()

	for {
		delay := s.policy.Delay(s.nowFunc(), s.session.ExpiresAt())
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		err := s.session.Refresh(ctx)
		if ctx.Err() != nil {
			return
		}
		switch {
		case err == nil:
			s.logger.Debug().Time("expires_at", s.session.ExpiresAt()).Msg("Proactive token refresh succeeded")
		case refresh.IsTerminal(err) || errs.Is(err, errs.ErrSessionExpired):
			s.logger.Info().Err(err).Msg("Session ended, stopping token refresh")
			return
		default:
			s.logger.Warn().Err(err).Msg("Proactive token refresh failed, will retry")
		}
	}
}

// Attach starts the scheduler whenever source becomes authenticated and stops it when
// authentication ends. It starts immediately if source is already authenticated.
// The returned detach func unsubscribes and stops the scheduler.
func (s *Scheduler) Attach(ctx context.Context, source Source) (detach func()) {
	var mu sync.Mutex
	authenticated := false

	mu.Lock()
	unsubscribe := source.Subscribe(func(current session.Session) {
		mu.Lock()
		defer mu.Unlock()
		next := current.IsAuthenticated()
		switch {
		case next && !authenticated:
			s.Start(ctx)
		case !next && authenticated:
			s.Stop()
		}
		authenticated = next
	})
	authenticated = source.IsAuthenticated()
	if authenticated {
		s.Start(ctx)
	}
	mu.Unlock()

	return func() {
		unsubscribe()
		s.Stop()
	}
}
