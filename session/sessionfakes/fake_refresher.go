package sessionfakes

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/jrsteele09/go-auth-session/refresh"
)

// FakeRefresher is a session.Refresher that replays a scripted result. When Gate is
// set each call blocks until the gate is closed or the context ends.
type FakeRefresher struct {
	mu    sync.Mutex
	pair  refresh.Pair
	err   error
	calls atomic.Int32
	seen  []string

	Gate chan struct{}
	// Entered receives once per call, before the call blocks on Gate
	Entered chan struct{}
}

func NewFakeRefresher(pair refresh.Pair, err error) *FakeRefresher {
	return &FakeRefresher{pair: pair, err: err}
}

// Respond changes the result returned by subsequent calls
func (f *FakeRefresher) Respond(pair refresh.Pair, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pair, f.err = pair, err
}

func (f *FakeRefresher) Refresh(ctx context.Context, refreshToken string) (refresh.Pair, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.seen = append(f.seen, refreshToken)
	f.mu.Unlock()

	if f.Entered != nil {
		select {
		case f.Entered <- struct{}{}:
		default:
		}
	}
	if f.Gate != nil {
		select {
		case <-f.Gate:
		case <-ctx.Done():
			return refresh.Pair{}, &refresh.RefreshError{Kind: refresh.Transient, Err: ctx.Err()}
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pair, f.err
}

func (f *FakeRefresher) Calls() int {
	return int(f.calls.Load())
}

// RefreshTokens returns the refresh tokens presented so far
func (f *FakeRefresher) RefreshTokens() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.seen...)
}

// TerminalError is what the backend rejecting a refresh token looks like
func TerminalError() error {
	return &refresh.RefreshError{Kind: refresh.Terminal, Err: errInvalidGrant}
}

// TransientError is what an unreachable backend looks like
func TransientError() error {
	return &refresh.RefreshError{Kind: refresh.Transient, Err: errUnavailable}
}
