package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/jrsteele09/go-auth-session/guard"
	"github.com/jrsteele09/go-auth-session/internal/utils"
	"github.com/jrsteele09/go-auth-session/session"
	"github.com/rs/zerolog"
)

const (
	sseEventSession  = "session"
	sseEventRedirect = "redirect"

	sseKeepAlive = 25 * time.Second
)

// SessionStatus is the body of GET /api/session and of session events
type SessionStatus struct {
	Authenticated bool       `json:"authenticated"`
	Valid         bool       `json:"valid"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
}

func (s *Server) status(current session.Session) SessionStatus {
	return SessionStatus{
		Authenticated: current.IsAuthenticated(),
		Valid:         current.IsAuthenticated() && current.ExpiresAt.After(time.Now()),
		ExpiresAt:     utils.NonZeroPtr(current.ExpiresAt),
	}
}

func (s *Server) SessionStatusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, s.status(s.store.Snapshot()))
	}
}

type sseEvent struct {
	name string
	data string
}

// SessionEventsHandler streams session changes to a mounted view as server-sent events.
// The view names its route; when the route stops being allowed a redirect event tells the
// view where to go and the stream ends.
func (s *Server) SessionEventsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := zerolog.Ctx(r.Context())

		flusher, ok := w.(http.Flusher)
		if !ok {
			writeJSONError(w, "unsupported", "Streaming is not supported", http.StatusInternalServerError)
			return
		}

		route := r.URL.Query().Get("route")
		access := s.Access(route)

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)

		// Observers run while the store holds its write lock, so they never block on the client
		events := make(chan sseEvent, 16)
		send := func(e sseEvent) {
			select {
			case events <- e:
			default:
				logger.Warn().Str("event", e.name).Msg("Dropping session event for slow client")
			}
		}

		unsubscribe := s.store.Subscribe(func(current session.Session) {
			send(sessionEvent(s.status(current)))
		})
		defer unsubscribe()

		send(sessionEvent(s.status(s.store.Snapshot())))
		stopWatch := s.guard.Watch(s.store, access, guard.NavigatorFunc(func(path string) {
			send(sseEvent{name: sseEventRedirect, data: path})
		}))
		defer stopWatch()

		keepAlive := time.NewTicker(sseKeepAlive)
		defer keepAlive.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case <-keepAlive.C:
				if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
					return
				}
				flusher.Flush()
			case e := <-events:
				if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.name, e.data); err != nil {
					return
				}
				flusher.Flush()
				if e.name == sseEventRedirect {
					return
				}
			}
		}
	}
}

func sessionEvent(status SessionStatus) sseEvent {
	data, _ := json.Marshal(status)
	return sseEvent{name: sseEventSession, data: string(data)}
}
