package server

import "net/http"

// IndexHandler sends the root path to the landing view or to login
func (s *Server) IndexHandler() http.HandlerFunc {
	return s.redirector.Handler()
}
