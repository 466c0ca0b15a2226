package main

import (
	"net/http"

	"github.com/matryer/way"
)

const URI_WS = "/play/:room"

func (s *Server) routes() {
	s.router = way.NewRouter()
	s.router.HandleFunc("GET", URI_WS, s.GameServer.HandleHttpCall(func(r *http.Request) string {
		return way.Param(r.Context(), "room")
	}))
	s.router.HandleFunc("GET", "/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}
