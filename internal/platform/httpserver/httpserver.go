package httpserver

import (
	"net/http"
	"time"
)

// New builds an http.Server with a read-header timeout applied. Both the
// API listener and the metrics listener go through here so the two servers
// share identical timeout behavior.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
