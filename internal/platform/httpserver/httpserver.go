// Package httpserver builds the API server with the timeouts every deployment
// of this service should carry.
package httpserver

import (
	"net/http"
	"time"
)

// readHeaderTimeout bounds slow-header clients before a request ties up a
// handler goroutine.
const readHeaderTimeout = 5 * time.Second

// New wraps the router in an http.Server ready for ListenAndServe.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}
}
