// Package diagnostics mounts an on-CPU and off-CPU (blocked-in-poll)
// profiling endpoint next to a long-lived WebSocket session, so the three
// wsclient workers — which spend most of their time blocked in poll(2) or
// a condition variable — can be profiled meaningfully; pprof's default
// on-CPU sampling alone is blind to that blocked time.
package diagnostics

import (
	"net/http"

	"github.com/felixge/fgprof"
)

// RegisterHandler mounts fgprof's combined profiler at path on mux.
func RegisterHandler(mux *http.ServeMux, path string) {
	mux.Handle(path, fgprof.Handler())
}

// Serve starts a dedicated HTTP server exposing the profiler at
// /debug/fgprof on addr. Intended for a sidecar diagnostics port next to
// a gateway connection (cmd/wsgateway), not the application's own traffic.
func Serve(addr string) error {
	mux := http.NewServeMux()
	RegisterHandler(mux, "/debug/fgprof")
	return http.ListenAndServe(addr, mux)
}
