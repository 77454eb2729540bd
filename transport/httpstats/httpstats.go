// Package httpstats exposes a Registry's backend counters (drained and
// dropped record counts, logger/sink table sizes) over a minimal HTTP endpoint
// built on fasthttp, giving operators a scrape target without pulling in a
// full metrics library (observability proper stays out of scope per §1 —
// this is a plain JSON snapshot, not a Prometheus exposition format).
package httpstats

import (
	"encoding/json"

	"github.com/valyala/fasthttp"

	"github.com/quillgo/quillgo/registry"
)

// Server serves GET /stats as a JSON object built from Registry.Stats.
type Server struct {
	reg    *registry.Registry
	server *fasthttp.Server
}

// New creates a Server bound to reg. Call ListenAndServe to start it.
func New(reg *registry.Registry) *Server {
	s := &Server{reg: reg}
	s.server = &fasthttp.Server{
		Handler: s.handle,
	}
	return s
}

// ListenAndServe blocks serving HTTP on addr (e.g. ":9101") until the
// server is shut down or an error occurs.
func (s *Server) ListenAndServe(addr string) error {
	return s.server.ListenAndServe(addr)
}

// Stop gracefully shuts the HTTP server down. Suitable for registration
// with Registry.RegisterTransportStopper.
func (s *Server) Stop() {
	_ = s.server.Shutdown()
}

func (s *Server) handle(ctx *fasthttp.RequestCtx) {
	if string(ctx.Path()) != "/stats" {
		ctx.SetStatusCode(fasthttp.StatusNotFound)
		return
	}
	stats := s.reg.Stats()
	data, err := json.Marshal(stats)
	if err != nil {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		return
	}
	ctx.SetContentType("application/json")
	ctx.SetBody(data)
}
