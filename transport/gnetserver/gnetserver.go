// Package gnetserver gives the backend a tiny TCP control plane, built on
// gnet the way the teacher's example/gnet program wires gnet to a logger
// (compat.NewGnetAdapter) — except here gnet is the server surface itself
// rather than an adapter target. One newline-terminated command per
// connection write: "STATS" returns the registry's current counters,
// "FLUSH" forces every tracked sink to flush immediately. Anything else is
// echoed back with an error marker. Intended for local operational
// tooling, not a public-facing protocol.
package gnetserver

import (
	"bytes"
	"context"
	"fmt"

	"github.com/panjf2000/gnet/v2"

	"github.com/quillgo/quillgo/registry"
)

// Server is a gnet.BuiltinEventEngine that answers STATS/FLUSH commands
// against a Registry.
type Server struct {
	gnet.BuiltinEventEngine
	reg  *registry.Registry
	addr string
}

// New creates a Server bound to reg. Call Run to start serving.
func New(reg *registry.Registry) *Server {
	return &Server{reg: reg}
}

// Run starts the control-plane listener at addr (e.g. "tcp://127.0.0.1:9100")
// and blocks until the listener stops or an error occurs. Run it in its own
// goroutine, and register s.Stop with Registry.RegisterTransportStopper so
// Registry.Stop shuts it down alongside the backend drain.
func (s *Server) Run(addr string, opts ...gnet.Option) error {
	s.addr = addr
	return gnet.Run(s, addr, opts...)
}

// Stop requests the listener started by Run to shut down.
func (s *Server) Stop(ctx context.Context) error {
	if s.addr == "" {
		return nil
	}
	return gnet.Stop(ctx, s.addr)
}

// OnTraffic implements gnet.EventHandler: it reads one command per
// invocation and writes back a single response line.
func (s *Server) OnTraffic(c gnet.Conn) gnet.Action {
	buf, _ := c.Next(-1)
	cmd := bytes.ToUpper(bytes.TrimSpace(buf))

	switch string(cmd) {
	case "STATS":
		stats := s.reg.Stats()
		fmt.Fprintf(c, "drained=%d dropped=%d loggers=%d sinks=%d\n",
			stats.Drained, stats.Dropped, stats.Loggers, stats.Sinks)
	case "FLUSH":
		s.reg.FlushAll()
		c.Write([]byte("ok\n"))
	default:
		fmt.Fprintf(c, "error: unknown command %q (want STATS or FLUSH)\n", bytes.TrimSpace(buf))
	}
	return gnet.None
}
