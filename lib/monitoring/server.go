package monitoring

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/nvlled/gifburst/lib/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server serves /metrics and, optionally, the pprof handlers.
type Server struct {
	server *http.Server
	log    *logger.Logger
}

func NewServer(addr string, gatherer prometheus.Gatherer, profiling bool, log *logger.Logger) *Server {
	h := http.NewServeMux()
	h.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	if profiling {
		h.HandleFunc("/debug/pprof/", pprof.Index)
		h.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		h.HandleFunc("/debug/pprof/profile", pprof.Profile)
		h.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		h.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}
	return &Server{
		server: &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: 5 * time.Second},
		log:    logger.OrNop(log),
	}
}

// Run listens on the configured address and serves in the background.
// The returned address is the one actually bound.
func (s *Server) Run() (string, error) {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return "", err
	}
	addr := ln.Addr().String()
	s.log.Info().Str("addr", addr).Msg("monitoring server started")
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error().Err(err).Msg("monitoring server stopped")
		}
	}()
	return addr, nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Debug().Msg("shutting down monitoring server")
	return s.server.Shutdown(ctx)
}
