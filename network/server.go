package network

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"runtime"
	"syscall"

	"github.com/vrecan/death/v3"
	"go.uber.org/zap"
)

// Closer is anything the server must shut down cleanly on SIGINT/SIGTERM,
// typically the node's KV store.
type Closer interface {
	Close() error
}

// Server accepts peer connections for one Node and dispatches each message
// it receives to the node's handlers.
type Server struct {
	Node        *Node
	MetricsAddr string

	listener net.Listener
	logger   *zap.Logger
}

// NewServer builds a server bound to n, listening on n.Address.
func NewServer(n *Node, metricsAddr string) *Server {
	return &Server{Node: n, MetricsAddr: metricsAddr, logger: n.logger}
}

// Run listens on s.Node.Address and serves connections until ctx is
// canceled. It also starts the metrics endpoint if MetricsAddr is set, and
// announces this node's version to its bootstrap peer before entering the
// accept loop.
func (s *Server) Run(ctx context.Context, closer Closer) error {
	ln, err := net.Listen("tcp", s.Node.Address)
	if err != nil {
		return err
	}
	s.listener = ln

	if s.MetricsAddr != "" {
		go func() {
			if err := ServeMetrics(s.MetricsAddr); err != nil {
				s.logger.Warn("metrics server stopped", zap.Error(err))
			}
		}()
	}

	go s.waitForShutdown(closer)

	if !s.Node.IsBootstrap() {
		if peers := s.Node.KnownNodes(); len(peers) > 0 {
			if err := s.Node.SendVersion(peers[0]); err != nil {
				s.logger.Warn("announcing to bootstrap node failed", zap.Error(err))
			}
		}
	}

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}
		go s.handleConnection(conn)
	}
}

// waitForShutdown closes the store and exits on SIGINT/SIGTERM/os.Interrupt.
// death.WaitForDeathWithFunc blocks this goroutine until a signal arrives.
func (s *Server) waitForShutdown(closer Closer) {
	d := death.NewDeath(syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	d.WaitForDeathWithFunc(func() {
		defer os.Exit(0)
		defer runtime.Goexit()
		if err := closer.Close(); err != nil {
			s.logger.Error("closing store", zap.Error(err))
		}
	})
}

func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	if !s.Node.limiter.Allow() {
		s.logger.Warn("rate limit exceeded, dropping connection", zap.String("remote", conn.RemoteAddr().String()))
		return
	}

	cmd, payload, err := readMessage(conn)
	if err != nil {
		if !errors.Is(err, io.EOF) {
			s.logger.Warn("reading peer message failed", zap.Error(err))
		}
		return
	}

	if err := s.Node.dispatch(cmd, payload); err != nil {
		s.logger.Warn("handling peer message failed", zap.String("cmd", cmd), zap.Error(err))
		peerErrors.WithLabelValues(cmd).Inc()
	}
}
