/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package bus carries game events and display requests over NATS, either
// through an embedded server or an external one.
package bus

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
)

// Server is an in-process NATS broker with a client connection attached.
type Server struct {
	ns   *server.Server
	conn *nats.Conn

	startupTimeout time.Duration
	host           string
	port           int
}

func NewServer(opts ...ServerOpt) (*Server, error) {
	s := &Server{
		startupTimeout: 10 * time.Second,
		host:           "127.0.0.1",
	}

	for _, opt := range opts {
		opt(s)
	}

	ns, err := server.NewServer(&server.Options{
		Host:   s.host,
		Port:   s.port,
		NoSigs: true, // Let the application handle signals
	})
	if err != nil {
		return nil, fmt.Errorf("creating nats server: %w", err)
	}

	s.ns = ns

	return s, nil
}

// Run starts the broker and connects to it. It returns once the broker
// accepts connections.
func (s *Server) Run() error {
	s.ns.Start()

	if !s.ns.ReadyForConnections(s.startupTimeout) {
		s.ns.Shutdown()
		return fmt.Errorf("nats server not ready for connections")
	}

	conn, err := nats.Connect(s.ns.ClientURL())
	if err != nil {
		s.ns.Shutdown()
		return fmt.Errorf("creating nats client connection: %w", err)
	}
	s.conn = conn

	return nil
}

// Start runs the broker until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	if err := s.Run(); err != nil {
		return err
	}

	<-ctx.Done()
	s.Shutdown()

	return nil
}

// Shutdown closes the client connection and stops the broker.
func (s *Server) Shutdown() {
	if s.conn != nil {
		s.conn.Close()
	}
	s.ns.Shutdown()
	s.ns.WaitForShutdown()
}

// Conn is nil until Run has succeeded.
func (s *Server) Conn() *nats.Conn {
	return s.conn
}

func (s *Server) ClientURL() string {
	return s.ns.ClientURL()
}

type ServerOpt func(*Server)

func WithStartTimeout(d time.Duration) ServerOpt {
	return func(s *Server) {
		s.startupTimeout = d
	}
}

func WithHost(host string) ServerOpt {
	return func(s *Server) {
		s.host = host
	}
}

// WithPort sets the listen port. -1 picks a random free port.
func WithPort(port int) ServerOpt {
	return func(s *Server) {
		s.port = port
	}
}

// Connect dials an external broker.
func Connect(url string) (*nats.Conn, error) {
	conn, err := nats.Connect(url, nats.Name("simon"))
	if err != nil {
		return nil, fmt.Errorf("connecting to nats at %s: %w", url, err)
	}
	return conn, nil
}
