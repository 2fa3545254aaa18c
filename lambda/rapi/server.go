// Copyright The devlambda Authors.
// SPDX-License-Identifier: Apache-2.0

package rapi

import (
	"context"
	"fmt"
	"net"
	"net/http"

	log "github.com/sirupsen/logrus"
)

// Server is the daemon's HTTP API server
type Server struct {
	host     string
	port     int
	server   *http.Server
	listener net.Listener
}

// NewServer creates a new API Server serving handler
//
// Unlike net/http server's ListenAndServe, we separate Listen()
// and Serve(), this is done to guarantee order: the listening port is
// known before the server starts accepting.
//
// When port is 0, OS will dynamically allocate the listening port.
func NewServer(host string, port int, handler http.Handler) *Server {
	return &Server{
		host:     host,
		port:     port,
		server:   &http.Server{Handler: handler},
		listener: nil,
	}
}

// Listen on port
func (s *Server) Listen() error {
	addr := net.JoinHostPort(s.host, fmt.Sprint(s.port))

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	s.listener = ln
	if s.port == 0 {
		s.port = ln.Addr().(*net.TCPAddr).Port
		log.WithField("port", s.port).Info("Listening port was dynamically allocated")
	}

	log.Infof("API Server listening on %s", s.Addr())

	return nil
}

func (s *Server) IsListening() bool {
	return s.listener != nil
}

// Serve requests until ctx is cancelled, then shut down gracefully
func (s *Server) Serve(ctx context.Context) error {
	select {
	case err := <-s.serveAsync():
		return err

	case <-ctx.Done():
		if err := s.Shutdown(context.Background()); err != nil {
			log.WithError(err).Warn("API Server shutdown failed")
			s.Close()
		}
		return nil
	}
}

func (s *Server) serveAsync() chan error {
	errors := make(chan error, 1)
	go func() {
		errors <- s.server.Serve(s.listener)
	}()

	return errors
}

// Port is server's port
func (s *Server) Port() int {
	return s.port
}

// Addr is server's host:port
func (s *Server) Addr() string {
	return net.JoinHostPort(s.host, fmt.Sprint(s.port))
}

// URL is full server url for specified endpoint
func (s *Server) URL(endpoint string) string {
	return fmt.Sprintf("http://%s%s", s.Addr(), endpoint)
}

// Close forcefully closes listeners & connections
func (s *Server) Close() error {
	err := s.server.Close()
	if err == nil {
		log.Info("API Server closed")
	}
	return err
}

// Shutdown gracefully shuts down server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
