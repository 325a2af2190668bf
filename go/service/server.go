package service

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"go.gazette.dev/core/task"
)

// shutdownTimeout bounds how long in-flight requests may run after the
// task group is cancelled.
const shutdownTimeout = 5 * time.Second

// Server is the HTTP server of the service. APIs are registered against
// Router before QueueTasks is called.
type Server struct {
	Router   *mux.Router
	listener net.Listener
	srv      *http.Server
}

// NewServer binds the service port, grabbing a random available port if
// port is zero.
func NewServer(port uint16) (*Server, error) {
	var router = mux.NewRouter()

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, fmt.Errorf("binding service port: %w", err)
	}
	return &Server{
		Router:   router,
		listener: listener,
		srv:      &http.Server{Handler: router},
	}, nil
}

// Endpoint is the bound address of the server.
func (s *Server) Endpoint() string { return s.listener.Addr().String() }

// QueueTasks queues a task serving the listener, and one which gracefully
// stops the server when the group is cancelled.
func (s *Server) QueueTasks(tasks *task.Group) {
	tasks.Queue("server.Serve", func() error {
		if err := s.srv.Serve(s.listener); err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	tasks.Queue("server.Shutdown", func() error {
		<-tasks.Context().Done()

		var ctx, cancel = context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := s.srv.Shutdown(ctx); err != nil {
			log.WithField("err", err).Warn("failed to stop server cleanly")
		}
		return nil
	})
}
