package bootstrap

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/Lucasschwertz/procurement-core/pkg/mlog"
)

const shutdownTimeout = 15 * time.Second

// Server runs the process's fiber.App, mirroring the teacher's own
// Server/NewServer/Run shape (components/crm/internal/bootstrap/server.go)
// but with a plain os/signal graceful shutdown in place of the teacher's
// lib-commons Launcher, which this pack does not carry a module for.
type Server struct {
	app           *fiber.App
	serverAddress string
	logger        mlog.Logger
}

// NewServer creates an instance of Server.
func NewServer(cfg *Config, app *fiber.App, logger mlog.Logger) *Server {
	return &Server{app: app, serverAddress: cfg.ServerAddress, logger: logger}
}

// ServerAddress returns the address this server binds to.
func (s *Server) ServerAddress() string {
	return s.serverAddress
}

// Run listens until the process receives SIGINT/SIGTERM, then drains
// in-flight requests before returning.
func (s *Server) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)

	go func() {
		s.logger.Infof("listening on %s", s.serverAddress)

		if err := s.app.Listen(s.serverAddress); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down")

		return s.app.ShutdownWithTimeout(shutdownTimeout)
	case err := <-errCh:
		return err
	}
}
