package server

import (
	"context"
	"net/http"

	logging "github.com/ipfs/go-log/v2"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/fx"

	"github.com/mehul-tandon/WipeOut/internal/config"
	"github.com/mehul-tandon/WipeOut/internal/handlers"
)

var log = logging.Logger("server")

// Server hosts the certificate HTTP API.
type Server struct {
	echo   *echo.Echo
	config *config.Config
}

// NewServer creates the echo instance and registers routes.
func NewServer(cfg *config.Config, h *handlers.Handlers) *Server {
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.RequestID())

	registerRoutes(e, h)

	return &Server{echo: e, config: cfg}
}

func registerRoutes(e *echo.Echo, h *handlers.Handlers) {
	e.GET("/health", h.HealthCheck)
	e.GET("/public-key", h.PublicKey)

	api := e.Group("/api")
	api.POST("/wipe/submit", h.SubmitWipe)
	api.GET("/certificate/:id", h.GetCertificate)
	api.GET("/certificate/verify/:id", h.VerifyCertificate)
}

// Start hooks the server into the fx lifecycle.
func Start(lc fx.Lifecycle, s *Server) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			addr := s.config.Server.Address()
			log.Infow("starting HTTP server", "addr", addr)
			go func() {
				if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
					log.Errorw("server stopped", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Infow("shutting down HTTP server")
			return s.echo.Shutdown(ctx)
		},
	})
}

// Echo returns the underlying Echo instance for advanced configuration
func (s *Server) Echo() *echo.Echo {
	return s.echo
}
