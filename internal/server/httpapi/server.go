// Package httpapi exposes the file sharing services over HTTP with gin.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/fileshare/internal/logging"
	"github.com/dmitrijs2005/fileshare/internal/server/admission"
	"github.com/dmitrijs2005/fileshare/internal/server/config"
	"github.com/dmitrijs2005/fileshare/internal/server/services"
	"github.com/gin-gonic/gin"
)

// Deps are the services the handlers call.
type Deps struct {
	Users     *services.UserService
	Files     *services.FileService
	Grants    *services.GrantService
	Links     *services.ShareLinkService
	Admission *admission.Controller
}

type HTTPServer struct {
	address         string
	deps            Deps
	config          *config.Config
	logger          logging.Logger
	shutdownTimeout time.Duration
	engine          *gin.Engine
}

func NewHTTPServer(cfg *config.Config, l logging.Logger, deps Deps) *HTTPServer {
	s := &HTTPServer{
		address:         cfg.EndpointAddr,
		deps:            deps,
		config:          cfg,
		logger:          l.With("module", "http_server"),
		shutdownTimeout: cfg.ShutdownTimeout,
	}
	s.engine = s.routes()
	return s
}

// Handler returns the router, for tests and embedding.
func (s *HTTPServer) Handler() http.Handler {
	return s.engine
}

func (s *HTTPServer) routes() *gin.Engine {
	r := gin.New()
	r.MaxMultipartMemory = 8 << 20
	r.Use(gin.Recovery(), s.requestLogger(), s.cors())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.POST("/register", s.register)
	authGroup.POST("/login", s.login)
	authGroup.POST("/refresh", s.refresh)

	// Link redemption authenticates through the query string so a plain
	// browser navigation works.
	api.GET("/files/access/:token", s.optionalAuth(), s.redeemLink)

	files := api.Group("/files", s.requireAuth())
	files.GET("/my-files", s.listFiles)
	files.POST("/upload", s.upload)
	files.GET("/:id", s.describeFile)
	files.GET("/:id/download", s.downloadFile)
	files.GET("/:id/share/user", s.listGrants)
	files.POST("/:id/share/user", s.shareWithUsers)
	files.DELETE("/:id/share/user/:userId", s.revokeGrant)
	files.GET("/:id/share/link", s.activeLink)
	files.POST("/:id/share/link", s.createLink)
	files.DELETE("/:id/share/link", s.revokeLink)

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *HTTPServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	done := make(chan error, 1)
	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.shutdownTimeout)
		defer cancel()
		done <- srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return <-done
}
