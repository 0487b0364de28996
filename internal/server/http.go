package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	v1 "github.com/kubev2v/guest-inspection-agent/api/v1"
	"github.com/kubev2v/guest-inspection-agent/internal/config"
	"github.com/kubev2v/guest-inspection-agent/internal/server/middlewares"
	"github.com/kubev2v/guest-inspection-agent/pkg/certificates"
)

const (
	ProductionServer string = "prod"
	DevServer        string = "dev"
	apiV1            string = "/api/v1"
)

type Server struct {
	srv *http.Server
}

func NewServer(cfg *config.Configuration, registerHandlerFn func(router *gin.RouterGroup)) (*Server, error) {
	gin.SetMode(gin.DebugMode)
	if cfg.Server.ServerMode == ProductionServer {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()

	srv := &http.Server{
		Addr:              fmt.Sprintf("0.0.0.0:%d", cfg.Server.HTTPPort),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if cfg.Server.ServerMode == ProductionServer {
		cert, key, err := certificates.GenerateSelfSignedCertificate(certificates.DefaultHosts(), time.Now().AddDate(1, 0, 0))
		if err != nil {
			return nil, fmt.Errorf("failed to generate server's certificates: %w", err)
		}

		tlsConfig, err := certificates.NewServerTLSConfig(cert, key)
		if err != nil {
			return nil, err
		}

		srv.TLSConfig = tlsConfig
	}

	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, v1.Error{Error: "API endpoint not found"})
	})

	router := engine.Group(apiV1)

	router.Use(
		middlewares.Logger(),
		ginzap.RecoveryWithZap(zap.S().Desugar(), true),
	)

	registerHandlerFn(router)

	return &Server{srv: srv}, nil
}

// Start starts the HTTP or HTTPS server based on TLS configuration.
// It returns nil once the server has been stopped.
func (r *Server) Start(ctx context.Context) error {
	var err error
	if r.srv.TLSConfig != nil {
		err = r.srv.ListenAndServeTLS("", "")
	} else {
		err = r.srv.ListenAndServe()
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (r *Server) Stop(ctx context.Context) {
	if err := r.srv.Shutdown(ctx); err != nil {
		zap.S().Errorw("server shutdown", "error", err)
	}
}
