/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/tomoncle/easycrud/config"
	"github.com/tomoncle/easycrud/database"
	"github.com/tomoncle/easycrud/middleware"
	"github.com/tomoncle/easycrud/openapi"
	"github.com/tomoncle/easycrud/utils"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const shutdownTimeout = 10 * time.Second

// HealthFunc reports the state of the backing store.
type HealthFunc func(ctx context.Context) *database.HealthStatus

type Option func(*Server)

func WithName(name string) Option {
	return func(s *Server) { s.name = name }
}

func WithVersion(version string) Option {
	return func(s *Server) { s.version = version }
}

// WithHealth replaces the process database as the /healthz source.
func WithHealth(fn HealthFunc) Option {
	return func(s *Server) { s.health = fn }
}

func WithSecurity(schemes ...openapi.NamedScheme) Option {
	return func(s *Server) { s.security = append(s.security, schemes...) }
}

// Server is the gin engine with the shared middleware, health, metrics and
// document endpoints installed.
type Server struct {
	cfg      *config.AppConfig
	name     string
	version  string
	health   HealthFunc
	security []openapi.NamedScheme

	engine  *gin.Engine
	doc     *openapi.Document
	metrics *middleware.Metrics
	logger  *logrus.Logger

	shutdownTracing func(context.Context) error
}

func New(ctx context.Context, cfg *config.AppConfig, opts ...Option) (*Server, error) {
	s := &Server{
		cfg:     cfg,
		name:    "easycrud",
		version: "0.1.0",
		health:  database.GetHealthStatus,
		logger:  utils.NewLogger("HTTP"),
	}
	for _, opt := range opts {
		opt(s)
	}

	shutdown, err := initTracing(ctx, s.name)
	if err != nil {
		return nil, err
	}
	s.shutdownTracing = shutdown

	gin.SetMode(cfg.Server.Mode)
	s.doc = openapi.New(s.name, s.version).
		SetServers(openapi.DefaultServers(cfg.Server.RootPath, nil)).
		AddSecurity(s.security...)
	s.metrics = middleware.NewMetrics(s.name)
	s.metrics.ObservePool(s.name, database.GetDatabaseStats)

	s.engine = gin.New()
	s.engine.Use(
		gin.Recovery(),
		otelgin.Middleware(s.name),
		middleware.RequestLog(s.logger),
		s.metrics.Middleware(),
	)
	s.engine.GET("/healthz", s.healthz)
	s.engine.GET("/metrics", s.metrics.Handler())
	s.doc.Mount(s.engine)
	return s, nil
}

func (s *Server) Engine() *gin.Engine { return s.engine }

func (s *Server) Document() *openapi.Document { return s.doc }

func (s *Server) Metrics() *middleware.Metrics { return s.metrics }

func (s *Server) healthz(c *gin.Context) {
	status := s.health(c.Request.Context())
	code := http.StatusOK
	if status == nil || !status.Healthy {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, status)
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", srv.Addr).Info("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return errors.Join(err, s.shutdownTracing(context.Background()))
	case <-ctx.Done():
	}

	s.logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return errors.Join(srv.Shutdown(shutdownCtx), s.shutdownTracing(shutdownCtx))
}
