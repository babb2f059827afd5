package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/jrsteele09/storefront-relay/backend"
	"github.com/jrsteele09/storefront-relay/internal/config"
	"github.com/jrsteele09/storefront-relay/internal/metrics"
	"github.com/jrsteele09/storefront-relay/relay"
	"github.com/jrsteele09/storefront-relay/session"
	"github.com/jrsteele09/storefront-relay/session/refresh"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

type Server struct {
	env            string // Environment (e.g., "DEV", "PROD")
	mux            *http.ServeMux
	handler        http.HandlerFunc
	routes         []string
	config         config.Config
	allowedOrigins config.AllowedOrigins
	cookieOptions  session.CookieOptions

	gateway   backend.Gateway
	refresher Refresher
	relay     *relay.Orchestrator

	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer
}

// Refresher exchanges refresh tokens and forgets them on logout
type Refresher interface {
	relay.Refresher
	Revoke(ctx context.Context, refreshToken string) error
}

var _ Refresher = (*refresh.Manager)(nil)

type Option func(*Server)

// WithMetrics records request metrics in m and exposes gatherer on /metrics
func WithMetrics(m *metrics.Metrics, gatherer prometheus.Gatherer) Option {
	return func(s *Server) {
		s.metrics = m
		s.gatherer = gatherer
	}
}

func New(config config.Config, gateway backend.Gateway, refresher Refresher, opts ...Option) *Server {
	s := &Server{
		env:            config.GetEnv(),
		mux:            http.NewServeMux(),
		config:         config,
		allowedOrigins: config.GetAllowedOrigins(),
		cookieOptions:  session.CookieOptions{Secure: config.GetSecureCookies()},
		gateway:        gateway,
		refresher:      refresher,
		relay:          relay.New(gateway, refresher),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.initRoutes()
	s.handler = ChainMiddleware(s.mux.ServeHTTP, s.RequestIDMiddleware, s.LoggingMiddleware, s.RecoverMiddleware, s.CorsMiddleware)
	s.logRoutes()

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

// sessionWriter is the capability handlers use to persist session changes
func (s *Server) sessionWriter(w http.ResponseWriter) session.Writer {
	return session.NewCookieWriter(w, s.cookieOptions)
}

func (s *Server) metricsHandler() http.Handler {
	return promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	log.Info().Msgf("[%-19s] %s", colourMethod(method), path)
}

func colourMethod(method string) string {
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		return color + paddedMethod + ResetColor
	}
	return Gray + paddedMethod + ResetColor
}
