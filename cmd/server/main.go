package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/jrsteele09/storefront-relay/backend"
	"github.com/jrsteele09/storefront-relay/internal/config"
	"github.com/jrsteele09/storefront-relay/internal/metrics"
	"github.com/jrsteele09/storefront-relay/server"
	"github.com/jrsteele09/storefront-relay/session/refresh"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// A missing .env is fine; the environment may already be populated
	_ = godotenv.Load()

	for {
		if err := run(); err != nil {
			log.Error().Err(err).Msg("Error running server, restarting")
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Info().Msg("Server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("Recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	setupLogging(c)
	displayAppname(c.GetAppName())

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	gateway, err := backend.New(c.GetBackendURL(),
		backend.WithHTTPClient(&http.Client{Timeout: c.GetBackendTimeout()}),
		backend.WithMetrics(m),
	)
	if err != nil {
		return err
	}

	repo, closeRepo := rotationRepo(c)
	defer closeRepo()

	handler := server.New(c, gateway, refresh.NewManager(gateway, repo, m), server.WithMetrics(m, reg))
	server := &http.Server{Addr: c.GetPort(), Handler: handler}

	errs := make(chan error, 1)
	go func() { errs <- listenAndServe(server) }()
	select {
	case err := <-errs:
		return err
	case <-waitForStopSignal():
	}
	returnError = shutdown(server)
	return returnError
}

func setupLogging(c config.Config) {
	zerolog.TimeFieldFormat = time.RFC3339
	level, err := zerolog.ParseLevel(c.GetLogLevel())
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if c.IsLocal() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	} else {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Str("app", c.GetAppName()).Logger()
	}
	zerolog.DefaultContextLogger = &log.Logger
}

// rotationRepo shares recent refresh rotations through Redis when configured
// so that every replica can reuse them, otherwise keeps them in memory
func rotationRepo(c config.Config) (refresh.Repo, func()) {
	ttl := c.GetRefreshReuseTTL()
	if c.GetRedisAddr() == "" {
		return refresh.NewInMemoryRepo(ttl), func() {}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     c.GetRedisAddr(),
		Password: c.GetRedisPassword(),
	})
	log.Info().Str("addr", c.GetRedisAddr()).Msg("Sharing refresh rotations through redis")
	return refresh.NewRedisRepo(client, ttl), func() {
		if err := client.Close(); err != nil {
			log.Warn().Err(err).Msg("redis close")
		}
	}
}

func listenAndServe(server *http.Server) error {
	log.Info().Msgf("Server listening on %s", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
