package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"tiltguard/internal/performance"
	"tiltguard/pkg/telemetry"
)

// ServerOption configures Server.
type ServerOption func(*ServerConfig)

// ServerConfig holds server configuration.
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	RateLimit       float64
	RateBurst       int
	Recorder        *telemetry.Recorder
	Pool            *performance.WorkerPool
	Logger          zerolog.Logger
}

// Server wraps the Echo HTTP server.
type Server struct {
	echo    *echo.Echo
	config  *ServerConfig
	started time.Time
}

// NewServer creates an HTTP server serving handler's routes, /healthz and
// /metrics.
func NewServer(handler *Handler, opts ...ServerOption) *Server {
	cfg := &ServerConfig{
		Host:            "127.0.0.1",
		Port:            8080,
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    10 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		Logger:          zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(cfg)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = cfg.ReadTimeout
	e.Server.WriteTimeout = cfg.WriteTimeout

	e.Use(Recover(cfg.Logger))
	e.Use(RequestLogging(cfg.Logger))
	if cfg.Recorder != nil {
		e.Use(Metrics(cfg.Recorder))
	}
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		e.Use(RateLimit(rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)))
	}

	s := &Server{echo: e, config: cfg, started: time.Now()}

	if handler != nil {
		handler.RegisterRoutes(e)
	}

	e.GET("/healthz", health(s.started, s.runtime))
	if cfg.Recorder != nil {
		e.GET("/metrics", echo.WrapHandler(cfg.Recorder.Handler()))
	}

	return s
}

func (s *Server) runtime() interface{} {
	out := map[string]interface{}{
		"memory": performance.RuntimeStats(),
	}
	if s.config.Pool != nil {
		out["pool"] = s.config.Pool.Stats()
	}
	return out
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}

// Start starts the HTTP server in the background. Listen failures are sent
// on the returned channel.
func (s *Server) Start() <-chan error {
	errCh := make(chan error, 1)

	go func() {
		s.config.Logger.Info().Str("addr", s.Addr()).Msg("HTTP server listening")
		if err := s.echo.Start(s.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	return errCh
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}
	s.config.Logger.Info().Msg("HTTP server stopped")
	return nil
}

// Echo returns the underlying Echo instance.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// WithHost sets server host.
func WithHost(host string) ServerOption {
	return func(c *ServerConfig) {
		c.Host = host
	}
}

// WithPort sets server port.
func WithPort(port int) ServerOption {
	return func(c *ServerConfig) {
		c.Port = port
	}
}

// WithTimeouts sets read/write/shutdown timeouts.
func WithTimeouts(read, write, shutdown time.Duration) ServerOption {
	return func(c *ServerConfig) {
		c.ReadTimeout = read
		c.WriteTimeout = write
		c.ShutdownTimeout = shutdown
	}
}

// WithRateLimit limits accepted requests per second. A rate of 0 disables it.
func WithRateLimit(rps float64, burst int) ServerOption {
	return func(c *ServerConfig) {
		c.RateLimit = rps
		c.RateBurst = burst
	}
}

// WithRecorder enables request metrics and the /metrics endpoint.
func WithRecorder(r *telemetry.Recorder) ServerOption {
	return func(c *ServerConfig) {
		c.Recorder = r
	}
}

// WithPool reports the worker pool in /healthz.
func WithPool(p *performance.WorkerPool) ServerOption {
	return func(c *ServerConfig) {
		c.Pool = p
	}
}

// WithLogger sets the server logger.
func WithLogger(l zerolog.Logger) ServerOption {
	return func(c *ServerConfig) {
		c.Logger = l
	}
}
