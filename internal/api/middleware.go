package api

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"tiltguard/internal/logging"
	"tiltguard/pkg/telemetry"
	"tiltguard/pkg/utils"
)

// Recover turns a handler panic into a 500 response.
func Recover(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					perr, ok := r.(error)
					if !ok {
						perr = fmt.Errorf("%v", r)
					}
					logger.Error().Err(perr).Str("stack", string(debug.Stack())).Msg("Panic in handler")
					err = DataResponse(c, http.StatusInternalServerError, "Internal Server Error")
				}
			}()
			return next(c)
		}
	}
}

// RequestLogging tags each request with an ID, stores a request-scoped logger
// in its context and logs the outcome: debug for success, warn for 4xx and
// error for 5xx.
func RequestLogging(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			id := c.Request().Header.Get(echo.HeaderXRequestID)
			if id == "" {
				id = utils.NewID()
			}
			c.Response().Header().Set(echo.HeaderXRequestID, id)

			reqLogger := logger.With().Str("request_id", id).Logger()
			c.SetRequest(c.Request().WithContext(logging.WithLogger(c.Request().Context(), reqLogger)))

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			status := c.Response().Status
			event := reqLogger.Debug()
			switch {
			case status >= 500:
				event = reqLogger.Error()
			case status >= 400:
				event = reqLogger.Warn()
			}

			event.
				Str("method", c.Request().Method).
				Str("uri", c.Request().RequestURI).
				Str("remote", c.RealIP()).
				Int("status", status).
				Dur("latency", time.Since(start)).
				Msg("HTTP request")

			return nil
		}
	}
}

// Metrics records request counts and latency per route template.
func Metrics(recorder *telemetry.Recorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			recorder.RecordHTTP(route, c.Request().Method, c.Response().Status, time.Since(start).Seconds())

			return nil
		}
	}
}

// RateLimit rejects requests beyond the limiter's budget with 429.
func RateLimit(limiter *rate.Limiter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if limiter != nil && !limiter.Allow() {
				c.Response().Header().Set("Retry-After", "1")
				return DataResponse(c, http.StatusTooManyRequests, "Too many requests")
			}
			return next(c)
		}
	}
}
