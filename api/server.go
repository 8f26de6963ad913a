package api

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/bytes"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
)

type ServerOptions struct {
	Logger      *log.Logger
	CORSOrigins []string

	// RateLimiter defaults to an in-memory window of 100 requests per minute.
	RateLimiter WindowStore

	// BodyLimit uses echo's size syntax, e.g. "64K". It caps the request body
	// both as received and after gzip inflation.
	BodyLimit string

	// Registry receives the HTTP metrics served at /metrics. A fresh registry
	// is created when nil.
	Registry *prometheus.Registry
}

// NewServer builds the echo instance serving the task API.
func NewServer(svc Service, opts ServerOptions) *echo.Echo {
	if opts.Logger == nil {
		opts.Logger = log.StandardLogger()
	}
	if opts.RateLimiter == nil {
		opts.RateLimiter = NewMemoryWindowStore(100, time.Minute)
	}
	if len(opts.CORSOrigins) == 0 {
		opts.CORSOrigins = []string{"*"}
	}
	if opts.BodyLimit == "" {
		opts.BodyLimit = "64K"
	}
	if opts.Registry == nil {
		opts.Registry = prometheus.NewRegistry()
	}
	bodyLimit, err := bytes.Parse(opts.BodyLimit)
	if err != nil {
		panic(fmt.Errorf("api.NewServer: invalid body limit %q: %w", opts.BodyLimit, err))
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.JSONSerializer = sonicSerializer{}
	e.HTTPErrorHandler = ErrorHandler(opts.Logger)

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(RequestLogger(opts.Logger))
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		DisableErrorHandler: true,
		DisablePrintStack:   true,
	}))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "todo_api",
		Registerer: opts.Registry,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics"
		},
	}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: opts.CORSOrigins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderContentEncoding},
	}))
	e.Use(RateLimit(opts.RateLimiter))
	e.Use(middleware.BodyLimit(opts.BodyLimit))
	e.Use(InflateRequest(bodyLimit))

	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{
		Gatherer: opts.Registry,
	}))
	Register(e, svc)
	return e
}
