package api

import (
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
)

type requestLog struct {
	logger *log.Logger
	start  time.Time
}

// RequestLogger emits one http.request entry per request once the response
// has been written.
func RequestLogger(logger *log.Logger) echo.MiddlewareFunc {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			rl := requestLog{logger: logger, start: time.Now()}
			err := next(c)
			if err != nil {
				// Let the error handler write the response so the logged
				// status is the one the client saw.
				c.Error(err)
			}
			rl.Log(c, err)
			return nil
		}
	}
}

func (r requestLog) Log(c echo.Context, err error) {
	status := c.Response().Status
	fields := log.Fields{
		"request_id": requestID(c),
		"method":     c.Request().Method,
		"route":      c.Path(),
		"status":     status,
		"total_ms":   durationToMillis(time.Since(r.start)),
		"bytes_out":  c.Response().Size,
	}
	if err != nil {
		fields["error"] = err.Error()
	}

	entry := r.logger.WithFields(fields)
	switch {
	case status >= 500:
		entry.Error("http.request")
	case status >= 400:
		entry.Warn("http.request")
	default:
		entry.Info("http.request")
	}
}

func requestID(c echo.Context) string {
	if id := c.Response().Header().Get(echo.HeaderXRequestID); id != "" {
		return id
	}
	return c.Request().Header.Get(echo.HeaderXRequestID)
}

func durationToMillis(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}
