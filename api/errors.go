package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"todo-api/domain"
)

// ErrorHandler renders every handler error as {"error": message}. Domain
// errors are mapped by kind; anything unclassified is a 500 whose detail only
// reaches the log.
func ErrorHandler(logger *log.Logger) echo.HTTPErrorHandler {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		status, msg := classify(err)
		if status == http.StatusInternalServerError {
			logger.WithFields(log.Fields{
				"request_id": requestID(c),
				"method":     c.Request().Method,
				"route":      c.Path(),
			}).WithError(err).Error("request failed")
		}

		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(status)
		} else {
			writeErr = c.JSON(status, errorResponse{Error: msg})
		}
		if writeErr != nil {
			logger.WithError(writeErr).Warn("write error response")
		}
	}
}

func classify(err error) (int, string) {
	var de *domain.Error
	if errors.As(err, &de) {
		switch de.Kind {
		case domain.KindValidation:
			return http.StatusBadRequest, de.Message
		case domain.KindNotFound:
			return http.StatusNotFound, de.Error()
		}
		return http.StatusInternalServerError, msgInternal
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		if he.Code >= http.StatusInternalServerError {
			return he.Code, msgInternal
		}
		if msg, ok := he.Message.(string); ok {
			return he.Code, msg
		}
		return he.Code, http.StatusText(he.Code)
	}
	return http.StatusInternalServerError, msgInternal
}
