package api

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// InflateRequest decompresses gzip-encoded request bodies so handlers always
// read plain JSON. A body that is not valid gzip is rejected with 400, and one
// that inflates past limit bytes with 413.
func InflateRequest(limit int64) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if !isGzipEncoded(req.Header.Get(echo.HeaderContentEncoding)) {
				return next(c)
			}

			raw := req.Body
			zr, err := gzip.NewReader(raw)
			if err != nil {
				_ = raw.Close()
				return echo.NewHTTPError(http.StatusBadRequest, "Invalid gzip body")
			}

			req.Body = &inflatedBody{zr: zr, raw: raw, remaining: limit}
			req.ContentLength = -1
			req.Header.Del(echo.HeaderContentEncoding)
			req.Header.Del(echo.HeaderContentLength)
			return next(c)
		}
	}
}

func isGzipEncoded(header string) bool {
	for _, enc := range strings.Split(header, ",") {
		switch strings.ToLower(strings.TrimSpace(enc)) {
		case "gzip", "x-gzip":
			return true
		}
	}
	return false
}

// inflatedBody stops with 413 once more than remaining bytes were inflated.
type inflatedBody struct {
	zr        *gzip.Reader
	raw       io.Closer
	remaining int64
}

func (b *inflatedBody) Read(p []byte) (int, error) {
	if b.remaining < 0 {
		return 0, echo.ErrStatusRequestEntityTooLarge
	}
	n, err := b.zr.Read(p)
	b.remaining -= int64(n)
	if b.remaining < 0 {
		return n, echo.ErrStatusRequestEntityTooLarge
	}
	return n, err
}

func (b *inflatedBody) Close() error {
	err := b.zr.Close()
	if cerr := b.raw.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}
