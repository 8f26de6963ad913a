package api

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// fixedWindow splits time into windows aligned to the Unix epoch, so every
// process sharing a store agrees on where a window starts.
type fixedWindow struct {
	limit  int
	window time.Duration
	now    func() time.Time
}

func (w fixedWindow) start(t time.Time) time.Time {
	return t.Truncate(w.window)
}

// Reset returns how long until the window containing t ends.
func (w fixedWindow) Reset(t time.Time) time.Duration {
	return w.start(t).Add(w.window).Sub(t)
}

// MemoryWindowStore counts requests per identifier inside the current window.
// Counts are local to the process.
type MemoryWindowStore struct {
	fixedWindow

	mu      sync.Mutex
	current time.Time
	counts  map[string]int
}

func NewMemoryWindowStore(limit int, window time.Duration) *MemoryWindowStore {
	return &MemoryWindowStore{
		fixedWindow: fixedWindow{limit: limit, window: window, now: time.Now},
		counts:      make(map[string]int),
	}
}

func (s *MemoryWindowStore) Allow(identifier string) (bool, error) {
	start := s.start(s.now())

	s.mu.Lock()
	defer s.mu.Unlock()
	if !start.Equal(s.current) {
		s.current = start
		clear(s.counts)
	}
	if s.counts[identifier] >= s.limit {
		return false, nil
	}
	s.counts[identifier]++
	return true, nil
}

// RedisWindowStore shares window counters between instances through Redis.
// Redis failures let the request through.
type RedisWindowStore struct {
	fixedWindow

	client  *redis.Client
	prefix  string
	timeout time.Duration
	logger  *log.Logger
}

func NewRedisWindowStore(client *redis.Client, limit int, window time.Duration, logger *log.Logger) *RedisWindowStore {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &RedisWindowStore{
		fixedWindow: fixedWindow{limit: limit, window: window, now: time.Now},
		client:      client,
		prefix:      "ratelimit:",
		timeout:     250 * time.Millisecond,
		logger:      logger,
	}
}

func (s *RedisWindowStore) Allow(identifier string) (bool, error) {
	start := s.start(s.now())
	key := s.prefix + identifier + ":" + strconv.FormatInt(start.UnixMilli(), 10)

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	var incr *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.PExpire(ctx, key, s.window)
		return nil
	})
	if err != nil {
		s.logger.WithError(err).Warn("rate limit store unavailable")
		return true, nil
	}
	return incr.Val() <= int64(s.limit), nil
}

// WindowStore is a rate limiter store that knows when its window resets.
type WindowStore interface {
	middleware.RateLimiterStore
	Reset(t time.Time) time.Duration
}

// RateLimit applies store to every request except the health checks. Denied
// requests get 429 with Retry-After set to the seconds left in the window.
func RateLimit(store WindowStore) echo.MiddlewareFunc {
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Skipper: func(c echo.Context) bool {
			p := c.Path()
			return p == "/health" || p == "/api/health"
		},
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusForbidden, "Unable to identify client")
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			retry := math.Ceil(store.Reset(time.Now()).Seconds())
			c.Response().Header().Set("Retry-After", strconv.Itoa(int(math.Max(retry, 1))))
			return echo.NewHTTPError(http.StatusTooManyRequests, msgRateLimited)
		},
	})
}
