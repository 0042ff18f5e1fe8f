package middleware

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/moltender/moltender/internal/auth"
	"github.com/moltender/moltender/internal/metrics"
	"github.com/moltender/moltender/internal/store"
)

// RateLimit defines a fixed-window limit for an endpoint family.
type RateLimit struct {
	Requests int64
	Window   time.Duration
	PerAgent bool // key by authenticated agent when available, else by IP
}

// RateLimiter applies per-endpoint request limits backed by Redis counters.
// With no Redis configured it passes everything through.
type RateLimiter struct {
	redis  *store.RedisStore
	tokens *auth.TokenIssuer
	logger zerolog.Logger
	limits map[string]RateLimit
}

// NewRateLimiter creates a rate limiter. redis may be nil.
func NewRateLimiter(redis *store.RedisStore, tokens *auth.TokenIssuer, logger zerolog.Logger) *RateLimiter {
	return &RateLimiter{
		redis:  redis,
		tokens: tokens,
		logger: logger,
		limits: map[string]RateLimit{
			"POST /api/register":               {10, time.Hour, false},
			"POST /api/login":                  {30, time.Minute, false},
			"POST /api/public/request-api-key": {5, time.Hour, false},
			"POST /api/swipe":                  {120, time.Minute, true},
			"POST /api/chat/":                  {60, time.Minute, true},
			"GET /api/profiles":                {60, time.Minute, true},
			"GET /api/potential-matches":       {60, time.Minute, true},
		},
	}
}

// bucketFor matches a request against the limit table.
func (rl *RateLimiter) bucketFor(r *http.Request) (string, RateLimit, bool) {
	key := r.Method + " " + r.URL.Path
	if limit, ok := rl.limits[key]; ok {
		return key, limit, true
	}
	for pattern, limit := range rl.limits {
		if strings.HasSuffix(pattern, "/") && strings.HasPrefix(key, pattern) {
			return pattern, limit, true
		}
	}
	return "", RateLimit{}, false
}

// callerKey identifies the requester for counting purposes. The limiter
// runs before RequireAuth, so per-agent buckets resolve the agent from
// the bearer token's subject; unauthenticated callers fall back to IP.
func (rl *RateLimiter) callerKey(r *http.Request, perAgent bool) string {
	if perAgent {
		if agent := GetAgentFromContext(r.Context()); agent != nil {
			return "agent:" + agent.ID.String()
		}
		if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
			if agentID, err := rl.tokens.Verify(strings.TrimPrefix(header, "Bearer ")); err == nil {
				return "agent:" + agentID.String()
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}

// Middleware enforces the limit table.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.redis == nil {
			next.ServeHTTP(w, r)
			return
		}

		bucket, limit, ok := rl.bucketFor(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		count, err := rl.redis.IncrRateLimit(r.Context(), bucket, rl.callerKey(r, limit.PerAgent), limit.Window)
		if err != nil {
			// Redis trouble must not take the API down.
			rl.logger.Warn().Err(err).Str("bucket", bucket).Msg("rate limit check failed, allowing request")
			next.ServeHTTP(w, r)
			return
		}

		if count > limit.Requests {
			metrics.RateLimitHits.WithLabelValues(bucket).Inc()
			w.Header().Set("Retry-After", limit.Window.String())
			jsonError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		next.ServeHTTP(w, r)
	})
}
