package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/talentbridge/talentbridge-backend/api/responses"
	"github.com/talentbridge/talentbridge-backend/pkg/config"
	pkgerrors "github.com/talentbridge/talentbridge-backend/pkg/errors"
	"github.com/talentbridge/talentbridge-backend/pkg/logger"
)

type fixedWindowStore interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// RateLimitPolicy bounds one traffic surface per caller and per client IP.
type RateLimitPolicy struct {
	name    string
	window  time.Duration
	perUser int
	perIP   int
}

func NewRateLimitPolicy(name string, cfg config.RateLimitConfig) RateLimitPolicy {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = "api"
	}
	return RateLimitPolicy{name: name, window: cfg.Window, perUser: cfg.PerUser, perIP: cfg.PerIP}
}

func (p RateLimitPolicy) enabled() bool {
	return p.window > 0 && (p.perUser > 0 || p.perIP > 0)
}

// RateLimit applies fixed-window counters. It runs after Auth so the user
// counter keys on the token subject rather than anything the body claims.
func RateLimit(policy RateLimitPolicy, store fixedWindowStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.enabled() || store == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			checks := []struct {
				scope string
				value string
				limit int
			}{
				{"user", UserIDFromContext(ctx), policy.perUser},
				{"ip", clientIP(r), policy.perIP},
			}
			for _, check := range checks {
				if check.limit <= 0 || check.value == "" {
					continue
				}
				scope := policy.name + ":" + check.scope + ":" + check.value
				allowed, count, err := store.FixedWindowAllow(ctx, scope, int64(check.limit), policy.window)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
					return
				}
				if !allowed {
					if logg != nil {
						logg.Warn(logg.WithFields(ctx, map[string]any{
							"policy":         policy.name,
							"scope":          check.scope,
							"attempts":       count,
							"limit":          check.limit,
							"window_seconds": int(policy.window.Seconds()),
						}), "rate_limit.blocked")
					}
					responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "rate limit exceeded"))
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if header := r.Header.Get("X-Forwarded-For"); header != "" {
		for _, part := range strings.Split(header, ",") {
			if ip := strings.TrimSpace(part); ip != "" {
				return ip
			}
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}
