package middleware

import (
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// Chat send rate limit: each send costs two completion calls, so the
// guarded resource is per-user model spend, not per-IP bandwidth.
// 10 sends/min, burst 5. Must run after the Auth middleware.

const (
	chatSendRPS   = rate.Limit(10.0 / 60.0)
	chatSendBurst = 5
)

var chatSendLimiters = newLimiterTable(func() *rate.Limiter {
	return rate.NewLimiter(chatSendRPS, chatSendBurst)
})

// ChatSendRateLimit limits message sends per authenticated user. Requests
// without a resolved user fall through; Auth already rejected them.
func ChatSendRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := GetUser(r.Context())
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		limiter := chatSendLimiters.get(user.ID.String())
		if !limiter.Allow() {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(chatSendBurst))
			w.Header().Set("X-RateLimit-Remaining", "0")
			w.Header().Set("Retry-After", strconv.Itoa(int(time.Minute.Seconds())))
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"success":false,"message":"Too many messages. Please slow down."}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}
