package middleware

import (
	"net/http"
	"time"

	"github.com/AnshRaj112/bolt-backend/pkg/clientip"
)

// Progression writes: 2/s per account, burst 10. Keeps a stuck client from
// hammering the save-retry loop on one document.
var actionLimiters = newLimiterSet(500*time.Millisecond, 10)

// ActionRateLimit limits write routes per authenticated account. Mount after RequireAuth.
func ActionRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			next.ServeHTTP(w, r)
			return
		}
		key := "ip:" + clientip.RealClientIP(r)
		if acct, ok := AccountFrom(r.Context()); ok {
			key = "acct:" + acct.ID.Hex()
		}
		if !actionLimiters.allow(key) {
			writeJSONError(w, http.StatusTooManyRequests, "Slow down! Too many actions in a short time.")
			return
		}
		next.ServeHTTP(w, r)
	})
}
