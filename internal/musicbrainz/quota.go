package musicbrainz

import (
	"net/http"
	"strconv"
	"time"
)

// Quota is the request allowance reported by X-RateLimit-* response headers.
type Quota struct {
	Limit     int
	Remaining int

	// Window is the time left until the allowance resets.
	Window time.Duration

	// Known is false when the response carried no usable quota headers.
	Known bool
}

func parseQuota(h http.Header, now time.Time) Quota {
	limit, errL := strconv.Atoi(h.Get("X-RateLimit-Limit"))
	remaining, errR := strconv.Atoi(h.Get("X-RateLimit-Remaining"))
	reset, errT := strconv.ParseInt(h.Get("X-RateLimit-Reset"), 10, 64)
	if errL != nil || errR != nil || errT != nil || limit <= 0 {
		return Quota{}
	}

	window := time.Unix(reset, 0).Sub(now)
	if window < 0 {
		window = 0
	}
	return Quota{Limit: limit, Remaining: remaining, Window: window, Known: true}
}

// Pause is how long to wait before the next request: the share of the window already
// consumed, the whole window once the allowance is spent, or fallback when unknown.
func (q Quota) Pause(fallback time.Duration) time.Duration {
	if !q.Known {
		return fallback
	}
	if q.Remaining <= 0 {
		return q.Window
	}
	consumed := q.Limit - q.Remaining
	if consumed <= 0 {
		return 0
	}
	return time.Duration(float64(q.Window) * float64(consumed) / float64(q.Limit))
}
