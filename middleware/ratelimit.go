package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

type rateEntry struct {
	count    int
	windowAt time.Time
}

// RateLimiter — процессный счётчик с фиксированным окном.
// Ключ — "user:<id>" для аутентифицированных запросов, "ip:<addr>" для остальных.
type RateLimiter struct {
	mu      sync.Mutex
	entries map[string]*rateEntry
	limit   int
	window  time.Duration
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		entries: make(map[string]*rateEntry),
		limit:   limit,
		window:  window,
	}
}

// Allow возвращает false, если ключ исчерпал лимит в текущем окне.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	e, ok := rl.entries[key]
	if !ok || now.After(e.windowAt) {
		rl.entries[key] = &rateEntry{count: 1, windowAt: now.Add(rl.window)}
		return true
	}
	e.count++
	return e.count <= rl.limit
}

// Cleanup удаляет истёкшие окна; вызывается периодически из main.
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	for key, e := range rl.entries {
		if now.After(e.windowAt) {
			delete(rl.entries, key)
		}
	}
}

// RealIP извлекает адрес клиента с учётом прокси-заголовков.
func RealIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if i := strings.IndexByte(xff, ','); i > 0 {
			return strings.TrimSpace(xff[:i])
		}
		return strings.TrimSpace(xff)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// RateLimitKey выбирает идентичность из claims, иначе адрес клиента.
func RateLimitKey(r *http.Request) string {
	if claims, err := ClaimsFromContext(r.Context()); err == nil {
		return "user:" + claims.UserID
	}
	return "ip:" + RealIP(r)
}

// RateLimit возвращает middleware, отвечающее 429 при превышении лимита.
// Ответ пишет respond, чтобы сохранить единый формат конверта ошибок.
func RateLimit(limiter *RateLimiter, enabled bool, respond func(w http.ResponseWriter, r *http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !enabled {
				next.ServeHTTP(w, r)
				return
			}
			if !limiter.Allow(RateLimitKey(r)) {
				w.Header().Set("Retry-After", strconv.Itoa(int(limiter.window.Seconds())))
				respond(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
