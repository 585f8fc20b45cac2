// ratelimit.go — ограничение частоты попыток входа.
// Счётчик фиксированного окна: в Redis (общий для реплик) или в памяти процесса.
package middleware

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	apierrors "github.com/bigkaa/intake-portal/internal/api/errors"
	"github.com/bigkaa/intake-portal/internal/ui/i18n"
)

// Limiter — счётчик попыток. Возвращает, разрешена ли попытка,
// и через сколько окно сбросится, если нет.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, time.Duration, error)
}

// --- In-memory ---

// MemoryLimiter — счётчик в памяти процесса.
type MemoryLimiter struct {
	mu      sync.Mutex
	buckets map[string]*rateBucket
	now     func() time.Time
}

type rateBucket struct {
	count     int
	windowEnd time.Time
}

// NewMemoryLimiter создаёт счётчик в памяти.
func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{buckets: make(map[string]*rateBucket), now: time.Now}
}

// Allow учитывает попытку по ключу.
func (l *MemoryLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (bool, time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	bucket, ok := l.buckets[key]
	if !ok || !now.Before(bucket.windowEnd) {
		l.sweep(now)
		l.buckets[key] = &rateBucket{count: 1, windowEnd: now.Add(window)}
		return true, 0, nil
	}
	if bucket.count >= limit {
		return false, bucket.windowEnd.Sub(now), nil
	}
	bucket.count++
	return true, 0, nil
}

// sweep удаляет истёкшие окна. Вызывается под мьютексом.
func (l *MemoryLimiter) sweep(now time.Time) {
	for k, b := range l.buckets {
		if !now.Before(b.windowEnd) {
			delete(l.buckets, k)
		}
	}
}

// --- Redis ---

// rateLimitScript увеличивает счётчик и при превышении лимита возвращает
// оставшееся время окна в миллисекундах, иначе -1.
const rateLimitScript = `
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
if current > tonumber(ARGV[2]) then
  local ttl = redis.call("PTTL", KEYS[1])
  if ttl < 0 then
    redis.call("PEXPIRE", KEYS[1], ARGV[1])
    ttl = tonumber(ARGV[1])
  end
  return ttl
end
return -1
`

// RedisLimiter — счётчик в Redis, общий для всех реплик.
type RedisLimiter struct {
	client redis.Scripter
	script *redis.Script
	prefix string
}

// NewRedisLimiter создаёт счётчик поверх клиента Redis.
func NewRedisLimiter(client redis.Scripter) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		script: redis.NewScript(rateLimitScript),
		prefix: "intake:ratelimit:",
	}
}

// Allow учитывает попытку по ключу.
func (l *RedisLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, time.Duration, error) {
	ttl := window.Milliseconds()
	if ttl <= 0 {
		ttl = 1
	}

	ctx, cancel := context.WithTimeout(ctx, 250*time.Millisecond)
	defer cancel()

	res, err := l.script.Run(ctx, l.client, []string{l.prefix + key}, ttl, limit).Int64()
	if err != nil {
		return true, 0, err
	}
	if res < 0 {
		return true, 0, nil
	}
	return false, time.Duration(res) * time.Millisecond, nil
}

// NewRedisClient разбирает URL (redis:// или rediss://) и проверяет соединение.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

// --- Middleware ---

// RateLimit ограничивает частоту запросов по ключу keyFn.
// Превышение — 429 с заголовком Retry-After. Ошибка счётчика не блокирует запрос.
func RateLimit(
	limiter Limiter,
	keyFn func(*http.Request) string,
	limit int,
	window time.Duration,
	bundle *i18n.Bundle,
	logger *slog.Logger,
) func(http.Handler) http.Handler {
	logger = logger.With(slog.String("component", "rate_limit"))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyFn(r)
			if key == "" || limit <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			allowed, retryAfter, err := limiter.Allow(r.Context(), key, limit, window)
			if err != nil {
				logger.Warn("Счётчик попыток недоступен", slog.String("error", err.Error()))
			}
			if !allowed {
				seconds := int(retryAfter.Round(time.Second).Seconds())
				if seconds < 1 {
					seconds = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(seconds))
				apierrors.TooManyRequests(w, bundle.Tf(r.Context(), "error.too_many_attempts", seconds))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// LoginKey — ключ попыток входа: IP клиента и email из формы.
func LoginKey(r *http.Request) string {
	email := strings.ToLower(strings.TrimSpace(r.PostFormValue("email")))
	return "login:" + ClientIP(r) + ":" + email
}

// ClientIP возвращает адрес клиента из RemoteAddr.
// Заголовки прокси не читаются: RemoteAddr подменяет ForwardedFor,
// если портал настроен за доверенным прокси.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// ForwardedFor подставляет в RemoteAddr адрес клиента, который записал
// доверенный прокси: последний элемент X-Forwarded-For. Предыдущие элементы
// присылает сам клиент, им не доверяем. Подключается только за прокси.
func ForwardedFor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ip := lastForwarded(r.Header.Values("X-Forwarded-For")); ip != "" {
			r.RemoteAddr = net.JoinHostPort(ip, "0")
		}
		next.ServeHTTP(w, r)
	})
}

// lastForwarded возвращает последний корректный IP из заголовков X-Forwarded-For.
// Повторные заголовки склеиваются по порядку.
func lastForwarded(values []string) string {
	for i := len(values) - 1; i >= 0; i-- {
		hops := strings.Split(values[i], ",")
		for j := len(hops) - 1; j >= 0; j-- {
			hop := strings.TrimSpace(hops[j])
			if hop == "" {
				continue
			}
			if ip := net.ParseIP(hop); ip != nil {
				return ip.String()
			}
			return ""
		}
	}
	return ""
}
