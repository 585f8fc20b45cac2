// identity.go — определение вызывающего по Bearer-токену или cookie сессии.
// Пользователь перечитывается из БД (роль из токена не используется) через
// кэш с ограниченным временем жизни записей.
package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	apierrors "github.com/bigkaa/intake-portal/internal/api/errors"
	"github.com/bigkaa/intake-portal/internal/auth"
	"github.com/bigkaa/intake-portal/internal/domain/access"
	"github.com/bigkaa/intake-portal/internal/domain/model"
	"github.com/bigkaa/intake-portal/internal/ui/i18n"
)

// contextKey — тип для ключей контекста (избегаем коллизий).
type contextKey string

// ContextKeyCaller — вызывающий в контексте запроса.
const ContextKeyCaller contextKey = "caller"

// UserLoader загружает пользователя по ID.
// Реализуется service.AccountService.
type UserLoader interface {
	GetUser(ctx context.Context, id int64) (*model.User, error)
}

// TokenVerifier проверяет API-токен и возвращает ID пользователя.
// Реализуется auth.TokenService.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (int64, error)
}

// Identity — middleware определения вызывающего.
type Identity struct {
	sessions *auth.SessionManager
	tokens   TokenVerifier
	users    UserLoader
	cache    *expirable.LRU[int64, *access.Caller]
	bundle   *i18n.Bundle
	logger   *slog.Logger
}

// NewIdentity создаёт middleware определения вызывающего.
// cacheSize и cacheTTL — размер и время жизни кэша пользователей.
func NewIdentity(
	sessions *auth.SessionManager,
	tokens TokenVerifier,
	users UserLoader,
	bundle *i18n.Bundle,
	cacheSize int,
	cacheTTL time.Duration,
	logger *slog.Logger,
) *Identity {
	return &Identity{
		sessions: sessions,
		tokens:   tokens,
		users:    users,
		cache:    expirable.NewLRU[int64, *access.Caller](cacheSize, nil, cacheTTL),
		bundle:   bundle,
		logger:   logger.With(slog.String("component", "identity")),
	}
}

// Middleware помещает *access.Caller в контекст, если запрос аутентифицирован.
// Невалидный Bearer-токен — 401. Невалидная или истёкшая cookie удаляется,
// запрос продолжается анонимно.
func (id *Identity) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if header := r.Header.Get("Authorization"); header != "" {
				scheme, token, ok := strings.Cut(header, " ")
				if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
					apierrors.Unauthorized(w, id.bundle.T(ctx, "error.unauthenticated"))
					return
				}
				userID, err := id.tokens.Verify(ctx, token)
				if err != nil {
					apierrors.Unauthorized(w, id.bundle.T(ctx, "error.unauthenticated"))
					return
				}
				caller, err := id.resolve(ctx, userID)
				if err != nil {
					apierrors.Unauthorized(w, id.bundle.T(ctx, "error.unauthenticated"))
					return
				}
				next.ServeHTTP(w, r.WithContext(WithCaller(ctx, caller)))
				return
			}

			session, err := id.sessions.FromRequest(r)
			if err != nil {
				id.logger.Debug("Cookie сессии отклонена", slog.String("error", err.Error()))
				id.sessions.Clear(w)
				next.ServeHTTP(w, r)
				return
			}
			if session == nil {
				next.ServeHTTP(w, r)
				return
			}

			caller, err := id.resolve(ctx, session.UserID)
			if err != nil {
				id.sessions.Clear(w)
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithCaller(ctx, caller)))
		})
	}
}

// Forget удаляет пользователя из кэша.
func (id *Identity) Forget(userID int64) {
	id.cache.Remove(userID)
}

// resolve возвращает вызывающего из кэша или из БД.
func (id *Identity) resolve(ctx context.Context, userID int64) (*access.Caller, error) {
	if caller, ok := id.cache.Get(userID); ok {
		return caller, nil
	}

	u, err := id.users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !u.Role.Valid() {
		return nil, errors.New("у пользователя неизвестная роль")
	}

	caller := &access.Caller{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
	id.cache.Add(userID, caller)
	return caller, nil
}

// WithCaller возвращает контекст с вызывающим.
func WithCaller(ctx context.Context, caller *access.Caller) context.Context {
	if entry, ok := ctx.Value(contextKeyLogEntry).(*logEntry); ok && caller != nil {
		entry.userID = caller.ID
	}
	return context.WithValue(ctx, ContextKeyCaller, caller)
}

// CallerFromContext извлекает вызывающего из контекста запроса.
// Возвращает nil, если запрос анонимный.
func CallerFromContext(ctx context.Context) *access.Caller {
	caller, _ := ctx.Value(ContextKeyCaller).(*access.Caller)
	return caller
}
