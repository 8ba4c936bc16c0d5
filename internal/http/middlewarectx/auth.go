// Package middlewarectx содержит HTTP middleware сервиса: проверку сессии,
// ограничение по ролям, заголовки безопасности, лимит тела, журнал запросов
// и перехват паник.
//
// Protect читает JWT из cookie "token", проверяет его через Authenticator
// и кладет пользователя в контекст запроса. RestrictTo пропускает дальше
// только пользователей с разрешенными ролями.
package middlewarectx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"slices"

	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/user-service/internal/http/response"
	"github.com/magabrotheeeer/user-service/internal/lib/apperr"
	"github.com/magabrotheeeer/user-service/internal/models"
)

// Key тип для ключей контекста HTTP-запроса.
type Key string

// User ключ пользователя сессии в контексте.
const User Key = "user"

// TokenCookie имя cookie с сессионным токеном.
const TokenCookie = "token"

// MsgNoPermission сообщение для запрещенной роли.
const MsgNoPermission = "You do not have permission"

// Authenticator проверяет сессионный токен и возвращает его владельца.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

// Protect возвращает middleware, который пропускает только запросы с действующей сессией.
func Protect(authService Authenticator, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.Protect"

			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			var token string
			cookie, err := r.Cookie(TokenCookie)
			if err == nil {
				token = cookie.Value
			} else if !errors.Is(err, http.ErrNoCookie) {
				response.Fail(w, r, log, err)
				return
			}

			user, err := authService.Authenticate(r.Context(), token)
			if err != nil {
				response.Fail(w, r, log, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// RestrictTo возвращает middleware, который отклоняет пользователей с ролью вне списка.
// Монтируется после Protect.
func RestrictTo(log *slog.Logger, roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok || !slices.Contains(roles, user.Role) {
				response.Fail(w, r, log, apperr.Forbidden(MsgNoPermission))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithUser кладет пользователя сессии в контекст.
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, User, user)
}

// UserFromContext достает пользователя сессии из контекста.
func UserFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(User).(*models.User)
	return user, ok && user != nil
}
