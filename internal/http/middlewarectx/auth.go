// Package middlewarectx содержит HTTP middleware аутентификации и ограничения частоты.
//
// JWTMiddleware проверяет токен провайдера идентификации в заголовке Authorization
// и кладёт в контекст идентификатор и email пользователя. AdminTokenMiddleware
// пропускает только операторов, знающих токен администратора.
package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/shortsos/shortsos/internal/http/response"
	"github.com/shortsos/shortsos/internal/lib/jwt"
	"github.com/shortsos/shortsos/internal/lib/secret"
	"github.com/shortsos/shortsos/internal/lib/sl"
)

// Key тип для ключей контекста HTTP-запроса.
type Key string

const (
	// UserID ключ идентификатора пользователя в контексте.
	UserID Key = "user_id"
	// Email ключ email пользователя в контексте.
	Email Key = "email"
)

// AdminTokenHeader заголовок с токеном оператора.
const AdminTokenHeader = "X-Admin-Token"

// UserFromContext возвращает идентификатор и email пользователя из контекста.
func UserFromContext(ctx context.Context) (userID, email string) {
	userID, _ = ctx.Value(UserID).(string)
	email, _ = ctx.Value(Email).(string)
	return userID, email
}

// WithUser кладёт пользователя в контекст.
func WithUser(ctx context.Context, userID, email string) context.Context {
	ctx = context.WithValue(ctx, UserID, userID)
	return context.WithValue(ctx, Email, email)
}

// JWTMiddleware возвращает HTTP middleware, который проверяет JWT в заголовке Authorization.
//
// Если токен валиден, добавляет идентификатор и email пользователя в контекст запроса,
// иначе возвращает ошибку с HTTP статусом 401 Unauthorized.
func JWTMiddleware(verifier jwt.Verifier, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.JWTMiddleware"
			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				log.Info("missing or invalid authorization header")
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("missing or invalid authorization header"))
				return
			}
			tokenStr := strings.TrimPrefix(authHeader, "Bearer ")

			claims, err := verifier.ParseToken(tokenStr)
			if err != nil {
				log.Info("invalid or expired token", sl.Err(err))
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("invalid or expired token"))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), claims.UserID(), claims.Email)))
		})
	}
}

// AdminTokenMiddleware пропускает запрос, только если токен из заголовка
// X-Admin-Token совпадает с bcrypt-хэшем tokenHash. Пустой хэш закрывает маршрут.
func AdminTokenMiddleware(tokenHash string, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.AdminTokenMiddleware"
			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			token := r.Header.Get(AdminTokenHeader)
			if tokenHash == "" || token == "" {
				log.Warn("admin token missing")
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("unauthorized"))
				return
			}
			if err := secret.CompareToken(tokenHash, token); err != nil {
				log.Warn("admin token rejected")
				render.Status(r, http.StatusForbidden)
				render.JSON(w, r, response.Error("forbidden"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
