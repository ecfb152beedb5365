package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/recipe-studio/catalogue/internal/models"
	appErr "github.com/recipe-studio/catalogue/pkg/errors"
	"github.com/recipe-studio/catalogue/pkg/logger"
)

type userKeyType string

const UserIDKey userKeyType = "user_id"

// UserResolver confirms the account behind a token is still usable.
type UserResolver interface {
	ActiveUser(ctx context.Context, userID uuid.UUID) (*models.User, error)
}

// Auth validates a Bearer JWT using the provided HMAC secret and adds the
// user id to context. When users is non-nil, deleted or inactive accounts
// are rejected as well.
func Auth(hmacSecret []byte, users UserResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ah := r.Header.Get("Authorization")
			if !strings.HasPrefix(strings.ToLower(ah), "bearer ") {
				unauthorized(w, "authentication credentials were not provided")
				return
			}
			tokenStr := strings.TrimSpace(ah[len("Bearer "):])
			token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
				return hmacSecret, nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
			if err != nil || !token.Valid {
				unauthorized(w, "invalid or expired token")
				return
			}
			sub, err := token.Claims.GetSubject()
			if err != nil {
				unauthorized(w, "invalid token subject")
				return
			}
			uid, err := uuid.Parse(sub)
			if err != nil {
				unauthorized(w, "invalid token subject")
				return
			}
			if users != nil {
				if _, err := users.ActiveUser(r.Context(), uid); err != nil {
					if !appErr.IsCode(err, appErr.CodeUnauthorized) {
						logger.L().Error("resolve token user failed", zap.String("user_id", uid.String()), zap.Error(err))
						writeError(w, http.StatusInternalServerError, string(appErr.CodeInternal), "internal server error")
						return
					}
					unauthorized(w, "user not found or inactive")
					return
				}
			}
			ctx := context.WithValue(r.Context(), UserIDKey, uid)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
	writeError(w, http.StatusUnauthorized, string(appErr.CodeUnauthorized), msg)
}

// GetUserID returns the authenticated user id, or uuid.Nil outside Auth.
func GetUserID(ctx context.Context) uuid.UUID {
	if v, ok := ctx.Value(UserIDKey).(uuid.UUID); ok {
		return v
	}
	return uuid.Nil
}

// WithUserID returns ctx carrying id as the authenticated user.
func WithUserID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, UserIDKey, id)
}
