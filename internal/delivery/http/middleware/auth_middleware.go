package middleware

import (
	"context"
	"net/http"

	"storefront-console/internal/domain"
	"storefront-console/internal/session"
	"storefront-console/pkg/logger"
	"storefront-console/pkg/utils"
)

// SessionResolver hands out the Ready session of an access token.
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (*session.Store, error)
	Evict(token string)
}

// NewAuthMiddleware resolves the caller's session and puts it, its user and its
// backend token into the request context. A token the backend no longer accepts
// answers 401 with reauth set and drops the session.
func NewAuthMiddleware(sessions SessionResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := utils.ExtractToken(r)
			if token == "" {
				WriteDomainError(w, r, domain.ErrUnauthorized)
				return
			}

			store, err := sessions.Resolve(r.Context(), token)
			if err != nil {
				if domain.NeedsReauth(err) {
					sessions.Evict(token)
				}
				WriteDomainError(w, r, err)
				return
			}
			user, err := store.User()
			if err != nil {
				WriteDomainError(w, r, err)
				return
			}

			ctx := store.Context(r.Context())
			ctx = context.WithValue(ctx, domain.SessionContextKey, store)
			ctx = context.WithValue(ctx, domain.UserContextKey, user)
			reqLogger := logger.WithUserID(*logger.WithContext(ctx), user.ID)
			ctx = logger.NewContext(ctx, &reqLogger)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func UserFromContext(ctx context.Context) (*domain.User, bool) {
	user, ok := ctx.Value(domain.UserContextKey).(*domain.User)
	return user, ok && user != nil
}

func SessionFromContext(ctx context.Context) (*session.Store, bool) {
	store, ok := ctx.Value(domain.SessionContextKey).(*session.Store)
	return store, ok && store != nil
}
