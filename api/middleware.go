package api

import (
	"errors"
	"net/http"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"github.com/amberops/ambulance-dispatch-api/config"
	"github.com/amberops/ambulance-dispatch-api/databases"
)

// Auth holds the user database and signing secret needed to authenticate
// requests. Role checks always read the role stored on the user document,
// never the role claim embedded in the credential, so a stale token cannot
// keep a capability its owner has lost.
type Auth struct {
	DB     databases.UserDatabase
	Secret string
}

// Middleware verifies the bearer credential, re-fetches the principal from
// the user collection and stores it on the request context
func (a Auth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		header := r.Header.Get("Authorization")
		if header == "" {
			config.ErrorStatus("missing authorization header", http.StatusUnauthorized, w, errors.New("no bearer token supplied"))
			return
		}
		tokenString := strings.TrimPrefix(header, "Bearer ")
		if tokenString == header {
			config.ErrorStatus("malformed authorization header", http.StatusUnauthorized, w, errors.New("expected bearer token"))
			return
		}

		claims, err := ParseToken(tokenString, a.Secret)
		if err != nil {
			if errors.Is(err, ErrTokenExpired) {
				config.ErrorStatus("token expired", http.StatusUnauthorized, w, err)
				return
			}
			config.ErrorStatus("invalid token", http.StatusUnauthorized, w, err)
			return
		}

		ctx, cancel := WithQueryTimeout(r.Context())
		defer cancel()

		user, err := a.DB.FindOne(ctx, bson.M{"_id": claims.UserID})
		if err != nil {
			// the principal may have been deleted after the token was issued
			config.ErrorStatus("unauthorized", http.StatusUnauthorized, w, errors.New("principal no longer exists"))
			return
		}

		zap.S().Debugw("authenticated",
			"userID", user.ID.Hex(),
			"role", user.Details.Role,
		)
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), user)))
	})
}

// RequireRole gates a handler to principals whose stored role is one of the
// given roles. Must run inside Middleware.
func (a Auth) RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := PrincipalFromContext(r.Context())
			if !ok {
				config.ErrorStatus("unauthorized", http.StatusUnauthorized, w, errors.New("no principal on request"))
				return
			}
			for _, role := range roles {
				if user.Details.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			config.ErrorStatus("forbidden", http.StatusForbidden, w, errors.New("insufficient role"))
		})
	}
}
