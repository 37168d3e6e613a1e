package api

import (
	"context"
	"time"

	"github.com/amberops/ambulance-dispatch-api/models"
)

// QueryTimeout is the default timeout for database queries
const QueryTimeout = 10 * time.Second

// WithQueryTimeout creates a context with query timeout
func WithQueryTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, QueryTimeout)
}

type principalContextKey struct{}

// WithPrincipal stores the authenticated user on the request context
func WithPrincipal(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, principalContextKey{}, user)
}

// PrincipalFromContext returns the authenticated user resolved by the auth
// middleware, if any
func PrincipalFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(principalContextKey{}).(*models.User)
	return user, ok
}
