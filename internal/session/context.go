package session

import (
	"context"

	"gastos/pkg/ledger"
)

type contextKey struct{}

// WithUser returns a copy of ctx carrying user.
func WithUser(ctx context.Context, user ledger.SessionUser) context.Context {
	return context.WithValue(ctx, contextKey{}, user)
}

// UserFromContext returns the user stored by WithUser.
func UserFromContext(ctx context.Context) (ledger.SessionUser, bool) {
	user, ok := ctx.Value(contextKey{}).(ledger.SessionUser)
	return user, ok
}
