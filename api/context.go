package api

import (
	"context"

	"github.com/rpupo63/portfolio-site-backend/supabase"
)

type keyType string

const (
	userKey      keyType = "user"
	requestIDKey keyType = "requestID"
)

// ctxWithUser adds the authenticated admin to the context
func ctxWithUser(ctx context.Context, user *supabase.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// ctxGetUser retrieves the authenticated admin, or nil on public routes
func ctxGetUser(ctx context.Context) *supabase.User {
	user, _ := ctx.Value(userKey).(*supabase.User)
	return user
}

func ctxWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

func ctxGetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
