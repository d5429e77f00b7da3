// Package context carries request-scoped values: the acting user and trace ids.
package context

import (
	"context"
)

// UserContext describes the actor behind a request. A nil UserContext means
// a system-initiated operation; audit fields are left empty in that case.
type UserContext struct {
	UserID string
	Email  string
	Roles  []string
}

type userContextKey struct{}

// WithUser adds UserContext to context.
func WithUser(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// WithUserID is WithUser for callers that only know the id.
func WithUserID(ctx context.Context, userID string) context.Context {
	if userID == "" {
		return ctx
	}
	return WithUser(ctx, &UserContext{UserID: userID})
}

// GetUser returns UserContext from context.
func GetUser(ctx context.Context) *UserContext {
	if v, ok := ctx.Value(userContextKey{}).(*UserContext); ok {
		return v
	}
	return nil
}

// GetUserID returns user ID from context or empty string.
func GetUserID(ctx context.Context) string {
	if u := GetUser(ctx); u != nil {
		return u.UserID
	}
	return ""
}

// ActorPtr returns the user id as an optional audit value.
func ActorPtr(ctx context.Context) *string {
	if uid := GetUserID(ctx); uid != "" {
		return &uid
	}
	return nil
}
