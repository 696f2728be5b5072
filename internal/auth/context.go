package auth

import (
	"context"

	"github.com/tanushreec24/Streaker/internal/model"
)

type ctxKey string

const (
	userContextKey    ctxKey = "streaker.auth.user"
	sessionContextKey ctxKey = "streaker.auth.session"
)

func withUserContext(ctx context.Context, p model.Profile) context.Context {
	return context.WithValue(ctx, userContextKey, p)
}

func withSessionContext(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, s)
}

func UserFromContext(ctx context.Context) (model.Profile, bool) {
	v := ctx.Value(userContextKey)
	p, ok := v.(model.Profile)
	return p, ok
}

func SessionFromContext(ctx context.Context) (Session, bool) {
	v := ctx.Value(sessionContextKey)
	s, ok := v.(Session)
	return s, ok
}
