package gate

import (
	"context"

	"github.com/Miraines/MoonyAndStarry/social-auth/internal/domain/auth/model"
)

type payloadKey model.TokenPurpose

// WithPayload attaches p to ctx under its purpose, so an access and a refresh
// payload can travel together.
func WithPayload(ctx context.Context, p model.TokenPayload) context.Context {
	return context.WithValue(ctx, payloadKey(p.Purpose), p)
}

func PayloadFrom(ctx context.Context, purpose model.TokenPurpose) (model.TokenPayload, bool) {
	p, ok := ctx.Value(payloadKey(purpose)).(model.TokenPayload)
	return p, ok
}
