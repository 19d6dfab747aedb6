package domain

import "context"

const (
	AnonymousActor = "anonymous"
	UnknownClient  = "unknown"
)

type actorKey struct{}
type clientKey struct{}

// ContextWithActor attaches the authenticated actor id.
func ContextWithActor(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, actorKey{}, actorID)
}

// ActorFromContext returns the actor id, or AnonymousActor.
func ActorFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(actorKey{}).(string); ok && id != "" {
		return id
	}
	return AnonymousActor
}

// ContextWithClient attaches the client's network identity.
func ContextWithClient(ctx context.Context, client ClientContext) context.Context {
	return context.WithValue(ctx, clientKey{}, client)
}

// ClientFromContext returns the client context with unknown fields filled in.
func ClientFromContext(ctx context.Context) ClientContext {
	c, _ := ctx.Value(clientKey{}).(ClientContext)
	if c.IP == "" {
		c.IP = UnknownClient
	}
	if c.UserAgent == "" {
		c.UserAgent = UnknownClient
	}
	return c
}
