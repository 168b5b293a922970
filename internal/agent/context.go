package agent

import "context"

type idKey struct{}

// WithID returns a context carrying the executing agent's identifier.
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, idKey{}, id)
}

// IDFromContext returns the identifier set by WithID, or "" if none.
func IDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(idKey{}).(string)
	return id
}
