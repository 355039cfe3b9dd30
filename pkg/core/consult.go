package core

import "context"

// Consulter forwards a cleaned argument payload to a Legifrance consult
// endpoint ("code", "juri", "loda", ...).
//
// Implementations never return an error: failures are reported as a
// map[string]any{"error": message} value so that every outcome can be
// rendered as text by the tool layer.
type Consulter interface {
	MakeAPIRequest(ctx context.Context, endpoint string, args map[string]any) any
}

// ConsulterFunc adapts an ordinary function to the Consulter interface.
type ConsulterFunc func(ctx context.Context, endpoint string, args map[string]any) any

// MakeAPIRequest calls f(ctx, endpoint, args).
func (f ConsulterFunc) MakeAPIRequest(ctx context.Context, endpoint string, args map[string]any) any {
	return f(ctx, endpoint, args)
}
