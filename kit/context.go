// Package kit carries caller metadata through context and exposes
// endpoints as MCP tools with stable error codes.
package kit

import (
	"context"

	"github.com/hazyhaar/noticepanel/idgen"
)

// Transports recorded in Caller.Transport.
const (
	TransportHTTP = "http"
	TransportMCP  = "mcp"
)

// NewTraceID returns ids of the form trc_xxxxxxxxxxxx.
var NewTraceID = idgen.Prefixed("trc_", idgen.NanoID(12))

// Caller is what a request knows about who sent it and how.
type Caller struct {
	UserID    string
	Role      string
	Transport string
	RequestID string
	TraceID   string
}

type callerKey struct{}

// CallerFrom returns the caller stored in ctx. Transport defaults to http.
func CallerFrom(ctx context.Context) Caller {
	c, _ := ctx.Value(callerKey{}).(Caller)
	if c.Transport == "" {
		c.Transport = TransportHTTP
	}
	return c
}

func update(ctx context.Context, fn func(*Caller)) context.Context {
	c, _ := ctx.Value(callerKey{}).(Caller)
	fn(&c)
	return context.WithValue(ctx, callerKey{}, c)
}

func WithUserID(ctx context.Context, id string) context.Context {
	return update(ctx, func(c *Caller) { c.UserID = id })
}

func WithRole(ctx context.Context, role string) context.Context {
	return update(ctx, func(c *Caller) { c.Role = role })
}

func WithTransport(ctx context.Context, t string) context.Context {
	return update(ctx, func(c *Caller) { c.Transport = t })
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return update(ctx, func(c *Caller) { c.RequestID = id })
}

func WithTraceID(ctx context.Context, id string) context.Context {
	return update(ctx, func(c *Caller) { c.TraceID = id })
}

func GetUserID(ctx context.Context) string    { return CallerFrom(ctx).UserID }
func GetRole(ctx context.Context) string      { return CallerFrom(ctx).Role }
func GetTransport(ctx context.Context) string { return CallerFrom(ctx).Transport }
func GetRequestID(ctx context.Context) string { return CallerFrom(ctx).RequestID }
func GetTraceID(ctx context.Context) string   { return CallerFrom(ctx).TraceID }

// LogAttrs returns the non-empty caller fields as slog key/value pairs.
func LogAttrs(ctx context.Context) []any {
	c := CallerFrom(ctx)
	attrs := []any{"transport", c.Transport}
	for _, kv := range [][2]string{
		{"user", c.UserID},
		{"role", c.Role},
		{"trace_id", c.TraceID},
		{"request_id", c.RequestID},
	} {
		if kv[1] != "" {
			attrs = append(attrs, kv[0], kv[1])
		}
	}
	return attrs
}
