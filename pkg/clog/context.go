// Package clog carries request-scoped log attributes. SlogChiMiddleware opens
// a scope per request, handlers and middlewares add to it, and
// AttributesHandler appends the scope to every record logged with that
// request's context.
package clog

import (
	"context"
	"maps"
	"sync"
)

// Keys of the attributes this package and its callers set on a request scope.
const (
	MethodKey = "method"
	PathKey   = "path"
	RouteKey  = "route"
	StatusKey = "status"
	UserKey   = "user"
	RoleKey   = "role"

	// The request error is logged apart from an "error" attr passed to slog
	// directly, so both survive on one line.
	ErrorKey = "request.error"
	StackKey = "request.stack"
)

type scope struct {
	mu    sync.Mutex
	attrs map[string]any
}

type scopeKey struct{}

// ContextWithSlog opens an empty attribute scope on ctx.
func ContextWithSlog(ctx context.Context) context.Context {
	return context.WithValue(ctx, scopeKey{}, &scope{attrs: map[string]any{}})
}

func scopeOf(ctx context.Context) *scope {
	s, _ := ctx.Value(scopeKey{}).(*scope)
	return s
}

// AddAttributes merges attrs into the scope of ctx. Nested maps are merged
// key by key. Without a scope it does nothing.
func AddAttributes(ctx context.Context, attrs map[string]any) {
	s := scopeOf(ctx)
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	merge(s.attrs, attrs)
}

// GetAttributes returns a copy of the scope of ctx, or nil without one.
func GetAttributes(ctx context.Context) map[string]any {
	s := scopeOf(ctx)
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.attrs)
}

func AddError(ctx context.Context, err error) {
	AddAttributes(ctx, map[string]any{ErrorKey: err})
}

// GetError returns the error recorded for the request, if any.
func GetError(ctx context.Context) error {
	s := scopeOf(ctx)
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	err, _ := s.attrs[ErrorKey].(error)
	return err
}

func AddStack(ctx context.Context, stack string) {
	AddAttributes(ctx, map[string]any{StackKey: stack})
}

func merge(dst, src map[string]any) {
	for k, v := range src {
		sub, ok := v.(map[string]any)
		if !ok {
			dst[k] = v
			continue
		}
		if existing, ok := dst[k].(map[string]any); ok {
			merge(existing, sub)
			continue
		}
		dst[k] = maps.Clone(sub)
	}
}
