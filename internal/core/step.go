package core

import (
	"context"
	"sync"
)

// Variables provides named values for payload substitution within a run.
type Variables interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}

// MapVariables is a simple map-based Variables implementation.
type MapVariables struct {
	mu   sync.RWMutex
	data map[string]any
}

func NewVariables() *MapVariables {
	return &MapVariables{data: make(map[string]any)}
}

func (v *MapVariables) Get(key string) (any, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	val, ok := v.data[key]
	return val, ok
}

func (v *MapVariables) Set(key string, value any) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.data[key] = value
}

// Context key for passing the connection ID to transports and loggers.
type contextKey string

const connIDContextKey contextKey = "connID"

func ContextWithConnID(ctx context.Context, connID int) context.Context {
	return context.WithValue(ctx, connIDContextKey, connID)
}

func ConnIDFromContext(ctx context.Context) int {
	if id, ok := ctx.Value(connIDContextKey).(int); ok {
		return id
	}
	return 0
}
