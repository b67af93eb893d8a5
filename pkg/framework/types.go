package framework

import "context"

// Named is an abstraction for things with a name.
type Named interface {
	Name() string
}

// Runnable defines a generic interface for background runners.
type Runnable interface {
	Run(context.Context) error
}

// RunFunc is the func form of Runnable.
type RunFunc func(context.Context) error

// Run implements Runnable.
func (f RunFunc) Run(ctx context.Context) error {
	return f(ctx)
}

// NameOf returns the name of v if it's Named, or its type name.
func NameOf(v interface{}) string {
	if named, ok := v.(Named); ok {
		return named.Name()
	}
	return typeName(v)
}
