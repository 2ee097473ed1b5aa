// Package panicerr turns panics in background work into errors so a single
// bad event cannot take the server down.
package panicerr

import (
	"context"

	"github.com/sourcegraph/conc/panics"
)

// Do runs fn and returns a recovered panic as an error, or nil.
func Do(fn func()) error {
	var catcher panics.Catcher
	catcher.Try(fn)
	return catcher.Recovered().AsError()
}

// Safe wraps a function that returns an error, catching any panics and returning them as an error.
func Safe(fn func() error) func() error {
	return func() error {
		var err error
		if perr := Do(func() { err = fn() }); perr != nil {
			return perr
		}
		return err
	}
}

// SafeContext wraps a function that takes a context and returns an error.
func SafeContext(fn func(context.Context) error) func(context.Context) error {
	return func(ctx context.Context) error {
		return Safe(func() error { return fn(ctx) })()
	}
}
