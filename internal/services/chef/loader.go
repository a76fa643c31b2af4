package chef

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// BuildFunc constructs a session.
type BuildFunc func(ctx context.Context) (*Session, error)

// Loader builds the session once, on first use, and hands the same
// instance to every later caller. Concurrent first callers share one
// build. A failed build is not remembered, so the next Get retries.
type Loader struct {
	build   BuildFunc
	group   singleflight.Group
	session atomic.Pointer[Session]
}

func NewLoader(build BuildFunc) *Loader {
	return &Loader{build: build}
}

// Get returns the session, building it if needed.
func (l *Loader) Get(ctx context.Context) (*Session, error) {
	if s := l.session.Load(); s != nil {
		return s, nil
	}

	v, err, _ := l.group.Do("session", func() (any, error) {
		if s := l.session.Load(); s != nil {
			return s, nil
		}
		// One caller going away must not fail the build for the others.
		s, err := l.build(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		l.session.Store(s)
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Session), nil
}

// Loaded reports whether a session has been built.
func (l *Loader) Loaded() bool {
	return l.session.Load() != nil
}
