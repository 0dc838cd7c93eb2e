package querycache

import (
	"context"
	"fmt"
)

// Fetch observes key through c with a statically typed fetch function.
// Every registered query declares its result type here, so consumers never
// type-assert cached values themselves.
//
// A disabled observation returns ErrDisabled; a fetch failure with no
// previously cached value returns the fetch error; stale-while-error
// observations return the retained value and no error.
func Fetch[T any](ctx context.Context, c *Cache, key Key, fetch func(ctx context.Context) (T, error), opts Options) (T, error) {
	var zero T

	res := c.Get(ctx, key, func(ctx context.Context) (interface{}, error) {
		return fetch(ctx)
	}, opts)

	if res.Status == StatusIdle {
		return zero, ErrDisabled
	}
	if res.Data == nil {
		if res.Err != nil {
			return zero, res.Err
		}
		return zero, nil
	}

	v, ok := res.Data.(T)
	if !ok {
		return zero, fmt.Errorf("querycache: entry %s holds %T, not the requested type", key.String(), res.Data)
	}
	return v, nil
}
