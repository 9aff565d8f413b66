package discovery

import (
	"context"

	"golang.org/x/sync/singleflight"

	"github.com/testbed-portal/discovery-finder/pkg/types"
)

type Fetcher interface {
	FetchAll(ctx context.Context) ([]types.Record, error)
}

// Refresher lets only one full fetch run at a time. Callers arriving while
// a fetch is in flight wait for it and all get the value apply made of its
// records. apply runs once per fetch, never once per caller.
//
// The fetch runs on the context given to NewRefresher, a caller's context
// only bounds how long that caller waits.
type Refresher[T any] struct {
	ctx     context.Context
	fetcher Fetcher
	apply   func(ctx context.Context, records []types.Record) T
	group   singleflight.Group

	// OnError is called once for every failed fetch.
	OnError func(err error)
}

func NewRefresher[T any](ctx context.Context, fetcher Fetcher, apply func(ctx context.Context, records []types.Record) T) *Refresher[T] {
	return &Refresher[T]{
		ctx:     ctx,
		fetcher: fetcher,
		apply:   apply,
	}
}

func (r *Refresher[T]) run() (any, error) {
	records, err := r.fetcher.FetchAll(r.ctx)
	if err != nil {
		if r.OnError != nil {
			r.OnError(err)
		}
		return nil, err
	}
	return r.apply(r.ctx, records), nil
}

func (r *Refresher[T]) Refresh(ctx context.Context) (T, error) {
	var zero T
	ch := r.group.DoChan("refresh", r.run)
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}
