package database

import (
	"cmp"
	"slices"

	"github.com/sqldef/modeldef/util"
	"golang.org/x/sync/errgroup"
)

// Result is the outcome of f for one input of ConcurrentMapFunc.
type Result[T any] struct {
	Value T
	Err   error
}

type concurrentOutputWithOrdering struct {
	order  int
	output any
}

// ConcurrentMapFunc runs f for every input and returns the results in input
// order. A failing input does not stop the others.
func ConcurrentMapFunc[Tin any, Tout any](inputs []Tin, concurrency int, f func(Tin) (Tout, error)) []Result[Tout] {
	eg := errgroup.Group{}
	if concurrency == 0 {
		// disable concurrency
		eg.SetLimit(1)
	} else if concurrency > 0 {
		eg.SetLimit(concurrency)
	} else {
		// no limits
	}

	ch := make(chan concurrentOutputWithOrdering, len(inputs))
	for i := range inputs {
		order := i
		in := inputs[i]
		eg.Go(func() error {
			out, err := f(in)
			ch <- concurrentOutputWithOrdering{order, Result[Tout]{Value: out, Err: err}}
			return nil
		})
	}
	_ = eg.Wait()
	close(ch)

	tmp := make([]concurrentOutputWithOrdering, 0, len(inputs))
	for t := range ch {
		tmp = append(tmp, t)
	}

	slices.SortFunc(tmp, func(a, b concurrentOutputWithOrdering) int {
		return cmp.Compare(a.order, b.order)
	})

	return util.TransformSlice(tmp, func(t concurrentOutputWithOrdering) Result[Tout] {
		return t.output.(Result[Tout])
	})
}
