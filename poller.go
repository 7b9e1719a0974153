// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package poda

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// PollPeers evaluates fn on every element of inputs in parallel, one
// goroutine per input, joining unconditionally before returning (§4.8, §5).
// A truthy result contributes its Y value to the output; a false result is
// dropped silently. fn's own error return is a goroutine-local signal to
// drop that one result, not a reason to cancel its siblings — unlike a
// typical errgroup.Group consumer, PollPeers never wants one peer's failure
// to abort the others, so fn's error is deliberately swallowed here rather
// than returned to g.Wait().
//
// Output order mirrors input order, not completion order: callers that
// build a deterministic AttestationSet index on top of PollPeers get stable
// results across runs, which the reference protocol's own
// completion-order indexing does not guarantee (see the design notes on the
// AttestationSet ordering guarantee).
func PollPeers[X, Y any](ctx context.Context, inputs []X, fn func(context.Context, X) (bool, Y, error)) []Y {
	type slot struct {
		ok  bool
		val Y
	}
	slots := make([]slot, len(inputs))

	g, gctx := errgroup.WithContext(ctx)
	for i, input := range inputs {
		i, input := i, input
		g.Go(func() error {
			ok, val, err := fn(gctx, input)
			if err != nil || !ok {
				return nil
			}
			slots[i] = slot{ok: true, val: val}
			return nil
		})
	}
	_ = g.Wait() // the goroutines never return a non-nil error; nothing to propagate

	out := make([]Y, 0, len(inputs))
	for _, s := range slots {
		if s.ok {
			out = append(out, s.val)
		}
	}
	return out
}
