/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package orchestrator

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/hyperledger/aries-oob-orchestrator/pkg/agent"
)

// CreateInvitations issues n invitations concurrently from inviter. The result is ordered by submission
// index. The batch fails with the first error; calls still in flight see a cancelled context and their
// results are discarded.
func CreateInvitations(ctx context.Context, inviter agent.Handle, n int, autoAccept bool,
	opts ...Option) ([]*agent.Invitation, error) {
	if n < 1 {
		return nil, fmt.Errorf("invitation count must be at least 1, got %d", n)
	}

	o := applyOptions(opts...)
	invitations := make([]*agent.Invitation, n)

	err := fanOut(ctx, n, func(ctx context.Context, i int) error {
		inv, err := inviter.CreateInvitation(ctx, autoAccept)
		if err != nil {
			return &BatchError{Op: inviter.Label() + ": create invitation", Index: i, Err: err}
		}

		invitations[i] = inv

		return nil
	})
	if err != nil {
		o.logger.Errorf("invitation batch of %d failed: %s", n, err)

		return nil, err
	}

	o.logger.Debugf("%s created %d invitations", inviter.Label(), n)

	return invitations, nil
}

// fanOut runs fn for every index in [0, n) concurrently and returns as soon as one fails, or once all
// have succeeded.
func fanOut(ctx context.Context, n int, fn func(ctx context.Context, i int) error) error {
	ctx, cancel := context.WithCancel(ctx)

	g, gctx := errgroup.WithContext(ctx)
	failed := make(chan error, 1)

	for i := 0; i < n; i++ {
		i := i

		g.Go(func() error {
			err := fn(gctx, i)
			if err != nil {
				select {
				case failed <- err:
				default:
				}
			}

			return err
		})
	}

	done := make(chan error, 1)

	go func() {
		done <- g.Wait()

		cancel()
	}()

	select {
	case err := <-done:
		return err
	case err := <-failed:
		cancel()

		return err
	}
}
