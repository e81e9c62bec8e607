/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/hyperledger/aries-oob-orchestrator/pkg/agent"
)

// ReceiveInvitations submits every invitation to invitee concurrently and returns the resulting
// connection records in input order. Resolution is all-or-nothing: the first failure aborts the batch
// and is returned as a *BatchError carrying the offending invitation's index.
func ReceiveInvitations(ctx context.Context, invitee agent.Handle, invitations []*agent.Invitation,
	autoAccept bool, opts ...Option) ([]*agent.Connection, error) {
	o := applyOptions(opts...)
	op := invitee.Label() + ": receive invitation"

	if len(invitations) == 0 {
		return nil, errors.New("no invitations to receive")
	}

	// an invitation is consumed exactly once, so duplicates are rejected before anything is submitted
	seen := make(map[string]int, len(invitations))

	for i, inv := range invitations {
		if inv == nil {
			return nil, &BatchError{Op: op, Index: i, Err: fmt.Errorf("%w: nil invitation", agent.ErrInvalidInvitation)}
		}

		if j, ok := seen[inv.ID]; ok {
			return nil, &BatchError{Op: op, Index: i,
				Err: fmt.Errorf("%w: invitation %s already submitted at index %d", agent.ErrInvalidInvitation, inv.ID, j)}
		}

		seen[inv.ID] = i
	}

	connections := make([]*agent.Connection, len(invitations))

	err := fanOut(ctx, len(invitations), func(ctx context.Context, i int) error {
		conn, err := invitee.ReceiveInvitation(ctx, invitations[i], autoAccept)
		if err != nil {
			return &BatchError{Op: op, Index: i, Err: err}
		}

		connections[i] = conn

		return nil
	})
	if err != nil {
		o.logger.Errorf("invitation resolution failed: %s", err)

		return nil, err
	}

	o.logger.Debugf("%s received %d invitations", invitee.Label(), len(invitations))

	return connections, nil
}
