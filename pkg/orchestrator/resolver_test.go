/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"

	"github.com/hyperledger/aries-oob-orchestrator/pkg/agent"
	mocks "github.com/hyperledger/aries-oob-orchestrator/pkg/internal/gomocks/agent"
	mockagent "github.com/hyperledger/aries-oob-orchestrator/pkg/mock/agent"
)

func TestReceiveInvitations(t *testing.T) {
	t.Run("preserves input order", func(t *testing.T) {
		network := mockagent.NewNetwork()
		inviter := network.NewAgent("inviter")
		invitee := network.NewAgent("invitee")
		invitee.Jitter = 10 * time.Millisecond

		invitations, err := CreateInvitations(context.Background(), inviter, 10, true)
		require.NoError(t, err)

		conns, err := ReceiveInvitations(context.Background(), invitee, invitations, true)
		require.NoError(t, err)
		require.Len(t, conns, len(invitations))

		for i, conn := range conns {
			require.Equal(t, invitations[i].ID, conn.InvitationID)
			require.Equal(t, "inviter", conn.TheirLabel)
		}
	})

	t.Run("no invitations", func(t *testing.T) {
		invitee := mockagent.NewNetwork().NewAgent("invitee")

		conns, err := ReceiveInvitations(context.Background(), invitee, nil, true)
		require.EqualError(t, err, "no invitations to receive")
		require.Nil(t, conns)
	})

	t.Run("rejects duplicates before submitting", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		invitee := mocks.NewMockHandle(ctrl)
		invitee.EXPECT().Label().Return("invitee").AnyTimes()

		invitations := []*agent.Invitation{{ID: "a"}, {ID: "b"}, {ID: "a"}}

		conns, err := ReceiveInvitations(context.Background(), invitee, invitations, true)
		require.Nil(t, conns)
		require.True(t, errors.Is(err, agent.ErrInvalidInvitation))

		var berr *BatchError
		require.True(t, errors.As(err, &berr))
		require.Equal(t, 2, berr.Index)
		require.Contains(t, err.Error(), "already submitted at index 0")
	})

	t.Run("rejects nil invitation", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		invitee := mocks.NewMockHandle(ctrl)
		invitee.EXPECT().Label().Return("invitee").AnyTimes()

		_, err := ReceiveInvitations(context.Background(), invitee, []*agent.Invitation{{ID: "a"}, nil}, true)

		var berr *BatchError
		require.True(t, errors.As(err, &berr))
		require.Equal(t, 1, berr.Index)
		require.True(t, errors.Is(err, agent.ErrInvalidInvitation))
	})

	t.Run("malformed payload", func(t *testing.T) {
		invitee := mockagent.NewNetwork().NewAgent("invitee")

		_, err := ReceiveInvitations(context.Background(), invitee,
			[]*agent.Invitation{{ID: "bad", Payload: []byte("not json")}}, true)
		require.True(t, errors.Is(err, agent.ErrInvalidInvitation))
	})

	t.Run("failure carries the offending index", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		invitations := make([]*agent.Invitation, 5)
		for i := range invitations {
			invitations[i] = &agent.Invitation{ID: fmt.Sprintf("inv-%d", i)}
		}

		invitee := mocks.NewMockHandle(ctrl)
		invitee.EXPECT().Label().Return("invitee").AnyTimes()
		invitee.EXPECT().ReceiveInvitation(gomock.Any(), gomock.Any(), true).DoAndReturn(
			func(ctx context.Context, inv *agent.Invitation, _ bool) (*agent.Connection, error) {
				if inv.ID == "inv-3" {
					return nil, errors.New("peer unreachable")
				}

				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(5 * time.Second):
					return &agent.Connection{ID: "conn-" + inv.ID}, nil
				}
			}).AnyTimes()

		start := time.Now()

		conns, err := ReceiveInvitations(context.Background(), invitee, invitations, true)
		require.Nil(t, conns)
		require.Less(t, time.Since(start), 2*time.Second)

		var berr *BatchError
		require.True(t, errors.As(err, &berr))
		require.Equal(t, 3, berr.Index)
		require.Equal(t, "invitee: receive invitation", berr.Op)
		require.EqualError(t, err, "invitee: receive invitation: invitation 3: peer unreachable")
	})

	t.Run("invitation consumed only once", func(t *testing.T) {
		network := mockagent.NewNetwork()
		inviter := network.NewAgent("inviter")
		invitee := network.NewAgent("invitee")

		invitations, err := CreateInvitations(context.Background(), inviter, 1, true)
		require.NoError(t, err)

		_, err = ReceiveInvitations(context.Background(), invitee, invitations, true)
		require.NoError(t, err)

		_, err = ReceiveInvitations(context.Background(), invitee, invitations, true)
		require.True(t, errors.Is(err, agent.ErrInvalidInvitation))
	})
}
