/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package aries

import (
	"context"
	"fmt"
	"time"

	"github.com/hyperledger/aries-framework-go/pkg/client/mediator"
	"github.com/hyperledger/aries-framework-go/pkg/client/messagepickup"

	"github.com/hyperledger/aries-oob-orchestrator/pkg/agent"
)

// connectMediator connects to the configured mediator and registers the agent with it, so that invitations
// created afterwards route through the mediator.
func (a *Agent) connectMediator(ctx context.Context) error {
	strategy, err := agent.ParsePickupStrategy(string(a.cfg.PickupStrategy))
	if err != nil {
		return err
	}

	inv, err := decodeInvitation([]byte(a.cfg.MediatorInvitation))
	if err != nil {
		return fmt.Errorf("mediator invitation: %w", err)
	}

	a.setAutoAccept(inv.ID, true)

	connID, err := a.oob.AcceptInvitation(inv, a.cfg.Label)
	if err != nil {
		return fmt.Errorf("accept mediator invitation: %w", err)
	}

	if _, err = a.WaitUntilConnected(ctx, connID); err != nil {
		return fmt.Errorf("connect to mediator: %w", err)
	}

	client, err := mediator.New(a.ariesCtx, mediator.WithTimeout(a.mediatorTimeout))
	if err != nil {
		return fmt.Errorf("create mediator client: %w", err)
	}

	if err := client.Register(connID); err != nil {
		return fmt.Errorf("register with mediator: %w", err)
	}

	a.routerConnID = connID

	a.logger.Infof("%s registered with mediator over connection %s (pickup strategy %s)", a.cfg.Label, connID, strategy)

	if strategy == agent.PickupExplicit {
		return a.startPickup(connID)
	}

	return nil
}

// startPickup periodically asks the mediator for messages queued for this agent until shutdown.
func (a *Agent) startPickup(connID string) error {
	client, err := messagepickup.New(a.ariesCtx)
	if err != nil {
		return fmt.Errorf("create message pickup client: %w", err)
	}

	go func() {
		ticker := time.NewTicker(a.pickupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-a.done:
				return
			case <-ticker.C:
				n, err := client.BatchPickup(connID, a.pickupBatchSize)
				if err != nil {
					a.logger.Warnf("%s message pickup failed: %s", a.cfg.Label, err)

					continue
				}

				if n > 0 {
					a.logger.Debugf("%s picked up %d messages", a.cfg.Label, n)
				}
			}
		}
	}()

	return nil
}
