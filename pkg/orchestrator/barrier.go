/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package orchestrator

import (
	"context"
	"fmt"
	"sync"

	"github.com/hyperledger/aries-oob-orchestrator/pkg/agent"
)

// Await names the connections of one agent to wait for.
type Await struct {
	Agent         agent.Handle
	ConnectionIDs []string
}

// AwaitConnected waits, concurrently for every id, until each connection is completed. The result is
// indexed like the input: result[i][j] is the record of awaits[i].ConnectionIDs[j]. When any wait fails
// a *BarrierError listing every failure is returned alongside the records of the connections that did
// complete; failed slots are nil.
func AwaitConnected(ctx context.Context, awaits []Await, opts ...Option) ([][]*agent.Connection, error) {
	o := applyOptions(opts...)

	results := make([][]*agent.Connection, len(awaits))
	failures := make([][]*WaitError, len(awaits))
	total := 0

	var wg sync.WaitGroup

	for i := range awaits {
		a := awaits[i]
		results[i] = make([]*agent.Connection, len(a.ConnectionIDs))
		failures[i] = make([]*WaitError, len(a.ConnectionIDs))
		total += len(a.ConnectionIDs)

		for j, id := range a.ConnectionIDs {
			wg.Add(1)

			go func(i, j int, id string) {
				defer wg.Done()

				conn, err := a.Agent.WaitUntilConnected(ctx, id)
				if err == nil && !conn.IsCompleted() {
					err = fmt.Errorf("connection returned in state %s", conn.State)
				}

				if err != nil {
					failures[i][j] = &WaitError{Agent: a.Agent.Label(), ConnectionID: id, Err: err}

					return
				}

				results[i][j] = conn
			}(i, j, id)
		}
	}

	wg.Wait()

	berr := &BarrierError{Awaited: total}

	for i := range failures {
		for _, f := range failures[i] {
			if f != nil {
				berr.Failures = append(berr.Failures, f)
			}
		}
	}

	if len(berr.Failures) > 0 {
		o.logger.Warnf("%s", berr)

		return results, berr
	}

	o.logger.Debugf("all %d awaited connections completed", total)

	return results, nil
}
