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

// Classify merges tags into the tag set the owning agent has stored for every connection, persists the
// union, then re-verifies that the connection is still completed. Tags already on the passed records are
// kept too, so a stale listing never drops tags written since. The records are updated in place. Failures
// are returned per connection, in input order.
func Classify(ctx context.Context, owner agent.Handle, conns []*agent.Connection, tags []string,
	opts ...Option) []*ClassificationError {
	if len(tags) == 0 {
		return nil
	}

	o := applyOptions(opts...)
	errs := make([]*ClassificationError, len(conns))

	var wg sync.WaitGroup

	for i, conn := range conns {
		wg.Add(1)

		go func(i int, conn *agent.Connection) {
			defer wg.Done()

			if err := classify(ctx, owner, conn, tags, opts...); err != nil {
				errs[i] = &ClassificationError{ConnectionID: conn.ID, Err: err}
			}
		}(i, conn)
	}

	wg.Wait()

	var failed []*ClassificationError

	for _, err := range errs {
		if err != nil {
			o.logger.Warnf("%s: %s", owner.Label(), err)

			failed = append(failed, err)
		}
	}

	return failed
}

// tagLocks serializes read-merge-save cycles on the same connection.
var tagLocks = &connectionLocks{locks: make(map[string]*connectionLock)}

func classify(ctx context.Context, owner agent.Handle, conn *agent.Connection, tags []string, opts ...Option) error {
	unlock := tagLocks.lock(owner.Label() + "/" + conn.ID)
	defer unlock()

	stored, err := owner.WaitUntilConnected(ctx, conn.ID)
	if err != nil {
		return fmt.Errorf("read connection: %w", err)
	}

	merged := agent.MergeTags(stored.Tags, conn.Tags, tags)

	if err := owner.SaveTags(ctx, conn.ID, merged); err != nil {
		return fmt.Errorf("save tags: %w", err)
	}

	conn.Tags = merged

	results, err := AwaitConnected(ctx, []Await{{Agent: owner, ConnectionIDs: []string{conn.ID}}}, opts...)
	if err != nil {
		return fmt.Errorf("re-assert connected: %w", err)
	}

	conn.State = results[0][0].State

	return nil
}

type connectionLock struct {
	sync.Mutex
	refs int
}

type connectionLocks struct {
	mu    sync.Mutex
	locks map[string]*connectionLock
}

func (l *connectionLocks) lock(key string) func() {
	l.mu.Lock()

	cl, ok := l.locks[key]
	if !ok {
		cl = &connectionLock{}
		l.locks[key] = cl
	}

	cl.refs++

	l.mu.Unlock()

	cl.Lock()

	return func() {
		cl.Unlock()

		l.mu.Lock()
		defer l.mu.Unlock()

		cl.refs--

		if cl.refs == 0 {
			delete(l.locks, key)
		}
	}
}
