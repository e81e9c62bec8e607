/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package orchestrator

import (
	"fmt"
	"strings"
)

// BatchError reports the item that aborted an all-or-nothing invitation batch.
type BatchError struct {
	Op    string
	Index int
	Err   error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("%s: invitation %d: %v", e.Op, e.Index, e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}

// WaitError is the failure of a single connection wait.
type WaitError struct {
	Agent        string
	ConnectionID string
	// InvitationID is set when the connection could not be identified from its invitation.
	InvitationID string
	Err          error
}

func (e *WaitError) Error() string {
	if e.ConnectionID == "" {
		return fmt.Sprintf("%s: invitation %s: %v", e.Agent, e.InvitationID, e.Err)
	}

	return fmt.Sprintf("%s: connection %s: %v", e.Agent, e.ConnectionID, e.Err)
}

func (e *WaitError) Unwrap() error {
	return e.Err
}

// BarrierError enumerates every connection that failed to complete.
type BarrierError struct {
	Awaited  int
	Failures []*WaitError
}

func (e *BarrierError) Error() string {
	msgs := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		msgs[i] = f.Error()
	}

	return fmt.Sprintf("%d of %d connections did not complete: [%s]",
		len(e.Failures), e.Awaited, strings.Join(msgs, "; "))
}

// Errors returns the individual wait failures.
func (e *BarrierError) Errors() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f
	}

	return errs
}

// Unwrap allows errors.Is and errors.As to match any individual failure cause.
func (e *BarrierError) Unwrap() []error {
	return e.Errors()
}

// ConnectionIDs returns the ids of the failed connections, in failure order.
func (e *BarrierError) ConnectionIDs() []string {
	ids := make([]string, 0, len(e.Failures))

	for _, f := range e.Failures {
		if f.ConnectionID != "" {
			ids = append(ids, f.ConnectionID)
		}
	}

	return ids
}

// ClassificationError is the failure to tag or re-verify one connection.
type ClassificationError struct {
	ConnectionID string
	Err          error
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("classify connection %s: %v", e.ConnectionID, e.Err)
}

func (e *ClassificationError) Unwrap() error {
	return e.Err
}

// TeardownError is a failed teardown step of one agent.
type TeardownError struct {
	Agent string
	Op    string
	Err   error
}

func (e *TeardownError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Agent, e.Op, e.Err)
}

func (e *TeardownError) Unwrap() error {
	return e.Err
}
