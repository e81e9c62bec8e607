/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package agent

import "errors"

var (
	// ErrAgentUnavailable is returned when the agent runtime or its transports are not initialized.
	ErrAgentUnavailable = errors.New("agent unavailable")
	// ErrInvalidInvitation is returned when an invitation payload cannot be parsed.
	ErrInvalidInvitation = errors.New("invalid invitation")
	// ErrConnectionAbandoned is returned when a connection transitions to the abandoned state.
	ErrConnectionAbandoned = errors.New("connection abandoned")
	// ErrTimeout is returned when a connection does not reach a terminal state in time.
	ErrTimeout = errors.New("timed out waiting for connection")
	// ErrTeardown is returned when deleting a wallet or shutting an agent down fails.
	ErrTeardown = errors.New("teardown failed")
	// ErrConnectionNotFound is returned when no connection record exists for an id.
	ErrConnectionNotFound = errors.New("connection not found")
)
