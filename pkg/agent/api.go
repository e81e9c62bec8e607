/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package agent defines the capabilities an orchestrator needs from an autonomous agent: issuing and
// accepting out-of-band invitations, observing connection state, tagging connections and tearing the
// agent down.
package agent

import (
	"context"
	"sort"
)

// Connection states as reported by the DID exchange protocol.
const (
	StateInvited   = "invited"
	StateRequested = "requested"
	StateResponded = "responded"
	StateCompleted = "completed"
	StateAbandoned = "abandoned"
)

// Handle is one autonomous endpoint. Implementations must be safe for concurrent use: the orchestrator
// issues many outstanding calls against the same handle.
type Handle interface {
	// Label is the human-readable name of the agent.
	Label() string

	// CreateInvitation creates an out-of-band invitation. autoAccept controls whether connection
	// requests made against this invitation progress to completed without manual approval.
	CreateInvitation(ctx context.Context, autoAccept bool) (*Invitation, error)

	// ReceiveInvitation accepts an invitation created by another agent and returns the resulting
	// connection record.
	ReceiveInvitation(ctx context.Context, inv *Invitation, autoAccept bool) (*Connection, error)

	// WaitUntilConnected blocks until the connection is completed, abandoned, or the wait times out.
	WaitUntilConnected(ctx context.Context, connectionID string) (*Connection, error)

	// ListConnections returns a snapshot of every connection record owned by the agent.
	ListConnections(ctx context.Context) ([]*Connection, error)

	// SaveTags replaces the persisted tag set of a connection.
	SaveTags(ctx context.Context, connectionID string, tags []string) error

	// DeleteWallet removes the agent's wallet and everything stored in it. Idempotent.
	DeleteWallet(ctx context.Context) error

	// Shutdown stops the agent runtime. Idempotent.
	Shutdown(ctx context.Context) error
}

// Invitation is an opaque, serializable offer to connect.
type Invitation struct {
	ID         string `json:"id"`
	Payload    []byte `json:"payload"`
	AutoAccept bool   `json:"autoAccept"`
}

// Connection is one side's view of a peer relationship. IDs are local to the owning agent.
type Connection struct {
	ID           string   `json:"id"`
	State        string   `json:"state"`
	InvitationID string   `json:"invitationID,omitempty"`
	TheirLabel   string   `json:"theirLabel,omitempty"`
	Tags         []string `json:"tags,omitempty"`
}

// IsCompleted reports whether the connection reached its terminal connected state.
func (c *Connection) IsCompleted() bool {
	return c.State == StateCompleted
}

// HasTag reports whether tag is in the connection's tag set.
func (c *Connection) HasTag(tag string) bool {
	for _, t := range c.Tags {
		if t == tag {
			return true
		}
	}

	return false
}

// MergeTags returns the sorted set union of the given tag lists.
func MergeTags(sets ...[]string) []string {
	seen := make(map[string]struct{})

	var merged []string

	for _, set := range sets {
		for _, t := range set {
			if _, ok := seen[t]; ok {
				continue
			}

			seen[t] = struct{}{}

			merged = append(merged, t)
		}
	}

	sort.Strings(merged)

	return merged
}

// FilterByTag returns the connections carrying tag, preserving order.
func FilterByTag(conns []*Connection, tag string) []*Connection {
	var filtered []*Connection

	for _, c := range conns {
		if c.HasTag(tag) {
			filtered = append(filtered, c)
		}
	}

	return filtered
}
