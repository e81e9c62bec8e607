/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package agent provides an in-process fake of agent.Handle. Mock agents attached to the same Network
// connect to each other through invitations, and the outcome of every handshake can be scripted.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hyperledger/aries-oob-orchestrator/pkg/agent"
)

const defaultWaitTimeout = 2 * time.Second

// Outcome scripts how one handshake ends.
type Outcome struct {
	// Delay before the handshake reaches its terminal state.
	Delay time.Duration
	// Abandon ends the handshake in the abandoned state on both sides.
	Abandon bool
	// Hang leaves the handshake in progress forever.
	Hang bool
}

// Network links mock agents so that invitations created by one can be received by another.
type Network struct {
	mu          sync.Mutex
	agents      map[string]*MockAgent
	invitations map[string]*invitation
	created     int

	// OutcomeFor chooses the outcome of the handshake started from the seq-th invitation created on the
	// network (0-based, in creation order). Nil means every handshake completes immediately.
	OutcomeFor func(seq int) Outcome
}

type invitation struct {
	inviter    *MockAgent
	seq        int
	autoAccept bool
	consumed   bool
}

type payload struct {
	ID    string `json:"@id"`
	Label string `json:"label"`
}

// NewNetwork returns an empty network.
func NewNetwork() *Network {
	return &Network{
		agents:      make(map[string]*MockAgent),
		invitations: make(map[string]*invitation),
	}
}

// NewAgent creates a mock agent on the network.
func (n *Network) NewAgent(label string) *MockAgent {
	a := &MockAgent{
		label:       label,
		network:     n,
		conns:       make(map[string]*record),
		WaitTimeout: defaultWaitTimeout,
	}

	n.mu.Lock()
	n.agents[label] = a
	n.mu.Unlock()

	return a
}

// Agent returns the agent created with label, or nil.
func (n *Network) Agent(label string) *MockAgent {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.agents[label]
}

// Factory returns an agent factory creating mock agents on the network. configure, if not nil, is
// called on every new agent before it is returned; returning an error fails the creation.
func (n *Network) Factory(
	configure func(a *MockAgent, cfg agent.Config) error) func(context.Context, agent.Config) (agent.Handle, error) {
	return func(_ context.Context, cfg agent.Config) (agent.Handle, error) {
		a := n.NewAgent(cfg.Label)
		a.Config = cfg

		if configure != nil {
			if err := configure(a, cfg); err != nil {
				return nil, err
			}
		}

		return a, nil
	}
}

func (n *Network) register(inviter *MockAgent, id string, autoAccept bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.invitations[id] = &invitation{inviter: inviter, seq: n.created, autoAccept: autoAccept}
	n.created++
}

func (n *Network) consume(id string) (*invitation, Outcome, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	inv, ok := n.invitations[id]
	if !ok {
		return nil, Outcome{}, fmt.Errorf("%w: unknown invitation %s", agent.ErrInvalidInvitation, id)
	}

	if inv.consumed {
		return nil, Outcome{}, fmt.Errorf("%w: invitation %s already consumed", agent.ErrInvalidInvitation, id)
	}

	inv.consumed = true

	var outcome Outcome
	if n.OutcomeFor != nil {
		outcome = n.OutcomeFor(inv.seq)
	}

	return inv, outcome, nil
}

type record struct {
	conn agent.Connection
	done chan struct{}
}

// MockAgent is a scripted agent.Handle. Exported error fields are returned by the matching operation.
type MockAgent struct {
	Config agent.Config

	CreateInvitationErr  error
	ReceiveInvitationErr error
	ListConnectionsErr   error
	SaveTagsErr          error
	DeleteWalletErr      error
	ShutdownErr          error

	// WaitTimeout bounds WaitUntilConnected.
	WaitTimeout time.Duration
	// Jitter adds a random delay of up to Jitter to invitation calls to shuffle completion order.
	Jitter time.Duration

	label   string
	network *Network

	mu            sync.RWMutex
	conns         map[string]*record
	order         []string
	walletDeleted bool
	shutdown      bool
	teardownCalls []string
}

// Label returns the agent label.
func (a *MockAgent) Label() string {
	return a.label
}

// CreateInvitation registers a new invitation on the network.
func (a *MockAgent) CreateInvitation(ctx context.Context, autoAccept bool) (*agent.Invitation, error) {
	if err := a.available(); err != nil {
		return nil, err
	}

	a.jitter(ctx)

	if a.CreateInvitationErr != nil {
		return nil, a.CreateInvitationErr
	}

	id := uuid.New().String()

	raw, err := json.Marshal(&payload{ID: id, Label: a.label})
	if err != nil {
		return nil, err
	}

	a.network.register(a, id, autoAccept)

	return &agent.Invitation{ID: id, Payload: raw, AutoAccept: autoAccept}, nil
}

// ReceiveInvitation creates a connection record on both sides and starts the scripted handshake.
func (a *MockAgent) ReceiveInvitation(ctx context.Context, inv *agent.Invitation,
	autoAccept bool) (*agent.Connection, error) {
	if err := a.available(); err != nil {
		return nil, err
	}

	a.jitter(ctx)

	if a.ReceiveInvitationErr != nil {
		return nil, a.ReceiveInvitationErr
	}

	var p payload

	if err := json.Unmarshal(inv.Payload, &p); err != nil || p.ID == "" {
		return nil, fmt.Errorf("%w: malformed payload", agent.ErrInvalidInvitation)
	}

	pending, outcome, err := a.network.consume(p.ID)
	if err != nil {
		return nil, err
	}

	inviter := pending.inviter

	mine := a.addRecord(p.ID, inviter.label, agent.StateRequested)
	theirs := inviter.addRecord(p.ID, a.label, agent.StateRequested)

	if outcome.Hang || !autoAccept || !pending.autoAccept {
		return a.snapshot(mine), nil
	}

	finish := func() {
		state := agent.StateCompleted
		if outcome.Abandon {
			state = agent.StateAbandoned
		}

		inviter.finish(theirs, state)
		a.finish(mine, state)
	}

	if outcome.Delay > 0 {
		time.AfterFunc(outcome.Delay, finish)
	} else {
		finish()
	}

	return a.snapshot(mine), nil
}

// WaitUntilConnected blocks until the connection is terminal, the context is done or WaitTimeout elapses.
func (a *MockAgent) WaitUntilConnected(ctx context.Context, connectionID string) (*agent.Connection, error) {
	a.mu.RLock()
	r, ok := a.conns[connectionID]
	a.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", agent.ErrConnectionNotFound, connectionID)
	}

	timer := time.NewTimer(a.WaitTimeout)
	defer timer.Stop()

	select {
	case <-r.done:
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %s: %v", agent.ErrTimeout, connectionID, ctx.Err())
	case <-timer.C:
		return nil, fmt.Errorf("%w: %s after %s", agent.ErrTimeout, connectionID, a.WaitTimeout)
	}

	conn := a.snapshot(r)
	if conn.State == agent.StateAbandoned {
		return conn, fmt.Errorf("%w: %s", agent.ErrConnectionAbandoned, connectionID)
	}

	return conn, nil
}

// ListConnections returns the agent's records in creation order.
func (a *MockAgent) ListConnections(_ context.Context) ([]*agent.Connection, error) {
	if a.ListConnectionsErr != nil {
		return nil, a.ListConnectionsErr
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	conns := make([]*agent.Connection, 0, len(a.order))

	for _, id := range a.order {
		c := a.conns[id].conn
		c.Tags = append([]string(nil), c.Tags...)
		conns = append(conns, &c)
	}

	return conns, nil
}

// SaveTags replaces the tags of a connection.
func (a *MockAgent) SaveTags(_ context.Context, connectionID string, tags []string) error {
	if a.SaveTagsErr != nil {
		return a.SaveTagsErr
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	r, ok := a.conns[connectionID]
	if !ok {
		return fmt.Errorf("%w: %s", agent.ErrConnectionNotFound, connectionID)
	}

	r.conn.Tags = append([]string(nil), tags...)
	sort.Strings(r.conn.Tags)

	return nil
}

// DeleteWallet drops every connection record.
func (a *MockAgent) DeleteWallet(_ context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.teardownCalls = append(a.teardownCalls, "delete-wallet")

	if a.DeleteWalletErr != nil {
		return fmt.Errorf("%w: %v", agent.ErrTeardown, a.DeleteWalletErr)
	}

	a.walletDeleted = true
	a.conns = make(map[string]*record)
	a.order = nil

	return nil
}

// Shutdown makes the agent unavailable.
func (a *MockAgent) Shutdown(_ context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.teardownCalls = append(a.teardownCalls, "shutdown")

	if a.ShutdownErr != nil {
		return fmt.Errorf("%w: %v", agent.ErrTeardown, a.ShutdownErr)
	}

	a.shutdown = true

	return nil
}

// WalletDeleted reports whether DeleteWallet succeeded.
func (a *MockAgent) WalletDeleted() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return a.walletDeleted
}

// IsShutdown reports whether Shutdown succeeded.
func (a *MockAgent) IsShutdown() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return a.shutdown
}

// TeardownCalls lists the teardown operations invoked, in order.
func (a *MockAgent) TeardownCalls() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return append([]string(nil), a.teardownCalls...)
}

// Connection returns a copy of one record.
func (a *MockAgent) Connection(id string) (*agent.Connection, bool) {
	a.mu.RLock()
	r, ok := a.conns[id]
	a.mu.RUnlock()

	if !ok {
		return nil, false
	}

	return a.snapshot(r), true
}

func (a *MockAgent) available() error {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.shutdown {
		return fmt.Errorf("%w: %s is shut down", agent.ErrAgentUnavailable, a.label)
	}

	return nil
}

func (a *MockAgent) jitter(ctx context.Context) {
	if a.Jitter <= 0 {
		return
	}

	select {
	case <-time.After(time.Duration(rand.Int63n(int64(a.Jitter)))): // nolint:gosec
	case <-ctx.Done():
	}
}

func (a *MockAgent) addRecord(invitationID, theirLabel, state string) *record {
	r := &record{
		conn: agent.Connection{
			ID:           uuid.New().String(),
			State:        state,
			InvitationID: invitationID,
			TheirLabel:   theirLabel,
		},
		done: make(chan struct{}),
	}

	a.mu.Lock()
	a.conns[r.conn.ID] = r
	a.order = append(a.order, r.conn.ID)
	a.mu.Unlock()

	return r
}

func (a *MockAgent) finish(r *record, state string) {
	a.mu.Lock()
	r.conn.State = state
	a.mu.Unlock()

	close(r.done)
}

func (a *MockAgent) snapshot(r *record) *agent.Connection {
	a.mu.RLock()
	defer a.mu.RUnlock()

	c := r.conn
	c.Tags = append([]string(nil), c.Tags...)

	return &c
}
