/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/hyperledger/aries-oob-orchestrator/pkg/agent"
)

// AgentFactory creates and initializes an agent.
type AgentFactory func(ctx context.Context, cfg agent.Config) (agent.Handle, error)

// Config configures one orchestration run between an inviter and an invitee.
type Config struct {
	Inviter         agent.Config
	Invitee         agent.Config
	InvitationCount int
	AutoAccept      bool
	// Tags are applied to the inviter's connections once connected. Classification is skipped when empty.
	Tags []string
}

// Validate checks the run configuration.
func (c *Config) Validate() error {
	if err := c.Inviter.Validate(); err != nil {
		return fmt.Errorf("inviter: %w", err)
	}

	if err := c.Invitee.Validate(); err != nil {
		return fmt.Errorf("invitee: %w", err)
	}

	if c.Inviter.WalletID() == c.Invitee.WalletID() {
		return fmt.Errorf("inviter and invitee labels map to the same wallet %s", c.Inviter.WalletID())
	}

	if c.InvitationCount < 1 {
		return fmt.Errorf("invitation count must be at least 1, got %d", c.InvitationCount)
	}

	return nil
}

// Coordinator sequences agent creation, the invitation exchange, the connection barrier, classification
// and teardown. It owns the agents it creates and always tears them down.
type Coordinator struct {
	cfg     Config
	factory AgentFactory
	opts    []Option
	*options
}

// New returns a Coordinator for cfg, creating agents with factory.
func New(cfg Config, factory AgentFactory, opts ...Option) (*Coordinator, error) {
	if factory == nil {
		return nil, errors.New("agent factory is mandatory")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid orchestration config: %w", err)
	}

	return &Coordinator{
		cfg:     cfg,
		factory: factory,
		opts:    opts,
		options: applyOptions(opts...),
	}, nil
}

// Run executes one orchestration and reports its outcome once every created agent has been torn down.
func (c *Coordinator) Run(ctx context.Context) *Report {
	r := &Report{RunID: uuid.New().String()}
	r.enter(StateCreated)

	var handles []agent.Handle

	defer func() {
		r.Teardown = c.teardown(handles)
		r.enter(StateTornDown)

		c.logger.Infof("orchestration %s finished: %s", r.RunID, r.Outcome())
	}()

	for _, cfg := range []agent.Config{c.cfg.Inviter, c.cfg.Invitee} {
		h, err := c.factory(ctx, cfg)
		if err != nil {
			r.InitErr = fmt.Errorf("initialize agent %q: %w", cfg.Label, err)

			return r
		}

		c.logger.Debugf("%s initialized", h.Label())

		handles = append(handles, h)
	}

	r.enter(StateAgentsInitialized)

	inviter, invitee := handles[0], handles[1]

	if !c.connect(ctx, r, inviter, invitee) {
		return r
	}

	if !c.await(ctx, r, inviter, invitee) {
		return r
	}

	c.logConnections(inviter.Label(), r.InviterConnections)

	if len(c.cfg.Tags) > 0 {
		r.Classification = Classify(ctx, inviter, r.InviterConnections, c.cfg.Tags, c.opts...)
		r.enter(StateClassified)
	}

	return r
}

func (c *Coordinator) connect(ctx context.Context, r *Report, inviter, invitee agent.Handle) bool {
	r.enter(StateConnecting)

	invitations, err := CreateInvitations(ctx, inviter, c.cfg.InvitationCount, c.cfg.AutoAccept, c.opts...)
	if err != nil {
		r.ConnectErr = err

		return false
	}

	r.Invitations = invitations

	conns, err := ReceiveInvitations(ctx, invitee, invitations, c.cfg.AutoAccept, c.opts...)
	if err != nil {
		r.ConnectErr = err

		return false
	}

	r.InviteeConnections = conns

	return true
}

// await waits for both sides of every invitation in one barrier, so a failure on one side never hides the
// state of the other.
func (c *Coordinator) await(ctx context.Context, r *Report, inviter, invitee agent.Handle) bool {
	r.enter(StateBarrierWait)

	paired, unpaired := c.inviterConnections(ctx, inviter, r.Invitations)

	var inviterIDs []string

	for _, conn := range paired {
		if conn != nil {
			inviterIDs = append(inviterIDs, conn.ID)
		}
	}

	results, err := AwaitConnected(ctx, []Await{
		{Agent: invitee, ConnectionIDs: connectionIDs(r.InviteeConnections)},
		{Agent: inviter, ConnectionIDs: inviterIDs},
	}, c.opts...)

	var failures []*WaitError

	if err != nil {
		failures = asBarrierError(err).Failures
	}

	failures = append(failures, unpaired...)

	if len(failures) > 0 {
		r.NeverConnected = &BarrierError{
			Awaited:  len(r.InviteeConnections) + len(r.Invitations),
			Failures: failures,
		}

		return false
	}

	r.InviteeConnections = results[0]
	r.InviterConnections = results[1]

	return true
}

// inviterConnections pairs the inviter's records with the batch's invitations, preserving invitation order.
// The inviter's records may appear only once the invitee's request arrives, so the listing is polled until
// every invitation is paired or the pair timeout elapses. Invitations left without a record are returned
// as failures; their slot in the pairing is nil.
func (c *Coordinator) inviterConnections(ctx context.Context, inviter agent.Handle,
	invitations []*agent.Invitation) ([]*agent.Connection, []*WaitError) {
	conns := make([]*agent.Connection, len(invitations))

	pairCtx, cancel := context.WithTimeout(ctx, c.pairTimeout)
	defer cancel()

	var listErr error

	// Unpaired invitations are reported below.
	_ = backoff.Retry(func() error {
		all, err := inviter.ListConnections(pairCtx)
		if err != nil {
			listErr = fmt.Errorf("list connections: %w", err)

			return backoff.Permanent(listErr)
		}

		byInvitation := make(map[string]*agent.Connection, len(all))

		for _, conn := range all {
			if _, ok := byInvitation[conn.InvitationID]; !ok {
				byInvitation[conn.InvitationID] = conn
			}
		}

		pending := 0

		for i, inv := range invitations {
			if conn, ok := byInvitation[inv.ID]; ok {
				conns[i] = conn

				continue
			}

			pending++
		}

		if pending > 0 {
			return fmt.Errorf("%d of %d invitations have no record yet", pending, len(invitations))
		}

		return nil
	}, backoff.WithContext(backoff.NewConstantBackOff(c.pollInterval), pairCtx))

	var unpaired []*WaitError

	for i, inv := range invitations {
		if conns[i] != nil {
			continue
		}

		err := listErr
		if err == nil {
			err = agent.ErrConnectionNotFound
		}

		unpaired = append(unpaired, &WaitError{Agent: inviter.Label(), InvitationID: inv.ID, Err: err})
	}

	if len(unpaired) > 0 {
		c.logger.Warnf("%s: %d of %d invitations not paired with a connection", inviter.Label(), len(unpaired),
			len(invitations))
	}

	return conns, unpaired
}

// teardown deletes the wallet and shuts down every handle. Each handle gets its own bounded context, so
// one slow agent cannot use up the time of the next.
func (c *Coordinator) teardown(handles []agent.Handle) []*TeardownError {
	var errs []*TeardownError

	for _, h := range handles {
		errs = append(errs, c.teardownHandle(h)...)
	}

	for _, err := range errs {
		c.logger.Errorf("teardown: %s", err)
	}

	return errs
}

func (c *Coordinator) teardownHandle(h agent.Handle) []*TeardownError {
	ctx, cancel := context.WithTimeout(context.Background(), c.teardownTimeout)
	defer cancel()

	var errs []*TeardownError

	if err := h.DeleteWallet(ctx); err != nil {
		errs = append(errs, &TeardownError{Agent: h.Label(), Op: "delete wallet", Err: err})
	}

	if err := h.Shutdown(ctx); err != nil {
		errs = append(errs, &TeardownError{Agent: h.Label(), Op: "shutdown", Err: err})
	}

	return errs
}

func (c *Coordinator) logConnections(label string, conns []*agent.Connection) {
	b, err := json.MarshalIndent(conns, "", "  ")
	if err != nil {
		c.logger.Warnf("failed to marshal %s connections: %s", label, err)

		return
	}

	c.logger.Debugf("%s Connections: %s", label, b)
}

func connectionIDs(conns []*agent.Connection) []string {
	ids := make([]string, len(conns))
	for i, conn := range conns {
		ids[i] = conn.ID
	}

	return ids
}

func asBarrierError(err error) *BarrierError {
	var berr *BarrierError
	if errors.As(err, &berr) {
		return berr
	}

	return &BarrierError{Failures: []*WaitError{{Err: err}}}
}
