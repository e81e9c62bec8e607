/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package aries implements agent.Handle on top of an aries framework instance: out-of-band invitations,
// DID exchange connections, an optional mediator and a wallet that is deleted on teardown.
package aries

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"sync"

	"github.com/cenkalti/backoff/v4"

	"github.com/hyperledger/aries-framework-go/pkg/client/didexchange"
	"github.com/hyperledger/aries-framework-go/pkg/client/outofband"
	"github.com/hyperledger/aries-framework-go/pkg/didcomm/common/service"
	"github.com/hyperledger/aries-framework-go/pkg/didcomm/protocol/decorator"
	arieshttp "github.com/hyperledger/aries-framework-go/pkg/didcomm/transport/http"
	"github.com/hyperledger/aries-framework-go/pkg/didcomm/transport/ws"
	framework "github.com/hyperledger/aries-framework-go/pkg/framework/aries"
	"github.com/hyperledger/aries-framework-go/pkg/framework/aries/defaults"
	ariescontext "github.com/hyperledger/aries-framework-go/pkg/framework/context"

	"github.com/hyperledger/aries-oob-orchestrator/pkg/agent"
)

const (
	httpScheme = "http"
	wsScheme   = "ws"
)

// oobClient is the part of the out-of-band client the agent uses.
type oobClient interface {
	CreateInvitation(services []interface{}, opts ...outofband.MessageOption) (*outofband.Invitation, error)
	AcceptInvitation(i *outofband.Invitation, myLabel string, opts ...outofband.MessageOption) (string, error)
}

// Agent is an aries framework agent exposed through agent.Handle.
type Agent struct {
	cfg agent.Config
	*options

	framework *framework.Aries
	ariesCtx  *ariescontext.Provider
	oob       oobClient
	didex     *didexchange.Client
	wallet    *wallet
	tags      *tagStore
	actions   chan service.DIDCommAction
	done      chan struct{}

	routerConnID string

	policyLock sync.RWMutex
	autoAccept map[string]bool

	lifecycleLock sync.Mutex
	shutdown      bool
}

// New starts an agent for cfg. Any failure to bring the agent up is reported as agent.ErrAgentUnavailable.
func New(ctx context.Context, cfg agent.Config, opts ...Option) (*Agent, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", agent.ErrAgentUnavailable, err)
	}

	a := &Agent{
		cfg:        cfg,
		options:    applyOptions(opts...),
		autoAccept: make(map[string]bool),
		actions:    make(chan service.DIDCommAction),
		done:       make(chan struct{}),
	}

	if err := a.start(ctx); err != nil {
		a.abort()

		return nil, fmt.Errorf("%w: %s: %v", agent.ErrAgentUnavailable, cfg.Label, err)
	}

	a.logger.Infof("agent %s started with wallet %s", cfg.Label, cfg.WalletID())

	return a, nil
}

func (a *Agent) start(ctx context.Context) error {
	w, err := openWallet(a.cfg.WalletID(), a.options)
	if err != nil {
		return err
	}

	a.wallet = w

	opts, err := a.frameworkOptions()
	if err != nil {
		return err
	}

	a.framework, err = framework.New(opts...)
	if err != nil {
		return fmt.Errorf("failed to create framework: %w", err)
	}

	a.ariesCtx, err = a.framework.Context()
	if err != nil {
		return fmt.Errorf("failed to create framework context: %w", err)
	}

	a.oob, err = outofband.New(a.ariesCtx)
	if err != nil {
		return fmt.Errorf("failed to create out-of-band client: %w", err)
	}

	a.didex, err = didexchange.New(a.ariesCtx)
	if err != nil {
		return fmt.Errorf("failed to create didexchange client: %w", err)
	}

	if err = a.didex.RegisterActionEvent(a.actions); err != nil {
		return fmt.Errorf("failed to register for didexchange actions: %w", err)
	}

	go a.handleActions()

	a.tags, err = openTagStore(w.provider, a.logger)
	if err != nil {
		return err
	}

	if a.cfg.MediatorInvitation != "" {
		return a.connectMediator(ctx)
	}

	return nil
}

func (a *Agent) frameworkOptions() ([]framework.Option, error) {
	opts := []framework.Option{framework.WithStoreProvider(a.wallet.provider)}

	out, err := arieshttp.NewOutbound(arieshttp.WithOutboundHTTPClient(&http.Client{}))
	if err != nil {
		return nil, fmt.Errorf("failed to create http outbound: %w", err)
	}

	opts = append(opts, framework.WithOutboundTransports(ws.NewOutbound(), out))

	if a.cfg.Endpoint != "" {
		u, err := url.Parse(a.cfg.Endpoint)
		if err != nil {
			return nil, fmt.Errorf("invalid endpoint %s: %w", a.cfg.Endpoint, err)
		}

		switch u.Scheme {
		case httpScheme:
			opts = append(opts, defaults.WithInboundHTTPAddr(u.Host, a.cfg.Endpoint, "", ""))
		case wsScheme:
			inbound, err := ws.NewInbound(u.Host, a.cfg.Endpoint, "", "")
			if err != nil {
				return nil, fmt.Errorf("failed to create websocket inbound: %w", err)
			}

			opts = append(opts, framework.WithInboundTransport(inbound))
		default:
			return nil, fmt.Errorf("endpoint scheme [%s] not supported (only http/ws)", u.Scheme)
		}
	}

	if a.cfg.MediatorInvitation != "" {
		strategy, err := agent.ParsePickupStrategy(string(a.cfg.PickupStrategy))
		if err != nil {
			return nil, err
		}

		if strategy == agent.PickupImplicit {
			opts = append(opts, framework.WithTransportReturnRoute(decorator.TransportReturnRouteAll))
		}
	}

	return opts, nil
}

// abort releases whatever a failed start acquired.
func (a *Agent) abort() {
	close(a.done)

	if a.didex != nil {
		if err := a.didex.UnregisterActionEvent(a.actions); err != nil {
			a.logger.Warnf("unregister didexchange actions: %s", err)
		}
	}

	if a.framework != nil {
		if err := a.framework.Close(); err != nil {
			a.logger.Warnf("close framework: %s", err)
		}
	}

	if a.wallet != nil {
		if err := a.wallet.delete(); err != nil {
			a.logger.Warnf("delete wallet: %s", err)
		}
	}
}

// Label returns the agent label.
func (a *Agent) Label() string {
	return a.cfg.Label
}

// CreateInvitation creates an out-of-band invitation and remembers its acceptance policy.
func (a *Agent) CreateInvitation(ctx context.Context, autoAccept bool) (*agent.Invitation, error) {
	if err := a.available(ctx); err != nil {
		return nil, err
	}

	opts := []outofband.MessageOption{outofband.WithLabel(a.cfg.Label)}
	if a.routerConnID != "" {
		opts = append(opts, outofband.WithRouterConnections(a.routerConnID))
	}

	inv, err := a.oob.CreateInvitation(nil, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: create invitation: %v", agent.ErrAgentUnavailable, a.cfg.Label, err)
	}

	a.setAutoAccept(inv.ID, autoAccept)

	payload, err := json.Marshal(inv)
	if err != nil {
		return nil, fmt.Errorf("marshal invitation: %w", err)
	}

	return &agent.Invitation{ID: inv.ID, Payload: payload, AutoAccept: autoAccept}, nil
}

// ReceiveInvitation accepts an invitation and returns the invitee's connection record.
func (a *Agent) ReceiveInvitation(ctx context.Context, inv *agent.Invitation,
	autoAccept bool) (*agent.Connection, error) {
	if err := a.available(ctx); err != nil {
		return nil, err
	}

	oobInv, err := decodeInvitation(inv.Payload)
	if err != nil {
		return nil, err
	}

	a.setAutoAccept(oobInv.ID, autoAccept)

	var opts []outofband.MessageOption
	if a.routerConnID != "" {
		opts = append(opts, outofband.WithRouterConnections(a.routerConnID))
	}

	// The payload was validated when decoded, so a refusal here comes from the agent itself.
	connID, err := a.oob.AcceptInvitation(oobInv, a.cfg.Label, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: accept invitation %s: %v", agent.ErrAgentUnavailable, a.cfg.Label,
			oobInv.ID, err)
	}

	return a.connection(connID)
}

// WaitUntilConnected polls the connection record until it is completed or abandoned. The wait ends at the
// context deadline or after the connect timeout, whichever comes first.
func (a *Agent) WaitUntilConnected(ctx context.Context, connectionID string) (*agent.Connection, error) {
	ctx, cancel := context.WithTimeout(ctx, a.connectTimeout)
	defer cancel()

	var conn *agent.Connection

	err := backoff.Retry(func() error {
		c, err := a.connection(connectionID)
		if err != nil {
			return backoff.Permanent(err)
		}

		conn = c

		switch c.State {
		case agent.StateCompleted:
			return nil
		case agent.StateAbandoned:
			return backoff.Permanent(fmt.Errorf("%w: %s", agent.ErrConnectionAbandoned, connectionID))
		default:
			return fmt.Errorf("connection %s is %s", connectionID, c.State)
		}
	}, backoff.WithContext(backoff.NewConstantBackOff(a.pollInterval), ctx))

	switch {
	case err == nil:
		return conn, nil
	case errors.Is(err, agent.ErrConnectionAbandoned):
		return conn, err
	case ctx.Err() != nil:
		state := "unknown"
		if conn != nil {
			state = conn.State
		}

		return conn, fmt.Errorf("%w: connection %s still %s: %v", agent.ErrTimeout, connectionID, state, ctx.Err())
	default:
		return nil, err
	}
}

// ListConnections returns every connection record of the agent, ordered by id.
func (a *Agent) ListConnections(ctx context.Context) ([]*agent.Connection, error) {
	if err := a.available(ctx); err != nil {
		return nil, err
	}

	records, err := a.didex.QueryConnections(&didexchange.QueryConnectionsParams{})
	if err != nil {
		return nil, fmt.Errorf("query connections: %w", err)
	}

	conns := make([]*agent.Connection, 0, len(records))

	for _, record := range records {
		conn, err := a.toConnection(record)
		if err != nil {
			return nil, err
		}

		conns = append(conns, conn)
	}

	sort.Slice(conns, func(i, j int) bool { return conns[i].ID < conns[j].ID })

	return conns, nil
}

// SaveTags replaces the tags of an existing connection.
func (a *Agent) SaveTags(ctx context.Context, connectionID string, tags []string) error {
	if err := a.available(ctx); err != nil {
		return err
	}

	if _, err := a.connection(connectionID); err != nil {
		return err
	}

	return a.tags.save(connectionID, tags)
}

// DeleteWallet removes every tag record and the wallet itself.
func (a *Agent) DeleteWallet(_ context.Context) error {
	a.lifecycleLock.Lock()
	defer a.lifecycleLock.Unlock()

	if a.wallet.deleted {
		return nil
	}

	if err := a.tags.clear(); err != nil {
		return fmt.Errorf("%w: %s: %v", agent.ErrTeardown, a.cfg.Label, err)
	}

	if err := a.wallet.delete(); err != nil {
		return fmt.Errorf("%w: %s: %v", agent.ErrTeardown, a.cfg.Label, err)
	}

	a.logger.Debugf("deleted wallet %s", a.wallet.id)

	return nil
}

// Shutdown stops the pickup loop, the action handler and the framework.
func (a *Agent) Shutdown(_ context.Context) error {
	a.lifecycleLock.Lock()
	defer a.lifecycleLock.Unlock()

	if a.shutdown {
		return nil
	}

	a.shutdown = true

	close(a.done)

	if err := a.didex.UnregisterActionEvent(a.actions); err != nil {
		a.logger.Warnf("%s: unregister didexchange actions: %s", a.cfg.Label, err)
	}

	if err := a.framework.Close(); err != nil {
		return fmt.Errorf("%w: %s: %v", agent.ErrTeardown, a.cfg.Label, err)
	}

	a.logger.Infof("agent %s shut down", a.cfg.Label)

	return nil
}

func (a *Agent) available(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	a.lifecycleLock.Lock()
	defer a.lifecycleLock.Unlock()

	if a.shutdown {
		return fmt.Errorf("%w: %s is shut down", agent.ErrAgentUnavailable, a.cfg.Label)
	}

	return nil
}

func (a *Agent) connection(connectionID string) (*agent.Connection, error) {
	record, err := a.didex.GetConnection(connectionID)
	if errors.Is(err, didexchange.ErrConnectionNotFound) {
		return nil, fmt.Errorf("%w: %s", agent.ErrConnectionNotFound, connectionID)
	}

	if err != nil {
		return nil, fmt.Errorf("get connection %s: %w", connectionID, err)
	}

	return a.toConnection(record)
}

func (a *Agent) toConnection(record *didexchange.Connection) (*agent.Connection, error) {
	tags, err := a.tags.get(record.ConnectionID)
	if err != nil {
		return nil, err
	}

	invitationID := record.ParentThreadID
	if invitationID == "" {
		invitationID = record.InvitationID
	}

	return &agent.Connection{
		ID:           record.ConnectionID,
		State:        record.State,
		InvitationID: invitationID,
		TheirLabel:   record.TheirLabel,
		Tags:         tags,
	}, nil
}

func (a *Agent) setAutoAccept(invitationID string, autoAccept bool) {
	a.policyLock.Lock()
	defer a.policyLock.Unlock()

	a.autoAccept[invitationID] = autoAccept
}

// shouldAccept resolves the acceptance policy of a DID exchange message from the invitation it belongs to.
func (a *Agent) shouldAccept(msg service.DIDCommMsg) bool {
	a.policyLock.RLock()
	defer a.policyLock.RUnlock()

	for _, id := range []string{msg.ParentThreadID(), msg.ID()} {
		if accept, ok := a.autoAccept[id]; ok {
			return accept
		}
	}

	return a.cfg.AutoAccept
}

func (a *Agent) handleActions() {
	for {
		select {
		case <-a.done:
			return
		case e := <-a.actions:
			if !a.shouldAccept(e.Message) {
				a.logger.Infof("%s: %s awaits manual acceptance", a.cfg.Label, e.Message.Type())

				continue
			}

			a.logger.Debugf("%s: accepting %s", a.cfg.Label, e.Message.Type())

			e.Continue(&service.Empty{})
		}
	}
}
