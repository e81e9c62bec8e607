/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package orchestrator

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hyperledger/aries-oob-orchestrator/pkg/agent"
)

// State is a phase of an orchestration run.
type State string

// Run states, in order.
const (
	StateCreated           State = "created"
	StateAgentsInitialized State = "agents-initialized"
	StateConnecting        State = "connecting"
	StateBarrierWait       State = "barrier-wait"
	StateClassified        State = "classified"
	StateTornDown          State = "torn-down"
)

// Outcomes reported by Report.Outcome.
const (
	OutcomeConnected            = "connected"
	OutcomeInitFailed           = "agent initialization failed"
	OutcomeConnectFailed        = "invitation exchange failed"
	OutcomeNeverConnected       = "never connected"
	OutcomeClassificationFailed = "connected but classification failed"
	OutcomeTeardownIncomplete   = "teardown incomplete"
)

// Report is the terminal outcome of a run. The failure axes are independent: a run can have both
// unconnected peers and an incomplete teardown.
type Report struct {
	RunID              string
	States             []State
	Invitations        []*agent.Invitation
	InviterConnections []*agent.Connection
	InviteeConnections []*agent.Connection

	InitErr        error
	ConnectErr     error
	NeverConnected *BarrierError
	Classification []*ClassificationError
	Teardown       []*TeardownError
}

func (r *Report) enter(s State) {
	r.States = append(r.States, s)
}

// State is the last state the run entered.
func (r *Report) State() State {
	if len(r.States) == 0 {
		return ""
	}

	return r.States[len(r.States)-1]
}

// Succeeded reports whether the run connected, classified and tore down without any failure.
func (r *Report) Succeeded() bool {
	return r.Err() == nil
}

// Outcome is a short description of the run's result.
func (r *Report) Outcome() string {
	var outcome string

	switch {
	case r.InitErr != nil:
		outcome = OutcomeInitFailed
	case r.ConnectErr != nil:
		outcome = OutcomeConnectFailed
	case r.NeverConnected != nil:
		outcome = OutcomeNeverConnected
	case len(r.Classification) > 0:
		outcome = OutcomeClassificationFailed
	}

	if len(r.Teardown) > 0 {
		if outcome == "" {
			return OutcomeTeardownIncomplete
		}

		return outcome + "; " + OutcomeTeardownIncomplete
	}

	if outcome == "" {
		return OutcomeConnected
	}

	return outcome
}

// Err joins every failure of the run, or returns nil on success.
func (r *Report) Err() error {
	var errs []error

	if r.InitErr != nil {
		errs = append(errs, r.InitErr)
	}

	if r.ConnectErr != nil {
		errs = append(errs, fmt.Errorf("invitation exchange: %w", r.ConnectErr))
	}

	if r.NeverConnected != nil {
		errs = append(errs, fmt.Errorf("never connected: %w", r.NeverConnected))
	}

	for _, err := range r.Classification {
		errs = append(errs, err)
	}

	for _, err := range r.Teardown {
		errs = append(errs, fmt.Errorf("teardown incomplete: %w", err))
	}

	return errors.Join(errs...)
}

type reportJSON struct {
	RunID              string              `json:"runID"`
	Outcome            string              `json:"outcome"`
	States             []State             `json:"states"`
	Invitations        []string            `json:"invitations,omitempty"`
	InviterConnections []*agent.Connection `json:"inviterConnections,omitempty"`
	InviteeConnections []*agent.Connection `json:"inviteeConnections,omitempty"`
	InitError          string              `json:"initError,omitempty"`
	ConnectError       string              `json:"connectError,omitempty"`
	NeverConnected     []string            `json:"neverConnected,omitempty"`
	Classification     []string            `json:"classificationErrors,omitempty"`
	Teardown           []string            `json:"teardownErrors,omitempty"`
}

// MarshalJSON renders the report with errors as strings.
func (r *Report) MarshalJSON() ([]byte, error) {
	out := reportJSON{
		RunID:              r.RunID,
		Outcome:            r.Outcome(),
		States:             r.States,
		InviterConnections: r.InviterConnections,
		InviteeConnections: r.InviteeConnections,
		InitError:          errString(r.InitErr),
		ConnectError:       errString(r.ConnectErr),
	}

	for _, inv := range r.Invitations {
		out.Invitations = append(out.Invitations, inv.ID)
	}

	if r.NeverConnected != nil {
		for _, f := range r.NeverConnected.Failures {
			out.NeverConnected = append(out.NeverConnected, f.Error())
		}
	}

	for _, err := range r.Classification {
		out.Classification = append(out.Classification, err.Error())
	}

	for _, err := range r.Teardown {
		out.Teardown = append(out.Teardown, err.Error())
	}

	return json.Marshal(out)
}

func errString(err error) string {
	if err == nil {
		return ""
	}

	return err.Error()
}
