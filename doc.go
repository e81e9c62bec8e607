/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package oob connects two Hyperledger Aries agents over a batch of out-of-band invitations
// (https://www.hyperledger.org/projects/aries).
//
// Packages for end developer usage
//
// pkg/orchestrator: Creates the invitation batch, hands it to the invitee, waits until every connection
// completes, tags the inviter's connections and always tears both agents down.
//
// pkg/agent: The capabilities the orchestrator needs from an agent, and agent configuration.
//
// pkg/agent/aries: An agent backed by the Aries framework with out-of-band, DID exchange, mediator and
// message pickup clients.
//
// pkg/notifier: Posts run reports to webhooks.
//
// Basic workflow
//
//	1) Describe the inviter and invitee with agent.Config.
//	2) Create a Coordinator with orchestrator.New, passing an agent factory.
//	3) Call Run and inspect the returned Report.
//	4) Both agents are shut down and their wallets deleted when Run returns.
package oob
