/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package agent

import (
	"fmt"
	"regexp"
	"strings"
)

// PickupStrategy selects how an agent behind a mediator collects its inbound messages.
type PickupStrategy string

// Supported pickup strategies.
const (
	// PickupImplicit keeps a return route open on every outbound message.
	PickupImplicit PickupStrategy = "implicit"
	// PickupExplicit periodically requests queued messages from the mediator.
	PickupExplicit PickupStrategy = "pickup"
	// PickupNone only registers with the mediator.
	PickupNone PickupStrategy = "none"
)

var whitespace = regexp.MustCompile(`\s`)

// Config describes one agent to create.
type Config struct {
	// Label is the agent's human-readable name; wallet identifiers are derived from it.
	Label string
	// Endpoint is the URL the agent listens on for inbound messages, e.g. http://localhost:5050.
	// Agents without an endpoint can only reach peers that have one.
	Endpoint string
	// MediatorInvitation is an out-of-band invitation (JSON or URL) of a mediator to register with.
	MediatorInvitation string
	// PickupStrategy applies only when MediatorInvitation is set.
	PickupStrategy PickupStrategy
	// AutoAccept is the default acceptance policy for handshakes not started by this process.
	AutoAccept bool
}

// WalletID returns the wallet identifier for the agent.
func (c *Config) WalletID() string {
	return WalletID(c.Label)
}

// WalletKey returns the wallet key reference for the agent.
func (c *Config) WalletKey() string {
	return WalletKey(c.Label)
}

// Validate checks the configuration is usable.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Label) == "" {
		return fmt.Errorf("agent label is mandatory")
	}

	if c.MediatorInvitation != "" {
		if _, err := ParsePickupStrategy(string(c.PickupStrategy)); err != nil {
			return err
		}
	}

	return nil
}

// WalletID derives a wallet identifier from an agent label, e.g. "Test Agent one" becomes
// "test-agent-one-walletId".
func WalletID(label string) string {
	return slug(label) + "-walletId"
}

// WalletKey derives a wallet key reference from an agent label.
func WalletKey(label string) string {
	return slug(label) + "-walletKey"
}

func slug(label string) string {
	return whitespace.ReplaceAllString(strings.ToLower(strings.TrimSpace(label)), "-")
}

// ParsePickupStrategy parses a pickup strategy name. An empty string selects PickupImplicit.
func ParsePickupStrategy(s string) (PickupStrategy, error) {
	switch PickupStrategy(strings.ToLower(s)) {
	case "", PickupImplicit:
		return PickupImplicit, nil
	case PickupExplicit:
		return PickupExplicit, nil
	case PickupNone:
		return PickupNone, nil
	default:
		return "", fmt.Errorf("pickup strategy [%s] not supported", s)
	}
}
