/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package aries

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/hyperledger/aries-framework-go/pkg/client/outofband"

	"github.com/hyperledger/aries-oob-orchestrator/pkg/agent"
)

const invitationURLParam = "oob"

// decodeInvitation parses an out-of-band invitation given either as JSON or as an invitation URL
// carrying the base64url-encoded JSON in its "oob" query parameter.
func decodeInvitation(payload []byte) (*outofband.Invitation, error) {
	raw := strings.TrimSpace(string(payload))
	if raw == "" {
		return nil, fmt.Errorf("%w: empty payload", agent.ErrInvalidInvitation)
	}

	b := []byte(raw)

	if !strings.HasPrefix(raw, "{") {
		var err error

		b, err = invitationFromURL(raw)
		if err != nil {
			return nil, err
		}
	}

	inv := &outofband.Invitation{}

	if err := json.Unmarshal(b, inv); err != nil {
		return nil, fmt.Errorf("%w: %v", agent.ErrInvalidInvitation, err)
	}

	if inv.ID == "" {
		return nil, fmt.Errorf("%w: missing @id", agent.ErrInvalidInvitation)
	}

	if inv.Type != "" && !isInvitationType(inv.Type) {
		return nil, fmt.Errorf("%w: unexpected @type %s", agent.ErrInvalidInvitation, inv.Type)
	}

	return inv, nil
}

func invitationFromURL(raw string) ([]byte, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", agent.ErrInvalidInvitation, err)
	}

	encoded := u.Query().Get(invitationURLParam)
	if encoded == "" {
		return nil, fmt.Errorf("%w: no %s parameter in invitation url", agent.ErrInvalidInvitation, invitationURLParam)
	}

	b, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		b, err = base64.RawURLEncoding.DecodeString(encoded)
	}

	if err != nil {
		return nil, fmt.Errorf("%w: decode %s parameter: %v", agent.ErrInvalidInvitation, invitationURLParam, err)
	}

	return b, nil
}

// isInvitationType accepts every minor version of the out-of-band invitation message type.
func isInvitationType(t string) bool {
	return strings.Contains(t, "/out-of-band/1.") && strings.HasSuffix(t, "/invitation")
}

// InvitationURL renders an invitation as a URL on base, the form invitations are usually shared in.
func InvitationURL(base string, inv *agent.Invitation) string {
	return base + "?" + invitationURLParam + "=" + base64.URLEncoding.EncodeToString(inv.Payload)
}
