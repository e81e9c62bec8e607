/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package agent

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWalletIdentifiers(t *testing.T) {
	require.Equal(t, "test-agent-one-walletId", WalletID("Test Agent one"))
	require.Equal(t, "test-agent-one-walletKey", WalletKey("Test Agent one"))
	require.Equal(t, "a--b-walletId", WalletID("A \tB"))

	cfg := &Config{Label: "Test Agent two"}
	require.Equal(t, "test-agent-two-walletId", cfg.WalletID())
	require.Equal(t, "test-agent-two-walletKey", cfg.WalletKey())
	require.NotEqual(t, WalletID("Test Agent one"), cfg.WalletID())
}

func TestConfig_Validate(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		cfg := &Config{Label: "alice"}
		require.NoError(t, cfg.Validate())
	})

	t.Run("missing label", func(t *testing.T) {
		cfg := &Config{Label: "  "}
		require.EqualError(t, cfg.Validate(), "agent label is mandatory")
	})

	t.Run("unsupported pickup strategy", func(t *testing.T) {
		cfg := &Config{Label: "alice", MediatorInvitation: "{}", PickupStrategy: "carrier-pigeon"}
		require.Error(t, cfg.Validate())
	})
}

func TestParsePickupStrategy(t *testing.T) {
	tests := []struct {
		in       string
		expected PickupStrategy
	}{
		{"", PickupImplicit},
		{"implicit", PickupImplicit},
		{"Implicit", PickupImplicit},
		{"pickup", PickupExplicit},
		{"none", PickupNone},
	}

	for _, tc := range tests {
		s, err := ParsePickupStrategy(tc.in)
		require.NoError(t, err)
		require.Equal(t, tc.expected, s)
	}

	_, err := ParsePickupStrategy("poll")
	require.EqualError(t, err, "pickup strategy [poll] not supported")
}

func TestMergeTags(t *testing.T) {
	require.Equal(t, []string{"x", "y", "z"}, MergeTags([]string{"x", "y"}, []string{"y", "z"}))
	require.Equal(t, []string{"a"}, MergeTags(nil, []string{"a", "a"}))
	require.Nil(t, MergeTags(nil, nil))
}

func TestFilterByTag(t *testing.T) {
	conns := []*Connection{
		{ID: "1", Tags: []string{"x"}},
		{ID: "2"},
		{ID: "3", Tags: []string{"y", "x"}},
	}

	filtered := FilterByTag(conns, "x")
	require.Len(t, filtered, 2)
	require.Equal(t, "1", filtered[0].ID)
	require.Equal(t, "3", filtered[1].ID)
	require.True(t, filtered[1].HasTag("y"))
	require.Empty(t, FilterByTag(conns, "z"))
}

func TestConnection_IsCompleted(t *testing.T) {
	require.True(t, (&Connection{State: StateCompleted}).IsCompleted())
	require.False(t, (&Connection{State: StateResponded}).IsCompleted())
}
