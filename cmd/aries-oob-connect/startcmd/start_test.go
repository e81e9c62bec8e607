/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package startcmd

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/hyperledger/aries-framework-go/component/log"
	spi "github.com/hyperledger/aries-framework-go/spi/log"

	"github.com/hyperledger/aries-oob-orchestrator/pkg/agent"
	"github.com/hyperledger/aries-oob-orchestrator/pkg/agent/aries"
	mockagent "github.com/hyperledger/aries-oob-orchestrator/pkg/mock/agent"
	"github.com/hyperledger/aries-oob-orchestrator/pkg/orchestrator"
)

type reportOutput struct {
	RunID              string              `json:"runID"`
	Outcome            string              `json:"outcome"`
	Invitations        []string            `json:"invitations"`
	InviterConnections []*agent.Connection `json:"inviterConnections"`
	NeverConnected     []string            `json:"neverConnected"`
}

func mockProvider(network *mockagent.Network, agentOpts *[]aries.Option) AgentFactoryProvider {
	return func(opts ...aries.Option) orchestrator.AgentFactory {
		if agentOpts != nil {
			*agentOpts = opts
		}

		return network.Factory(nil)
	}
}

func newStartCmd(t *testing.T, provider AgentFactoryProvider, args ...string) (*cobra.Command, *bytes.Buffer) {
	t.Helper()

	startCmd, err := Cmd(provider)
	require.NoError(t, err)

	out := &bytes.Buffer{}

	startCmd.SetOut(out)
	startCmd.SetArgs(args)

	return startCmd, out
}

func decodeReport(t *testing.T, out *bytes.Buffer) *reportOutput {
	t.Helper()

	r := &reportOutput{}
	require.NoError(t, json.Unmarshal(out.Bytes(), r))

	return r
}

func TestStartCmdContents(t *testing.T) {
	startCmd, err := Cmd(AriesAgents)
	require.NoError(t, err)

	require.Equal(t, "start", startCmd.Use)
	require.Equal(t, "Connect two agents", startCmd.Short)

	checkFlagPropertiesCorrect(t, startCmd, inviterLabelFlagName, inviterLabelFlagShorthand, inviterLabelFlagUsage, "")
	checkFlagPropertiesCorrect(t, startCmd, invitationCountFlagName, invitationCountFlagShorthand,
		invitationCountFlagUsage, "")
	checkFlagPropertiesCorrect(t, startCmd, connectionTagFlagName, connectionTagFlagShorthand,
		connectionTagFlagUsage, "[]")
	checkFlagPropertiesCorrect(t, startCmd, databaseTypeFlagName, databaseTypeFlagShorthand, databaseTypeFlagUsage, "")
}

func TestCmdWithoutProvider(t *testing.T) {
	_, err := Cmd(nil)
	require.EqualError(t, err, "agent factory provider is mandatory")
}

func checkFlagPropertiesCorrect(t *testing.T, cmd *cobra.Command, flagName,
	flagShorthand, flagUsage, expectedVal string) {
	flag := cmd.Flag(flagName)

	require.NotNil(t, flag)
	require.Equal(t, flagName, flag.Name)
	require.Equal(t, flagShorthand, flag.Shorthand)
	require.Equal(t, flagUsage, flag.Usage)
	require.Equal(t, expectedVal, flag.Value.String())

	flagAnnotations := flag.Annotations
	require.Nil(t, flagAnnotations)
}

func TestStartCmd(t *testing.T) {
	t.Run("connects with defaults", func(t *testing.T) {
		network := mockagent.NewNetwork()

		var agentOpts []aries.Option

		startCmd, out := newStartCmd(t, mockProvider(network, &agentOpts))

		require.NoError(t, startCmd.Execute())

		r := decodeReport(t, out)
		require.Equal(t, orchestrator.OutcomeConnected, r.Outcome)
		require.Len(t, r.Invitations, 1)
		require.Len(t, agentOpts, 3)

		inviter := network.Agent(defaultInviterLabel)
		require.NotNil(t, inviter)
		require.True(t, inviter.Config.AutoAccept)
		require.True(t, inviter.WalletDeleted())
		require.True(t, inviter.IsShutdown())

		invitee := network.Agent(defaultInviteeLabel)
		require.NotNil(t, invitee)
		require.True(t, invitee.IsShutdown())
	})

	t.Run("connects and tags a batch", func(t *testing.T) {
		network := mockagent.NewNetwork()

		var agentOpts []aries.Option

		startCmd, out := newStartCmd(t, mockProvider(network, &agentOpts),
			"--"+inviterLabelFlagName, "Faber",
			"--"+inviteeLabelFlagName, "Alice",
			"--"+invitationCountFlagName, "4",
			"--"+connectionTagFlagName, "y,x",
			"--"+connectTimeoutFlagName, "5s",
			"--"+databaseTypeFlagName, aries.DatabaseTypeMem,
			"--"+logLevelFlagName, "DEBUG",
		)

		require.NoError(t, startCmd.Execute())

		r := decodeReport(t, out)
		require.Equal(t, orchestrator.OutcomeConnected, r.Outcome)
		require.Len(t, r.Invitations, 4)
		require.Len(t, r.InviterConnections, 4)
		require.Len(t, agentOpts, 4)

		for _, c := range r.InviterConnections {
			require.Equal(t, "Alice", c.TheirLabel)
			require.Equal(t, []string{"x", "y"}, c.Tags)
		}

		require.Equal(t, "Faber", network.Agent("Faber").Label())
	})

	t.Run("reads the environment", func(t *testing.T) {
		t.Setenv(inviterLabelEnvKey, "Acme")
		t.Setenv(inviteeLabelEnvKey, "Bob")
		t.Setenv(invitationCountEnvKey, "2")
		t.Setenv(connectionTagEnvKey, "employee,,")

		network := mockagent.NewNetwork()

		startCmd, out := newStartCmd(t, mockProvider(network, nil))

		require.NoError(t, startCmd.Execute())

		r := decodeReport(t, out)
		require.Len(t, r.Invitations, 2)

		for _, c := range r.InviterConnections {
			require.Equal(t, []string{"employee"}, c.Tags)
		}

		require.NotNil(t, network.Agent("Acme"))
		require.NotNil(t, network.Agent("Bob"))
	})

	t.Run("never connected", func(t *testing.T) {
		network := mockagent.NewNetwork()
		network.OutcomeFor = func(int) mockagent.Outcome {
			return mockagent.Outcome{Abandon: true}
		}

		startCmd, out := newStartCmd(t, mockProvider(network, nil), "--"+invitationCountFlagName, "2")

		err := startCmd.Execute()
		require.Error(t, err)
		require.Contains(t, err.Error(), orchestrator.OutcomeNeverConnected)

		r := decodeReport(t, out)
		require.Equal(t, orchestrator.OutcomeNeverConnected, r.Outcome)
		require.Len(t, r.NeverConnected, 4)

		require.True(t, network.Agent(defaultInviterLabel).IsShutdown())
		require.True(t, network.Agent(defaultInviteeLabel).IsShutdown())
	})

	t.Run("manual acceptance never completes", func(t *testing.T) {
		network := mockagent.NewNetwork()

		startCmd, _ := newStartCmd(t, mockProvider(network, nil), "--"+autoAcceptFlagName, "false")

		err := startCmd.Execute()
		require.Error(t, err)
		require.Contains(t, err.Error(), orchestrator.OutcomeNeverConnected)
		require.False(t, network.Agent(defaultInviterLabel).Config.AutoAccept)
	})

	t.Run("invalid orchestration config", func(t *testing.T) {
		startCmd, out := newStartCmd(t, mockProvider(mockagent.NewNetwork(), nil),
			"--"+invitationCountFlagName, "0")

		err := startCmd.Execute()
		require.Error(t, err)
		require.Contains(t, err.Error(), "invitation count must be at least 1, got 0")
		require.Empty(t, out.String())
	})

	t.Run("same wallet", func(t *testing.T) {
		startCmd, _ := newStartCmd(t, mockProvider(mockagent.NewNetwork(), nil),
			"--"+inviterLabelFlagName, "Alice", "--"+inviteeLabelFlagName, "alice")

		err := startCmd.Execute()
		require.Error(t, err)
		require.Contains(t, err.Error(), "same wallet")
	})
}

func TestStartCmdInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		args []string
		msg  string
	}{
		{"invitation count", []string{"--" + invitationCountFlagName, "many"}, "failed to parse invitation count"},
		{"auto accept", []string{"--" + autoAcceptFlagName, "maybe"}, "invalid syntax"},
		{"connect timeout", []string{"--" + connectTimeoutFlagName, "soon"}, "failed to parse connect timeout"},
		{"db timeout", []string{"--" + databaseTimeoutFlagName, "later"}, "failed to parse db timeout"},
		{"pickup strategy", []string{"--" + pickupStrategyFlagName, "carrier-pigeon"}, "not supported"},
		{"log level", []string{"--" + logLevelFlagName, "INVALID"}, "invalid log level"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			network := mockagent.NewNetwork()

			startCmd, _ := newStartCmd(t, mockProvider(network, nil), tc.args...)

			err := startCmd.Execute()
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.msg)
			require.Nil(t, network.Agent(defaultInviterLabel))
		})
	}
}

func TestStartCmdWebhook(t *testing.T) {
	received := make(chan []byte, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		received <- b

		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	t.Run("report is posted", func(t *testing.T) {
		startCmd, out := newStartCmd(t, mockProvider(mockagent.NewNetwork(), nil), "--"+webhookFlagName, srv.URL)

		require.NoError(t, startCmd.Execute())

		msg := struct {
			Topic   string       `json:"topic"`
			Message reportOutput `json:"message"`
		}{}

		require.NoError(t, json.Unmarshal(<-received, &msg))
		require.Equal(t, "oob-orchestration", msg.Topic)
		require.Equal(t, decodeReport(t, out).RunID, msg.Message.RunID)
	})

	t.Run("interrupted run is still posted", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		cmd := &cobra.Command{}
		out := &bytes.Buffer{}
		cmd.SetOut(out)

		cfg := orchestrator.Config{
			Inviter:         agent.Config{Label: defaultInviterLabel},
			Invitee:         agent.Config{Label: defaultInviteeLabel},
			InvitationCount: 1,
			AutoAccept:      true,
		}

		network := mockagent.NewNetwork()
		network.OutcomeFor = func(int) mockagent.Outcome {
			return mockagent.Outcome{Hang: true}
		}

		err := run(ctx, cmd, network.Factory(nil), &runParameters{
			config:      cfg,
			webhookURLs: []string{srv.URL},
		})
		require.Error(t, err)

		msg := struct {
			Message reportOutput `json:"message"`
		}{}

		require.NoError(t, json.Unmarshal(<-received, &msg))
		require.Equal(t, decodeReport(t, out).RunID, msg.Message.RunID)
		require.NotEqual(t, orchestrator.OutcomeConnected, msg.Message.Outcome)
	})

	t.Run("webhook failure does not fail the run", func(t *testing.T) {
		startCmd, _ := newStartCmd(t, mockProvider(mockagent.NewNetwork(), nil),
			"--"+webhookFlagName, "http://localhost:0")

		require.NoError(t, startCmd.Execute())
	})
}

func TestAriesAgents(t *testing.T) {
	h, err := AriesAgents()(context.Background(), agent.Config{})
	require.Error(t, err)
	require.Nil(t, h)
}

func TestSetLogLevel(t *testing.T) {
	require.NoError(t, setLogLevel("DEBUG"))
	require.Equal(t, spi.DEBUG, log.GetLevel(""))

	require.NoError(t, setLogLevel("WARNING"))
	require.Equal(t, spi.WARNING, log.GetLevel(""))

	require.NoError(t, setLogLevel(""))
	require.Equal(t, spi.WARNING, log.GetLevel(""))

	require.Error(t, setLogLevel("INVALID"))

	log.SetLevel("", spi.INFO)
}
