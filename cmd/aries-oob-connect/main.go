/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package main starts two agents, connects them over a batch of out-of-band invitations, reports the
// result and tears both agents down.
package main

import (
	"github.com/spf13/cobra"

	"github.com/hyperledger/aries-framework-go/component/log"

	"github.com/hyperledger/aries-oob-orchestrator/cmd/aries-oob-connect/startcmd"
)

func main() {
	rootCmd := &cobra.Command{
		Use: "aries-oob-connect",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.HelpFunc()(cmd, args)
		},
	}

	logger := log.New("aries-framework/oob-connect")

	startCmd, err := startcmd.Cmd(startcmd.AriesAgents)
	if err != nil {
		logger.Fatalf(err.Error())
	}

	rootCmd.AddCommand(startCmd)

	if err := rootCmd.Execute(); err != nil {
		logger.Fatalf("Failed to run aries-oob-connect: %s", err)
	}
}
