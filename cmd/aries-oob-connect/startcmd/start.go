/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package startcmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hyperledger/aries-framework-go/component/log"

	"github.com/hyperledger/aries-oob-orchestrator/pkg/agent"
	"github.com/hyperledger/aries-oob-orchestrator/pkg/agent/aries"
	"github.com/hyperledger/aries-oob-orchestrator/pkg/notifier"
	"github.com/hyperledger/aries-oob-orchestrator/pkg/orchestrator"
)

const (
	// inviter label flag.
	inviterLabelFlagName      = "inviter-label"
	inviterLabelEnvKey        = "ARIESOOB_INVITER_LABEL"
	inviterLabelFlagShorthand = "l"
	inviterLabelFlagUsage     = "Label of the agent creating the invitations. Defaults to '" + defaultInviterLabel +
		"' if not set. Alternatively, this can be set with the following environment variable: " + inviterLabelEnvKey

	// invitee label flag.
	inviteeLabelFlagName      = "invitee-label"
	inviteeLabelEnvKey        = "ARIESOOB_INVITEE_LABEL"
	inviteeLabelFlagShorthand = "r"
	inviteeLabelFlagUsage     = "Label of the agent receiving the invitations. Defaults to '" + defaultInviteeLabel +
		"' if not set. Alternatively, this can be set with the following environment variable: " + inviteeLabelEnvKey

	// inviter endpoint flag.
	inviterEndpointFlagName  = "inviter-endpoint"
	inviterEndpointEnvKey    = "ARIESOOB_INVITER_ENDPOINT"
	inviterEndpointFlagUsage = "Inbound endpoint of the inviter, e.g. http://localhost:5050." +
		" Possible schemes [http] [ws]." +
		" Alternatively, this can be set with the following environment variable: " + inviterEndpointEnvKey

	// invitee endpoint flag.
	inviteeEndpointFlagName  = "invitee-endpoint"
	inviteeEndpointEnvKey    = "ARIESOOB_INVITEE_ENDPOINT"
	inviteeEndpointFlagUsage = "Inbound endpoint of the invitee. Leave empty when the invitee is behind a mediator." +
		" Alternatively, this can be set with the following environment variable: " + inviteeEndpointEnvKey

	// mediator invitation flag.
	mediatorInvitationFlagName  = "mediator-invitation"
	mediatorInvitationEnvKey    = "ARIESOOB_MEDIATOR_INVITATION"
	mediatorInvitationFlagUsage = "Out-of-band invitation (JSON or URL) of a mediator the invitee registers with." +
		" Alternatively, this can be set with the following environment variable: " + mediatorInvitationEnvKey

	// mediator pickup strategy flag.
	pickupStrategyFlagName  = "mediator-pickup-strategy"
	pickupStrategyEnvKey    = "ARIESOOB_MEDIATOR_PICKUP_STRATEGY"
	pickupStrategyFlagUsage = "How the invitee collects messages from its mediator." +
		" Possible values [implicit] [pickup] [none]. Defaults to implicit if not set." +
		" Alternatively, this can be set with the following environment variable: " + pickupStrategyEnvKey

	// invitation count flag.
	invitationCountFlagName      = "invitation-count"
	invitationCountEnvKey        = "ARIESOOB_INVITATION_COUNT"
	invitationCountFlagShorthand = "n"
	invitationCountFlagUsage     = "Number of invitations to create and accept. Defaults to 1 if not set." +
		" Alternatively, this can be set with the following environment variable: " + invitationCountEnvKey

	// auto accept flag.
	autoAcceptFlagName  = "auto-accept"
	autoAcceptEnvKey    = "ARIESOOB_AUTO_ACCEPT"
	autoAcceptFlagUsage = "Auto accept connection requests and responses." +
		" Possible values [true] [false]. Defaults to true if not set." +
		" Alternatively, this can be set with the following environment variable: " + autoAcceptEnvKey

	// connection tag flag.
	connectionTagFlagName      = "connection-tag"
	connectionTagEnvKey        = "ARIESOOB_CONNECTION_TAG"
	connectionTagFlagShorthand = "g"
	connectionTagFlagUsage     = "Tag applied to the inviter's connections once connected." +
		" This flag can be repeated, allowing for multiple tags." +
		" Alternatively, this can be set with the following environment variable (in CSV format): " +
		connectionTagEnvKey

	// connect timeout flag.
	connectTimeoutFlagName  = "connect-timeout"
	connectTimeoutEnvKey    = "ARIESOOB_CONNECT_TIMEOUT"
	connectTimeoutFlagUsage = "How long to wait for each connection to complete, e.g. 20s." +
		" Alternatively, this can be set with the following environment variable: " + connectTimeoutEnvKey

	databaseTypeFlagName      = "database-type"
	databaseTypeEnvKey        = "ARIESOOB_DATABASE_TYPE"
	databaseTypeFlagShorthand = "q"
	databaseTypeFlagUsage     = "The type of database backing the agent wallets." +
		" Supported options: mem, leveldb. Defaults to mem if not set." +
		" Alternatively, this can be set with the following environment variable: " + databaseTypeEnvKey

	databasePathFlagName  = "database-path"
	databasePathEnvKey    = "ARIESOOB_DATABASE_PATH"
	databasePathFlagUsage = "Directory leveldb wallets are created under." +
		" Alternatively, this can be set with the following environment variable: " + databasePathEnvKey

	databaseTimeoutFlagName  = "database-timeout"
	databaseTimeoutFlagUsage = "Total time in seconds to wait until the db is available before giving up." +
		" Default: " + databaseTimeoutDefault + " seconds." +
		" Alternatively, this can be set with the following environment variable: " + databaseTimeoutEnvKey
	databaseTimeoutEnvKey  = "ARIESOOB_DATABASE_TIMEOUT"
	databaseTimeoutDefault = "30"

	// webhook url flag.
	webhookFlagName      = "webhook-url"
	webhookEnvKey        = "ARIESOOB_WEBHOOK_URL"
	webhookFlagShorthand = "w"
	webhookFlagUsage     = "URL the run report is posted to." +
		" This flag can be repeated, allowing for multiple listeners." +
		" Alternatively, this can be set with the following environment variable (in CSV format): " + webhookEnvKey

	// log level.
	logLevelFlagName  = "log-level"
	logLevelEnvKey    = "ARIESOOB_LOG_LEVEL"
	logLevelFlagUsage = "Log level." +
		" Possible values [INFO] [DEBUG] [ERROR] [WARNING] [CRITICAL] . Defaults to INFO if not set." +
		" Alternatively, this can be set with the following environment variable: " + logLevelEnvKey

	defaultInviterLabel = "Test Agent one"
	defaultInviteeLabel = "Test Agent two"
)

var logger = log.New("aries-framework/oob-connect")

// AgentFactoryProvider builds the agent factory of a run from the agent options set on the command line.
type AgentFactoryProvider func(opts ...aries.Option) orchestrator.AgentFactory

// AriesAgents creates aries framework agents.
func AriesAgents(opts ...aries.Option) orchestrator.AgentFactory {
	return func(ctx context.Context, cfg agent.Config) (agent.Handle, error) {
		a, err := aries.New(ctx, cfg, opts...)
		if err != nil {
			return nil, err
		}

		return a, nil
	}
}

const notifyTimeout = 30 * time.Second

type runParameters struct {
	config      orchestrator.Config
	agentOpts   []aries.Option
	webhookURLs []string
}

type dbParam struct {
	dbType  string
	path    string
	timeout uint64
}

// Cmd returns the Cobra start command.
func Cmd(provider AgentFactoryProvider) (*cobra.Command, error) {
	if provider == nil {
		return nil, errors.New("agent factory provider is mandatory")
	}

	startCmd := createStartCMD(provider)

	createFlags(startCmd)

	return startCmd, nil
}

func createStartCMD(provider AgentFactoryProvider) *cobra.Command { //nolint: funlen
	return &cobra.Command{
		Use:   "start",
		Short: "Connect two agents",
		Long:  `Create two agents, connect them over out-of-band invitations, then tear both down`,
		// the report is written to the output; usage would corrupt it
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logLevel, err := getUserSetVar(cmd, logLevelFlagName, logLevelEnvKey, true)
			if err != nil {
				return err
			}

			err = setLogLevel(logLevel)
			if err != nil {
				return err
			}

			parameters, err := getRunParameters(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return run(ctx, cmd, provider(parameters.agentOpts...), parameters)
		},
	}
}

func getRunParameters(cmd *cobra.Command) (*runParameters, error) { //nolint: funlen,gocyclo
	inviterLabel, err := getUserSetVar(cmd, inviterLabelFlagName, inviterLabelEnvKey, true)
	if err != nil {
		return nil, err
	}

	inviteeLabel, err := getUserSetVar(cmd, inviteeLabelFlagName, inviteeLabelEnvKey, true)
	if err != nil {
		return nil, err
	}

	inviterEndpoint, err := getUserSetVar(cmd, inviterEndpointFlagName, inviterEndpointEnvKey, true)
	if err != nil {
		return nil, err
	}

	inviteeEndpoint, err := getUserSetVar(cmd, inviteeEndpointFlagName, inviteeEndpointEnvKey, true)
	if err != nil {
		return nil, err
	}

	mediatorInvitation, err := getUserSetVar(cmd, mediatorInvitationFlagName, mediatorInvitationEnvKey, true)
	if err != nil {
		return nil, err
	}

	pickupStrategy, err := getPickupStrategy(cmd)
	if err != nil {
		return nil, err
	}

	invitationCount, err := getInvitationCount(cmd)
	if err != nil {
		return nil, err
	}

	autoAccept, err := getAutoAcceptValue(cmd)
	if err != nil {
		return nil, err
	}

	tags, err := getUserSetVars(cmd, connectionTagFlagName, connectionTagEnvKey, true)
	if err != nil {
		return nil, err
	}

	connectTimeout, err := getConnectTimeout(cmd)
	if err != nil {
		return nil, err
	}

	dbParam, err := getDBParam(cmd)
	if err != nil {
		return nil, err
	}

	webhookURLs, err := getUserSetVars(cmd, webhookFlagName, webhookEnvKey, true)
	if err != nil {
		return nil, err
	}

	if inviterLabel == "" {
		inviterLabel = defaultInviterLabel
	}

	if inviteeLabel == "" {
		inviteeLabel = defaultInviteeLabel
	}

	agentOpts := []aries.Option{
		aries.WithLogger(log.New("aries-framework/oob-connect/agent")),
		aries.WithDatabase(dbParam.dbType, dbParam.path),
		aries.WithDatabaseTimeout(dbParam.timeout),
	}

	if connectTimeout > 0 {
		agentOpts = append(agentOpts, aries.WithConnectTimeout(connectTimeout))
	}

	return &runParameters{
		config: orchestrator.Config{
			Inviter: agent.Config{
				Label:      inviterLabel,
				Endpoint:   inviterEndpoint,
				AutoAccept: autoAccept,
			},
			Invitee: agent.Config{
				Label:              inviteeLabel,
				Endpoint:           inviteeEndpoint,
				MediatorInvitation: mediatorInvitation,
				PickupStrategy:     pickupStrategy,
				AutoAccept:         autoAccept,
			},
			InvitationCount: invitationCount,
			AutoAccept:      autoAccept,
			Tags:            nonEmpty(tags),
		},
		agentOpts:   agentOpts,
		webhookURLs: nonEmpty(webhookURLs),
	}, nil
}

func run(ctx context.Context, cmd *cobra.Command, factory orchestrator.AgentFactory,
	parameters *runParameters) error {
	coordinator, err := orchestrator.New(parameters.config, factory)
	if err != nil {
		return err
	}

	logger.Infof("connecting %s and %s over %d invitation(s)", parameters.config.Inviter.Label,
		parameters.config.Invitee.Label, parameters.config.InvitationCount)

	report := coordinator.Run(ctx)

	reportBytes, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report of run %s : %w", report.RunID, err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), string(reportBytes))

	if len(parameters.webhookURLs) > 0 {
		notify(parameters.webhookURLs, report.RunID, reportBytes)
	}

	if err := report.Err(); err != nil {
		return fmt.Errorf("run %s: %s: %w", report.RunID, report.Outcome(), err)
	}

	return nil
}

// notify posts the report on its own context: an interrupted run is still reported.
func notify(urls []string, runID string, report []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()

	if err := notifier.NewHTTPNotifier(urls).Notify(ctx, notifier.ReportTopic, report); err != nil {
		logger.Warnf("failed to notify webhooks of run %s : %s", runID, err)
	}
}

func getDBParam(cmd *cobra.Command) (*dbParam, error) {
	dbParam := &dbParam{}

	var err error

	dbParam.dbType, err = getUserSetVar(cmd, databaseTypeFlagName, databaseTypeEnvKey, true)
	if err != nil {
		return nil, err
	}

	if dbParam.dbType == "" {
		dbParam.dbType = aries.DatabaseTypeMem
	}

	dbParam.path, err = getUserSetVar(cmd, databasePathFlagName, databasePathEnvKey, true)
	if err != nil {
		return nil, err
	}

	dbTimeout, err := getUserSetVar(cmd, databaseTimeoutFlagName, databaseTimeoutEnvKey, true)
	if err != nil {
		return nil, err
	}

	if dbTimeout == "" || dbTimeout == "0" {
		dbTimeout = databaseTimeoutDefault
	}

	t, err := strconv.Atoi(dbTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to parse db timeout %s: %w", dbTimeout, err)
	}

	dbParam.timeout = uint64(t)

	return dbParam, nil
}

func getAutoAcceptValue(cmd *cobra.Command) (bool, error) {
	v, err := getUserSetVar(cmd, autoAcceptFlagName, autoAcceptEnvKey, true)
	if err != nil {
		return false, err
	}

	if v == "" {
		return true, nil
	}

	return strconv.ParseBool(v)
}

func getInvitationCount(cmd *cobra.Command) (int, error) {
	v, err := getUserSetVar(cmd, invitationCountFlagName, invitationCountEnvKey, true)
	if err != nil {
		return 0, err
	}

	if v == "" {
		return 1, nil
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("failed to parse invitation count %s: %w", v, err)
	}

	return n, nil
}

func getConnectTimeout(cmd *cobra.Command) (time.Duration, error) {
	v, err := getUserSetVar(cmd, connectTimeoutFlagName, connectTimeoutEnvKey, true)
	if err != nil {
		return 0, err
	}

	if v == "" {
		return 0, nil
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("failed to parse connect timeout %s: %w", v, err)
	}

	return d, nil
}

func getPickupStrategy(cmd *cobra.Command) (agent.PickupStrategy, error) {
	v, err := getUserSetVar(cmd, pickupStrategyFlagName, pickupStrategyEnvKey, true)
	if err != nil {
		return "", err
	}

	return agent.ParsePickupStrategy(v)
}

func createFlags(startCmd *cobra.Command) {
	// agent labels
	startCmd.Flags().StringP(inviterLabelFlagName, inviterLabelFlagShorthand, "", inviterLabelFlagUsage)
	startCmd.Flags().StringP(inviteeLabelFlagName, inviteeLabelFlagShorthand, "", inviteeLabelFlagUsage)

	// agent endpoints
	startCmd.Flags().StringP(inviterEndpointFlagName, "", "", inviterEndpointFlagUsage)
	startCmd.Flags().StringP(inviteeEndpointFlagName, "", "", inviteeEndpointFlagUsage)

	// mediator
	startCmd.Flags().StringP(mediatorInvitationFlagName, "", "", mediatorInvitationFlagUsage)
	startCmd.Flags().StringP(pickupStrategyFlagName, "", "", pickupStrategyFlagUsage)

	// invitations
	startCmd.Flags().StringP(invitationCountFlagName, invitationCountFlagShorthand, "", invitationCountFlagUsage)
	startCmd.Flags().StringP(autoAcceptFlagName, "", "", autoAcceptFlagUsage)
	startCmd.Flags().StringP(connectTimeoutFlagName, "", "", connectTimeoutFlagUsage)

	// connection tag flag
	startCmd.Flags().StringSliceP(connectionTagFlagName, connectionTagFlagShorthand, []string{},
		connectionTagFlagUsage)

	// db
	startCmd.Flags().StringP(databaseTypeFlagName, databaseTypeFlagShorthand, "", databaseTypeFlagUsage)
	startCmd.Flags().StringP(databasePathFlagName, "", "", databasePathFlagUsage)
	startCmd.Flags().StringP(databaseTimeoutFlagName, "", "", databaseTimeoutFlagUsage)

	// webhook url flag
	startCmd.Flags().StringSliceP(webhookFlagName, webhookFlagShorthand, []string{}, webhookFlagUsage)

	// log level
	startCmd.Flags().StringP(logLevelFlagName, "", "", logLevelFlagUsage)
}

func getUserSetVar(cmd *cobra.Command, flagName, envKey string, isOptional bool) (string, error) {
	if cmd.Flags().Changed(flagName) {
		value, err := cmd.Flags().GetString(flagName)
		if err != nil {
			return "", fmt.Errorf(flagName+" flag not found: %s", err)
		}

		return value, nil
	}

	value, isSet := os.LookupEnv(envKey)

	if isOptional || isSet {
		return value, nil
	}

	return "", errors.New("Neither " + flagName + " (command line flag) nor " + envKey +
		" (environment variable) have been set.")
}

func getUserSetVars(cmd *cobra.Command, flagName, envKey string, isOptional bool) ([]string, error) {
	if cmd.Flags().Changed(flagName) {
		value, err := cmd.Flags().GetStringSlice(flagName)
		if err != nil {
			return nil, fmt.Errorf(flagName+" flag not found: %s", err)
		}

		return value, nil
	}

	value, isSet := os.LookupEnv(envKey)

	var values []string

	if isSet {
		values = strings.Split(value, ",")
	}

	if isOptional || isSet {
		return values, nil
	}

	return nil, fmt.Errorf(" %s not set. "+
		"It must be set via either command line or environment variable", flagName)
}

func nonEmpty(values []string) []string {
	var kept []string

	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			kept = append(kept, v)
		}
	}

	return kept
}

func setLogLevel(logLevel string) error {
	if logLevel != "" {
		level, err := log.ParseLevel(logLevel)
		if err != nil {
			return fmt.Errorf("failed to parse log level '%s' : %w", logLevel, err)
		}

		log.SetLevel("", level)

		logger.Infof("logger level set to %s", logLevel)
	}

	return nil
}
