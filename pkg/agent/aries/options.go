/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package aries

import (
	"time"

	"github.com/hyperledger/aries-framework-go/component/log"
	spilog "github.com/hyperledger/aries-framework-go/spi/log"
	"github.com/hyperledger/aries-framework-go/spi/storage"
)

const (
	loggerModule = "aries-framework/oob-orchestrator/agent"

	// DatabaseTypeMem keeps the wallet in memory.
	DatabaseTypeMem = "mem"
	// DatabaseTypeLevelDB keeps the wallet in a leveldb directory named after the wallet id.
	DatabaseTypeLevelDB = "leveldb"

	defaultConnectTimeout   = 20 * time.Second
	defaultPollInterval     = 250 * time.Millisecond
	defaultDatabaseRetries  = 30
	defaultPickupInterval   = 2 * time.Second
	defaultPickupBatchSize  = 100
	defaultMediatorTimeout  = 10 * time.Second
	defaultDatabaseRootPath = "./db"
)

// Option configures an Agent.
type Option func(opts *options)

type options struct {
	logger          spilog.Logger
	dbType          string
	dbPath          string
	dbRetries       uint64
	storeProvider   storage.Provider
	connectTimeout  time.Duration
	pollInterval    time.Duration
	pickupInterval  time.Duration
	pickupBatchSize int
	mediatorTimeout time.Duration
}

// WithLogger sets the agent logger.
func WithLogger(logger spilog.Logger) Option {
	return func(opts *options) {
		opts.logger = logger
	}
}

// WithDatabase selects the wallet database type (mem or leveldb) and, for leveldb, the root directory
// wallets are created under.
func WithDatabase(dbType, path string) Option {
	return func(opts *options) {
		opts.dbType = dbType

		if path != "" {
			opts.dbPath = path
		}
	}
}

// WithDatabaseTimeout sets how many seconds opening the wallet database is retried for.
func WithDatabaseTimeout(seconds uint64) Option {
	return func(opts *options) {
		opts.dbRetries = seconds
	}
}

// WithStoreProvider uses prov as the wallet instead of opening one from the database settings.
func WithStoreProvider(prov storage.Provider) Option {
	return func(opts *options) {
		opts.storeProvider = prov
	}
}

// WithConnectTimeout bounds WaitUntilConnected when the caller's context has no earlier deadline.
func WithConnectTimeout(d time.Duration) Option {
	return func(opts *options) {
		opts.connectTimeout = d
	}
}

// WithPollInterval sets how often connection records are checked while waiting.
func WithPollInterval(d time.Duration) Option {
	return func(opts *options) {
		opts.pollInterval = d
	}
}

// WithPickup tunes the explicit mediator pickup loop.
func WithPickup(interval time.Duration, batchSize int) Option {
	return func(opts *options) {
		opts.pickupInterval = interval
		opts.pickupBatchSize = batchSize
	}
}

func applyOptions(opts ...Option) *options {
	o := &options{
		dbType:          DatabaseTypeMem,
		dbPath:          defaultDatabaseRootPath,
		dbRetries:       defaultDatabaseRetries,
		connectTimeout:  defaultConnectTimeout,
		pollInterval:    defaultPollInterval,
		pickupInterval:  defaultPickupInterval,
		pickupBatchSize: defaultPickupBatchSize,
		mediatorTimeout: defaultMediatorTimeout,
	}

	for _, opt := range opts {
		opt(o)
	}

	if o.logger == nil {
		o.logger = log.New(loggerModule)
	}

	return o
}
