/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package orchestrator

import (
	"time"

	"github.com/hyperledger/aries-framework-go/component/log"
	spilog "github.com/hyperledger/aries-framework-go/spi/log"
)

const (
	loggerModule           = "aries-framework/oob-orchestrator"
	defaultTeardownTimeout = 30 * time.Second
	defaultPairTimeout     = 20 * time.Second
	defaultPollInterval    = 100 * time.Millisecond
)

// Option configures orchestration functions and the Coordinator.
type Option func(opts *options)

type options struct {
	logger          spilog.Logger
	teardownTimeout time.Duration
	pairTimeout     time.Duration
	pollInterval    time.Duration
}

// WithLogger sets the logger used for progress and failure reporting.
func WithLogger(logger spilog.Logger) Option {
	return func(opts *options) {
		opts.logger = logger
	}
}

// WithTeardownTimeout bounds the time spent deleting wallets and shutting agents down.
// Teardown runs on its own context so that it still happens after the run's context is done.
func WithTeardownTimeout(d time.Duration) Option {
	return func(opts *options) {
		opts.teardownTimeout = d
	}
}

// WithPairTimeout bounds how long the inviter's connection list is polled for a record of every invitation.
func WithPairTimeout(d time.Duration) Option {
	return func(opts *options) {
		opts.pairTimeout = d
	}
}

// WithPollInterval sets the interval between polls of the inviter's connection list.
func WithPollInterval(d time.Duration) Option {
	return func(opts *options) {
		opts.pollInterval = d
	}
}

func applyOptions(opts ...Option) *options {
	o := &options{
		teardownTimeout: defaultTeardownTimeout,
		pairTimeout:     defaultPairTimeout,
		pollInterval:    defaultPollInterval,
	}

	for _, opt := range opts {
		opt(o)
	}

	if o.logger == nil {
		o.logger = log.New(loggerModule)
	}

	return o
}
