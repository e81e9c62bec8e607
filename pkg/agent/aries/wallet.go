/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package aries

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/hyperledger/aries-framework-go/component/storage/leveldb"
	"github.com/hyperledger/aries-framework-go/component/storageutil/mem"
	"github.com/hyperledger/aries-framework-go/spi/storage"
)

var supportedStorageProviders = map[string]func(path string) (storage.Provider, error){
	DatabaseTypeMem: func(_ string) (storage.Provider, error) { // nolint:unparam
		return mem.NewProvider(), nil
	},
	DatabaseTypeLevelDB: func(path string) (storage.Provider, error) {
		if err := os.MkdirAll(path, os.ModePerm); err != nil {
			return nil, err
		}

		return leveldb.NewProvider(path), nil
	},
}

// wallet is the storage owned by one agent. Everything the framework persists for the agent lives in it.
type wallet struct {
	id       string
	path     string
	provider storage.Provider
	owned    bool
	deleted  bool
}

func openWallet(id string, o *options) (*wallet, error) {
	if o.storeProvider != nil {
		return &wallet{id: id, provider: o.storeProvider}, nil
	}

	provider, supported := supportedStorageProviders[o.dbType]
	if !supported {
		return nil, fmt.Errorf("database type [%s] not supported", o.dbType)
	}

	w := &wallet{id: id, owned: true}

	if o.dbType == DatabaseTypeLevelDB {
		w.path = filepath.Join(o.dbPath, id)
	}

	err := backoff.RetryNotify(
		func() error {
			var openErr error
			w.provider, openErr = provider(w.path)

			return openErr
		},
		backoff.WithMaxRetries(backoff.NewConstantBackOff(time.Second), o.dbRetries),
		func(retryErr error, t time.Duration) {
			o.logger.Warnf("failed to open wallet %s, will sleep for %s before trying again : %s", id, t, retryErr)
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open wallet %s : %w", id, err)
	}

	return w, nil
}

// delete closes the wallet and removes whatever it persisted. A wallet provided by the caller is only closed.
func (w *wallet) delete() error {
	if w.deleted {
		return nil
	}

	if err := w.provider.Close(); err != nil {
		return fmt.Errorf("close wallet %s: %w", w.id, err)
	}

	if w.owned && w.path != "" {
		if err := os.RemoveAll(w.path); err != nil {
			return fmt.Errorf("remove wallet %s: %w", w.id, err)
		}
	}

	w.deleted = true

	return nil
}
