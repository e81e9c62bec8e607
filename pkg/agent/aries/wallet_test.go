/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package aries

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	mockstorage "github.com/hyperledger/aries-framework-go/component/storageutil/mock/storage"
)

func TestOpenWallet(t *testing.T) {
	t.Run("mem", func(t *testing.T) {
		w, err := openWallet("alice-walletId", applyOptions())
		require.NoError(t, err)
		require.Empty(t, w.path)

		_, err = w.provider.OpenStore("test")
		require.NoError(t, err)

		require.NoError(t, w.delete())
		require.NoError(t, w.delete())
	})

	t.Run("leveldb", func(t *testing.T) {
		root := t.TempDir()

		w, err := openWallet("alice-walletId", applyOptions(WithDatabase(DatabaseTypeLevelDB, root)))
		require.NoError(t, err)
		require.Equal(t, filepath.Join(root, "alice-walletId"), w.path)

		store, err := w.provider.OpenStore("test")
		require.NoError(t, err)
		require.NoError(t, store.Put("k", []byte("v")))

		_, err = os.Stat(w.path)
		require.NoError(t, err)

		require.NoError(t, w.delete())

		_, err = os.Stat(w.path)
		require.True(t, os.IsNotExist(err))
	})

	t.Run("unsupported type", func(t *testing.T) {
		_, err := openWallet("alice-walletId", applyOptions(WithDatabase("couchdb", "")))
		require.EqualError(t, err, "database type [couchdb] not supported")
	})

	t.Run("provided store is closed but kept", func(t *testing.T) {
		prov := mockstorage.NewMockStoreProvider()

		w, err := openWallet("alice-walletId", applyOptions(WithStoreProvider(prov)))
		require.NoError(t, err)
		require.False(t, w.owned)
		require.NoError(t, w.delete())
	})

	t.Run("close failure", func(t *testing.T) {
		prov := mockstorage.NewMockStoreProvider()
		prov.ErrClose = errors.New("close error")

		w, err := openWallet("alice-walletId", applyOptions(WithStoreProvider(prov)))
		require.NoError(t, err)
		require.EqualError(t, w.delete(), "close wallet alice-walletId: close error")
		require.False(t, w.deleted)
	})

	t.Run("retries are bounded", func(t *testing.T) {
		root := t.TempDir()
		blocker := filepath.Join(root, "file")
		require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

		_, err := openWallet("alice-walletId",
			applyOptions(WithDatabase(DatabaseTypeLevelDB, blocker), WithDatabaseTimeout(0)))
		require.Error(t, err)
		require.Contains(t, err.Error(), "failed to open wallet alice-walletId")
	})
}
