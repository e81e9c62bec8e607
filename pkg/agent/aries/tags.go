/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package aries

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	spilog "github.com/hyperledger/aries-framework-go/spi/log"
	"github.com/hyperledger/aries-framework-go/spi/storage"
)

const (
	tagStoreName = "connectiontags"
	tagRecordTag = "connectiontag"
)

// tagStore persists connection tags in the agent's wallet, keyed by connection id.
type tagStore struct {
	store  storage.Store
	logger spilog.Logger
}

func openTagStore(prov storage.Provider, logger spilog.Logger) (*tagStore, error) {
	store, err := prov.OpenStore(tagStoreName)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store : %w", tagStoreName, err)
	}

	err = prov.SetStoreConfig(tagStoreName, storage.StoreConfiguration{TagNames: []string{tagRecordTag}})
	if err != nil {
		return nil, fmt.Errorf("failed to set %s store configuration : %w", tagStoreName, err)
	}

	return &tagStore{store: store, logger: logger}, nil
}

func (s *tagStore) save(connectionID string, tags []string) error {
	sorted := append([]string(nil), tags...)
	sort.Strings(sorted)

	b, err := json.Marshal(sorted)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}

	if err := s.store.Put(connectionID, b, storage.Tag{Name: tagRecordTag}); err != nil {
		return fmt.Errorf("save tags of connection %s: %w", connectionID, err)
	}

	return nil
}

// get returns nil when the connection has never been tagged.
func (s *tagStore) get(connectionID string) ([]string, error) {
	b, err := s.store.Get(connectionID)
	if errors.Is(err, storage.ErrDataNotFound) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("get tags of connection %s: %w", connectionID, err)
	}

	var tags []string

	if err := json.Unmarshal(b, &tags); err != nil {
		return nil, fmt.Errorf("unmarshal tags of connection %s: %w", connectionID, err)
	}

	return tags, nil
}

// clear deletes every tag record.
func (s *tagStore) clear() error {
	iter, err := s.store.Query(tagRecordTag)
	if err != nil {
		return fmt.Errorf("query tag records: %w", err)
	}

	defer storage.Close(iter, s.logger)

	var keys []string

	more, err := iter.Next()
	for ; more && err == nil; more, err = iter.Next() {
		key, keyErr := iter.Key()
		if keyErr != nil {
			return fmt.Errorf("read tag record key: %w", keyErr)
		}

		keys = append(keys, key)
	}

	if err != nil {
		return fmt.Errorf("iterate tag records: %w", err)
	}

	for _, key := range keys {
		if err := s.store.Delete(key); err != nil {
			return fmt.Errorf("delete tags of connection %s: %w", key, err)
		}
	}

	return nil
}
