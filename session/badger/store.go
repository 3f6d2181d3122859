// Copyright 2025 Lexrag Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package badger implements a durable session.Store on BadgerDB. Whole
// transcripts are stored as one mus-serialized value per conversation id;
// loads and swaps are single-key reads and writes.
package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/lexrag/lexrag/core"
	"github.com/lexrag/lexrag/session"
)

const sessionKeyPrefix = "sess"

// Store is a durable session store over BadgerDB.
type Store struct {
	db     *badger.DB
	logger *slog.Logger
}

type badgerLoggerAdapter struct {
	logger *slog.Logger
}

var _ badger.Logger = (*badgerLoggerAdapter)(nil)

func (bl *badgerLoggerAdapter) Errorf(msg string, items ...any) {
	bl.logger.Error(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Warningf(msg string, items ...any) {
	bl.logger.Warn(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Infof(msg string, items ...any) {
	bl.logger.Info(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Debugf(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

// New opens (or creates) a durable store at the given directory.
//
// Returns the session.Store interface to keep the machine backend-agnostic.
func New(path string) (session.Store, error) {
	return open(path, false)
}

// NewInMemory creates a non-persistent store for testing.
func NewInMemory() (session.Store, error) {
	return open("", true)
}

func open(path string, inMemory bool) (*Store, error) {
	var opts badger.Options
	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		info, err := os.Stat(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, err
			}
			if err := os.MkdirAll(path, 0755); err != nil {
				return nil, err
			}
			info, err = os.Stat(path)
			if err != nil {
				return nil, err
			}
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%s is not a directory", path)
		}
		opts = badger.DefaultOptions(path)
	}

	opts.Logger = &badgerLoggerAdapter{logger: slog.Default()}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return &Store{
		db:     db,
		logger: slog.Default().With("component", "badger-sessions"),
	}, nil
}

func makeSessionKey(chatID string) []byte {
	return []byte(sessionKeyPrefix + ":" + chatID)
}

// History returns the persisted transcript, or empty for an unknown id.
func (s *Store) History(ctx context.Context, chatID string) ([]core.Message, error) {
	var messages []core.Message

	err := s.db.View(func(tx *badger.Txn) error {
		item, err := tx.Get(makeSessionKey(chatID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			var err error
			messages, err = unmarshalTranscript(val)
			return err
		})
	})
	if err != nil {
		return nil, err
	}

	if messages == nil {
		messages = []core.Message{}
	}
	return messages, nil
}

// Append loads, extends and rewrites the transcript in one transaction.
func (s *Store) Append(ctx context.Context, chatID string, toAdd ...core.Message) error {
	return s.db.Update(func(tx *badger.Txn) error {
		key := makeSessionKey(chatID)

		var messages []core.Message
		item, err := tx.Get(key)
		if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err == nil {
			err = item.Value(func(val []byte) error {
				messages, err = unmarshalTranscript(val)
				return err
			})
			if err != nil {
				return err
			}
		}

		messages = append(messages, toAdd...)
		return tx.Set(key, marshalTranscript(messages))
	})
}

// Replace swaps the whole transcript.
func (s *Store) Replace(ctx context.Context, chatID string, messages []core.Message) error {
	return s.db.Update(func(tx *badger.Txn) error {
		return tx.Set(makeSessionKey(chatID), marshalTranscript(messages))
	})
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
