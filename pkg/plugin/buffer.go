package plugin

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
)

// BufferedMessage is a message event held back while a sink is unavailable,
// together with the time it was originally received.
type BufferedMessage struct {
	Key        []byte
	ReceivedAt time.Time
	Event      MessageEvent
}

// MessageBuffer keeps message events in a local BadgerDB until the hook's
// destination accepts them again. Entries expire after the configured TTL.
// Keys are UUIDv7, so iteration returns messages in the order they were
// buffered.
type MessageBuffer struct {
	ttl    time.Duration
	db     *badger.DB
	logger hclog.Logger
}

// OpenMessageBuffer opens or creates a buffer in dir.
func OpenMessageBuffer(dir string, ttl time.Duration, logger hclog.Logger) (*MessageBuffer, error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("buffer ttl must be positive, got %s", ttl)
	}
	db, err := badger.Open(badger.DefaultOptions(dir).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("failed to open message buffer %s: %w", dir, err)
	}
	logger.Debug("Initialized BadgerDB for offline buffering", "path", dir)
	return &MessageBuffer{ttl: ttl, db: db, logger: logger}, nil
}

// Add stores one event.
func (b *MessageBuffer) Add(ev *MessageEvent, receivedAt time.Time) error {
	if b == nil || b.db == nil {
		return errors.New("cannot write to nil buffer")
	}
	key, err := uuid.NewV7()
	if err != nil {
		return err
	}

	var value bytes.Buffer
	if err := gob.NewEncoder(&value).Encode(BufferedMessage{ReceivedAt: receivedAt, Event: *ev}); err != nil {
		return err
	}

	return b.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry(key[:], value.Bytes()).WithTTL(b.ttl))
	})
}

// Fetch returns up to batchSize buffered messages, oldest first.
// Entries that cannot be decoded are skipped.
func (b *MessageBuffer) Fetch(batchSize int) (buffered []BufferedMessage, err error) {
	if b == nil || b.db == nil {
		return nil, errors.New("cannot read from nil buffer")
	}

	err = b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchSize = batchSize
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid() && len(buffered) < batchSize; it.Next() {
			item := it.Item()
			val, err := item.ValueCopy(nil)
			if err != nil {
				b.logger.Error("Failed to copy value from buffer", "error", err)
				continue
			}

			var msg BufferedMessage
			if err := gob.NewDecoder(bytes.NewReader(val)).Decode(&msg); err != nil {
				b.logger.Error("Failed to decode from buffer", "error", err)
				continue
			}
			msg.Key = item.KeyCopy(nil)
			buffered = append(buffered, msg)
		}
		return nil
	})
	return buffered, err
}

// Delete removes delivered messages.
func (b *MessageBuffer) Delete(delivered []BufferedMessage) error {
	if b == nil || b.db == nil {
		return errors.New("cannot delete from nil buffer")
	}

	return b.db.Update(func(txn *badger.Txn) error {
		for _, msg := range delivered {
			if err := txn.Delete(msg.Key); err != nil {
				return err
			}
		}
		return nil
	})
}

// Close releases the underlying database.
func (b *MessageBuffer) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}
