package input

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"sync"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/nxadm/tail"
	"payloadlog.szuro.net/internal/config"
	"payloadlog.szuro.net/internal/logger"
	pluginPkg "payloadlog.szuro.net/pkg/plugin"
)

const FILE_INPUT = "file"

// FileInput replays NDJSON capture files. Read offsets are kept in a
// badger index so a restart continues where the previous run stopped.
type FileInput struct {
	baseInput
	activeTails []*tail.Tail
	fileIndex   *badger.DB
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
}

func NewFileInput(conf config.PayloadLogConf, dispatcher Dispatcher) (*FileInput, error) {
	dbPath := path.Join(conf.WorkingDir, "index.db")
	db, err := badger.Open(badger.DefaultOptions(dbPath).WithLogger(logger.Default()))
	if err != nil {
		return nil, fmt.Errorf("failed to open file index %s: %w", dbPath, err)
	}
	logger.Debug("Initialized BadgerDB for file index", slog.String("path", dbPath))

	ctx, cancel := context.WithCancel(context.Background())
	return &FileInput{
		baseInput: baseInput{
			name:       FILE_INPUT,
			config:     conf,
			dispatcher: dispatcher,
		},
		fileIndex: db,
		ctx:       ctx,
		cancel:    cancel,
	}, nil
}

func (fi *FileInput) IsReady() bool {
	return fi.fileIndex != nil
}

// Prepare opens a tail for every configured capture file, starting at the
// saved offset.
func (fi *FileInput) Prepare() error {
	for _, filename := range fi.config.File.Paths {
		offset := fi.loadOffset(filename)
		t, err := tail.TailFile(filename, tail.Config{
			Location: &tail.SeekInfo{Offset: offset, Whence: io.SeekStart},
			ReOpen:   true,
			Follow:   true,
			Poll:     fi.config.File.Poll,
			Logger:   logger.Default(),
		})
		if err != nil {
			return fmt.Errorf("cannot tail %s: %w", filename, err)
		}
		logger.Info("Tailing capture file", slog.String("file", filename), slog.Int64("offset", offset))
		fi.activeTails = append(fi.activeTails, t)
	}
	return nil
}

func (fi *FileInput) Start() {
	ndjsonLinesReceived.WithLabelValues(FILE_INPUT).Add(0)
	ndjsonParseErrors.WithLabelValues(FILE_INPUT).Add(0)

	for _, t := range fi.activeTails {
		fi.wg.Add(1)
		go fi.consume(t)
	}
}

func (fi *FileInput) consume(t *tail.Tail) {
	defer fi.wg.Done()
	for line := range t.Lines {
		if line.Err != nil {
			logger.Error("Error reading capture file", slog.String("file", t.Filename), slog.Any("error", line.Err))
			continue
		}
		// A failed message is not replayed; the hooks already logged it.
		if status := fi.handleLine(fi.ctx, []byte(line.Text)); status != pluginPkg.StatusSuccess {
			logger.Debug("Skipping failed message", slog.String("file", t.Filename), slog.String("status", status.String()))
		}
	}
}

func (fi *FileInput) Stop() error {
	for _, t := range fi.activeTails {
		offset, err := t.Tell()
		if err != nil {
			logger.Error("cannot get file offset, resetting to 0", slog.String("file", t.Filename), slog.Any("error", err))
			offset = 0
		}
		t.Stop()
		t.Cleanup()

		if err := fi.saveOffset(t.Filename, offset); err != nil {
			logger.Error("error when saving file offset", slog.String("file", t.Filename), slog.Any("error", err))
		}
	}
	fi.wg.Wait()
	fi.cancel()
	fi.activeTails = nil
	return fi.fileIndex.Close()
}

func (fi *FileInput) loadOffset(filename string) (offset int64) {
	err := fi.fileIndex.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(filename))
		if err != nil {
			return err
		}
		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		offset = bytesToInt64(val)
		return nil
	})
	if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
		logger.Error("cannot read file offset, starting at 0", slog.String("file", filename), slog.Any("error", err))
		return 0
	}
	return offset
}

func (fi *FileInput) saveOffset(filename string, offset int64) error {
	return fi.fileIndex.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(filename), int64ToBytes(offset))
	})
}

func int64ToBytes(i int64) []byte {
	bytes := make([]byte, 8)
	binary.BigEndian.PutUint64(bytes, uint64(i))
	return bytes
}

func bytesToInt64(b []byte) int64 {
	if len(b) != 8 {
		return 0
	}
	return int64(binary.BigEndian.Uint64(b))
}
