// Package history keeps the telemetry time series in an embedded badger
// store so firing curves can be charted after the fact.
package history

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"sync"
	"time"

	"kiln_controller/internal/logger"
	"kiln_controller/internal/models"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
)

const defaultBatchSize = 6

// Options configures the store.
type Options struct {
	Path      string
	InMemory  bool
	Retention time.Duration // 0 keeps samples forever
	BatchSize int
}

// Store batches telemetry samples and writes them keyed by timestamp.
type Store struct {
	db        *badger.DB
	retention time.Duration
	batchSize int
	log       *logger.Logger

	mu     sync.Mutex
	buffer []models.TelemetrySample
}

// Open opens or creates the store.
func Open(o Options, log *logger.Logger) (*Store, error) {
	opts := badger.DefaultOptions(o.Path).
		WithCompression(options.ZSTD).
		WithNumVersionsToKeep(1).
		WithLogger(nil)
	if o.InMemory {
		opts = opts.WithDir("").WithValueDir("").WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open history store: %w", err)
	}
	if o.BatchSize <= 0 {
		o.BatchSize = defaultBatchSize
	}
	log.Infow("history_opened", "path", o.Path, "in_memory", o.InMemory, "retention", o.Retention)
	return &Store{
		db:        db,
		retention: o.Retention,
		batchSize: o.BatchSize,
		log:       log,
		buffer:    make([]models.TelemetrySample, 0, o.BatchSize),
	}, nil
}

// Append queues s and writes the batch once it is full.
func (s *Store) Append(sample models.TelemetrySample) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buffer = append(s.buffer, sample)
	if len(s.buffer) >= s.batchSize {
		return s.flushLocked()
	}
	return nil
}

// Flush writes any queued samples.
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked()
}

func (s *Store) flushLocked() error {
	if len(s.buffer) == 0 {
		return nil
	}
	err := s.writeBatch(s.buffer)
	s.buffer = s.buffer[:0]
	return err
}

func (s *Store) writeBatch(samples []models.TelemetrySample) error {
	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	for _, sample := range samples {
		v, err := encode(sample)
		if err != nil {
			return fmt.Errorf("encode sample: %w", err)
		}
		e := badger.NewEntry(Key(sample.At), v)
		if s.retention > 0 {
			e = e.WithTTL(s.retention)
		}
		if err := wb.SetEntry(e); err != nil {
			return fmt.Errorf("write batch: %w", err)
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("flush batch: %w", err)
	}
	return nil
}

// Range returns samples with from <= At <= to in chronological order.
// Queued samples are flushed first.
func (s *Store) Range(from, to time.Time) ([]models.TelemetrySample, error) {
	if err := s.Flush(); err != nil {
		return nil, err
	}
	var out []models.TelemetrySample
	end := Key(to)
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(Key(from)); it.Valid(); it.Next() {
			item := it.Item()
			if bytes.Compare(item.Key(), end) > 0 {
				break
			}
			err := item.Value(func(val []byte) error {
				sample, err := decode(val)
				if err != nil {
					return err
				}
				out = append(out, sample)
				return nil
			})
			if err != nil {
				return fmt.Errorf("decode sample: %w", err)
			}
		}
		return nil
	})
	return out, err
}

// Close flushes pending samples and closes the database. The close is
// attempted even when the flush fails.
func (s *Store) Close() error {
	flushErr := s.Flush()
	closeErr := s.db.Close()
	if flushErr != nil {
		s.log.Errorw("history_flush_failed", "err", flushErr)
		return flushErr
	}
	if closeErr != nil {
		return fmt.Errorf("close history store: %w", closeErr)
	}
	return nil
}

// Key encodes t so that keys sort chronologically.
func Key(t time.Time) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, uint64(t.UnixNano()))
	return k
}

func encode(s models.TelemetrySample) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decode(b []byte) (models.TelemetrySample, error) {
	var s models.TelemetrySample
	err := gob.NewDecoder(bytes.NewReader(b)).Decode(&s)
	return s, err
}
