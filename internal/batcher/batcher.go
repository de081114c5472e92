// Package batcher turns a stream of individual samples into batches for
// the dispatcher. Add never blocks on store IO: full batches are handed
// to an async flush goroutine, with an inline flush as safety valve when
// the flush queue itself is full.
package batcher

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/tinytelemetry/metricbridge/internal/model"
)

// DefaultFlushQueueSize is the number of batches that can be queued for async flushing.
const DefaultFlushQueueSize = 64

// Sink receives completed batches.
type Sink interface {
	Process(ctx context.Context, batch []model.Sample) error
}

// Config holds tunable parameters for the batcher.
type Config struct {
	BatchSize      int
	FlushInterval  time.Duration
	FlushQueueSize int
}

// Batcher accumulates samples and flushes them to the sink by size or
// interval, whichever comes first.
type Batcher struct {
	sink          Sink
	logger        *zap.Logger
	mu            sync.Mutex
	pending       []model.Sample
	flushChan     chan []model.Sample
	maxBatch      int
	flushInterval time.Duration
	done          chan struct{}
	wg            sync.WaitGroup
	tickWg        sync.WaitGroup // separate WaitGroup for tickLoop

	// backpressureCount tracks inline flushes for throttled logging.
	backpressureCount atomic.Int64
	lastBPLog         atomic.Int64 // unix timestamp of last backpressure log
}

// New creates a batcher flushing to the sink.
func New(sink Sink, logger *zap.Logger, conf ...Config) *Batcher {
	batchSize := model.DefaultBatchSize
	flushInterval := model.DefaultFlushInterval
	flushQueueSize := DefaultFlushQueueSize
	if len(conf) > 0 {
		if conf[0].BatchSize > 0 {
			batchSize = conf[0].BatchSize
		}
		if conf[0].FlushInterval > 0 {
			flushInterval = conf[0].FlushInterval
		}
		if conf[0].FlushQueueSize > 0 {
			flushQueueSize = conf[0].FlushQueueSize
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	b := &Batcher{
		sink:          sink,
		logger:        logger,
		pending:       make([]model.Sample, 0, batchSize),
		flushChan:     make(chan []model.Sample, flushQueueSize),
		maxBatch:      batchSize,
		flushInterval: flushInterval,
		done:          make(chan struct{}),
	}

	b.wg.Add(1)
	go b.flushWorker()

	b.wg.Add(1)
	b.tickWg.Add(1)
	go b.tickLoop()

	return b
}

// Add queues one sample for dispatch. Never blocks on store IO.
func (b *Batcher) Add(sample model.Sample) {
	b.mu.Lock()
	b.pending = append(b.pending, sample)
	shouldFlush := len(b.pending) >= b.maxBatch
	var batch []model.Sample
	if shouldFlush {
		batch = b.pending
		b.pending = make([]model.Sample, 0, b.maxBatch)
	}
	b.mu.Unlock()

	if shouldFlush {
		select {
		case b.flushChan <- batch:
		default:
			// Backpressure safety valve: flush inline instead of spawning
			// unbounded goroutines under sustained overload.
			b.logBackpressure()
			b.flushBatch(batch)
		}
	}
}

// Stop flushes remaining samples and waits for all dispatches to complete.
func (b *Batcher) Stop() {
	close(b.done)
	// Wait for tickLoop's final drain before closing flushChan, so all
	// pending samples reach the flush channel.
	b.tickWg.Wait()
	close(b.flushChan)
	b.wg.Wait()
}

// tickLoop periodically drains the pending buffer.
func (b *Batcher) tickLoop() {
	defer b.wg.Done()
	defer b.tickWg.Done()
	ticker := time.NewTicker(b.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			b.drainPending()
		case <-b.done:
			b.drainPending() // final drain
			return
		}
	}
}

// drainPending moves pending samples to the flush channel without
// blocking on the dispatcher.
func (b *Batcher) drainPending() {
	b.mu.Lock()
	if len(b.pending) == 0 {
		b.mu.Unlock()
		return
	}
	batch := b.pending
	b.pending = make([]model.Sample, 0, b.maxBatch)
	b.mu.Unlock()

	select {
	case b.flushChan <- batch:
	default:
		b.logBackpressure()
		b.flushBatch(batch)
	}
}

// flushWorker processes batches from the flush channel.
func (b *Batcher) flushWorker() {
	defer b.wg.Done()
	for batch := range b.flushChan {
		b.flushBatch(batch)
	}
}

func (b *Batcher) flushBatch(batch []model.Sample) {
	if len(batch) == 0 {
		return
	}
	if err := b.sink.Process(context.Background(), batch); err != nil {
		b.logger.Error("batcher: dispatch failed", zap.Int("samples", len(batch)), zap.Error(err))
	}
}

// logBackpressure emits a throttled warning (at most once per 10 seconds)
// when the flush channel is full and an inline flush is triggered.
func (b *Batcher) logBackpressure() {
	count := b.backpressureCount.Add(1)
	now := time.Now().Unix()
	last := b.lastBPLog.Load()
	if now-last >= 10 && b.lastBPLog.CompareAndSwap(last, now) {
		b.logger.Warn("batcher: backpressure, inline flushes",
			zap.Int64("count", count))
	}
}
