package store

import (
	"sync"

	"github.com/inabajunmr/autosequence/internal/capture"
	"go.uber.org/zap"
)

type snapshotJob struct {
	records []capture.RequestRecord
	domains []capture.RegistryEntry
}

// Writer persists capture snapshots asynchronously. The mutation path never
// waits for a write; pending snapshots coalesce so only the latest is
// written when the database lags. Implements capture.Persister.
type Writer struct {
	store  *Store
	logger *zap.Logger

	mu      sync.Mutex
	pending *snapshotJob
	kick    chan struct{}
	done    chan struct{}
	closed  bool
}

// NewWriter creates and starts a writer over the store.
func NewWriter(store *Store, logger *zap.Logger) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &Writer{
		store:  store,
		logger: logger,
		kick:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go w.run()
	return w
}

// Persist queues a snapshot for writing, replacing any not-yet-written one.
func (w *Writer) Persist(records []capture.RequestRecord, domains []capture.RegistryEntry) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.pending = &snapshotJob{records: records, domains: domains}
	select {
	case w.kick <- struct{}{}:
	default:
	}
	w.mu.Unlock()
}

func (w *Writer) run() {
	for range w.kick {
		w.flush()
	}
	w.flush()
	close(w.done)
}

func (w *Writer) flush() {
	w.mu.Lock()
	job := w.pending
	w.pending = nil
	w.mu.Unlock()

	if job == nil {
		return
	}
	if err := w.store.SaveCapture(job.records, job.domains); err != nil {
		w.logger.Warn("snapshot write failed", zap.Error(err))
	}
}

// Close flushes any pending snapshot and stops the writer.
func (w *Writer) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	w.mu.Unlock()

	close(w.kick)
	<-w.done
}
