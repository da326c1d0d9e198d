package ui

import (
	"io"
	"os"
	"sync"
	"time"
)

// SyncWriter wraps an *os.File and periodically syncs to disk so the build
// log stays readable from outside while a long docker build is running,
// without the overhead of syncing after every write.
type SyncWriter struct {
	f        *os.File
	mu       sync.Mutex
	dirty    bool
	stopCh   chan struct{}
	doneCh   chan struct{}
	interval time.Duration
}

// NewSyncWriter creates a SyncWriter that syncs at the given interval.
// A typical interval is 100-500ms.
func NewSyncWriter(f *os.File, interval time.Duration) *SyncWriter {
	if interval <= 0 {
		interval = 200 * time.Millisecond
	}
	sw := &SyncWriter{
		f:        f,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
		interval: interval,
	}
	go sw.syncLoop()
	return sw
}

func (sw *SyncWriter) syncLoop() {
	defer close(sw.doneCh)
	ticker := time.NewTicker(sw.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			sw.mu.Lock()
			if sw.dirty {
				sw.f.Sync()
				sw.dirty = false
			}
			sw.mu.Unlock()
		case <-sw.stopCh:
			return
		}
	}
}

// Write implements io.Writer.
func (sw *SyncWriter) Write(p []byte) (int, error) {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	n, err := sw.f.Write(p)
	if n > 0 {
		sw.dirty = true
	}
	return n, err
}

// Sync flushes pending data to disk immediately.
func (sw *SyncWriter) Sync() error {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	sw.dirty = false
	return sw.f.Sync()
}

// Close stops the sync loop, syncs once more, and closes the file.
func (sw *SyncWriter) Close() error {
	close(sw.stopCh)
	<-sw.doneCh

	sw.mu.Lock()
	defer sw.mu.Unlock()

	sw.f.Sync()
	return sw.f.Close()
}

var _ io.WriteCloser = (*SyncWriter)(nil)
