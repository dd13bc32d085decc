// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package workers

import (
	"context"
	"sync"

	"github.com/MKhiriev/go-recipe-sync/internal/logger"
)

// Workers starts a fixed set of workers together and stops them in reverse
// order.
type Workers struct {
	workers []Worker

	mu      sync.Mutex
	running bool

	logger *logger.Logger
}

// New returns a Workers aggregate. Nil workers are skipped, so optional jobs
// can be passed unconditionally.
func New(logger *logger.Logger, workers ...Worker) *Workers {
	w := &Workers{logger: logger}
	for _, worker := range workers {
		if worker != nil {
			w.workers = append(w.workers, worker)
		}
	}
	return w
}

// Start starts every worker. Calling Start on running workers is a no-op.
func (w *Workers) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return
	}
	w.running = true

	for _, worker := range w.workers {
		worker.Start(ctx)
	}
	w.logger.Debug().Int("count", len(w.workers)).Msg("workers started")
}

// Stop stops every worker and waits for them to exit.
func (w *Workers) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}
	w.running = false

	for i := len(w.workers) - 1; i >= 0; i-- {
		w.workers[i].Stop()
	}
	w.logger.Debug().Int("count", len(w.workers)).Msg("workers stopped")
}

// Names lists the managed workers in start order.
func (w *Workers) Names() []string {
	names := make([]string, 0, len(w.workers))
	for _, worker := range w.workers {
		names = append(names, worker.Name())
	}
	return names
}
