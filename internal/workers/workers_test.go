// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package workers

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/MKhiriev/go-recipe-sync/internal/logger"
)

// mockWorker is a test implementation of the Worker interface
// that tracks how many times Start and Stop were called.
type mockWorker struct {
	name       string
	startCount int
	stopCount  int
	events     *[]string
}

func (m *mockWorker) Start(context.Context) {
	m.startCount++
	if m.events != nil {
		*m.events = append(*m.events, "start "+m.name)
	}
}

func (m *mockWorker) Stop() {
	m.stopCount++
	if m.events != nil {
		*m.events = append(*m.events, "stop "+m.name)
	}
}

func (m *mockWorker) Name() string { return m.name }

func TestWorkers_Start_AllWorkersAreStarted(t *testing.T) {
	w1 := &mockWorker{name: "w1"}
	w2 := &mockWorker{name: "w2"}
	w3 := &mockWorker{name: "w3"}

	ws := New(logger.Nop(), w1, w2, w3)
	ws.Start(context.Background())

	for i, w := range []*mockWorker{w1, w2, w3} {
		if w.startCount != 1 {
			t.Errorf("worker[%d]: expected startCount=1, got %d", i, w.startCount)
		}
	}
}

func TestWorkers_Empty(t *testing.T) {
	ws := New(logger.Nop())

	// Should not panic on empty workers list
	ws.Start(context.Background())
	ws.Stop()
}

func TestWorkers_SkipsNil(t *testing.T) {
	w := &mockWorker{name: "sync"}
	ws := New(logger.Nop(), nil, w, nil)

	names := ws.Names()
	if len(names) != 1 || names[0] != "sync" {
		t.Errorf("expected [sync], got %v", names)
	}
}

func TestWorkers_StopInReverseOrder(t *testing.T) {
	var events []string
	ws := New(logger.Nop(),
		&mockWorker{name: "1", events: &events},
		&mockWorker{name: "2", events: &events},
		&mockWorker{name: "3", events: &events},
	)

	ws.Start(context.Background())
	ws.Stop()

	expected := []string{"start 1", "start 2", "start 3", "stop 3", "stop 2", "stop 1"}
	if len(events) != len(expected) {
		t.Fatalf("expected %v, got %v", expected, events)
	}
	for i, v := range expected {
		if events[i] != v {
			t.Errorf("expected events[%d]=%q, got %q", i, v, events[i])
		}
	}
}

func TestWorkers_StartTwiceIsNoop(t *testing.T) {
	w := &mockWorker{name: "w"}
	ws := New(logger.Nop(), w)

	ws.Start(context.Background())
	ws.Start(context.Background())
	ws.Stop()
	ws.Stop()

	if w.startCount != 1 {
		t.Errorf("expected Start to be called exactly once, got %d", w.startCount)
	}
	if w.stopCount != 1 {
		t.Errorf("expected Stop to be called exactly once, got %d", w.stopCount)
	}
}

func TestWorkers_Restart(t *testing.T) {
	w := &mockWorker{name: "w"}
	ws := New(logger.Nop(), w)

	ws.Start(context.Background())
	ws.Stop()
	ws.Start(context.Background())
	ws.Stop()

	if w.startCount != 2 || w.stopCount != 2 {
		t.Errorf("expected 2 starts and 2 stops, got %d/%d", w.startCount, w.stopCount)
	}
}

// tickerWorker is a real goroutine-backed worker used to check that Stop
// leaves nothing running.
type tickerWorker struct {
	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func (w *tickerWorker) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	w.mu.Lock()
	w.cancel = cancel
	w.done = make(chan struct{})
	done := w.done
	w.mu.Unlock()

	go func() {
		defer close(done)
		t := time.NewTicker(time.Millisecond)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
			}
		}
	}()
}

func (w *tickerWorker) Stop() {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.mu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}
}

func (w *tickerWorker) Name() string { return "ticker" }

func TestWorkers_StopLeavesNoGoroutines(t *testing.T) {
	defer goleak.VerifyNone(t)

	ws := New(logger.Nop(), &tickerWorker{}, &tickerWorker{})
	ws.Start(context.Background())
	time.Sleep(5 * time.Millisecond)
	ws.Stop()
}
