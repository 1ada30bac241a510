package utils

import (
	"sync"
	"testing"
	"time"
)

func TestEventBufferBatchesWithinWindow(t *testing.T) {
	var mu sync.Mutex
	var batches [][]int

	buf := NewEventBuffer(50*time.Millisecond, func(items []int) {
		mu.Lock()
		batches = append(batches, items)
		mu.Unlock()
	})

	buf.Add(1)
	buf.Add(2, 3)

	time.Sleep(120 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(batches) != 1 {
		t.Fatalf("expected 1 batch, got %d", len(batches))
	}
	got := batches[0]
	if len(got) != 3 || got[0] != 1 || got[1] != 2 || got[2] != 3 {
		t.Errorf("batch = %v, want [1 2 3]", got)
	}
}

func TestEventBufferSeparateWindows(t *testing.T) {
	var mu sync.Mutex
	var batches [][]int

	buf := NewEventBuffer(30*time.Millisecond, func(items []int) {
		mu.Lock()
		batches = append(batches, items)
		mu.Unlock()
	})

	buf.Add(1)
	time.Sleep(80 * time.Millisecond)
	buf.Add(2)
	time.Sleep(80 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(batches) != 2 {
		t.Fatalf("expected 2 batches, got %d", len(batches))
	}
}

func TestEventBufferCloseFlushes(t *testing.T) {
	var mu sync.Mutex
	var flushed []string

	buf := NewEventBuffer(time.Hour, func(items []string) {
		mu.Lock()
		flushed = append(flushed, items...)
		mu.Unlock()
	})

	buf.Add("a", "b")
	buf.Close()

	mu.Lock()
	defer mu.Unlock()
	if len(flushed) != 2 {
		t.Fatalf("expected pending items flushed on close, got %v", flushed)
	}

	buf.Add("dropped")
	if len(flushed) != 2 {
		t.Error("items added after close should be dropped")
	}
}
