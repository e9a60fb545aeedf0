package core

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestSequencerPreservesOrderPerRoom(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	seq := NewSequencer(ctx, time.Second)

	var mu sync.Mutex
	var got []int
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		i := i
		wg.Add(1)
		if !seq.Submit(1, func() {
			defer wg.Done()
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
		}) {
			t.Fatalf("submit %d rejected", i)
		}
	}
	wg.Wait()

	for i, v := range got {
		if v != i {
			t.Fatalf("job %d ran at position %d", v, i)
		}
	}
}

func TestSequencerWorkerExitsWhenIdle(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	seq := NewSequencer(ctx, 20*time.Millisecond)

	ran := make(chan struct{})
	seq.Submit(4, func() { close(ran) })
	<-ran

	deadline := time.Now().Add(2 * time.Second)
	for seq.Active() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("worker did not exit after idling")
		}
		time.Sleep(10 * time.Millisecond)
	}

	again := make(chan struct{})
	if !seq.Submit(4, func() { close(again) }) {
		t.Fatalf("submit after idle exit rejected")
	}
	select {
	case <-again:
	case <-time.After(2 * time.Second):
		t.Fatalf("job after idle exit did not run")
	}
}

func TestSequencerRejectsAfterShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	seq := NewSequencer(ctx, time.Second)
	seq.Submit(1, func() {})

	cancel()
	seq.Wait()

	if seq.Submit(1, func() {}) {
		t.Fatalf("submit after shutdown should be rejected")
	}
}
