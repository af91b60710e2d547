package worker

import (
	"context"
	"testing"
	"time"

	"github.com/vertexflow/sigcollect/pkg/graph"
)

func TestPoisonPillRunsCleanUpAndExits(t *testing.T) {
	w, _ := newTestWorker(t, 0, 1)
	v := &counterVertex{id: 1}
	w.store.Put(v)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	if err := w.mailbox.Send(graph.PoisonPill{}); err != nil {
		t.Fatalf("Send PoisonPill failed: %v", err)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not exit after receiving a PoisonPill")
	}
	if w.store.Size() != 0 {
		t.Fatalf("store.Size() = %d, want 0 after PoisonPill CleanUp", w.store.Size())
	}
}
