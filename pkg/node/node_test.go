package node

import (
	"testing"

	"github.com/vertexflow/sigcollect/pkg/graph"
)

func TestOnWorkerStatusForwardsOnlyOnceAllIdle(t *testing.T) {
	n := New(Config{Index: 0, WorkerIDs: []int{0, 1}})

	var forwarded []graph.WorkerStatus
	forward := func(st graph.WorkerStatus) error {
		forwarded = append(forwarded, st)
		return nil
	}

	n.OnWorkerStatus(graph.WorkerStatus{WorkerID: 0, IsIdle: true}, forward)
	if len(forwarded) != 0 {
		t.Fatalf("should not forward until every hosted worker is idle, got %v", forwarded)
	}

	n.OnWorkerStatus(graph.WorkerStatus{WorkerID: 1, IsIdle: true}, forward)
	if len(forwarded) != 2 {
		t.Fatalf("forwarded = %v, want both worker statuses once all idle", forwarded)
	}
}

func TestOnWorkerStatusResetsForwardingOnBusyAgain(t *testing.T) {
	n := New(Config{Index: 0, WorkerIDs: []int{0, 1}})
	forward := func(graph.WorkerStatus) error { return nil }

	n.OnWorkerStatus(graph.WorkerStatus{WorkerID: 0, IsIdle: true}, forward)
	n.OnWorkerStatus(graph.WorkerStatus{WorkerID: 1, IsIdle: true}, forward)
	if n.numberOfIdleWorkers != 2 {
		t.Fatalf("numberOfIdleWorkers = %d, want 2", n.numberOfIdleWorkers)
	}

	n.OnWorkerStatus(graph.WorkerStatus{WorkerID: 0, IsIdle: false}, forward)
	if n.numberOfIdleWorkers != 1 {
		t.Fatalf("numberOfIdleWorkers = %d, want 1 after worker 0 goes busy again", n.numberOfIdleWorkers)
	}

	var forwardedAgain []graph.WorkerStatus
	n.OnWorkerStatus(graph.WorkerStatus{WorkerID: 0, IsIdle: true}, func(st graph.WorkerStatus) error {
		forwardedAgain = append(forwardedAgain, st)
		return nil
	})
	if len(forwardedAgain) != 2 {
		t.Fatalf("forwardedAgain = %v, want both statuses re-forwarded after the reset", forwardedAgain)
	}
}

func TestHandleMessageBootstrapRequestDoesNotCountAsReceived(t *testing.T) {
	n := New(Config{Index: 0, WorkerIDs: []int{0}})
	req := graph.Request{
		Command:   Command(func(n *NodeActor) any { return nil }),
		Bootstrap: true,
	}
	n.HandleMessage(req, func(graph.WorkerStatus) error { return nil })
	if n.receivedMessages != 0 {
		t.Fatalf("receivedMessages = %d, want 0 (bootstrap messages are exempt)", n.receivedMessages)
	}
}

func TestHandleMessageOrdinaryRequestCountsAsReceived(t *testing.T) {
	n := New(Config{Index: 0, WorkerIDs: []int{0}})
	called := false
	req := graph.Request{
		Command: Command(func(n *NodeActor) any { called = true; return 42 }),
	}
	var got any
	req.Respond = func(result any) { got = result }

	n.HandleMessage(req, func(graph.WorkerStatus) error { return nil })
	if n.receivedMessages != 1 {
		t.Fatalf("receivedMessages = %d, want 1", n.receivedMessages)
	}
	if !called {
		t.Fatal("command should have been evaluated")
	}
	if got != 42 {
		t.Fatalf("reply = %v, want 42", got)
	}
}

func TestStatusReflectsRecordedSentCounters(t *testing.T) {
	n := New(Config{Index: 3, WorkerIDs: []int{6, 7}})
	n.RecordSent(5, 2, 1, 0)
	st := n.Status()
	if st.NodeID != 3 || st.Sent.ToWorkers != 5 || st.Sent.ToNodes != 2 || st.Sent.ToCoordinator != 1 {
		t.Fatalf("unexpected status: %+v", st)
	}
}
