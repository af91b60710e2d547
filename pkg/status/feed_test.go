package status

import "testing"

type workerIdle struct{ WorkerID int }

func TestFeedPublishSubscribe(t *testing.T) {
	f := NewFeed()
	ch := Subscribe[workerIdle](f, "worker.status")

	f.Publish("worker.status", workerIdle{WorkerID: 3})
	f.Publish("worker.status", "not-a-workerIdle-value")

	got := <-ch
	if got.WorkerID != 3 {
		t.Fatalf("got %+v", got)
	}
}

func TestFeedDropsOnSlowSubscriber(t *testing.T) {
	f := NewFeed()
	_ = Subscribe[int](f, "t")
	for i := 0; i < 200; i++ {
		f.Publish("t", i)
	}
}
