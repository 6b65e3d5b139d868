package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestBroadcastDeliversIdenticalPayloadToAll(t *testing.T) {
	r := NewRegistry(0)
	b := NewBroadcaster(mustTestLogger(t), r, BroadcasterOptions{})
	socks := []*fakeSocket{newFakeSocket(), newFakeSocket(), newFakeSocket()}
	for _, s := range socks {
		registerFake(t, r, s, time.Second)
	}

	ev := NewUploadEvent(NewFileSummary(7, "sales.csv", 1024, time.Unix(0, 0)))
	want, _ := json.Marshal(ev)

	rep := b.Broadcast(context.Background(), ev)
	if rep.Attempted != 3 || rep.Delivered != 3 || len(rep.Evicted) != 0 {
		t.Fatalf("report: %+v", rep)
	}
	for i, s := range socks {
		frames := s.Frames()
		if len(frames) != 1 || frames[0] != string(want) {
			t.Fatalf("socket %d frames: want=[%s] got=%v", i, want, frames)
		}
	}
}

func TestBroadcastWithNoConnections(t *testing.T) {
	b := NewBroadcaster(mustTestLogger(t), NewRegistry(0), BroadcasterOptions{})
	rep := b.Broadcast(context.Background(), NewDeleteEvent(1))
	if rep.Attempted != 0 || rep.Delivered != 0 {
		t.Fatalf("report: %+v", rep)
	}
}

func TestBroadcastEvictsFailedConnectionOnly(t *testing.T) {
	r := NewRegistry(0)
	b := NewBroadcaster(mustTestLogger(t), r, BroadcasterOptions{})

	a := newFakeSocket()
	broken := newFakeSocket()
	broken.writeErr = errors.New("connection reset")
	c := newFakeSocket()
	registerFake(t, r, a, time.Second)
	bad := registerFake(t, r, broken, time.Second)
	registerFake(t, r, c, time.Second)

	rep := b.Broadcast(context.Background(), NewDeleteEvent(42))
	if rep.Delivered != 2 {
		t.Fatalf("delivered: want=2 got=%d", rep.Delivered)
	}
	if len(rep.Evicted) != 1 || rep.Evicted[0] != bad.ID() {
		t.Fatalf("evicted: want=[%d] got=%v", bad.ID(), rep.Evicted)
	}
	if r.Len() != 2 || r.Contains(bad) {
		t.Fatalf("failed conn should be removed, registry len=%d", r.Len())
	}
	if bad.State() != StateClosed {
		t.Fatalf("failed conn state: want=%s got=%s", StateClosed, bad.State())
	}

	want := `{"action":"delete","file_id":42,"type":"csv_list_updated"}`
	for name, s := range map[string]*fakeSocket{"a": a, "c": c} {
		if got := s.Frames(); len(got) != 1 || got[0] != want {
			t.Fatalf("%s frames: want=[%s] got=%v", name, want, got)
		}
	}

	rep = b.Broadcast(context.Background(), NewDeleteEvent(43))
	if rep.Attempted != 2 || rep.Delivered != 2 {
		t.Fatalf("second broadcast should skip the evicted conn: %+v", rep)
	}
}

func TestBroadcastStalledConnectionDoesNotBlockOthers(t *testing.T) {
	r := NewRegistry(0)
	b := NewBroadcaster(mustTestLogger(t), r, BroadcasterOptions{})

	const timeout = 100 * time.Millisecond
	stalled := newBlockingSocket()
	defer stalled.release()
	fast := newFakeSocket()
	slow := registerFake(t, r, stalled, timeout)
	registerFake(t, r, fast, timeout)

	start := time.Now()
	rep := b.Broadcast(context.Background(), NewDeleteEvent(1))
	elapsed := time.Since(start)

	if elapsed > 2*time.Second {
		t.Fatalf("broadcast took %s, should be bounded by the send timeout", elapsed)
	}
	if len(fast.Frames()) != 1 {
		t.Fatalf("fast conn should have received the event")
	}
	if len(rep.Evicted) != 1 || rep.Evicted[0] != slow.ID() {
		t.Fatalf("evicted: want=[%d] got=%v", slow.ID(), rep.Evicted)
	}
	var sendErr error
	for _, d := range rep.Deliveries {
		if d.ConnID == slow.ID() {
			sendErr = d.Err
		}
	}
	if !errors.Is(sendErr, ErrSendTimeout) {
		t.Fatalf("stalled delivery error: want=%v got=%v", ErrSendTimeout, sendErr)
	}
}

func TestBroadcastToleratesConcurrentDeregister(t *testing.T) {
	r := NewRegistry(0)
	b := NewBroadcaster(mustTestLogger(t), r, BroadcasterOptions{})

	broken := newFakeSocket()
	broken.writeErr = errors.New("eof")
	c := registerFake(t, r, broken, time.Second)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			r.Deregister(c)
		}
	}()
	b.Broadcast(context.Background(), NewDeleteEvent(1))
	<-done

	if r.Len() != 0 {
		t.Fatalf("len: want=0 got=%d", r.Len())
	}
	if n := broken.CloseCount(); n > 1 {
		t.Fatalf("socket closed %d times", n)
	}
}

func TestBroadcastPreservesPerConnectionOrder(t *testing.T) {
	r := NewRegistry(0)
	b := NewBroadcaster(mustTestLogger(t), r, BroadcasterOptions{MaxParallel: 2})
	socks := []*fakeSocket{newFakeSocket(), newFakeSocket(), newFakeSocket(), newFakeSocket()}
	for _, s := range socks {
		registerFake(t, r, s, time.Second)
	}

	const n = 20
	for i := 1; i <= n; i++ {
		b.Broadcast(context.Background(), NewDeleteEvent(uint(i)))
	}

	for si, s := range socks {
		frames := s.Frames()
		if len(frames) != n {
			t.Fatalf("socket %d frames: want=%d got=%d", si, n, len(frames))
		}
		for i, f := range frames {
			want := fmt.Sprintf(`{"action":"delete","file_id":%d,"type":"csv_list_updated"}`, i+1)
			if f != want {
				t.Fatalf("socket %d frame %d: want=%s got=%s", si, i, want, f)
			}
		}
	}
}

func TestBroadcastOnlyReachesConnectionsRegisteredAtStart(t *testing.T) {
	r := NewRegistry(0)
	b := NewBroadcaster(mustTestLogger(t), r, BroadcasterOptions{})

	early := newFakeSocket()
	registerFake(t, r, early, time.Second)
	b.Broadcast(context.Background(), NewDeleteEvent(1))

	late := newFakeSocket()
	registerFake(t, r, late, time.Second)

	if len(late.Frames()) != 0 {
		t.Fatalf("late conn should not receive earlier events")
	}
	if len(early.Frames()) != 1 {
		t.Fatalf("early conn frames: want=1 got=%d", len(early.Frames()))
	}
}

func TestPublishRunDispatchesInOrder(t *testing.T) {
	r := NewRegistry(0)
	b := NewBroadcaster(mustTestLogger(t), r, BroadcasterOptions{})
	sock := newFakeSocket()
	registerFake(t, r, sock, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runDone := make(chan error, 1)
	go func() { runDone <- b.Run(ctx) }()

	b.Publish(NewDeleteEvent(1))
	b.Publish(NewDeleteEvent(2))

	deadline := time.Now().Add(2 * time.Second)
	for len(sock.Frames()) < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	frames := sock.Frames()
	if len(frames) != 2 {
		t.Fatalf("frames: want=2 got=%d", len(frames))
	}
	if frames[0] != `{"action":"delete","file_id":1,"type":"csv_list_updated"}` {
		t.Fatalf("first frame out of order: %s", frames[0])
	}

	cancel()
	select {
	case err := <-runDone:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("Run did not stop after cancel")
	}
}

func TestPublishDropsWhenQueueFull(t *testing.T) {
	b := NewBroadcaster(mustTestLogger(t), NewRegistry(0), BroadcasterOptions{QueueSize: 1})
	b.Publish(NewDeleteEvent(1))
	b.Publish(NewDeleteEvent(2))

	if got := len(b.queue); got != 1 {
		t.Fatalf("queued events: want=1 got=%d", got)
	}
}
