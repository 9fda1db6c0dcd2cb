package internal

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/iksnae/command-deck/testutil"
	"go.uber.org/goleak"
)

const eventTimeout = 3 * time.Second

func nextEvent(t *testing.T, events <-chan ChannelEvent) ChannelEvent {
	t.Helper()
	select {
	case ev, ok := <-events:
		if !ok {
			t.Fatal("event stream closed")
		}
		return ev
	case <-time.After(eventTimeout):
		t.Fatal("timed out waiting for channel event")
	}
	return nil
}

func expectEvent[T ChannelEvent](t *testing.T, events <-chan ChannelEvent) T {
	t.Helper()
	ev := nextEvent(t, events)
	got, ok := ev.(T)
	if !ok {
		var want T
		t.Fatalf("got event %T (%+v), want %T", ev, ev, want)
	}
	return got
}

// startChannel runs ch until the returned stop function is called
func startChannel(t *testing.T, ch *TaskChannel) (stop func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ch.Run(ctx) }()
	return func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("Run() = %v, want nil", err)
			}
		case <-time.After(eventTimeout):
			t.Fatal("Run() did not return after cancel")
		}
	}
}

func TestTaskChannel_DeliversFramesInOrder(t *testing.T) {
	leaks := goleak.IgnoreCurrent()
	srv := testutil.NewDeckServer(t)
	ch := NewTaskChannel(srv.PushURL(), WithRetryDelay(50*time.Millisecond))
	stop := startChannel(t, ch)

	if got := expectEvent[ChannelConnecting](t, ch.Events()); got.Attempt != 1 {
		t.Errorf("Connecting.Attempt = %d, want 1", got.Attempt)
	}
	expectEvent[ChannelOpened](t, ch.Events())
	if ch.State() != ChannelStateOpen {
		t.Errorf("State() = %s, want open", ch.State())
	}
	srv.WaitConnected(t, eventTimeout)

	// announcement without an id is skipped, not reported as a fault
	srv.Push(t, `{"event":"NEW","name":"Hero Sprite","status":"QUEUED"}`)
	srv.Push(t, `{"asset_id":42,"status":"GENERATING","name":"Hero Sprite"}`)
	srv.Push(t, `not json`)
	srv.Push(t, `{"asset_id":42,"status":"COMPLETED","image_url":"/img/42.png"}`)

	first := expectEvent[TaskFrame](t, ch.Events())
	if first.Event.AssetID != "42" || *first.Event.Status != "GENERATING" {
		t.Errorf("first frame = %+v", first.Event)
	}
	fault := expectEvent[ChannelFault](t, ch.Events())
	if fault.Err == nil || fault.Err.Frame != "not json" {
		t.Errorf("fault = %+v", fault.Err)
	}
	second := expectEvent[TaskFrame](t, ch.Events())
	if *second.Event.Status != StatusCompleted {
		t.Errorf("second frame = %+v", second.Event)
	}

	stop()
	if ch.State() != ChannelStateClosed {
		t.Errorf("State() after stop = %s, want closed", ch.State())
	}
	if _, ok := <-ch.Events(); ok {
		t.Error("event stream should be closed after Run returns")
	}
	srv.Close()
	goleak.VerifyNone(t, leaks)
}

func TestTaskChannel_ReconnectsAfterFixedDelay(t *testing.T) {
	leaks := goleak.IgnoreCurrent()
	const delay = 200 * time.Millisecond

	srv := testutil.NewDeckServer(t)
	ch := NewTaskChannel(srv.PushURL(), WithRetryDelay(delay))
	stop := startChannel(t, ch)

	expectEvent[ChannelConnecting](t, ch.Events())
	expectEvent[ChannelOpened](t, ch.Events())
	srv.WaitConnected(t, eventTimeout)

	srv.DropConnections()
	closed := expectEvent[ChannelClosed](t, ch.Events())
	closedAt := time.Now()
	if closed.RetryIn != delay {
		t.Errorf("RetryIn = %s, want %s", closed.RetryIn, delay)
	}
	if ch.State() != ChannelStateRetryPending {
		t.Errorf("State() = %s, want retry-pending", ch.State())
	}

	// exactly one attempt, not before the delay
	reconnect := expectEvent[ChannelConnecting](t, ch.Events())
	if elapsed := time.Since(closedAt); elapsed < delay-10*time.Millisecond {
		t.Errorf("reconnect after %s, want at least %s", elapsed, delay)
	}
	if reconnect.Attempt != 2 {
		t.Errorf("Attempt = %d, want 2", reconnect.Attempt)
	}
	if opened := expectEvent[ChannelOpened](t, ch.Events()); opened.Attempt != 2 {
		t.Errorf("Opened.Attempt = %d, want 2", opened.Attempt)
	}
	if srv.Accepts() != 2 {
		t.Errorf("server accepted %d handshakes, want 2", srv.Accepts())
	}

	stop()
	srv.Close()
	goleak.VerifyNone(t, leaks)
}

func TestTaskChannel_DialFailure(t *testing.T) {
	leaks := goleak.IgnoreCurrent()
	srv := testutil.NewDeckServer(t)
	srv.RejectPush(true)

	ch := NewTaskChannel(srv.PushURL(), WithRetryDelay(time.Hour))
	stop := startChannel(t, ch)

	expectEvent[ChannelConnecting](t, ch.Events())
	closed := expectEvent[ChannelClosed](t, ch.Events())
	var terr *TransportError
	if !errors.As(closed.Err, &terr) || terr.Op != "dial" {
		t.Errorf("Closed.Err = %v, want dial TransportError", closed.Err)
	}

	// cancelling during the retry wait returns promptly
	stop()
	srv.Close()
	goleak.VerifyNone(t, leaks)
}
