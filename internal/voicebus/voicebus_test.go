package voicebus

import (
	"io"
	"log/slog"
	"testing"

	"github.com/godbus/dbus/v5"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// queuedConn builds a Conn with an in-memory signal queue and no bus,
// enough to exercise Deliver and Dispatch.
func queuedConn(depth int) *Conn {
	return &Conn{
		signals: make(chan *dbus.Signal, depth),
		opts:    Options{}.withDefaults(),
		log:     testLogger(),
	}
}

func TestDispatchDrainsQueueInOrder(t *testing.T) {
	c := queuedConn(8)
	c.signals <- daemonSignal("ProcessingStarted", int32(1))
	c.signals <- daemonSignal("TranscriptionDelta", "hel")
	c.signals <- daemonSignal("TranscriptionDelta", "lo")
	c.signals <- daemonSignal("TranscriptionComplete", "hello", int32(1))

	var got []Event
	c.Dispatch(func(ev Event) { got = append(got, ev) })

	want := []Event{
		ProcessingStarted{Segment: 1},
		Delta{Text: "hel"},
		Delta{Text: "lo"},
		Complete{Text: "hello", Segment: 1},
	}
	if len(got) != len(want) {
		t.Fatalf("dispatched %d events, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event[%d] = %#v, want %#v", i, got[i], want[i])
		}
	}
}

func TestDispatchSkipsMalformedSignals(t *testing.T) {
	c := queuedConn(8)
	c.signals <- daemonSignal("TranscriptionDelta", "good")
	c.signals <- daemonSignal("TranscriptionDelta", int32(99)) // wrong type
	c.signals <- daemonSignal("RecordingStarted")              // recognized, no event
	c.signals <- daemonSignal("Error", "bad day")

	var got []Event
	c.Dispatch(func(ev Event) { got = append(got, ev) })

	if len(got) != 2 {
		t.Fatalf("dispatched %d events, want 2: %#v", len(got), got)
	}
	if got[0] != (Delta{Text: "good"}) {
		t.Errorf("event[0] = %#v", got[0])
	}
	if got[1] != (DaemonError{Message: "bad day"}) {
		t.Errorf("event[1] = %#v", got[1])
	}
}

// When the bus connection dies godbus closes the signal channel, and a
// receive on it yields nil forever. That nil must never reach the decoder.
func TestDeliverIgnoresNilSignal(t *testing.T) {
	c := queuedConn(1)
	close(c.signals)
	sig := <-c.signals // closed channel: nil, always ready

	calls := 0
	c.Deliver(sig, func(Event) { calls++ })
	if calls != 0 {
		t.Errorf("handler called %d times for nil signal", calls)
	}
}

func TestDispatchDrainsThenStopsOnClosedChannel(t *testing.T) {
	c := queuedConn(4)
	c.signals <- daemonSignal("TranscriptionDelta", "tail")
	close(c.signals)

	var got []Event
	c.Dispatch(func(ev Event) { got = append(got, ev) })

	if len(got) != 1 || got[0] != (Delta{Text: "tail"}) {
		t.Errorf("events = %#v, want the one queued delta", got)
	}

	// A second pass over the closed channel must return immediately.
	calls := 0
	c.Dispatch(func(Event) { calls++ })
	if calls != 0 {
		t.Errorf("handler called %d times on closed empty channel", calls)
	}
}

func TestDispatchReturnsOnEmptyQueue(t *testing.T) {
	c := queuedConn(1)

	calls := 0
	c.Dispatch(func(Event) { calls++ })
	if calls != 0 {
		t.Errorf("handler called %d times on empty queue", calls)
	}
}

func TestCallOnDisconnectedConn(t *testing.T) {
	c := queuedConn(1)
	c.disconnected = true

	if err := c.StartRecording(); err != ErrNotConnected {
		t.Errorf("StartRecording error = %v, want ErrNotConnected", err)
	}
	if _, err := c.GetStatus(); err != ErrNotConnected {
		t.Errorf("GetStatus error = %v, want ErrNotConnected", err)
	}
}

func TestDisconnectIsIdempotent(t *testing.T) {
	c := queuedConn(1)

	c.Disconnect()
	c.Disconnect() // must not panic or double-close

	if err := c.StopRecording(); err != ErrNotConnected {
		t.Errorf("StopRecording error = %v, want ErrNotConnected", err)
	}
}

func TestCallErrorMessages(t *testing.T) {
	timeout := &CallError{Method: "StartRecording", Kind: CallTimeout}
	if timeout.Error() != "StartRecording: call timed out" {
		t.Errorf("timeout message = %q", timeout.Error())
	}

	rejected := &CallError{Method: "StopRecording", Kind: CallRejected, Reason: "not recording"}
	if rejected.Error() != "StopRecording: daemon rejected call: not recording" {
		t.Errorf("rejected message = %q", rejected.Error())
	}
}

func TestOptionsDefaults(t *testing.T) {
	o := Options{}.withDefaults()
	if o.Service != DefaultService || o.Path != DefaultPath || o.Interface != DefaultInterface {
		t.Errorf("addressing defaults wrong: %+v", o)
	}
	if o.CallTimeout != DefaultCallTimeout {
		t.Errorf("CallTimeout = %v, want %v", o.CallTimeout, DefaultCallTimeout)
	}
	if o.SignalBuffer != DefaultSignalBuffer {
		t.Errorf("SignalBuffer = %d, want %d", o.SignalBuffer, DefaultSignalBuffer)
	}

	custom := Options{Service: "org.example.Voice", CallTimeout: 250}.withDefaults()
	if custom.Service != "org.example.Voice" {
		t.Errorf("custom service overwritten: %q", custom.Service)
	}
}
