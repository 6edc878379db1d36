// Package voicebus owns the D-Bus connection to the speech-to-text daemon.
//
// It performs the three blocking method calls of the protocol
// (StartRecording, StopRecording, GetStatus) with a bounded timeout and
// turns the daemon's broadcast signals into typed events. Signal interest
// is registered by interface and object path, never by the daemon's
// well-known name: the bus stamps signals with the sender's unique
// connection name (:1.xxx), so a sender match on the well-known name would
// silently drop everything.
//
// A Conn is owned by exactly one session for its whole lifetime and is
// drained from a single reactor goroutine; see Dispatch.
package voicebus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/godbus/dbus/v5"
)

// Fixed protocol addressing. These must match the daemon exactly.
const (
	DefaultService   = "org.fcitx.Fcitx5.Voice"
	DefaultPath      = "/org/fcitx/Fcitx5/Voice"
	DefaultInterface = "org.fcitx.Fcitx5.Voice"

	// DefaultCallTimeout bounds StartRecording/StopRecording/GetStatus.
	// The calls either complete fast or are treated as failed.
	DefaultCallTimeout = 1000 * time.Millisecond

	// DefaultSignalBuffer is the queue depth for inbound signals between
	// dispatch passes.
	DefaultSignalBuffer = 64
)

// ErrNotConnected is returned by calls on a disconnected Conn.
var ErrNotConnected = errors.New("not connected to voice daemon")

// ConnectionError wraps a failure to reach the session bus. It is fatal to
// session construction; callers propagate it instead of recovering.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("voice bus connection failed: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// CallErrorKind distinguishes the two ways a remote call fails.
type CallErrorKind int

const (
	// CallTimeout means the daemon did not answer within the call timeout.
	CallTimeout CallErrorKind = iota
	// CallRejected means the daemon answered with an error reply.
	CallRejected
)

// CallError is a failed StartRecording/StopRecording/GetStatus call. It is
// recovered locally by the session and never propagated further up.
type CallError struct {
	Method string
	Kind   CallErrorKind
	Reason string
}

func (e *CallError) Error() string {
	if e.Kind == CallTimeout {
		return fmt.Sprintf("%s: call timed out", e.Method)
	}
	return fmt.Sprintf("%s: daemon rejected call: %s", e.Method, e.Reason)
}

// Options configures the daemon addressing and call behavior. Zero fields
// fall back to the protocol defaults.
type Options struct {
	Service      string
	Path         string
	Interface    string
	CallTimeout  time.Duration
	SignalBuffer int
}

func (o Options) withDefaults() Options {
	if o.Service == "" {
		o.Service = DefaultService
	}
	if o.Path == "" {
		o.Path = DefaultPath
	}
	if o.Interface == "" {
		o.Interface = DefaultInterface
	}
	if o.CallTimeout <= 0 {
		o.CallTimeout = DefaultCallTimeout
	}
	if o.SignalBuffer <= 0 {
		o.SignalBuffer = DefaultSignalBuffer
	}
	return o
}

// Handler consumes one decoded event per invocation.
type Handler func(Event)

// Conn is the client side of the daemon protocol: one private session-bus
// connection, a match rule for the daemon's signals, and a queue drained by
// Dispatch.
type Conn struct {
	conn    *dbus.Conn
	obj     dbus.BusObject
	signals chan *dbus.Signal
	opts    Options
	log     *slog.Logger

	disconnected bool
}

// Connect opens a private session-bus connection and registers interest in
// the daemon's signals. A bus that cannot be reached yields a
// *ConnectionError, which is fatal to whoever is constructing a session.
func Connect(opts Options, log *slog.Logger) (*Conn, error) {
	opts = opts.withDefaults()
	if log == nil {
		log = slog.Default()
	}

	conn, err := dbus.SessionBusPrivate()
	if err != nil {
		return nil, &ConnectionError{Err: err}
	}
	if err := conn.Auth(nil); err != nil {
		conn.Close()
		return nil, &ConnectionError{Err: err}
	}
	if err := conn.Hello(); err != nil {
		conn.Close()
		return nil, &ConnectionError{Err: err}
	}

	// Match on interface and path only. Signals are delivered under the
	// sender's unique name, so a well-known-name sender match never fires.
	if err := conn.AddMatchSignal(
		dbus.WithMatchInterface(opts.Interface),
		dbus.WithMatchObjectPath(dbus.ObjectPath(opts.Path)),
	); err != nil {
		conn.Close()
		return nil, &ConnectionError{Err: fmt.Errorf("add match rule: %w", err)}
	}

	signals := make(chan *dbus.Signal, opts.SignalBuffer)
	conn.Signal(signals)

	c := &Conn{
		conn:    conn,
		obj:     conn.Object(opts.Service, dbus.ObjectPath(opts.Path)),
		signals: signals,
		opts:    opts,
		log:     log,
	}
	log.Debug("connected to voice daemon bus",
		"service", opts.Service, "path", opts.Path)
	return c, nil
}

// Signals exposes the inbound signal queue for reactor integration: a
// receive readiness on this channel means Dispatch has work. Callers that
// receive a signal themselves hand it to Deliver.
func (c *Conn) Signals() <-chan *dbus.Signal {
	return c.signals
}

// Deliver decodes a single raw signal and invokes the handler when it
// yields an event. Malformed signals are logged and dropped; they never
// reach the handler. A nil signal, which is what a receive on the closed
// channel of a dead bus connection yields, is ignored.
func (c *Conn) Deliver(sig *dbus.Signal, h Handler) {
	if sig == nil {
		return
	}
	ev, err := DecodeSignal(sig, c.opts)
	if err != nil {
		c.log.Debug("dropping signal", "name", sig.Name, "err", err)
		return
	}
	if ev == nil {
		return
	}
	h(ev)
}

// Dispatch drains every currently queued signal without blocking, invoking
// the handler once per decoded event. It never waits for new messages; a
// decode failure moves on to the next queued signal.
func (c *Conn) Dispatch(h Handler) {
	for {
		select {
		case sig, ok := <-c.signals:
			if !ok {
				return
			}
			c.Deliver(sig, h)
		default:
			return
		}
	}
}

// Call issues a blocking method call with the configured timeout.
func (c *Conn) Call(method string, args ...interface{}) error {
	return c.call(method, nil, args...)
}

func (c *Conn) call(method string, ret interface{}, args ...interface{}) error {
	if c.disconnected || c.conn == nil {
		return ErrNotConnected
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.opts.CallTimeout)
	defer cancel()

	call := c.obj.CallWithContext(ctx, c.opts.Interface+"."+method, 0, args...)
	if call.Err != nil {
		return mapCallError(method, call.Err)
	}
	if ret != nil {
		if err := call.Store(ret); err != nil {
			return &CallError{Method: method, Kind: CallRejected, Reason: err.Error()}
		}
	}
	return nil
}

func mapCallError(method string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &CallError{Method: method, Kind: CallTimeout}
	}
	var dbusErr dbus.Error
	if errors.As(err, &dbusErr) {
		return &CallError{Method: method, Kind: CallRejected, Reason: dbusErr.Error()}
	}
	return &CallError{Method: method, Kind: CallRejected, Reason: err.Error()}
}

// StartRecording asks the daemon to begin capturing audio.
func (c *Conn) StartRecording() error {
	return c.Call("StartRecording")
}

// StopRecording asks the daemon to stop capturing audio. Transcription of
// segments already captured continues after this returns.
func (c *Conn) StopRecording() error {
	return c.Call("StopRecording")
}

// GetStatus reports the daemon's view of the recording state, "recording"
// or "idle". The session never polls this; it exists for external callers.
func (c *Conn) GetStatus() (string, error) {
	var status string
	if err := c.call("GetStatus", &status); err != nil {
		return "", err
	}
	return status, nil
}

// Disconnect removes the match rule and signal registration and closes the
// connection. It is idempotent.
func (c *Conn) Disconnect() {
	if c.disconnected {
		return
	}
	c.disconnected = true

	if c.conn == nil {
		return
	}
	if err := c.conn.RemoveMatchSignal(
		dbus.WithMatchInterface(c.opts.Interface),
		dbus.WithMatchObjectPath(dbus.ObjectPath(c.opts.Path)),
	); err != nil {
		c.log.Debug("remove match rule", "err", err)
	}
	c.conn.RemoveSignal(c.signals)
	if err := c.conn.Close(); err != nil {
		c.log.Debug("close bus connection", "err", err)
	}
	c.conn = nil
	c.log.Debug("disconnected from voice daemon bus")
}
