//go:build linux

package ime

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"

	"voxinput/internal/config"
	"voxinput/internal/history"
	"voxinput/internal/session"
	"voxinput/internal/voicebus"
)

// IBus D-Bus constants.
const (
	engineInterface  = "org.freedesktop.IBus.Engine"
	factoryInterface = "org.freedesktop.IBus.Factory"
	factoryPath      = "/org/freedesktop/IBus/Factory"
	defaultPath      = dbus.ObjectPath("/org/freedesktop/IBus/Engine/voxinput")

	// BusName is requested on the session bus so IBus can find us.
	BusName = "io.voxinput.IBus"

	// EngineName is the engine identifier in the IBus component registry.
	EngineName = "voxinput"
)

// Engine wires the whole client together: the daemon connection, the
// dictation session, the IBus export and the reactor goroutine that
// serializes everything.
type Engine struct {
	cfg    *config.Config
	log    *slog.Logger
	hotkey Hotkey

	ibus      *dbus.Conn
	voice     *voicebus.Conn
	presenter *Presenter
	sess      *session.Session
	store     *history.Store

	intents chan func()
	done    chan struct{}
	wg      sync.WaitGroup
}

// New creates an engine from configuration. Nothing is connected yet.
func New(cfg *config.Config, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		cfg:     cfg,
		log:     log,
		intents: make(chan func(), 64),
		done:    make(chan struct{}),
	}
}

// Start connects to the daemon bus, exports the IBus engine and launches
// the reactor. A bus connection failure is fatal: the engine does not
// activate without its daemon transport.
func (e *Engine) Start() error {
	hotkey, err := ParseHotkey(e.cfg.Hotkey.Toggle)
	if err != nil {
		return err
	}
	e.hotkey = hotkey

	e.voice, err = voicebus.Connect(voicebus.Options{
		Service:      e.cfg.Bus.Service,
		Path:         e.cfg.Bus.Path,
		Interface:    e.cfg.Bus.Interface,
		CallTimeout:  e.cfg.Bus.CallTimeout(),
		SignalBuffer: e.cfg.Bus.SignalBuffer,
	}, e.log)
	if err != nil {
		return err
	}

	e.ibus, err = dbus.SessionBus()
	if err != nil {
		e.voice.Disconnect()
		return fmt.Errorf("connect to session bus: %w", err)
	}

	reply, err := e.ibus.RequestName(BusName, dbus.NameFlagDoNotQueue)
	if err != nil {
		e.voice.Disconnect()
		return fmt.Errorf("request bus name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		e.voice.Disconnect()
		return errors.New("bus name already taken: another voxinput engine is running")
	}

	e.presenter = newPresenter(e.ibus, defaultPath, e.log)

	if e.cfg.History.Enabled {
		store, err := history.Open(e.cfg.History.Path)
		if err != nil {
			// Dictation works without history; keep going.
			e.log.Warn("history store unavailable", "err", err)
		} else {
			e.store = store
			if days := e.cfg.History.RetentionDays; days > 0 {
				if n, err := store.Prune(time.Duration(days) * 24 * time.Hour); err != nil {
					e.log.Warn("history prune failed", "err", err)
				} else if n > 0 {
					e.log.Info("pruned history entries", "count", n)
				}
			}
		}
	}

	e.sess = session.New(e.voice, e.presenter, reactorScheduler{e}, e.log, session.Options{
		ErrorNotifyDuration:   e.cfg.Notify.ErrorDuration(),
		FailureNotifyDuration: e.cfg.Notify.FailureDuration(),
		HotkeyLabel:           e.hotkey.String(),
	})

	if err := e.ibus.Export(&ibusEngine{e: e}, defaultPath, engineInterface); err != nil {
		e.voice.Disconnect()
		return fmt.Errorf("export engine: %w", err)
	}
	if err := e.ibus.Export(&ibusFactory{e: e}, factoryPath, factoryInterface); err != nil {
		e.voice.Disconnect()
		return fmt.Errorf("export factory: %w", err)
	}

	e.wg.Add(1)
	go e.run()

	e.log.Info("voxinput engine started", "hotkey", e.hotkey.String())
	return nil
}

// Stop deactivates the session (forcing a recording stop and discarding
// pending preedit), stops the reactor and releases all resources.
func (e *Engine) Stop() {
	e.do(func() { e.sess.Deactivate() })
	close(e.done)
	e.wg.Wait()

	if e.store != nil {
		e.store.Close()
	}
	e.voice.Disconnect()
	if _, err := e.ibus.ReleaseName(BusName); err != nil {
		e.log.Debug("release bus name", "err", err)
	}
	e.log.Info("voxinput engine stopped")
}

// run is the reactor: the only goroutine that touches the session. It
// drains daemon signals as they arrive, falls back to a bounded-interval
// dispatch tick, and executes posted intents and timer callbacks.
//
// godbus closes the signal channel when the bus connection dies. A closed
// channel is always ready, so the case is disabled by nilling the local
// reference; the reactor keeps serving intents and timers so the session
// can still be torn down cleanly.
func (e *Engine) run() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.cfg.Bus.DispatchInterval())
	defer ticker.Stop()

	signals := e.voice.Signals()
	for {
		select {
		case <-e.done:
			return
		case sig, ok := <-signals:
			if !ok {
				e.log.Error("bus connection lost, daemon signals stopped")
				e.sess.HandleEvent(voicebus.DaemonError{Message: "connection to voice daemon lost"})
				signals = nil
				continue
			}
			e.voice.Deliver(sig, e.handleEvent)
			e.voice.Dispatch(e.handleEvent)
		case <-ticker.C:
			e.voice.Dispatch(e.handleEvent)
		case fn := <-e.intents:
			fn()
		}
	}
}

func (e *Engine) handleEvent(ev voicebus.Event) {
	if c, ok := ev.(voicebus.Complete); ok && c.Text != "" && e.store != nil {
		if _, err := e.store.Record(c.Text, c.Segment); err != nil {
			e.log.Warn("record transcript failed", "err", err)
		}
	}
	e.sess.HandleEvent(ev)
}

// post queues fn onto the reactor. Intents are dropped, not blocked on,
// when the queue is full; a stuck reactor must not stall the IBus handler
// threads.
func (e *Engine) post(fn func()) {
	select {
	case e.intents <- fn:
	case <-e.done:
	default:
		e.log.Warn("reactor queue full, dropping intent")
	}
}

// postBlocking queues fn onto the reactor, waiting up to wait for queue
// space. Used for deferred notification clears: dropping one would leave
// a stale label on screen with nothing left to remove it.
func (e *Engine) postBlocking(fn func(), wait time.Duration) {
	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case e.intents <- fn:
	case <-e.done:
	case <-t.C:
		e.log.Warn("reactor queue blocked, dropping deferred callback")
	}
}

// do runs fn on the reactor and waits for it, bounded so shutdown can
// never deadlock.
func (e *Engine) do(fn func()) {
	ack := make(chan struct{})
	select {
	case e.intents <- func() { fn(); close(ack) }:
		select {
		case <-ack:
		case <-time.After(2 * time.Second):
			e.log.Warn("reactor did not acknowledge intent")
		}
	case <-time.After(2 * time.Second):
		e.log.Warn("reactor queue blocked, skipping intent")
	}
}

// reactorScheduler defers callbacks back onto the reactor goroutine so
// notification clears mutate session state with the same exclusivity as
// everything else.
type reactorScheduler struct {
	e *Engine
}

func (r reactorScheduler) AfterFunc(d time.Duration, fn func()) {
	time.AfterFunc(d, func() { r.e.postBlocking(fn, 2*time.Second) })
}

// ibusEngine exposes only the IBus Engine D-Bus methods; everything it
// does is forwarded to the reactor.
type ibusEngine struct {
	e *Engine
}

// ProcessKeyEvent consumes presses of the toggle hotkey and passes every
// other key through. Releases of the combination are ignored.
func (ie *ibusEngine) ProcessKeyEvent(keyval, keycode, state uint32) (bool, *dbus.Error) {
	if !ie.e.hotkey.Matches(keyval, state) {
		return false, nil
	}
	ie.e.post(func() { ie.e.sess.Toggle() })
	return true, nil
}

func (ie *ibusEngine) FocusIn() *dbus.Error {
	ie.e.presenter.SetFocused(true)
	return nil
}

func (ie *ibusEngine) FocusOut() *dbus.Error {
	ie.e.presenter.SetFocused(false)
	return nil
}

func (ie *ibusEngine) Enable() *dbus.Error {
	ie.e.presenter.SetEnabled(true)
	return nil
}

// Disable deactivates dictation: a running recording is stopped and
// pending preedit discarded before the input target goes away.
func (ie *ibusEngine) Disable() *dbus.Error {
	ie.e.post(func() {
		ie.e.sess.Deactivate()
		ie.e.presenter.SetEnabled(false)
	})
	return nil
}

// Reset handles a host-driven reset of the input context.
func (ie *ibusEngine) Reset() *dbus.Error {
	ie.e.post(func() { ie.e.sess.Reset() })
	return nil
}

func (ie *ibusEngine) SetCapabilities(caps uint32) *dbus.Error {
	return nil
}

func (ie *ibusEngine) SetCursorLocation(x, y, w, h int32) *dbus.Error {
	return nil
}

func (ie *ibusEngine) SetSurroundingText(text dbus.Variant, cursorPos, anchorPos uint32) *dbus.Error {
	return nil
}

func (ie *ibusEngine) SetContentType(purpose, hints uint32) *dbus.Error {
	return nil
}

func (ie *ibusEngine) PropertyActivate(name string, state uint32) *dbus.Error {
	return nil
}

func (ie *ibusEngine) PageUp() *dbus.Error   { return nil }
func (ie *ibusEngine) PageDown() *dbus.Error { return nil }
func (ie *ibusEngine) CursorUp() *dbus.Error { return nil }
func (ie *ibusEngine) CursorDown() *dbus.Error {
	return nil
}

func (ie *ibusEngine) CandidateClicked(index, button, state uint32) *dbus.Error {
	return nil
}

func (ie *ibusEngine) Destroy() *dbus.Error { return nil }

// ibusFactory creates engine instances on demand from IBus.
type ibusFactory struct {
	e        *Engine
	mu       sync.Mutex
	engineID uint32
}

// CreateEngine exports the engine at a fresh per-instance path and points
// the presenter's UI signals at it.
func (f *ibusFactory) CreateEngine(name string) (dbus.ObjectPath, *dbus.Error) {
	if name != EngineName {
		return "", dbus.NewError("org.freedesktop.IBus.NoEngine",
			[]interface{}{"unknown engine: " + name})
	}

	f.mu.Lock()
	f.engineID++
	path := dbus.ObjectPath(fmt.Sprintf("/org/freedesktop/IBus/Engine/voxinput/%d", f.engineID))
	f.mu.Unlock()

	if err := f.e.ibus.Export(&ibusEngine{e: f.e}, path, engineInterface); err != nil {
		return "", dbus.NewError("org.freedesktop.IBus.NoEngine",
			[]interface{}{err.Error()})
	}
	f.e.presenter.SetPath(path)
	f.e.log.Debug("engine instance created", "path", string(path))
	return path, nil
}
