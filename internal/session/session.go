// Package session holds the dictation state machine: the recording flag,
// the in-flight processing counter, the accumulated preedit text and the
// notification-timer generation. It consumes decoded daemon events and
// user intents and emits ordered presenter commands.
//
// Everything here runs on one reactor goroutine. Dispatch passes, toggle
// intents and scheduled notification clears are serialized by the caller,
// so no locking is needed and every handler may assume exclusive access.
package session

import (
	"log/slog"
	"time"

	"voxinput/internal/voicebus"
)

// Notification duration defaults.
const (
	// DefaultErrorNotifyDuration bounds how long a daemon-reported error
	// stays on screen.
	DefaultErrorNotifyDuration = 5 * time.Second

	// DefaultFailureNotifyDuration bounds the message shown when a
	// start/stop call fails.
	DefaultFailureNotifyDuration = 5 * time.Second
)

// Options tune session behavior. Zero fields fall back to defaults.
type Options struct {
	// ErrorNotifyDuration is how long daemon Error messages are shown.
	ErrorNotifyDuration time.Duration

	// FailureNotifyDuration is how long toggle-failure messages are shown.
	FailureNotifyDuration time.Duration

	// HotkeyLabel names the toggle combination in the recording status
	// label, e.g. "shift+space".
	HotkeyLabel string
}

func (o Options) withDefaults() Options {
	if o.ErrorNotifyDuration <= 0 {
		o.ErrorNotifyDuration = DefaultErrorNotifyDuration
	}
	if o.FailureNotifyDuration <= 0 {
		o.FailureNotifyDuration = DefaultFailureNotifyDuration
	}
	if o.HotkeyLabel == "" {
		o.HotkeyLabel = "the hotkey"
	}
	return o
}

// Session is the per-activation dictation state machine. Exactly one live
// Session exists per engine activation; it is created when the engine
// activates and torn down by Deactivate.
type Session struct {
	caller    Caller
	presenter Presenter
	sched     Scheduler
	log       *slog.Logger
	opts      Options

	recording  bool
	processing int
	preedit    string
	notifyGen  uint64
}

// New creates a Session. The caller, presenter and scheduler must all be
// driven from the same reactor goroutine that invokes the session.
func New(caller Caller, presenter Presenter, sched Scheduler, log *slog.Logger, opts Options) *Session {
	if log == nil {
		log = slog.Default()
	}
	return &Session{
		caller:    caller,
		presenter: presenter,
		sched:     sched,
		log:       log,
		opts:      opts.withDefaults(),
	}
}

// Recording reports whether a recording is in progress.
func (s *Session) Recording() bool { return s.recording }

// Processing returns the number of transcription segments in flight.
// Recording and processing are independent: segments keep completing after
// recording stops.
func (s *Session) Processing() int { return s.processing }

// Preedit returns the accumulated not-yet-finalized text.
func (s *Session) Preedit() string { return s.preedit }

// Toggle flips recording: start when idle, stop when recording.
func (s *Session) Toggle() {
	if s.recording {
		s.Stop()
	} else {
		s.Start()
	}
}

// Start asks the daemon to begin recording. Starting while already
// recording issues no remote call. A failed call leaves the session idle
// and reports the failure on screen; it is never propagated.
func (s *Session) Start() {
	if s.recording {
		s.log.Debug("start ignored: already recording")
		return
	}
	if err := s.caller.StartRecording(); err != nil {
		s.log.Error("start recording failed", "err", err)
		s.recording = false
		s.showNotification("failed to start recording: "+err.Error(), s.opts.FailureNotifyDuration)
		return
	}
	s.recording = true
	// The processing counter is left alone: transcriptions from a previous
	// recording may still be in flight.
	s.refreshStatus()
}

// Stop asks the daemon to stop recording. Stopping while idle issues no
// remote call. A failed call reverts to an idle-equivalent state and
// reports the failure on screen.
func (s *Session) Stop() {
	if !s.recording {
		s.log.Debug("stop ignored: not recording")
		return
	}
	if err := s.caller.StopRecording(); err != nil {
		s.log.Error("stop recording failed", "err", err)
		s.recording = false
		s.processing = 0
		s.showNotification("failed to stop recording: "+err.Error(), s.opts.FailureNotifyDuration)
		return
	}
	s.recording = false
	// In-flight segments announce themselves via ProcessingStarted; the
	// counter is not touched here.
	s.refreshStatus()
}

// HandleEvent consumes one decoded daemon event.
func (s *Session) HandleEvent(ev voicebus.Event) {
	switch ev := ev.(type) {
	case voicebus.ProcessingStarted:
		s.onProcessingStarted(ev)
	case voicebus.Delta:
		s.onDelta(ev)
	case voicebus.Complete:
		s.onComplete(ev)
	case voicebus.DaemonError:
		s.onError(ev)
	}
}

func (s *Session) onProcessingStarted(ev voicebus.ProcessingStarted) {
	s.processing++
	s.log.Debug("processing started", "segment", ev.Segment, "in_flight", s.processing)
	s.refreshStatus()
}

// onDelta accumulates streaming fragments: preedit += text. The daemon
// sends incremental pieces, not full partial transcripts, so replacing
// would lose text. Empty fragments emit nothing.
func (s *Session) onDelta(ev voicebus.Delta) {
	if ev.Text == "" {
		return
	}
	s.preedit += ev.Text
	s.apply(SetPreedit{Text: s.preedit})
}

func (s *Session) onComplete(ev voicebus.Complete) {
	if s.processing > 0 {
		s.processing--
	}
	s.preedit = ""
	s.apply(SetPreedit{})
	if ev.Text != "" {
		s.apply(CommitText{Text: ev.Text})
	}
	s.log.Debug("segment complete", "segment", ev.Segment, "in_flight", s.processing)
	s.refreshStatus()
}

// onError forces a full reset regardless of prior state: the daemon may
// have aborted everything in flight.
func (s *Session) onError(ev voicebus.DaemonError) {
	s.log.Error("daemon error", "message", ev.Message)
	s.recording = false
	s.processing = 0
	s.preedit = ""
	s.apply(SetPreedit{})
	s.showNotification(ev.Message, s.opts.ErrorNotifyDuration)
}

// Deactivate tears the session down: a running recording is stopped first,
// then pending preedit is discarded. Half-recognized text is never
// committed into the target on teardown.
func (s *Session) Deactivate() {
	if s.recording {
		s.Stop()
	}
	s.discardPreedit()
}

// Reset handles a host-driven reset of the input context. Same policy as
// Deactivate.
func (s *Session) Reset() {
	s.Deactivate()
}

func (s *Session) discardPreedit() {
	if s.preedit == "" {
		return
	}
	s.log.Debug("discarding pending preedit", "len", len(s.preedit))
	s.preedit = ""
	s.apply(SetPreedit{})
}

func (s *Session) apply(cmd Command) {
	s.presenter.Apply(cmd)
}
