package session

import "time"

// Command is one ordered text-editing or status action produced by the
// session. Commands are applied to a Presenter in the order they are
// emitted; the presenter is free to drop them when no input target exists.
type Command interface {
	isCommand()
}

// CommitText inserts finalized text into the active input target.
type CommitText struct {
	Text string
}

// SetPreedit replaces the transient composing text. An empty string clears
// the preedit.
type SetPreedit struct {
	Text string
}

// ShowNotification displays a status label. A zero Duration means the
// label stays until superseded or cleared; a positive Duration schedules a
// clear that is invalidated if a newer notification arrives first.
type ShowNotification struct {
	Text     string
	Duration time.Duration
}

// ClearNotification removes the status label.
type ClearNotification struct{}

func (CommitText) isCommand()        {}
func (SetPreedit) isCommand()        {}
func (ShowNotification) isCommand()  {}
func (ClearNotification) isCommand() {}

// Presenter applies commands to the host's input context. Every method of
// the host that backs this may find the input target absent; that is a
// silent no-op, never an error.
type Presenter interface {
	Apply(Command)
}

// Scheduler defers a callback onto the session's reactor. Implementations
// must run the callback on the same goroutine that drives the session;
// session state is mutated without locks.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func())
}

// Caller issues the daemon's recording control calls.
type Caller interface {
	StartRecording() error
	StopRecording() error
}
