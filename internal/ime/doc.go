// Package ime is the IBus front end for voxinput.
//
// It exports the IBus Engine and Factory interfaces on the session bus,
// watches key events for the configured toggle hotkey, and translates
// session commands into IBus UI updates:
//
//	CommitText        → org.freedesktop.IBus.Engine.CommitText
//	SetPreedit        → org.freedesktop.IBus.Engine.UpdatePreeditText
//	ShowNotification  → org.freedesktop.IBus.Engine.UpdateAuxiliaryText
//	ClearNotification → org.freedesktop.IBus.Engine.UpdateAuxiliaryText (hidden)
//
// The engine owns the reactor goroutine: daemon signals, hotkey intents,
// the polling fallback tick and deferred notification clears are all
// serialized onto it, so the session runs without locks. When no input
// context is focused, presenter commands are dropped silently; dictation
// state still advances so text is never double-committed later.
//
// Data flow:
//
//	hotkey press → Session.Toggle → StartRecording/StopRecording (D-Bus call)
//	daemon signal → decode → Session.HandleEvent → commands → IBus UI
package ime
