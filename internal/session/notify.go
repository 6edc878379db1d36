package session

import "time"

// refreshStatus recomputes the status label from recording × processing.
// Idle clears the label instead of showing one.
func (s *Session) refreshStatus() {
	processing := s.processing > 0
	switch {
	case s.recording && processing:
		s.showNotification("recording | processing…", 0)
	case s.recording:
		s.showNotification("recording (press "+s.opts.HotkeyLabel+" to stop)", 0)
	case processing:
		s.showNotification("processing…", 0)
	default:
		s.clearNotification()
	}
}

// showNotification displays a label and, for a bounded duration, schedules
// its clear. Each notification bumps the generation counter; a scheduled
// clear fires only if its generation is still current, so a stale timer
// can never erase a newer message.
func (s *Session) showNotification(text string, d time.Duration) {
	s.notifyGen++
	gen := s.notifyGen
	s.apply(ShowNotification{Text: text, Duration: d})
	if d <= 0 || s.sched == nil {
		return
	}
	s.sched.AfterFunc(d, func() {
		if s.notifyGen != gen {
			return
		}
		s.apply(ClearNotification{})
	})
}

// clearNotification removes the label immediately and invalidates any
// pending scheduled clear.
func (s *Session) clearNotification() {
	s.notifyGen++
	s.apply(ClearNotification{})
}
