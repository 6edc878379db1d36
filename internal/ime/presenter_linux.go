//go:build linux

package ime

import (
	"log/slog"
	"sync"

	"github.com/godbus/dbus/v5"

	"voxinput/internal/session"
)

// Presenter applies session commands to the IBus input context by emitting
// Engine UI signals. When the engine is disabled or unfocused there is no
// input target and every command is silently a no-op.
type Presenter struct {
	conn *dbus.Conn
	log  *slog.Logger

	mu      sync.Mutex
	path    dbus.ObjectPath
	focused bool
	enabled bool
}

func newPresenter(conn *dbus.Conn, path dbus.ObjectPath, log *slog.Logger) *Presenter {
	return &Presenter{conn: conn, path: path, log: log}
}

// SetFocused records whether an input context currently has focus.
func (p *Presenter) SetFocused(v bool) {
	p.mu.Lock()
	p.focused = v
	p.mu.Unlock()
}

// SetEnabled records whether the engine is enabled.
func (p *Presenter) SetEnabled(v bool) {
	p.mu.Lock()
	p.enabled = v
	p.mu.Unlock()
}

// SetPath points UI signals at the engine object IBus created via the
// factory.
func (p *Presenter) SetPath(path dbus.ObjectPath) {
	p.mu.Lock()
	p.path = path
	p.mu.Unlock()
}

// Apply emits the IBus signal for one session command.
func (p *Presenter) Apply(cmd session.Command) {
	p.mu.Lock()
	path := p.path
	hasTarget := p.focused && p.enabled
	p.mu.Unlock()

	if !hasTarget {
		p.log.Debug("no input target, dropping command")
		return
	}

	switch c := cmd.(type) {
	case session.CommitText:
		p.emit(path, "CommitText", ibusText(c.Text))
	case session.SetPreedit:
		if c.Text == "" {
			p.emit(path, "UpdatePreeditText", ibusText(""), uint32(0), false)
		} else {
			cursor := uint32(len([]rune(c.Text)))
			p.emit(path, "UpdatePreeditText", ibusText(c.Text), cursor, true)
		}
	case session.ShowNotification:
		p.emit(path, "UpdateAuxiliaryText", ibusText(c.Text), true)
	case session.ClearNotification:
		p.emit(path, "UpdateAuxiliaryText", ibusText(""), false)
	}
}

func (p *Presenter) emit(path dbus.ObjectPath, member string, args ...interface{}) {
	if err := p.conn.Emit(path, engineInterface+"."+member, args...); err != nil {
		p.log.Debug("emit failed", "member", member, "err", err)
	}
}
