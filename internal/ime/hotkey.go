package ime

import (
	"fmt"
	"strings"
)

// X11 modifier state masks as delivered in IBus key events.
const (
	ShiftMask   uint32 = 1 << 0
	LockMask    uint32 = 1 << 1
	ControlMask uint32 = 1 << 2
	Mod1Mask    uint32 = 1 << 3 // Alt
	Mod2Mask    uint32 = 1 << 4 // NumLock
	Mod4Mask    uint32 = 1 << 6 // Super/Meta
	ReleaseMask uint32 = 1 << 30
)

// relevantMask is the set of modifiers a hotkey can bind. Lock state
// (Caps/Num) is ignored when matching.
const relevantMask = ShiftMask | ControlMask | Mod1Mask | Mod4Mask

// Common GDK keysyms for named keys.
const (
	keySpace     uint32 = 0x0020
	keyReturn    uint32 = 0xff0d
	keyTab       uint32 = 0xff09
	keyEscape    uint32 = 0xff1b
	keyBackSpace uint32 = 0xff08
	keyF1        uint32 = 0xffbe
)

// Hotkey is one parsed modifier+key trigger combination.
type Hotkey struct {
	Modifiers uint32
	Keyval    uint32
	spec      string
}

// ParseHotkey parses a combination like "shift+space" or "ctrl+alt+d".
// The last component is the key; everything before it is a modifier.
func ParseHotkey(spec string) (Hotkey, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(spec)), "+")
	if len(parts) == 0 || parts[len(parts)-1] == "" {
		return Hotkey{}, fmt.Errorf("empty hotkey %q", spec)
	}

	hk := Hotkey{spec: strings.Join(parts, "+")}
	for _, mod := range parts[:len(parts)-1] {
		switch strings.TrimSpace(mod) {
		case "shift":
			hk.Modifiers |= ShiftMask
		case "ctrl", "control":
			hk.Modifiers |= ControlMask
		case "alt":
			hk.Modifiers |= Mod1Mask
		case "super", "meta", "win":
			hk.Modifiers |= Mod4Mask
		default:
			return Hotkey{}, fmt.Errorf("unknown modifier %q in hotkey %q", mod, spec)
		}
	}

	keyval, err := parseKeyName(strings.TrimSpace(parts[len(parts)-1]))
	if err != nil {
		return Hotkey{}, fmt.Errorf("hotkey %q: %w", spec, err)
	}
	hk.Keyval = keyval
	return hk, nil
}

func parseKeyName(name string) (uint32, error) {
	switch name {
	case "space":
		return keySpace, nil
	case "return", "enter":
		return keyReturn, nil
	case "tab":
		return keyTab, nil
	case "escape", "esc":
		return keyEscape, nil
	case "backspace":
		return keyBackSpace, nil
	}
	if len(name) == 1 {
		c := name[0]
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') {
			return uint32(c), nil
		}
	}
	if strings.HasPrefix(name, "f") && len(name) <= 3 {
		var n int
		if _, err := fmt.Sscanf(name, "f%d", &n); err == nil && n >= 1 && n <= 12 {
			return keyF1 + uint32(n-1), nil
		}
	}
	return 0, fmt.Errorf("unknown key %q", name)
}

// Matches reports whether a key event is a press of this combination.
// Release events never match; lock modifiers are ignored.
func (h Hotkey) Matches(keyval, state uint32) bool {
	if state&ReleaseMask != 0 {
		return false
	}
	return keyval == h.Keyval && state&relevantMask == h.Modifiers
}

// String returns the normalized combination, e.g. "shift+space".
func (h Hotkey) String() string {
	return h.spec
}
