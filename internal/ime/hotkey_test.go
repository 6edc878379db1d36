package ime

import "testing"

func TestParseHotkey(t *testing.T) {
	tests := []struct {
		spec      string
		modifiers uint32
		keyval    uint32
	}{
		{"shift+space", ShiftMask, keySpace},
		{"ctrl+alt+d", ControlMask | Mod1Mask, uint32('d')},
		{"control+space", ControlMask, keySpace},
		{"super+return", Mod4Mask, keyReturn},
		{"meta+enter", Mod4Mask, keyReturn},
		{"alt+f2", Mod1Mask, keyF1 + 1},
		{"escape", 0, keyEscape},
		{"Shift+Space", ShiftMask, keySpace}, // case-insensitive
		{"ctrl+9", ControlMask, uint32('9')},
	}
	for _, tt := range tests {
		hk, err := ParseHotkey(tt.spec)
		if err != nil {
			t.Errorf("ParseHotkey(%q): %v", tt.spec, err)
			continue
		}
		if hk.Modifiers != tt.modifiers || hk.Keyval != tt.keyval {
			t.Errorf("ParseHotkey(%q) = {mods %#x, key %#x}, want {mods %#x, key %#x}",
				tt.spec, hk.Modifiers, hk.Keyval, tt.modifiers, tt.keyval)
		}
	}
}

func TestParseHotkeyRejectsBadSpecs(t *testing.T) {
	for _, spec := range []string{"", "shift+", "hyper+space", "shift+nosuchkey", "ctrl+f13"} {
		if _, err := ParseHotkey(spec); err == nil {
			t.Errorf("ParseHotkey(%q): expected error", spec)
		}
	}
}

func TestHotkeyMatches(t *testing.T) {
	hk, err := ParseHotkey("shift+space")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		keyval uint32
		state  uint32
		want   bool
	}{
		{"exact press", keySpace, ShiftMask, true},
		{"release ignored", keySpace, ShiftMask | ReleaseMask, false},
		{"no modifier", keySpace, 0, false},
		{"extra modifier", keySpace, ShiftMask | ControlMask, false},
		{"wrong key", keyReturn, ShiftMask, false},
		{"caps lock ignored", keySpace, ShiftMask | LockMask, true},
		{"num lock ignored", keySpace, ShiftMask | Mod2Mask, true},
	}
	for _, tt := range tests {
		if got := hk.Matches(tt.keyval, tt.state); got != tt.want {
			t.Errorf("%s: Matches(%#x, %#x) = %v, want %v", tt.name, tt.keyval, tt.state, got, tt.want)
		}
	}
}

func TestHotkeyString(t *testing.T) {
	hk, err := ParseHotkey("Ctrl+Alt+D")
	if err != nil {
		t.Fatal(err)
	}
	if hk.String() != "ctrl+alt+d" {
		t.Errorf("String() = %q, want %q", hk.String(), "ctrl+alt+d")
	}
}
