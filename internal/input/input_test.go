package input

import "testing"

func TestJoypadRead_NoButtonsPressed(t *testing.T) {
	j := New()

	// Default state: nothing selected, no buttons pressed
	result := j.Read()

	// Upper 2 bits should be 1, selection bits should be 1, button bits should be 1
	expected := uint8(0xFF)
	if result != expected {
		t.Errorf("Expected 0x%02X, got 0x%02X", expected, result)
	}
}

func TestJoypadRead_ActionButtonsSelected(t *testing.T) {
	j := New()

	// Select action buttons (P15=0)
	j.Write(0xDF) // 11011111 - P15=0, P14=1
	j.Press(KeyA)

	// Expected: 11011110 (P15=0, P14=1, A pressed=bit0 clear)
	if result := j.Read(); result != 0xDE {
		t.Errorf("Expected 0x%02X, got 0x%02X", 0xDE, result)
	}
}

func TestJoypadRead_DirectionButtonsSelected(t *testing.T) {
	j := New()

	// Select direction buttons (P14=0)
	j.Write(0xEF) // 11101111 - P15=1, P14=0
	j.Press(KeyUp)

	// Expected: 11101011 (P15=1, P14=0, Up pressed=bit2 clear)
	if result := j.Read(); result != 0xEB {
		t.Errorf("Expected 0x%02X, got 0x%02X", 0xEB, result)
	}
}

func TestJoypadRead_ButtonMapping(t *testing.T) {
	tests := []struct {
		key     Key
		selectV uint8
		want    uint8
	}{
		{KeyRight, 0xEF, 0xEE},
		{KeyLeft, 0xEF, 0xED},
		{KeyUp, 0xEF, 0xEB},
		{KeyDown, 0xEF, 0xE7},
		{KeyA, 0xDF, 0xDE},
		{KeyB, 0xDF, 0xDD},
		{KeySelect, 0xDF, 0xDB},
		{KeyStart, 0xDF, 0xD7},
		// Pressed but its group is not selected.
		{KeyStart, 0xEF, 0xEF},
		{KeyRight, 0xDF, 0xDF},
	}

	for _, tt := range tests {
		t.Run(tt.key.String(), func(t *testing.T) {
			j := New()
			j.Write(tt.selectV)
			j.Press(tt.key)
			if got := j.Read(); got != tt.want {
				t.Errorf("Read() = 0x%02X, want 0x%02X", got, tt.want)
			}
		})
	}
}

func TestJoypadRead_BothGroupsSelected(t *testing.T) {
	j := New()
	j.Write(0x00)
	j.Press(KeyA)    // bit 0
	j.Press(KeyDown) // bit 3

	if got := j.Read(); got != 0xC6 {
		t.Errorf("Read() = 0x%02X, want 0xC6", got)
	}
}

func TestOppositeDirectionBlocking(t *testing.T) {
	tests := []struct {
		first, second Key
	}{
		{KeyUp, KeyDown},
		{KeyDown, KeyUp},
		{KeyLeft, KeyRight},
		{KeyRight, KeyLeft},
	}

	for _, tt := range tests {
		j := New()
		j.Press(tt.first)
		j.Press(tt.second)
		if !j.Pressed(tt.first) || j.Pressed(tt.second) {
			t.Errorf("%s then %s: pressed = %v/%v, want true/false",
				tt.first, tt.second, j.Pressed(tt.first), j.Pressed(tt.second))
		}

		j.Release(tt.first)
		j.Press(tt.second)
		if !j.Pressed(tt.second) {
			t.Errorf("%s should be pressable after releasing %s", tt.second, tt.first)
		}
	}
}

func TestApplyReportsPresses(t *testing.T) {
	j := New()

	if !j.Apply(Event{Key: KeyStart, Pressed: true}) {
		t.Error("Apply(press) = false, want interrupt")
	}
	if !j.Pressed(KeyStart) {
		t.Error("Start should be held")
	}
	if j.Apply(Event{Key: KeyStart}) {
		t.Error("Apply(release) = true, want no interrupt")
	}
	if j.Pressed(KeyStart) {
		t.Error("Start should be released")
	}
}

func TestApplyOnlyRaisesOnNewPress(t *testing.T) {
	j := New()
	j.Press(KeyLeft)

	if j.Apply(Event{Key: KeyRight, Pressed: true}) {
		t.Error("Apply(Right) with Left held = true, want no interrupt")
	}
	if j.Pressed(KeyRight) {
		t.Error("Right should stay released while Left is held")
	}
	if j.Apply(Event{Key: KeyLeft, Pressed: true}) {
		t.Error("Apply(Left) while already held = true, want no interrupt")
	}
}

func TestParseKey(t *testing.T) {
	for k := Key(0); k < NumKeys; k++ {
		got, err := ParseKey(k.String())
		if err != nil || got != k {
			t.Errorf("ParseKey(%q) = %v, %v", k.String(), got, err)
		}
	}
	if got, err := ParseKey("start"); err != nil || got != KeyStart {
		t.Errorf("ParseKey(start) = %v, %v", got, err)
	}
	if _, err := ParseKey("turbo"); err == nil {
		t.Error("ParseKey(turbo) should fail")
	}
}

func TestInvalidKeyIgnored(t *testing.T) {
	j := New()
	j.Press(Key(12))
	j.Write(0x00)
	if got := j.Read(); got != 0xCF {
		t.Errorf("Read() = 0x%02X, want 0xCF", got)
	}
}
