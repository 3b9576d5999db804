package interrupts

import "testing"

type testBus [0x10000]uint8

func (b *testBus) Read(addr uint16) uint8         { return b[addr] }
func (b *testBus) Write(addr uint16, value uint8) { b[addr] = value }

func TestVectors(t *testing.T) {
	want := map[Interrupt]uint16{
		VBlank:  0x40,
		LCDStat: 0x48,
		Timer:   0x50,
		Serial:  0x58,
		Joypad:  0x60,
	}
	for i, v := range want {
		if i.Vector() != v {
			t.Errorf("%s.Vector() = 0x%04X, want 0x%04X", i, i.Vector(), v)
		}
	}
}

func TestRequestAcknowledge(t *testing.T) {
	bus := &testBus{}
	Request(bus, Timer)
	Request(bus, Joypad)
	if bus[IF] != 0x14 {
		t.Errorf("IF = 0x%02X, want 0x14", bus[IF])
	}
	Acknowledge(bus, Timer)
	if bus[IF] != 0x10 {
		t.Errorf("IF = 0x%02X, want 0x10", bus[IF])
	}
}

func TestPendingMasksEnable(t *testing.T) {
	bus := &testBus{}
	bus[IF] = 0xFF
	bus[IE] = uint8(Serial.Mask() | VBlank.Mask())
	if got := Pending(bus); got != 0x09 {
		t.Errorf("Pending() = 0x%02X, want 0x09", got)
	}
	if got := Requested(bus); got != 0x1F {
		t.Errorf("Requested() = 0x%02X, want 0x1F", got)
	}
}

func TestHighestPriority(t *testing.T) {
	tests := []struct {
		pending uint8
		want    Interrupt
		ok      bool
	}{
		{0x00, 0, false},
		{0x05, VBlank, true},
		{0x04, Timer, true},
		{0x18, Serial, true},
		{0x10, Joypad, true},
	}
	for _, tt := range tests {
		got, ok := Highest(tt.pending)
		if ok != tt.ok || (ok && got != tt.want) {
			t.Errorf("Highest(0x%02X) = %s, %v; want %s, %v", tt.pending, got, ok, tt.want, tt.ok)
		}
	}
}

func TestPollRequiresIME(t *testing.T) {
	bus := &testBus{}
	bus[IE] = 0x1F
	Request(bus, LCDStat)

	var c Controller
	if _, ok := c.Poll(bus); ok {
		t.Error("Poll() with IME clear should report nothing")
	}
	c.IME = true
	if it, ok := c.Poll(bus); !ok || it != LCDStat {
		t.Errorf("Poll() = %s, %v; want LCD STAT", it, ok)
	}
}
