package flexspi

import (
	"testing"

	"github.com/phoenix-rtos/plo-sub001/mmio"
)

// newIdleFake returns a Fake register file preset as if the controller
// is already idle (STS0 bits 0-1 set), the precondition UpdateLUT and
// Exec poll for before touching the LUT/IP registers. mmio.Fake is a
// passive memory region, not real hardware, so callers must preset any
// bit a polling loop expects to observe flip on its own.
func newIdleFake(t *testing.T, size int) *mmio.Fake {
	t.Helper()
	fk, err := mmio.NewFake(size)
	if err != nil {
		t.Fatalf("mmio.NewFake: %v", err)
	}
	t.Cleanup(func() { fk.Close() })
	fk.Write32(regSTS0, 0x3)
	return fk
}

func TestUpdateLUTWritesSequenceWords(t *testing.T) {
	fk := newIdleFake(t, 0x1000)
	c := NewMMIOController(fk, fk, nil, 0x1)

	seqs := []LUTSeq{
		{Seq(LUTCmdSDR, LUTPad1, 0x9f, LUTCmdReadSDR, LUTPad1, 0x04), 0, 0, 0},
	}
	if err := c.UpdateLUT(3, seqs); err != nil {
		t.Fatalf("UpdateLUT: %v", err)
	}

	base := regLUT0 + uintptr(3)*16
	for i, word := range seqs[0] {
		got := fk.Read32(base + uintptr(i)*4)
		if got != word {
			t.Fatalf("LUT word %d = %#x, want %#x", i, got, word)
		}
	}

	// The unlock/lock protocol must leave LUTCR in the locked state.
	if got := fk.Read32(regLUTCR); got != 1 {
		t.Fatalf("regLUTCR = %#x after UpdateLUT, want 1 (locked)", got)
	}
}

func TestSetFlashSizeAffectsAddrTranslation(t *testing.T) {
	fk := newIdleFake(t, 0x1000)
	c := NewMMIOController(fk, fk, nil, 0x1)
	c.SetFlashSize(0, 0x1000000)
	c.SetFlashSize(1, 0x2000000)

	if got := c.addrByPort(0, 0x100); got != 0x100 {
		t.Fatalf("addrByPort(0, 0x100) = %#x, want 0x100", got)
	}
	if got := c.addrByPort(2, 0x100); got != 0x3000100 {
		t.Fatalf("addrByPort(2, 0x100) = %#x, want 0x3000100", got)
	}
}

func TestAHBReadCopiesFromWindow(t *testing.T) {
	fk := newIdleFake(t, 0x1000)
	ahb, err := mmio.NewFake(0x1000)
	if err != nil {
		t.Fatalf("mmio.NewFake: %v", err)
	}
	defer ahb.Close()
	for i := 0; i < 16; i++ {
		ahb.Write8(uintptr(0x100+i), byte(i))
	}

	c := NewMMIOController(fk, ahb, nil, 0x1)
	buf := make([]byte, 16)
	if err := c.AHBRead(0x100, buf); err != nil {
		t.Fatalf("AHBRead: %v", err)
	}
	for i, b := range buf {
		if b != byte(i) {
			t.Fatalf("buf[%d] = %#x, want %#x", i, b, i)
		}
	}
}
