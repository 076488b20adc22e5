package nor

import (
	"testing"

	"github.com/phoenix-rtos/plo-sub001/errs"
	"github.com/phoenix-rtos/plo-sub001/flash/flexspi"
)

// fakeController backs flexspi.Controller with a plain byte slice, so
// nor.Context's read-modify-write logic can be exercised without
// driving real FlexSPI register polling loops.
type fakeController struct {
	mem    []byte
	id     uint32
	status byte
}

func newFakeController(size int, id uint32) *fakeController {
	mem := make([]byte, size)
	for i := range mem {
		mem[i] = 0xff
	}
	return &fakeController{mem: mem, id: id}
}

func (f *fakeController) Init() (bool, error) { return false, nil }

func (f *fakeController) UpdateLUT(uint8, []flexspi.LUTSeq) error { return nil }

func (f *fakeController) Exec(xfer flexspi.Transfer) (int, error) {
	switch int(xfer.SeqIndex) {
	case flexspi.SeqReadID:
		xfer.Data[0] = byte(f.id >> 16)
		xfer.Data[1] = byte(f.id >> 8)
		xfer.Data[2] = byte(f.id)
	case flexspi.SeqReadStatus:
		xfer.Data[0] = f.status
	case flexspi.SeqWriteStatus:
		f.status = xfer.Data[0]
	case flexspi.SeqWriteEnable:
		f.status |= 1 << 1
	case flexspi.SeqWriteDisable:
		f.status &^= 1 << 1
	case flexspi.SeqEnter4ByteAddr, flexspi.SeqExit4ByteAddr,
		flexspi.SeqCmdCustom1, flexspi.SeqCmdCustom2:
		// no persistent state needed for these in tests
	case flexspi.SeqEraseSector:
		for i := uint32(0); i < 4096 && int(xfer.Addr+i) < len(f.mem); i++ {
			f.mem[xfer.Addr+i] = 0xff
		}
	case flexspi.SeqEraseChip:
		for i := range f.mem {
			f.mem[i] = 0xff
		}
	case flexspi.SeqProgramQPP:
		copy(f.mem[xfer.Addr:], xfer.Data)
	case flexspi.SeqReadData:
		copy(xfer.Data, f.mem[xfer.Addr:])
	}
	return len(xfer.Data), nil
}

func (f *fakeController) AHBRead(addr uint32, buf []byte) error {
	copy(buf, f.mem[addr:])
	return nil
}

var _ flexspi.Controller = (*fakeController)(nil)

func winbondTable() []Info {
	return []Info{Table[0]} // Winbond W25Q128, 3-byte addressing, generic table
}

func TestOpenProbesVendorTable(t *testing.T) {
	ctrl := newFakeController(16*1024*1024, 0xef4018)
	ctx, err := Open(ctrl, 0, 1000, winbondTable())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if ctx.Info.Name != "W25Q128" {
		t.Fatalf("Info.Name = %q, want W25Q128", ctx.Info.Name)
	}
	if ctx.CachedSector != -1 {
		t.Fatalf("CachedSector = %d, want -1 after Open", ctx.CachedSector)
	}
	if ctx.WriteCursor != 0 {
		t.Fatalf("WriteCursor = %d, want 0 after Open", ctx.WriteCursor)
	}
}

func TestOpenUnknownIDFails(t *testing.T) {
	ctrl := newFakeController(16*1024*1024, 0xdeadbe)
	if _, err := Open(ctrl, 0, 1000, winbondTable()); err != errs.ENODEV {
		t.Fatalf("Open with unknown ID: err = %v, want ENODEV", err)
	}
}

// TestBufferedWriteReadBack reproduces the write/read-back scenario:
// a 256-byte write at offset 0x1200 of all 0xAA must leave the rest of
// its 4KiB sector at the erased 0xFF value, both before and after sync.
func TestBufferedWriteReadBack(t *testing.T) {
	ctrl := newFakeController(16*1024*1024, 0xef4018)
	ctx, err := Open(ctrl, 0, 1000, winbondTable())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	data := make([]byte, 256)
	for i := range data {
		data[i] = 0xaa
	}
	if err := ctx.BufferedWrite(0x1200, data); err != nil {
		t.Fatalf("BufferedWrite: %v", err)
	}
	if err := ctx.Sync(); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	checkRange := func(start, end uint32, want byte) {
		buf := make([]byte, end-start)
		if _, err := ctx.ReadBack(start, buf); err != nil {
			t.Fatalf("ReadBack(%#x,%#x): %v", start, end, err)
		}
		for i, b := range buf {
			if b != want {
				t.Fatalf("byte at %#x = %#x, want %#x", start+uint32(i), b, want)
			}
		}
	}

	checkRange(0x1000, 0x1200, 0xff)
	checkRange(0x1200, 0x1300, 0xaa)
	checkRange(0x1300, 0x2000, 0xff)
}

// TestBufferedWriteVisibleBeforeSync checks the dirty-buffer read path
// serves writes that have not yet been flushed.
func TestBufferedWriteVisibleBeforeSync(t *testing.T) {
	ctrl := newFakeController(16*1024*1024, 0xef4018)
	ctx, err := Open(ctrl, 0, 1000, winbondTable())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	data := make([]byte, 256)
	for i := range data {
		data[i] = 0x42
	}
	if err := ctx.BufferedWrite(0x0, data); err != nil {
		t.Fatalf("BufferedWrite: %v", err)
	}

	buf := make([]byte, 256)
	if _, err := ctx.ReadBack(0, buf); err != nil {
		t.Fatalf("ReadBack: %v", err)
	}
	for i, b := range buf {
		if b != 0x42 {
			t.Fatalf("byte %d = %#x before sync, want 0x42 from dirty buffer", i, b)
		}
	}
}

// TestBufferedWriteSpansMultipleSectors writes a buffer that crosses a
// sector boundary from a non-sector-aligned offset and checks every
// written page lands at the right address in both sectors, guarding
// against the write cursor being seeded from the call's original
// offset instead of the current write position on sector transitions.
func TestBufferedWriteSpansMultipleSectors(t *testing.T) {
	ctrl := newFakeController(16*1024*1024, 0xef4018)
	ctx, err := Open(ctrl, 0, 1000, winbondTable())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	const pageSize = 256
	numPages := 12
	data := make([]byte, numPages*pageSize)
	for i := range data {
		data[i] = byte(i / pageSize)
	}

	offset := uint32(0x0800) // not sector-aligned; write ends at 0x1400, inside sector 1
	if err := ctx.BufferedWrite(offset, data); err != nil {
		t.Fatalf("BufferedWrite: %v", err)
	}
	if err := ctx.Sync(); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	got := make([]byte, len(data))
	if _, err := ctx.ReadBack(offset, got); err != nil {
		t.Fatalf("ReadBack: %v", err)
	}
	for i := range data {
		if got[i] != data[i] {
			t.Fatalf("byte at offset+%#x = %#x, want %#x", i, got[i], data[i])
		}
	}
}

func TestEraseSectorRejectsUnaligned(t *testing.T) {
	ctrl := newFakeController(16*1024*1024, 0xef4018)
	ctx, err := Open(ctrl, 0, 1000, winbondTable())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := ctx.EraseSector(1); err != errs.EINVAL {
		t.Fatalf("EraseSector(1): err = %v, want EINVAL", err)
	}
}

func TestEraseChipMultiDie(t *testing.T) {
	ctrl := newFakeController(128*1024*1024, 0x20bb20) // Micron MT25QL01G, 2 dies
	ctx, err := Open(ctrl, 0, 1000, []Info{Table[5]})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got := ctx.dieCount(); got != 2 {
		t.Fatalf("dieCount() = %d, want 2", got)
	}
	ctrl.mem[0] = 0x00
	ctrl.mem[len(ctrl.mem)-1] = 0x00
	if err := ctx.EraseChip(); err != nil {
		t.Fatalf("EraseChip: %v", err)
	}
	if ctrl.mem[0] != 0xff || ctrl.mem[len(ctrl.mem)-1] != 0xff {
		t.Fatalf("EraseChip left non-erased bytes at the array boundaries")
	}
}

func TestBufferedWriteRejectsPartialPage(t *testing.T) {
	ctrl := newFakeController(16*1024*1024, 0xef4018)
	ctx, err := Open(ctrl, 0, 1000, winbondTable())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := ctx.BufferedWrite(0, make([]byte, 100)); err != errs.EINVAL {
		t.Fatalf("BufferedWrite with non-page-multiple size: err = %v, want EINVAL", err)
	}
}

func TestMacronixQuadEnableSetsBit(t *testing.T) {
	ctrl := newFakeController(16*1024*1024, 0xc22019)
	ctx, err := Open(ctrl, 0, 1000, []Info{Table[2]})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	status, err := ctx.readStatus()
	if err != nil {
		t.Fatalf("readStatus: %v", err)
	}
	if status&(1<<6) == 0 {
		t.Fatalf("quad-enable bit not set after Open's PostInit hook")
	}
}
