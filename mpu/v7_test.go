package mpu

import (
	"errors"
	"testing"

	"github.com/phoenix-rtos/plo-sub001/errs"
	"github.com/phoenix-rtos/plo-sub001/syspage"
)

func newV7(t *testing.T, regMax int) (*V7Allocator, *V7Partition) {
	t.Helper()
	a := NewV7Allocator(regMax)
	return a, &V7Partition{}
}

func sizeBitOf(rasr uint32) uint8 { return uint8((rasr>>1)&0x1f) + 1 }
func srdOf(rasr uint32) uint8     { return uint8((rasr >> 8) & 0xff) }
func baseOf(rbar uint32) uint32   { return rbar &^ 0x1f }

func TestEncodeSingleRegionPowerOfTwo(t *testing.T) {
	a, p := newV7(t, 16)
	idx := 0
	attr, err := regionAttrs(syspage.AttrRead|syspage.AttrWrite|syspage.AttrExec, true)
	if err != nil {
		t.Fatalf("regionAttrs() error = %v", err)
	}
	if err := a.regionGenerate(p, &idx, 0x60000000, 0x60010000, attr); err != nil {
		t.Fatalf("regionGenerate() error = %v", err)
	}
	if idx != 1 {
		t.Fatalf("region count = %d, want 1", idx)
	}
	if baseOf(p.Regions[0].RBAR) != 0x60000000 {
		t.Fatalf("base = %#x, want 0x60000000", baseOf(p.Regions[0].RBAR))
	}
	if sizeBitOf(p.Regions[0].RASR) != 16 {
		t.Fatalf("sizeBit = %d, want 16 (size 0x10000)", sizeBitOf(p.Regions[0].RASR))
	}
	if srdOf(p.Regions[0].RASR) != 0 {
		t.Fatalf("SRD = %#x, want 0 (power-of-two aligned region needs no subregion masking)", srdOf(p.Regions[0].RASR))
	}
}

func TestEncodeSingleRegionWithSubRegionDisable(t *testing.T) {
	a, p := newV7(t, 16)
	idx := 0
	attr, _ := regionAttrs(syspage.AttrRead|syspage.AttrWrite, true)

	// [0x20000040, 0x20000140) is not itself a power of two aligned
	// range, but fits one 0x200-byte region (base 0x20000000) with
	// subregions {1,2,3,4} enabled (granularity 0x40) and {0,5,6,7}
	// disabled, which covers exactly the requested range.
	if err := a.regionGenerate(p, &idx, 0x20000040, 0x20000140, attr); err != nil {
		t.Fatalf("regionGenerate() error = %v", err)
	}
	if idx != 1 {
		t.Fatalf("region count = %d, want 1", idx)
	}
	if baseOf(p.Regions[0].RBAR) != 0x20000000 {
		t.Fatalf("base = %#x, want 0x20000000", baseOf(p.Regions[0].RBAR))
	}
	if sizeBitOf(p.Regions[0].RASR) != 9 {
		t.Fatalf("sizeBit = %d, want 9 (size 0x200)", sizeBitOf(p.Regions[0].RASR))
	}
	if srdOf(p.Regions[0].RASR) != 0xE1 {
		t.Fatalf("SRD = %#x, want 0xE1 (keep subregions 1-4, granularity 0x40)", srdOf(p.Regions[0].RASR))
	}
}

func TestEncodeTwoRegionSplit(t *testing.T) {
	a, p := newV7(t, 16)
	idx := 0
	attr, _ := regionAttrs(syspage.AttrRead, true)

	// [0, 0x3C0) splits into two adjacent 0x200-byte regions: the
	// first fully enabled, the second SRD-masked down to [0x200,0x3C0).
	if err := a.regionGenerate(p, &idx, 0, 0x3C0, attr); err != nil {
		t.Fatalf("regionGenerate() error = %v", err)
	}
	if idx != 2 {
		t.Fatalf("region count = %d, want 2", idx)
	}
	if baseOf(p.Regions[0].RBAR) != 0 || sizeBitOf(p.Regions[0].RASR) != 9 || srdOf(p.Regions[0].RASR) != 0 {
		t.Fatalf("region0 = base %#x sizeBit %d SRD %#x, want base 0 sizeBit 9 SRD 0",
			baseOf(p.Regions[0].RBAR), sizeBitOf(p.Regions[0].RASR), srdOf(p.Regions[0].RASR))
	}
	if baseOf(p.Regions[1].RBAR) != 0x200 || sizeBitOf(p.Regions[1].RASR) != 9 || srdOf(p.Regions[1].RASR) != 0x80 {
		t.Fatalf("region1 = base %#x sizeBit %d SRD %#x, want base 0x200 sizeBit 9 SRD 0x80",
			baseOf(p.Regions[1].RBAR), sizeBitOf(p.Regions[1].RASR), srdOf(p.Regions[1].RASR))
	}
}

func TestEncodeHolePunch(t *testing.T) {
	a, p := newV7(t, 16)
	idx := 0
	attr, _ := regionAttrs(syspage.AttrRead|syspage.AttrWrite, true)

	// [0, 0x4C0) doesn't fit the one- or two-region cases (sigBits=5),
	// so a 0x800-byte region covering [0, 0x500) is cut down by a
	// second, higher-priority no-access region over [0x4C0, 0x500).
	if err := a.regionGenerate(p, &idx, 0, 0x4C0, attr); err != nil {
		t.Fatalf("regionGenerate() error = %v", err)
	}
	if idx != 2 {
		t.Fatalf("region count = %d, want 2", idx)
	}
	if baseOf(p.Regions[0].RBAR) != 0 || sizeBitOf(p.Regions[0].RASR) != 11 || srdOf(p.Regions[0].RASR) != 0xE0 {
		t.Fatalf("region0 = base %#x sizeBit %d SRD %#x, want base 0 sizeBit 11 SRD 0xE0",
			baseOf(p.Regions[0].RBAR), sizeBitOf(p.Regions[0].RASR), srdOf(p.Regions[0].RASR))
	}
	if baseOf(p.Regions[1].RBAR) != 0x4C0 || sizeBitOf(p.Regions[1].RASR) != 6 {
		t.Fatalf("region1 (hole) = base %#x sizeBit %d, want base 0x4C0 sizeBit 6",
			baseOf(p.Regions[1].RBAR), sizeBitOf(p.Regions[1].RASR))
	}
	if p.Regions[1].RASR&^0x3e != 1 {
		t.Fatalf("hole region RASR = %#x, want only the enable bit set beyond the size field", p.Regions[1].RASR)
	}
}

func TestEncodeFailsBelowGranularity(t *testing.T) {
	a, p := newV7(t, 16)
	idx := 0
	attr, _ := regionAttrs(syspage.AttrRead|syspage.AttrWrite, true)

	if err := a.regionGenerate(p, &idx, 0x10, 0x20, attr); !errors.Is(err, errs.EPERM) {
		t.Fatalf("regionGenerate() below-granularity = %v, want EPERM", err)
	}
}

func TestEncodeFullRange(t *testing.T) {
	a, p := newV7(t, 16)
	idx := 0
	attr, _ := regionAttrs(syspage.AttrRead, true)

	if err := a.regionGenerate(p, &idx, 0, 0, attr); err != nil {
		t.Fatalf("regionGenerate(end=0) error = %v", err)
	}
	if idx != 1 || sizeBitOf(p.Regions[0].RASR) != 32 {
		t.Fatalf("full-range region = count %d sizeBit %d, want 1 region at sizeBit 32", idx, sizeBitOf(p.Regions[0].RASR))
	}
}

func TestAllocProgramIncludesKernelMapFirst(t *testing.T) {
	a := NewV7Allocator(16)
	kernel := syspage.Map{ID: 0, Start: 0x60000000, End: 0x60010000, Attr: syspage.AttrExec | syspage.AttrRead}
	imap := syspage.Map{ID: 1, Start: 0x60010000, End: 0x60020000, Attr: syspage.AttrExec | syspage.AttrRead}
	dmap := syspage.Map{ID: 2, Start: 0x20000000, End: 0x20010000, Attr: syspage.AttrRead | syspage.AttrWrite}

	part, err := a.AllocProgram(kernel, []syspage.Map{imap}, []syspage.Map{dmap})
	if err != nil {
		t.Fatalf("AllocProgram() error = %v", err)
	}
	ids := part.MapIDs()
	if len(ids) != 3 || ids[0] != 0 || ids[1] != 1 || ids[2] != 2 {
		t.Fatalf("MapIDs() = %v, want [0 1 2] (kernel map first)", ids)
	}
}

func TestAllocProgramSkipsAlreadyAllocatedMap(t *testing.T) {
	a := NewV7Allocator(16)
	kernel := syspage.Map{ID: 0, Start: 0x60000000, End: 0x60010000, Attr: syspage.AttrExec | syspage.AttrRead}
	// The program's imap is the same as the kernel map: it must not be
	// allocated a second time.
	part, err := a.AllocProgram(kernel, []syspage.Map{kernel}, nil)
	if err != nil {
		t.Fatalf("AllocProgram() error = %v", err)
	}
	if part.AllocCount() != 1 {
		t.Fatalf("AllocCount() = %d, want 1 (duplicate map skipped)", part.AllocCount())
	}
}

func TestAllocProgramExhaustsRegionTable(t *testing.T) {
	a := NewV7Allocator(1)
	kernel := syspage.Map{ID: 0, Start: 0x60000000, End: 0x60010000, Attr: syspage.AttrExec}
	imap := syspage.Map{ID: 1, Start: 0x60010000, End: 0x60020000, Attr: syspage.AttrExec}

	if _, err := a.AllocProgram(kernel, []syspage.Map{imap}, nil); !errors.Is(err, errs.EPERM) {
		t.Fatalf("AllocProgram() over regMax = %v, want EPERM", err)
	}
}

func TestRegionInvalidateClearsMapID(t *testing.T) {
	a := NewV7Allocator(4)
	p := &V7Partition{}
	idx := 0
	attr, _ := regionAttrs(syspage.AttrRead, true)
	if err := a.regionGenerate(p, &idx, 0x1000, 0x2000, attr); err != nil {
		t.Fatalf("regionGenerate() error = %v", err)
	}
	a.regionAssignMap(p, 0, idx, 7)
	a.regionInvalidate(p, 0, a.regMax)
	for i := 0; i < a.regMax; i++ {
		if p.MapID[i] != noMap {
			t.Fatalf("MapID[%d] = %d after invalidate, want noMap", i, p.MapID[i])
		}
	}
}
