package mpu

import (
	"errors"
	"testing"

	"github.com/phoenix-rtos/plo-sub001/errs"
	"github.com/phoenix-rtos/plo-sub001/syspage"
)

func TestV8AllocProgramSingleRegion(t *testing.T) {
	a := NewV8Allocator(16)
	kernel := syspage.Map{ID: 0, Start: 0x60000000, End: 0x60100000, Attr: syspage.AttrRead | syspage.AttrWrite | syspage.AttrExec}

	part, err := a.AllocProgram(kernel, nil, nil)
	if err != nil {
		t.Fatalf("AllocProgram() error = %v", err)
	}
	if part.AllocCount() != 1 {
		t.Fatalf("AllocCount() = %d, want 1", part.AllocCount())
	}
	v8 := part.(*V8Partition)
	if v8.Regions[0].RBAR != 0x60000002 {
		t.Fatalf("RBAR = %#x, want 0x60000002", v8.Regions[0].RBAR)
	}
	if v8.Regions[0].RLAR != 0x600FFFE1 {
		t.Fatalf("RLAR = %#x, want 0x600FFFE1", v8.Regions[0].RLAR)
	}
}

func TestV8RegionSetRejectsMisalignment(t *testing.T) {
	a := NewV8Allocator(16)
	p := &V8Partition{}
	idx := 0
	if err := a.regionSet(p, &idx, 0x60000001, 0x60000020, 0, 0); !errors.Is(err, errs.EPERM) {
		t.Fatalf("regionSet() misaligned = %v, want EPERM", err)
	}
}

func TestV8RegionSetAllowsFullRange(t *testing.T) {
	a := NewV8Allocator(16)
	p := &V8Partition{}
	idx := 0
	if err := a.regionSet(p, &idx, 0, 0, 0, 1); err != nil {
		t.Fatalf("regionSet(end=0) error = %v", err)
	}
	if p.Regions[0].RLAR != 0xffffffe1 {
		t.Fatalf("RLAR = %#x, want 0xffffffe1 (full-range limit with enable bit)", p.Regions[0].RLAR)
	}
}

func TestV8NoMPUSupportIsNoop(t *testing.T) {
	a := NewV8Allocator(0)
	kernel := syspage.Map{ID: 0, Start: 0x60000000, End: 0x60100000, Attr: syspage.AttrExec}

	part, err := a.AllocProgram(kernel, nil, nil)
	if err != nil {
		t.Fatalf("AllocProgram() on MPU-less board error = %v", err)
	}
	if part.AllocCount() != 0 {
		t.Fatalf("AllocCount() = %d, want 0 (no MPU to program)", part.AllocCount())
	}
}

func TestV8AllocProgramSkipsDuplicateMap(t *testing.T) {
	a := NewV8Allocator(16)
	kernel := syspage.Map{ID: 0, Start: 0x60000000, End: 0x60100000, Attr: syspage.AttrExec}

	part, err := a.AllocProgram(kernel, []syspage.Map{kernel}, nil)
	if err != nil {
		t.Fatalf("AllocProgram() error = %v", err)
	}
	if part.AllocCount() != 1 {
		t.Fatalf("AllocCount() = %d, want 1", part.AllocCount())
	}
}
