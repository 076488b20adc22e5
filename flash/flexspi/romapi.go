package flexspi

import (
	"github.com/phoenix-rtos/plo-sub001/errs"
)

// ROMAPI is the optional boot-ROM fallback strategy (spec's supplemented
// "rom_api boot-ROM fallback path", grounded on original_source/
// armv7m7-imxrt106x/rom_api.c): the iMXRT boot ROM exposes a callable
// driver table at a fixed address, and a board that trusts it can use
// program/erase/read/update_lut/xfer through that table instead of
// bit-banging the FlexSPI registers directly.
//
// The table itself is platform/ROM-specific function pointers, which
// this portable module cannot call; ROMAPI is parameterised over a
// Table of Go funcs so a board package can wire the real ROM calls
// (via its own unexported asm glue) while tests wire fakes. Exec
// dispatches a program/erase-chip/erase-sector Transfer to the
// matching Program/EraseAll/Erase entry when the board supplied one,
// so a board that trusts the ROM for those but still drives LUT
// updates and plain command/read sequences itself can mix the two
// (the rom_api.c table has no clear_cache caller anywhere in the
// surveyed source, so that entry point is not modelled here).
type Table struct {
	Init      func(instance uint32) error
	Program   func(instance uint32, dstAddr uint32, src []byte) error
	EraseAll  func(instance uint32) error
	Erase     func(instance uint32, start, length uint32) error
	Read      func(instance uint32, dst []byte, start uint32) error
	UpdateLUT func(instance uint32, seqIndex uint8, seqs []LUTSeq) error
	Xfer      func(instance uint32, xfer Transfer) (int, error)
}

// ROMAPI adapts a Table to the Controller interface. If Fallback is
// non-nil, any Table entry left nil for this board falls back to it
// (e.g. a board that trusts ROM program/erase but still drives LUT
// updates directly).
type ROMAPI struct {
	Instance uint32
	Table    Table
	Fallback Controller
}

func (r *ROMAPI) Init() (bool, error) {
	if r.Table.Init == nil {
		if r.Fallback != nil {
			return r.Fallback.Init()
		}
		return false, errs.ENXIO
	}
	return false, r.Table.Init(r.Instance)
}

func (r *ROMAPI) UpdateLUT(index uint8, seqs []LUTSeq) error {
	if r.Table.UpdateLUT == nil {
		if r.Fallback != nil {
			return r.Fallback.UpdateLUT(index, seqs)
		}
		return errs.ENXIO
	}
	return r.Table.UpdateLUT(r.Instance, index, seqs)
}

func (r *ROMAPI) Exec(xfer Transfer) (int, error) {
	switch {
	case xfer.Op == OpWrite && xfer.SeqIndex == SeqProgramQPP && r.Table.Program != nil:
		if err := r.Table.Program(r.Instance, xfer.Addr, xfer.Data); err != nil {
			return 0, err
		}
		return len(xfer.Data), nil

	case xfer.Op == OpCommand && xfer.SeqIndex == SeqEraseChip && r.Table.EraseAll != nil:
		return 0, r.Table.EraseAll(r.Instance)

	case xfer.Op == OpCommand && (xfer.SeqIndex == SeqEraseSector || xfer.SeqIndex == SeqEraseBlock) && r.Table.Erase != nil:
		return 0, r.Table.Erase(r.Instance, xfer.Addr, xfer.Size)
	}

	if r.Table.Xfer == nil {
		if r.Fallback != nil {
			return r.Fallback.Exec(xfer)
		}
		return 0, errs.ENXIO
	}
	return r.Table.Xfer(r.Instance, xfer)
}

func (r *ROMAPI) AHBRead(addr uint32, buf []byte) error {
	if r.Table.Read == nil {
		if r.Fallback != nil {
			return r.Fallback.AHBRead(addr, buf)
		}
		return errs.ENXIO
	}
	return r.Table.Read(r.Instance, buf, addr)
}

var _ Controller = (*ROMAPI)(nil)
