package flexspi

import (
	"github.com/phoenix-rtos/plo-sub001/clock"
	"github.com/phoenix-rtos/plo-sub001/errs"
	"github.com/phoenix-rtos/plo-sub001/mmio"
)

// Zynq7000 QSPI command opcodes (spec's supplemented "Zynq7000 QSPI
// flash controller variant", grounded on original_source/devices/
// flash-zynq7000/flashcfg.c). Xilinx's QSPI controller has no LUT: it
// issues raw JEDEC opcodes directly, so ZynqController implements
// Controller's shape (Exec) with a small Op-to-opcode translation
// instead of a sequence table.
const (
	zynqCmdRDID  = 0x9f
	zynqCmdRDSR1 = 0x05
	zynqCmdWRDI  = 0x04
	zynqCmdWREN  = 0x06
	zynqCmdREAD  = 0x03
	zynqCmdFAST  = 0x0b
	zynqCmdPP    = 0x02
	zynqCmdQPP   = 0x32
	zynqCmdP4E   = 0x20 // 4 KiB sector erase
	zynqCmdSE    = 0xd8 // 64 KiB sector erase
	zynqCmdBE    = 0x60 // chip erase
)

// Zynq QSPI register byte offsets, from flashcfg.h's register block.
const (
	zynqRegConfig     = 0x00
	zynqRegIntrStatus = 0x04
	zynqRegIntrEnable = 0x08
	zynqRegIntrDisable = 0x0c
	zynqRegEnable     = 0x14
	zynqRegTXData     = 0x1c
	zynqRegRXData     = 0x20
	zynqRegTXThresh   = 0x28
	zynqRegRXThresh   = 0x2c
	zynqRegLinearCfg  = 0xa0
)

// zynqSeqOpcode maps the generic NOR sequence slots (flash/nor's
// vocabulary) onto the fixed opcodes this controller understands,
// since it has no programmable LUT to hold them.
var zynqSeqOpcode = map[int]byte{
	SeqReadID:      zynqCmdRDID,
	SeqReadStatus:  zynqCmdRDSR1,
	SeqWriteEnable: zynqCmdWREN,
	SeqEraseSector: zynqCmdSE,
	SeqEraseChip:   zynqCmdBE,
	SeqProgramQPP:  zynqCmdQPP,
	SeqReadData:    zynqCmdFAST,
}

// ZynqController drives the Xilinx QSPI controller in linear (AHB
// memory-mapped) and manual command modes. UpdateLUT is a no-op: the
// controller has no LUT, so flash/nor's vendor table entries that
// would normally carry a lut_table are interpreted through
// zynqSeqOpcode instead.
type ZynqController struct {
	bus mmio.Bus
	ahb mmio.Bus
	clk *clock.Clock
}

func NewZynqController(bus, ahb mmio.Bus, clk *clock.Clock) *ZynqController {
	return &ZynqController{bus: bus, ahb: ahb, clk: clk}
}

func (z *ZynqController) Init() (bool, error) {
	z.bus.Write32(zynqRegEnable, 1)
	z.bus.Write32(zynqRegIntrDisable, 0xffffffff)
	return false, nil
}

// UpdateLUT is a no-op on this controller (see type doc); it always
// succeeds so flash/nor's generic driving code doesn't need a
// controller-capability branch.
func (z *ZynqController) UpdateLUT(uint8, []LUTSeq) error { return nil }

func (z *ZynqController) Exec(xfer Transfer) (int, error) {
	opcode, ok := zynqSeqOpcode[int(xfer.SeqIndex)]
	if !ok {
		return 0, errs.ENXIO
	}

	deadline := uint64(0)
	if xfer.TimeoutMs != 0 && z.clk != nil {
		deadline = z.clk.NowMs() + uint64(xfer.TimeoutMs)
	}

	z.bus.Write8(zynqRegTXData, opcode)
	if xfer.Op == OpWrite {
		for _, b := range xfer.Data {
			z.bus.Write8(zynqRegTXData, b)
		}
	}
	z.bus.Write32(zynqRegConfig, z.bus.Read32(zynqRegConfig)|1)

	for z.bus.Read32(zynqRegIntrStatus)&0x4 == 0 {
		if deadline != 0 && z.clk.NowMs() >= deadline {
			return 0, errs.ETIME
		}
	}
	z.bus.Write32(zynqRegIntrStatus, 0x4)

	if xfer.Op == OpRead {
		for i := range xfer.Data {
			xfer.Data[i] = z.bus.Read8(zynqRegRXData)
		}
		return len(xfer.Data), nil
	}
	return len(xfer.Data), nil
}

// AHBRead services a read through the QSPI linear (memory-mapped)
// address space, matching flashcfg's "Linear_CFG" AHB-mapped window.
func (z *ZynqController) AHBRead(addr uint32, buf []byte) error {
	for i := range buf {
		buf[i] = z.ahb.Read8(uintptr(addr) + uintptr(i))
	}
	return nil
}

var _ Controller = (*ZynqController)(nil)
