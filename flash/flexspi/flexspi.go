// Package flexspi drives the FlexSPI/QSPI command controllers that sit
// between the NOR flash engine (flash/nor) and the register file: LUT
// programming, synchronous command/read/write transfers, and the
// iMXRT boot-ROM fallback and Zynq7000 QSPI variants (spec §4.6,
// component E), grounded on original_source/devices/flash-flexspi and
// flash-imxrt.
package flexspi

import (
	"github.com/phoenix-rtos/plo-sub001/errs"
)

// Op selects the shape of a Transfer (spec §3 "FlexSPI transfer
// descriptor").
type Op int

const (
	OpCommand Op = iota
	OpRead
	OpWrite
)

// Transfer is one synchronous FlexSPI IP-bus operation: a command, or
// a command paired with a data phase described by the LUT sequence at
// SeqIndex.
type Transfer struct {
	Op        Op
	Port      uint8  // chip-select slot
	Addr      uint32 // device-relative address; adjusted for the port's flash size by the controller
	SeqIndex  uint8  // LUT sequence slot (0-15)
	SeqNum    uint8  // number of consecutive LUT sequences to chain
	Data      []byte // read destination or write source; nil for OpCommand
	Size      uint32 // erase length in bytes for an OpCommand erase sequence; data transfers use len(Data)
	TimeoutMs uint32 // 0 means no deadline
}

// LUTSeq is one four-word LUT sequence (spec §3, "lut_seq_index").
type LUTSeq [4]uint32

// Controller is the seam behind which the direct LUT/MMIO strategy,
// the boot-ROM API fallback (romapi.go), and the Zynq7000 QSPI variant
// (zynq_qspi.go) all present the same operations to flash/nor. Every
// method mirrors a verb from spec.md §4.6.
type Controller interface {
	// Init brings the controller into a configured, XIP-capable state
	// (spec "Controller initialisation"). Implementations that detect
	// the CPU is already executing from the flash window (XIP guard,
	// spec §4.6) skip reconfiguration and report it via alreadyXIP.
	Init() (alreadyXIP bool, err error)

	// UpdateLUT programs every sequence in seqs, in order, starting at
	// LUT word index*4 (spec "LUT update protocol").
	UpdateLUT(index uint8, seqs []LUTSeq) error

	// Exec runs one Transfer to completion or failure (spec "Transfer
	// execution"). Returns the number of bytes actually moved for
	// OpRead/OpWrite.
	Exec(xfer Transfer) (int, error)

	// AHBRead services a read directly from the memory-mapped AHB
	// window, bypassing the IP bus (spec's ">64KiB short-circuit").
	AHBRead(addr uint32, buf []byte) error
}

// LUT sequence slots shared by every NOR vendor table (spec §4.6,
// enum fspi_readData..fspi_cmdCustom4 in original_source/devices/
// flash-imxrt/nor/nor.h).
const (
	SeqReadData = iota
	SeqReadStatus
	SeqWriteStatus
	SeqWriteEnable
	SeqWriteDisable
	SeqEraseSector
	SeqEraseBlock
	SeqEraseChip
	SeqProgramQPP
	SeqReadID
	SeqEnter4ByteAddr
	SeqExit4ByteAddr
	SeqCmdCustom1
	SeqCmdCustom2
	SeqCmdCustom3
	SeqCmdCustom4
)

// LUT instruction opcodes (spec §4.6 LUT encoding, original_source's
// lutCmd_SDR family). Only the opcodes the NOR and hyperflash tables
// actually use are named.
const (
	LUTCmdSDR      = 0x01
	LUTCmdRAddrSDR = 0x02
	LUTCmdCAddrSDR = 0x03
	LUTCmdDummySDR = 0x0c
	LUTCmdWriteSDR = 0x08
	LUTCmdReadSDR  = 0x09
	LUTCmdStop     = 0x00

	LUTCmdDDR          = 0x21
	LUTCmdRAddrDDR     = 0x22
	LUTCmdCAddrDDR     = 0x23
	LUTCmdWriteDDR     = 0x28
	LUTCmdReadDDR      = 0x29
	LUTCmdDummyRWDSDDR = 0x2d
)

// LUT pad widths.
const (
	LUTPad1 = 0
	LUTPad8 = 3
)

// Seq packs one LUT micro-op pair the way LUT_SEQ() does: cmd0/pad0/op0
// in the low half-word, cmd1/pad1/op1 in the high half-word.
func Seq(cmd0, pad0, op0, cmd1, pad1, op1 uint32) uint32 {
	lo := ((cmd0 & 0x3f) << 10) | ((pad0 & 0x3) << 8) | (op0 & 0xff)
	hi := ((cmd1 & 0x3f) << 10) | ((pad1 & 0x3) << 8) | (op1 & 0xff)
	return (hi << 16) | lo
}

func checkedAddrSize(dataLen int) error {
	if dataLen > 0xffff {
		return errs.EPERM
	}
	return nil
}
