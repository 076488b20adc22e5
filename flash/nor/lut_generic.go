package nor

import "github.com/phoenix-rtos/plo-sub001/flash/flexspi"

// JEDEC command opcodes the generic and Micron LUT sequences below
// issue, transcribed from original_source/devices/flash-imxrt/nor/
// nor_lut.h's FLASH_CMD_* constants.
const (
	cmdRDID  = 0x9f
	cmdQIOR  = 0xeb
	cmd4QIOR = 0xec
	cmdRDSR1 = 0x05
	cmdWRR1  = 0x01
	cmdWREN  = 0x06
	cmdWRDI  = 0x04
	cmdP4E   = 0x20
	cmd4P4E  = 0x21
	cmdSE    = 0xd8
	cmd4SE   = 0xdc
	cmdCE    = 0x60
	cmdBE    = 0xc7
	cmdDE    = 0xc4
	cmdQPP   = 0x32
	cmd4QPP  = 0x34
	cmdEN4B  = 0xb7
	cmdEX4B  = 0xe9
)

const lutPad1 = flexspi.LUTPad1
const lutPad4 = 2 // 4-pad (quad) width; LUTPad1/LUTPad8 are the only ones flexspi names, quad sits between them

func seq(cmd0, pad0, op0, cmd1, pad1, op1 uint32) flexspi.LUTSeq {
	return flexspi.LUTSeq{flexspi.Seq(cmd0, pad0, op0, cmd1, pad1, op1), 0, 0, 0}
}

var (
	seqGenericReadID = flexspi.LUTSeq{
		flexspi.Seq(flexspi.LUTCmdSDR, lutPad1, cmdRDID, flexspi.LUTCmdReadSDR, lutPad1, 0x04), 0, 0, 0,
	}
	seqGenericReadStatus = flexspi.LUTSeq{
		flexspi.Seq(flexspi.LUTCmdSDR, lutPad1, cmdRDSR1, flexspi.LUTCmdReadSDR, lutPad1, 0x04),
		flexspi.Seq(flexspi.LUTCmdStop, lutPad1, 0, 0, 0, 0), 0, 0,
	}
	seqGenericWriteStatus = flexspi.LUTSeq{
		flexspi.Seq(flexspi.LUTCmdSDR, lutPad1, cmdWRR1, flexspi.LUTCmdWriteSDR, lutPad1, 0x04),
		flexspi.Seq(flexspi.LUTCmdStop, lutPad1, 0, 0, 0, 0), 0, 0,
	}
	seqGenericWriteEnable = flexspi.LUTSeq{
		flexspi.Seq(flexspi.LUTCmdSDR, lutPad1, cmdWREN, flexspi.LUTCmdStop, lutPad1, 0), 0, 0, 0,
	}
	seqGenericWriteDisable = flexspi.LUTSeq{
		flexspi.Seq(flexspi.LUTCmdSDR, lutPad1, cmdWRDI, flexspi.LUTCmdStop, lutPad1, 0), 0, 0, 0,
	}
	seqGenericEraseChip = flexspi.LUTSeq{
		flexspi.Seq(flexspi.LUTCmdSDR, lutPad1, cmdCE, flexspi.LUTCmdStop, lutPad1, 0), 0, 0, 0,
	}
	seqGenericReadData3Byte = flexspi.LUTSeq{
		flexspi.Seq(flexspi.LUTCmdSDR, lutPad1, cmdQIOR, flexspi.LUTCmdRAddrSDR, lutPad4, 0x18),
		flexspi.Seq(flexspi.LUTCmdDummySDR, lutPad4, 0x00, flexspi.LUTCmdDummySDR, lutPad4, 0x04),
		flexspi.Seq(flexspi.LUTCmdReadSDR, lutPad4, 0x04, flexspi.LUTCmdStop, lutPad1, 0), 0,
	}
	seqGenericReadData4Byte = flexspi.LUTSeq{
		flexspi.Seq(flexspi.LUTCmdSDR, lutPad1, cmd4QIOR, flexspi.LUTCmdRAddrSDR, lutPad4, 0x20),
		flexspi.Seq(flexspi.LUTCmdDummySDR, lutPad4, 0x00, flexspi.LUTCmdDummySDR, lutPad4, 0x04),
		flexspi.Seq(flexspi.LUTCmdReadSDR, lutPad4, 0x04, flexspi.LUTCmdStop, lutPad1, 0), 0,
	}
	seqGenericEraseSector3Byte = seq(flexspi.LUTCmdSDR, lutPad1, cmdP4E, flexspi.LUTCmdRAddrSDR, lutPad1, 0x18)
	seqGenericEraseSector4Byte = seq(flexspi.LUTCmdSDR, lutPad1, cmd4P4E, flexspi.LUTCmdRAddrSDR, lutPad1, 0x20)
	seqGenericProgramQPP3Byte  = flexspi.LUTSeq{
		flexspi.Seq(flexspi.LUTCmdSDR, lutPad1, cmdQPP, flexspi.LUTCmdRAddrSDR, lutPad1, 0x18),
		flexspi.Seq(flexspi.LUTCmdWriteSDR, lutPad4, 0x04, flexspi.LUTCmdStop, lutPad1, 0), 0, 0,
	}
	seqGenericProgramQPP4Byte = flexspi.LUTSeq{
		flexspi.Seq(flexspi.LUTCmdSDR, lutPad1, cmd4QPP, flexspi.LUTCmdRAddrSDR, lutPad1, 0x20),
		flexspi.Seq(flexspi.LUTCmdWriteSDR, lutPad4, 0x04, flexspi.LUTCmdStop, lutPad1, 0), 0, 0,
	}

	seqMicronReadData = flexspi.LUTSeq{
		flexspi.Seq(flexspi.LUTCmdSDR, lutPad1, cmd4QIOR, flexspi.LUTCmdRAddrSDR, lutPad4, 0x20),
		flexspi.Seq(flexspi.LUTCmdDummySDR, lutPad4, 0x0a, flexspi.LUTCmdReadSDR, lutPad4, 0x04),
		flexspi.Seq(flexspi.LUTCmdStop, lutPad1, 0, 0, 0, 0), 0,
	}
	seqMicronEraseSector = seq(flexspi.LUTCmdSDR, lutPad1, cmd4P4E, flexspi.LUTCmdRAddrSDR, lutPad1, 0x20)
	seqMicronEraseBulk   = seq(flexspi.LUTCmdSDR, lutPad1, cmdBE, flexspi.LUTCmdStop, lutPad1, 0)
	seqMicronEraseDie    = flexspi.LUTSeq{
		flexspi.Seq(flexspi.LUTCmdSDR, lutPad1, cmdDE, flexspi.LUTCmdRAddrSDR, lutPad1, 0x20),
		flexspi.Seq(flexspi.LUTCmdStop, lutPad1, 0, 0, 0, 0), 0, 0,
	}
	seqMicronEnter4Byte = seq(flexspi.LUTCmdSDR, lutPad1, cmdEN4B, flexspi.LUTCmdStop, lutPad1, 0)
	seqMicronExit4Byte  = seq(flexspi.LUTCmdSDR, lutPad1, cmdEX4B, flexspi.LUTCmdStop, lutPad1, 0)
)

// lutGeneric3Byte, lutGeneric4Byte are the ISSI/Winbond/Macronix
// tables (spec §4.6's vendor table, 3- vs 4-byte addressing split per
// original_source/devices/flash-imxrt/nor/nor_lut.h).
var lutGeneric3Byte = map[int][]flexspi.LUTSeq{
	flexspi.SeqReadData:       {seqGenericReadData3Byte},
	flexspi.SeqReadStatus:     {seqGenericReadStatus},
	flexspi.SeqWriteStatus:    {seqGenericWriteStatus},
	flexspi.SeqWriteEnable:    {seqGenericWriteEnable},
	flexspi.SeqWriteDisable:   {seqGenericWriteDisable},
	flexspi.SeqEraseSector:    {seqGenericEraseSector3Byte},
	flexspi.SeqEraseChip:      {seqGenericEraseChip},
	flexspi.SeqProgramQPP:     {seqGenericProgramQPP3Byte},
	flexspi.SeqReadID:         {seqGenericReadID},
}

// lutISSI3Byte extends the generic 3-byte table with ISSI's custom
// read/write-configuration-register sequences (issiCmdRDCR/issiCmdWRCR
// in vendor.go), used by issiQuadEnable's dummy-cycle fixup.
var lutISSI3Byte = map[int][]flexspi.LUTSeq{
	flexspi.SeqReadData:     {seqGenericReadData3Byte},
	flexspi.SeqReadStatus:   {seqGenericReadStatus},
	flexspi.SeqWriteStatus:  {seqGenericWriteStatus},
	flexspi.SeqWriteEnable:  {seqGenericWriteEnable},
	flexspi.SeqWriteDisable: {seqGenericWriteDisable},
	flexspi.SeqEraseSector:  {seqGenericEraseSector3Byte},
	flexspi.SeqEraseChip:    {seqGenericEraseChip},
	flexspi.SeqProgramQPP:   {seqGenericProgramQPP3Byte},
	flexspi.SeqReadID:       {seqGenericReadID},
	flexspi.SeqCmdCustom1: {seq(flexspi.LUTCmdSDR, lutPad1, issiCmdRDCR, flexspi.LUTCmdReadSDR, lutPad1, 0x01)},
	flexspi.SeqCmdCustom2: {seq(flexspi.LUTCmdSDR, lutPad1, issiCmdWRCR, flexspi.LUTCmdWriteSDR, lutPad1, 0x01)},
}

var lutGeneric4Byte = map[int][]flexspi.LUTSeq{
	flexspi.SeqReadData:     {seqGenericReadData4Byte},
	flexspi.SeqReadStatus:   {seqGenericReadStatus},
	flexspi.SeqWriteStatus:  {seqGenericWriteStatus},
	flexspi.SeqWriteEnable:  {seqGenericWriteEnable},
	flexspi.SeqWriteDisable: {seqGenericWriteDisable},
	flexspi.SeqEraseSector:  {seqGenericEraseSector4Byte},
	flexspi.SeqEraseChip:    {seqGenericEraseChip},
	flexspi.SeqProgramQPP:   {seqGenericProgramQPP4Byte},
	flexspi.SeqReadID:       {seqGenericReadID},
}

// lutMicronMono covers Micron parts small enough for a single bulk
// erase; lutMicronDie covers the >=1Gbit multi-die parts that need
// per-die erase with 4-byte addressing (spec's CapsDie2/CapsDie4).
var lutMicronMono = map[int][]flexspi.LUTSeq{
	flexspi.SeqReadData:       {seqMicronReadData},
	flexspi.SeqReadStatus:     {seqGenericReadStatus},
	flexspi.SeqWriteStatus:    {seqGenericWriteStatus},
	flexspi.SeqWriteEnable:    {seqGenericWriteEnable},
	flexspi.SeqWriteDisable:   {seqGenericWriteDisable},
	flexspi.SeqEraseSector:    {seqMicronEraseSector},
	flexspi.SeqEraseChip:      {seqMicronEraseBulk},
	flexspi.SeqProgramQPP:     {seqGenericProgramQPP4Byte},
	flexspi.SeqReadID:         {seqGenericReadID},
	flexspi.SeqEnter4ByteAddr: {seqMicronEnter4Byte},
	flexspi.SeqExit4ByteAddr:  {seqMicronExit4Byte},
}

var lutMicronDie = map[int][]flexspi.LUTSeq{
	flexspi.SeqReadData:       {seqMicronReadData},
	flexspi.SeqReadStatus:     {seqGenericReadStatus},
	flexspi.SeqWriteStatus:    {seqGenericWriteStatus},
	flexspi.SeqWriteEnable:    {seqGenericWriteEnable},
	flexspi.SeqWriteDisable:   {seqGenericWriteDisable},
	flexspi.SeqEraseSector:    {seqMicronEraseSector},
	flexspi.SeqEraseChip:      {seqMicronEraseDie},
	flexspi.SeqProgramQPP:     {seqGenericProgramQPP4Byte},
	flexspi.SeqReadID:         {seqGenericReadID},
	flexspi.SeqEnter4ByteAddr: {seqMicronEnter4Byte},
	flexspi.SeqExit4ByteAddr:  {seqMicronExit4Byte},
}
