package flexspi

// Hyperflash/HyperBus LUT sequence slots (spec's supplemented
// "Hyperflash / HyperBus LUTs", grounded on original_source/devices/
// flash-imxrt/hyperbus/hyper.c's fspi_hyper* enum). HyperBus addresses
// in 16-bit words rather than bytes, and every phase runs DDR, so it
// gets its own sequence table distinct from the generic NOR one in
// flash/nor/vendor.go.
const (
	SeqHyperReadData = iota
	SeqHyperWriteData
	SeqHyperReadStatus
	_ // slot 3 unused, matching the original's gap before writeEnable
	SeqHyperWriteEnable
	_
	SeqHyperEraseSector
)

// HyperflashLUT is the Spansion S29GL/S26KS-style HyperBus command
// table, transcribed from hyper_lut.h's hyperLut array. Each sequence
// is addressed to a command/status/address cell-array cycle driven
// entirely in DDR 8-pad mode. The table has no separate page-program
// sequence.
var HyperflashLUT = map[int][]LUTSeq{
	SeqHyperReadData: {{
		Seq(LUTCmdDDR, LUTPad8, 0xa0, LUTCmdRAddrDDR, LUTPad8, 0x18),
		Seq(LUTCmdCAddrDDR, LUTPad8, 0x10, LUTCmdReadDDR, LUTPad8, 0x04),
		Seq(LUTCmdStop, LUTPad1, 0x00, 0, 0, 0),
		0,
	}},
	SeqHyperWriteData: {{
		Seq(LUTCmdDDR, LUTPad8, 0x20, LUTCmdRAddrDDR, LUTPad8, 0x18),
		Seq(LUTCmdCAddrDDR, LUTPad8, 0x10, LUTCmdWriteDDR, LUTPad8, 0x02),
		Seq(LUTCmdStop, LUTPad1, 0x00, 0, 0, 0),
		0,
	}},
	// Read status unlocks the cell-array (0x555/0xaa, 0x555/0x05) then
	// issues the status-register read proper (0x70) with RWDS-timed
	// dummy cycles.
	SeqHyperReadStatus: {
		{
			Seq(LUTCmdDDR, LUTPad8, 0x00, LUTCmdDDR, LUTPad8, 0x00),
			Seq(LUTCmdDDR, LUTPad8, 0x00, LUTCmdDDR, LUTPad8, 0xaa),
			Seq(LUTCmdDDR, LUTPad8, 0x00, LUTCmdDDR, LUTPad8, 0x05),
			Seq(LUTCmdDDR, LUTPad8, 0x00, LUTCmdDDR, LUTPad8, 0x70),
		},
		{
			Seq(LUTCmdDDR, LUTPad8, 0xa0, LUTCmdRAddrDDR, LUTPad8, 0x18),
			Seq(LUTCmdCAddrDDR, LUTPad8, 0x10, LUTCmdDummyRWDSDDR, LUTPad8, 0x0b),
			Seq(LUTCmdReadDDR, LUTPad8, 0x04, LUTCmdStop, LUTPad1, 0x0),
			0,
		},
	},
	SeqHyperWriteEnable: {
		{
			Seq(LUTCmdDDR, LUTPad8, 0x00, LUTCmdDDR, LUTPad8, 0x00),
			Seq(LUTCmdDDR, LUTPad8, 0x00, LUTCmdDDR, LUTPad8, 0xaa),
			Seq(LUTCmdDDR, LUTPad8, 0x00, LUTCmdDDR, LUTPad8, 0x05),
			Seq(LUTCmdDDR, LUTPad8, 0x00, LUTCmdDDR, LUTPad8, 0xaa),
		},
		{
			Seq(LUTCmdDDR, LUTPad8, 0x00, LUTCmdDDR, LUTPad8, 0x00),
			Seq(LUTCmdDDR, LUTPad8, 0x00, LUTCmdDDR, LUTPad8, 0x55),
			Seq(LUTCmdDDR, LUTPad8, 0x00, LUTCmdDDR, LUTPad8, 0x02),
			Seq(LUTCmdDDR, LUTPad8, 0x00, LUTCmdDDR, LUTPad8, 0x55),
		},
	},
	SeqHyperEraseSector: {
		{
			Seq(LUTCmdDDR, LUTPad8, 0x00, LUTCmdDDR, LUTPad8, 0x00),
			Seq(LUTCmdDDR, LUTPad8, 0x00, LUTCmdDDR, LUTPad8, 0xaa),
			Seq(LUTCmdDDR, LUTPad8, 0x00, LUTCmdDDR, LUTPad8, 0x05),
			Seq(LUTCmdDDR, LUTPad8, 0x00, LUTCmdDDR, LUTPad8, 0x80),
		},
		{
			Seq(LUTCmdDDR, LUTPad8, 0x00, LUTCmdDDR, LUTPad8, 0x00),
			Seq(LUTCmdDDR, LUTPad8, 0x00, LUTCmdDDR, LUTPad8, 0xaa),
			Seq(LUTCmdDDR, LUTPad8, 0x00, LUTCmdDDR, LUTPad8, 0x05),
			Seq(LUTCmdDDR, LUTPad8, 0x00, LUTCmdDDR, LUTPad8, 0xaa),
		},
		{
			Seq(LUTCmdDDR, LUTPad8, 0x00, LUTCmdDDR, LUTPad8, 0x00),
			Seq(LUTCmdDDR, LUTPad8, 0x00, LUTCmdDDR, LUTPad8, 0x55),
			Seq(LUTCmdDDR, LUTPad8, 0x00, LUTCmdDDR, LUTPad8, 0x02),
			Seq(LUTCmdDDR, LUTPad8, 0x00, LUTCmdDDR, LUTPad8, 0x55),
		},
		{
			Seq(LUTCmdDDR, LUTPad8, 0x00, LUTCmdRAddrDDR, LUTPad8, 0x18),
			Seq(LUTCmdCAddrDDR, LUTPad8, 0x10, LUTCmdDDR, LUTPad8, 0x00),
			Seq(LUTCmdDDR, LUTPad8, 0x30, LUTCmdStop, LUTPad1, 0x00),
			Seq(LUTCmdStop, LUTPad1, 0x00, 0, 0, 0),
		},
	},
}
