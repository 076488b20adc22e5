package nor

import "github.com/phoenix-rtos/plo-sub001/flash/flexspi"

// Custom-register opcodes the ISSI quirk hook issues, grounded on
// original_source/devices/flash-imxrt/nor/nor_issi.c.
const (
	issiCmdRDCR = 0x35
	issiCmdWRCR = 0x71
)

// Table is the vendor probe table spec §4.6 describes: Winbond, ISSI,
// Macronix, and Micron (mono- and multi-die) JEDEC IDs, plus a
// HyperBus entry for boards wired to a Spansion/Cypress HyperFlash
// part instead of a QSPI NOR. Grounded on flashInfo[] in
// original_source/devices/flash-imxrt/nor/nor.c, with quirk hooks from
// nor_mx.c and nor_issi.c.
var Table = []Info{
	{
		JEDECID:    0xef4018, // Winbond W25Q128
		Name:       "W25Q128",
		TotalSize:  16 * 1024 * 1024,
		PageSize:   256,
		SectorSize: 4096,
		CapFlags:   CapsGeneric,
		LUT:        lutGeneric3Byte,
	},
	{
		JEDECID:    0x9d6019, // ISSI IS25LP128
		Name:       "IS25LP128",
		TotalSize:  16 * 1024 * 1024,
		PageSize:   256,
		SectorSize: 4096,
		CapFlags:   CapsGeneric,
		LUT:        lutISSI3Byte,
		PostInit:   issiQuadEnable,
	},
	{
		JEDECID:    0xc22019, // Macronix MX25L12835F
		Name:       "MX25L12835F",
		TotalSize:  16 * 1024 * 1024,
		PageSize:   256,
		SectorSize: 4096,
		CapFlags:   CapsGeneric,
		LUT:        lutGeneric3Byte,
		PostInit:   mxQuadEnable,
	},
	{
		JEDECID:    0xc2201a, // Macronix MX25L25635F, needs 4-byte addressing
		Name:       "MX25L25635F",
		TotalSize:  32 * 1024 * 1024,
		PageSize:   256,
		SectorSize: 4096,
		CapFlags:   CapsEN4B,
		LUT:        lutGeneric4Byte,
		PostInit:   mxQuadEnable,
	},
	{
		JEDECID:    0x20ba19, // Micron MT25QL256, single die
		Name:       "MT25QL256",
		TotalSize:  32 * 1024 * 1024,
		PageSize:   256,
		SectorSize: 4096,
		CapFlags:   CapsEN4B,
		LUT:        lutMicronMono,
	},
	{
		JEDECID:    0x20bb20, // Micron MT25QL01GBBB, 2 dies
		Name:       "MT25QL01G",
		TotalSize:  128 * 1024 * 1024,
		PageSize:   256,
		SectorSize: 4096,
		CapFlags:   CapsEN4B | CapsDie2,
		LUT:        lutMicronDie,
	},
	{
		JEDECID:    0x20bb21, // Micron MT25QL02GCBB, 4 dies
		Name:       "MT25QL02G",
		TotalSize:  256 * 1024 * 1024,
		PageSize:   256,
		SectorSize: 4096,
		CapFlags:   CapsEN4B | CapsDie4,
		LUT:        lutMicronDie,
	},
	{
		JEDECID:       0x010227, // Spansion S26KS512S HyperFlash
		Name:          "S26KS512S",
		TotalSize:     64 * 1024 * 1024,
		PageSize:      512,
		SectorSize:    256 * 1024,
		CapFlags:      CapsGeneric,
		LUT:           flexspi.HyperflashLUT,
		WordAddressed: true,
	},
}

// mxQuadEnable sets the Macronix status register's quad-enable bit
// (bit 6) if it isn't already set, grounded on nor_mx.c's
// nor_mxQuadEnable: read status, check QE, write-enable + rewrite
// status with QE set, wait for the write to complete.
func mxQuadEnable(ctx *Context) error {
	status, err := ctx.readStatus()
	if err != nil {
		return err
	}
	if status&(1<<6) != 0 {
		return nil
	}
	if err := ctx.writeEnable(true); err != nil {
		return err
	}
	if err := ctx.writeStatus(status | (1 << 6)); err != nil {
		return err
	}
	return ctx.waitBusy()
}

// issiQuadEnable mirrors nor_issi.c's nor_issiInit: the same bit-6
// quad-enable dance, plus ISSI's custom dummy-cycle register fixup
// (bits [7:3] of the read-control register set to value 11, needed
// for the QIOR timing this table uses).
func issiQuadEnable(ctx *Context) error {
	if err := mxQuadEnable(ctx); err != nil {
		return err
	}

	var cr [1]byte
	if _, err := ctx.Controller.Exec(flexspi.Transfer{
		Op:        flexspi.OpRead,
		Port:      ctx.Port,
		SeqIndex:  flexspi.SeqCmdCustom1,
		Data:      cr[:],
		TimeoutMs: ctx.Timeout,
	}); err != nil {
		return err
	}

	dummyCycles := byte(11)
	newCR := (cr[0] &^ (0x1f << 3)) | (dummyCycles << 3)
	if newCR == cr[0] {
		return nil
	}

	if err := ctx.writeEnable(true); err != nil {
		return err
	}
	if _, err := ctx.Controller.Exec(flexspi.Transfer{
		Op:        flexspi.OpWrite,
		Port:      ctx.Port,
		SeqIndex:  flexspi.SeqCmdCustom2,
		Data:      []byte{newCR},
		TimeoutMs: ctx.Timeout,
	}); err != nil {
		return err
	}
	return ctx.waitBusy()
}
