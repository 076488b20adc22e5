// Package nor implements the JEDEC-probed, sector-buffered NOR flash
// engine (spec §4.6, component F): vendor identification, per-vendor
// post-init quirks, and the read-modify-write discipline that turns a
// byte-granular Write into page-programmed, sector-erased flash
// traffic. Grounded on original_source/devices/flash-imxrt/nor/nor.c
// and flashdrv.c.
package nor

import (
	"github.com/phoenix-rtos/plo-sub001/errs"
	"github.com/phoenix-rtos/plo-sub001/flash/flexspi"
)

// Info is one vendor table entry (spec §3 "NOR flash context" ->
// per-chip info record), transcribed from flashInfo[] in nor.c.
type Info struct {
	JEDECID       uint32
	Name          string
	TotalSize     uint32
	PageSize      uint32
	SectorSize    uint32
	CapFlags      uint32
	LUT           map[int][]flexspi.LUTSeq
	WordAddressed bool // true for HyperBus/HyperFlash parts (spec's supplemented hyperflash feature)
	PostInit      func(ctx *Context) error
}

// Capability flags (spec §4.6, NOR_CAPS_* in nor.h).
const (
	CapsGeneric = 0
	CapsEN4B    = 0x100 // needs explicit 4-byte-address mode for multi-die erase
	CapsDie2    = 0x1000
	CapsDie4    = 0x2000
)

// Context is one open NOR device: the live chip Info plus the
// sector-buffered write engine's dirty-buffer state (spec §3 "NOR
// flash context"). The invariant CachedSector == -1 iff WriteCursor
// == 0 iff no dirty sector is held.
type Context struct {
	Controller flexspi.Controller
	Port       uint8
	Timeout    uint32

	Info *Info

	CachedSector int64 // -1 means no sector cached
	WriteCursor  uint32
	SectorBuf    []byte
}

// Open probes the device behind ctrl/port, matches it against table,
// runs its PostInit hook if present, and returns a ready Context.
func Open(ctrl flexspi.Controller, port uint8, timeout uint32, table []Info) (*Context, error) {
	id, err := readID(ctrl, port, timeout)
	if err != nil {
		return nil, err
	}

	for i := range table {
		if table[i].JEDECID == id {
			ctx := &Context{
				Controller:   ctrl,
				Port:         port,
				Timeout:      timeout,
				Info:         &table[i],
				CachedSector: -1,
				SectorBuf:    make([]byte, table[i].SectorSize),
			}
			for j := range ctx.SectorBuf {
				ctx.SectorBuf[j] = 0xff
			}
			if err := ctrl.UpdateLUT(0, flattenLUT(table[i].LUT)); err != nil {
				return nil, err
			}
			if table[i].PostInit != nil {
				if err := table[i].PostInit(ctx); err != nil {
					return nil, err
				}
			}
			return ctx, nil
		}
	}
	return nil, errs.ENODEV
}

// flattenLUT concatenates a vendor's sequence map into one contiguous
// table ordered by slot index, for the bulk UpdateLUT(0, ...) call
// Open issues after probing (mirrors flexspi_norFlashUpdateLUT being
// handed the whole mem.lut array at init).
func flattenLUT(m map[int][]flexspi.LUTSeq) []flexspi.LUTSeq {
	maxSlot := 0
	for slot := range m {
		if slot > maxSlot {
			maxSlot = slot
		}
	}
	out := make([]flexspi.LUTSeq, 0, maxSlot+1)
	for slot := 0; slot <= maxSlot; slot++ {
		seqs, ok := m[slot]
		if !ok || len(seqs) == 0 {
			out = append(out, flexspi.LUTSeq{})
			continue
		}
		out = append(out, seqs[0])
	}
	return out
}

func readID(ctrl flexspi.Controller, port uint8, timeout uint32) (uint32, error) {
	var id [3]byte
	_, err := ctrl.Exec(flexspi.Transfer{
		Op:        flexspi.OpRead,
		Port:      port,
		SeqIndex:  flexspi.SeqReadID,
		Data:      id[:],
		TimeoutMs: timeout,
	})
	if err != nil {
		return 0, err
	}
	return uint32(id[0])<<16 | uint32(id[1])<<8 | uint32(id[2]), nil
}

func (c *Context) readStatus() (byte, error) {
	var status [1]byte
	_, err := c.Controller.Exec(flexspi.Transfer{
		Op:        flexspi.OpRead,
		Port:      c.Port,
		SeqIndex:  flexspi.SeqReadStatus,
		Data:      status[:],
		TimeoutMs: c.Timeout,
	})
	return status[0], err
}

func (c *Context) writeStatus(b byte) error {
	buf := [1]byte{b}
	_, err := c.Controller.Exec(flexspi.Transfer{
		Op:        flexspi.OpWrite,
		Port:      c.Port,
		SeqIndex:  flexspi.SeqWriteStatus,
		Data:      buf[:],
		TimeoutMs: c.Timeout,
	})
	return err
}

func (c *Context) waitBusy() error {
	for {
		status, err := c.readStatus()
		if err != nil {
			return err
		}
		if status&1 == 0 {
			return nil
		}
	}
}

func (c *Context) writeEnable(enable bool) error {
	if err := c.waitBusy(); err != nil {
		return err
	}
	seq := flexspi.SeqWriteEnable
	if !enable {
		seq = flexspi.SeqWriteDisable
	}
	if _, err := c.Controller.Exec(flexspi.Transfer{
		Op:        flexspi.OpCommand,
		Port:      c.Port,
		SeqIndex:  uint8(seq),
		TimeoutMs: c.Timeout,
	}); err != nil {
		return err
	}
	status, err := c.readStatus()
	if err != nil {
		return err
	}
	want := byte(0)
	if enable {
		want = 1
	}
	if (status>>1)&1 != want {
		return errs.EIO
	}
	return nil
}

// ReadData reads size bytes at addr directly from the device, bypassing
// the sector buffer (spec's nor_readData).
func (c *Context) ReadData(addr uint32, buf []byte) (int, error) {
	return c.Controller.Exec(flexspi.Transfer{
		Op:        flexspi.OpRead,
		Port:      c.Port,
		Addr:      addr,
		SeqIndex:  flexspi.SeqReadData,
		Data:      buf,
		TimeoutMs: c.Timeout,
	})
}

// EraseSector erases the Info.SectorSize-byte sector at offset (spec "Erase":
// sector_erase requires offset mod sector_size == 0).
func (c *Context) EraseSector(offset uint32) error {
	if offset%c.Info.SectorSize != 0 {
		return errs.EINVAL
	}
	if err := c.writeEnable(true); err != nil {
		return err
	}
	if _, err := c.Controller.Exec(flexspi.Transfer{
		Op:        flexspi.OpCommand,
		Port:      c.Port,
		Addr:      offset,
		SeqIndex:  flexspi.SeqEraseSector,
		Size:      c.Info.SectorSize,
		TimeoutMs: c.Timeout,
	}); err != nil {
		return err
	}
	return c.waitBusy()
}

func (c *Context) mode4ByteAddr(enable bool) error {
	seq := flexspi.SeqExit4ByteAddr
	if enable {
		seq = flexspi.SeqEnter4ByteAddr
	}
	_, err := c.Controller.Exec(flexspi.Transfer{
		Op:        flexspi.OpCommand,
		Port:      c.Port,
		SeqIndex:  uint8(seq),
		TimeoutMs: c.Timeout,
	})
	return err
}

// dieCount reports how many dies EraseChip must iterate (spec "Erase":
// "multi-die parts (Micron MT25Q >= 1Gbit) iterate die_erase... once
// per die").
func (c *Context) dieCount() int {
	switch {
	case c.Info.CapFlags&CapsDie4 != 0:
		return 4
	case c.Info.CapFlags&CapsDie2 != 0:
		return 2
	default:
		return 1
	}
}

// EraseChip erases the whole device: a single command on mono-die
// parts, or one die_erase per die (with 4-byte addressing) on
// multi-die parts.
func (c *Context) EraseChip() error {
	dies := c.dieCount()
	dieSize := c.Info.TotalSize / uint32(dies)

	for die := 0; die < dies; die++ {
		if err := c.writeEnable(true); err != nil {
			return err
		}
		if dies > 1 && c.Info.CapFlags&CapsEN4B != 0 {
			if err := c.mode4ByteAddr(true); err != nil {
				return err
			}
		}
		if _, err := c.Controller.Exec(flexspi.Transfer{
			Op:        flexspi.OpCommand,
			Port:      c.Port,
			Addr:      uint32(die) * dieSize,
			SeqIndex:  flexspi.SeqEraseChip,
			TimeoutMs: c.Timeout,
		}); err != nil {
			return err
		}
		if err := c.waitBusy(); err != nil {
			return err
		}
	}
	return nil
}

// PageProgram programs exactly one page (spec's nor_pageProgram).
func (c *Context) PageProgram(addr uint32, data []byte) error {
	if err := c.writeEnable(true); err != nil {
		return err
	}
	if _, err := c.Controller.Exec(flexspi.Transfer{
		Op:        flexspi.OpWrite,
		Port:      c.Port,
		Addr:      addr,
		SeqIndex:  flexspi.SeqProgramQPP,
		Data:      data,
		TimeoutMs: c.Timeout,
	}); err != nil {
		return err
	}
	return c.waitBusy()
}

// Flush programs every page of the currently cached sector back to
// flash, then clears the dirty-buffer invariant (spec §4.6 "flush()").
func (c *Context) Flush() error {
	if c.CachedSector < 0 {
		return nil
	}
	sectorBase := uint32(c.CachedSector) * c.Info.SectorSize
	for off := uint32(0); off < c.Info.SectorSize; off += c.Info.PageSize {
		if err := c.PageProgram(sectorBase+off, c.SectorBuf[off:off+c.Info.PageSize]); err != nil {
			return err
		}
	}
	c.CachedSector = -1
	c.WriteCursor = 0
	return nil
}

// Sync flushes any dirty sector, matching spec §5's "sync calls
// flush" durability contract.
func (c *Context) Sync() error { return c.Flush() }

// BufferedWrite writes size bytes of data at offset, read-modify-write
// through the sector buffer (spec §4.6 "Sector-buffered write"). size
// must be a multiple of the chip's page size and the range must fit
// within TotalSize.
func (c *Context) BufferedWrite(offset uint32, data []byte) error {
	if uint32(len(data))%c.Info.PageSize != 0 {
		return errs.EINVAL
	}
	if uint64(offset)+uint64(len(data)) > uint64(c.Info.TotalSize) {
		return errs.EINVAL
	}

	bytesDone := uint32(0)
	for bytesDone < uint32(len(data)) {
		targetSector := int64((offset + bytesDone) / c.Info.SectorSize)
		if targetSector != c.CachedSector {
			if err := c.Flush(); err != nil {
				return err
			}
			sectorBase := uint32(targetSector) * c.Info.SectorSize
			if _, err := c.ReadData(sectorBase, c.SectorBuf); err != nil {
				return err
			}
			if err := c.EraseSector(sectorBase); err != nil {
				return err
			}
			c.CachedSector = targetSector
		}
		c.WriteCursor = (offset + bytesDone) - uint32(targetSector)*c.Info.SectorSize

		copy(c.SectorBuf[c.WriteCursor:c.WriteCursor+c.Info.PageSize], data[bytesDone:bytesDone+c.Info.PageSize])
		c.WriteCursor += c.Info.PageSize
		bytesDone += c.Info.PageSize

		if c.WriteCursor == c.Info.SectorSize {
			if err := c.Flush(); err != nil {
				return err
			}
		}
	}
	return nil
}

// ReadBack reads size bytes at offset, preferring the dirty sector
// buffer over flash contents for any byte range the buffer currently
// covers (the write-before-sync visibility the engine's contract
// promises).
func (c *Context) ReadBack(offset uint32, buf []byte) (int, error) {
	if c.CachedSector >= 0 {
		sectorBase := uint32(c.CachedSector) * c.Info.SectorSize
		sectorEnd := sectorBase + c.Info.SectorSize
		if offset >= sectorBase && uint64(offset)+uint64(len(buf)) <= uint64(sectorEnd) {
			copy(buf, c.SectorBuf[offset-sectorBase:])
			return len(buf), nil
		}
	}
	n, err := c.ReadData(offset, buf)
	if err != nil || c.CachedSector < 0 {
		return n, err
	}
	sectorBase := uint64(c.CachedSector) * uint64(c.Info.SectorSize)
	lo, hi := uint64(offset), uint64(offset)+uint64(len(buf))
	if lo < sectorBase {
		lo = sectorBase
	}
	if hi > sectorBase+uint64(c.Info.SectorSize) {
		hi = sectorBase + uint64(c.Info.SectorSize)
	}
	if lo < hi {
		copy(buf[lo-uint64(offset):hi-uint64(offset)], c.SectorBuf[lo-sectorBase:hi-sectorBase])
	}
	return n, nil
}
