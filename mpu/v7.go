package mpu

import (
	"math/bits"

	"github.com/phoenix-rtos/plo-sub001/bitfield"
	"github.com/phoenix-rtos/plo-sub001/errs"
	"github.com/phoenix-rtos/plo-sub001/syspage"
)

// MaxRegionsV7 bounds the ARMv7-M/R region table; MPU_TYPE.DREGION is
// an 8-bit field but every board in this family implements at most 16.
const MaxRegionsV7 = 16

const noMap = ^uint32(0)

// RegionV7 is a single ARMv7-M/R MPU region descriptor: rbar carries
// the base address, valid bit, and region index; rasr carries enable,
// size, sub-region disable mask, and access attributes (spec §3).
type RegionV7 struct {
	RBAR uint32
	RASR uint32
}

// V7Partition is one program's MPU region-table snapshot.
type V7Partition struct {
	Regions [MaxRegionsV7]RegionV7
	MapID   [MaxRegionsV7]uint32
	Count   int
}

func (p *V7Partition) AllocCount() int  { return p.Count }
func (p *V7Partition) MapIDs() []uint32 { return p.MapID[:p.Count] }

// V7Allocator drives the ARMv7-M/R region table for a board with up to
// regMax hardware regions. On target regMax comes from MPU_TYPE read at
// boot; host tests construct it directly.
type V7Allocator struct {
	regMax int
}

func NewV7Allocator(regMax int) *V7Allocator {
	if regMax > MaxRegionsV7 {
		regMax = MaxRegionsV7
	}
	return &V7Allocator{regMax: regMax}
}

func (a *V7Allocator) MaxRegions() int { return a.regMax }

// rasrFields mirrors the non-address bits of the RASR word. Size and
// the sub-region disable mask are region-specific and ORed in later by
// regionSet, so they are left as reserved filler here.
type rasrFields struct {
	Enable     bool   `bitfield:",1"`
	Reserved0  uint32 `bitfield:",15"` // size[1:5], reserved[6:7], SRD[8:15]
	Bufferable bool   `bitfield:",1"`
	Cacheable  bool   `bitfield:",1"`
	Shareable  bool   `bitfield:",1"`
	TEX        uint32 `bitfield:",3"`
	Reserved1  uint32 `bitfield:",2"`
	AP         uint32 `bitfield:",3"`
	Reserved2  uint32 `bitfield:",1"`
	ExecNever  bool   `bitfield:",1"`
	Reserved3  uint32 `bitfield:",3"`
}

// regionAttrs translates a map attribute set into the RASR bits shared
// by every region covering that map (spec §4.5 "Region attributes").
func regionAttrs(attr syspage.Attr, enable bool) (uint32, error) {
	ap := uint32(1) // privileged RW, unprivileged none
	if attr&syspage.AttrRead != 0 {
		ap = 2 // privileged RW, unprivileged RO
	}
	if attr&syspage.AttrWrite != 0 {
		ap = 3 // privileged RW, unprivileged RW
	}

	fields := rasrFields{
		Enable:     enable,
		Bufferable: attr&syspage.AttrBufferable != 0,
		Cacheable:  attr&syspage.AttrCacheable != 0,
		Shareable:  attr&syspage.AttrShareable != 0,
		AP:         ap,
		ExecNever:  attr&syspage.AttrExec == 0,
	}
	packed, err := bitfield.Pack(&fields, &bitfield.Config{NumBits: 32})
	if err != nil {
		return 0, err
	}
	return uint32(packed), nil
}

func holeAttr(rasrAttr uint32) uint32 { return rasrAttr & 0x1 }

func (a *V7Allocator) regionSet(p *V7Partition, idx *int, baseAddr uint32, srdMask uint8, sizeBit uint8, rasrAttr uint32) error {
	if sizeBit < 5 || *idx >= a.regMax {
		return errs.EPERM
	}

	p.Regions[*idx].RBAR = baseAddr | (1 << 4) | (uint32(*idx) & 0xf)
	p.Regions[*idx].RASR = rasrAttr | (uint32(srdMask) << 8) | (((uint32(sizeBit) - 1) & 0x1f) << 1)
	*idx++
	return nil
}

func (a *V7Allocator) regionCalculateAndSet(p *V7Partition, idx *int, start, end uint32, sizeBit uint8, rasrAttr uint32) error {
	baseAddr := start &^ ((uint32(1) << sizeBit) - 1)
	srStart := (start >> (sizeBit - 3)) & 7
	srEnd := (end >> (sizeBit - 3)) & 7
	if srEnd == 0 {
		srEnd = 8
	}
	srdMask := uint8(^(((uint32(1) << srEnd) - 1) & (uint32(0xff) << srStart)))
	return a.regionSet(p, idx, baseAddr, srdMask, sizeBit, rasrAttr)
}

func (a *V7Allocator) checkOverlap(p *V7Partition, idx int, start, end uint32) bool {
	end--
	for i := 0; i < idx; i++ {
		if p.Regions[i].RBAR&0x10 == 0 || p.Regions[i].RASR&0x1 == 0 {
			continue
		}
		sizeBit := uint8((p.Regions[i].RASR>>1)&0x1f) + 1
		srStart := p.Regions[i].RBAR &^ ((uint32(1) << sizeBit) - 1)
		subregions := uint8((p.Regions[i].RASR >> 8) & 0xff)
		for j := 0; j < 8; j++ {
			srEnd := srStart + (uint32(1) << (sizeBit - 3)) - 1
			if subregions&1 == 0 && start <= srEnd && srStart <= end {
				return true
			}
			srStart = srEnd + 1
			subregions >>= 1
		}
	}
	return false
}

// regionGenerate creates up to two regions (plus one hole cut-out) that
// together represent [start, end), per the case table in spec §4.5.
func (a *V7Allocator) regionGenerate(p *V7Partition, idx *int, start, end uint64, rasrAttr uint32) error {
	if end != 0 && end <= start {
		return errs.EINVAL
	}
	size := (end - start) & 0xffffffff
	s32, e32 := uint32(start), uint32(end)

	if size == 0 {
		return a.regionSet(p, idx, 0, 0, 32, rasrAttr)
	}

	if size&(size-1) == 0 && start&(size-1) == 0 {
		// Power of two and size-aligned: a single region, no SRD.
		if size < 32 {
			return errs.EPERM
		}
		return a.regionSet(p, idx, s32, 0, uint8(bits.TrailingZeros32(uint32(size))), rasrAttr)
	}

	ctz := bits.TrailingZeros32(s32 | e32)
	if ctz < 5 {
		// Sub-regions smaller than 32 B are not representable.
		return errs.EPERM
	}

	msb := 32 - bits.LeadingZeros32(s32^(e32-1))
	sigBits := msb - ctz

	switch {
	case sigBits <= 3:
		// One region plus SRD covers the whole range.
		return a.regionCalculateAndSet(p, idx, s32, e32, uint8(ctz+3), rasrAttr)

	case sigBits == 4:
		// Two consecutive regions, each with its own SRD.
		sizeBit := uint8(ctz + 3)
		diffMask := (uint32(1) << sizeBit) - 1
		reg1End := (s32 &^ diffMask) + diffMask + 1
		if err := a.regionCalculateAndSet(p, idx, s32, reg1End, sizeBit, rasrAttr); err != nil {
			return err
		}
		return a.regionCalculateAndSet(p, idx, reg1End, e32, sizeBit, rasrAttr)

	default:
		if rasrAttr == holeAttr(rasrAttr) {
			// Already trying to make a hole; no recursive holing.
			return errs.EPERM
		}

		diffMask := (uint32(1) << (msb - 3)) - 1
		var alignedStart, alignedEnd, holeStart, holeEnd uint32
		switch {
		case s32&^diffMask == s32:
			// Start aligned: cut the hole from the end.
			alignedStart, alignedEnd = s32, (e32&^diffMask)+diffMask+1
			holeStart, holeEnd = e32, alignedEnd
		case e32&^diffMask == e32:
			// End aligned: cut the hole from the start.
			alignedStart, alignedEnd = s32&^diffMask, e32
			holeStart, holeEnd = alignedStart, s32
		default:
			// Would need cutting from both ends: not supported.
			return errs.EPERM
		}

		if a.checkOverlap(p, *idx, holeStart, holeEnd) {
			return errs.EPERM
		}

		if err := a.regionCalculateAndSet(p, idx, alignedStart, alignedEnd, uint8(msb), rasrAttr); err != nil {
			return err
		}
		return a.regionGenerate(p, idx, uint64(holeStart), uint64(holeEnd), holeAttr(rasrAttr))
	}
}

func (a *V7Allocator) regionInvalidate(p *V7Partition, first, last int) {
	if last > a.regMax {
		last = a.regMax
	}
	for i := first; i < last; i++ {
		p.MapID[i] = noMap
		p.Regions[i].RBAR = (1 << 4) | uint32(i&0xf)
		p.Regions[i].RASR = 0
	}
}

func (a *V7Allocator) regionAssignMap(p *V7Partition, first, last int, mapID uint32) {
	if last > a.regMax {
		last = a.regMax
	}
	for i := first; i < last; i++ {
		p.MapID[i] = mapID
	}
}

func v7MapAlloced(p *V7Partition, mapID uint32) bool {
	for i := 0; i < p.Count; i++ {
		if p.MapID[i] == mapID {
			return true
		}
	}
	return false
}

func (a *V7Allocator) regionAlloc(p *V7Partition, start, end uint64, attr syspage.Attr, mapID uint32, enable bool) error {
	regCur := p.Count
	rasrAttr, err := regionAttrs(attr, enable)
	if err != nil {
		return err
	}
	if err := a.regionGenerate(p, &regCur, start, end, rasrAttr); err != nil {
		a.regionInvalidate(p, p.Count, regCur)
		return err
	}
	a.regionAssignMap(p, p.Count, regCur, mapID)
	p.Count = regCur
	return nil
}

// AllocProgram builds the MPU snapshot for one program: the kernel
// code map is always allocated first (the kernel's syscall/signal
// trampolines run from there while in user context), followed by the
// program's declared instruction and data maps, skipping any already
// covered by a prior allocation in this call.
func (a *V7Allocator) AllocProgram(kernelMap syspage.Map, imaps, dmaps []syspage.Map) (Partition, error) {
	p := &V7Partition{}
	for i := range p.MapID {
		p.MapID[i] = noMap
	}

	if err := a.regionAlloc(p, kernelMap.Start, kernelMap.End, kernelMap.Attr, uint32(kernelMap.ID), true); err != nil {
		return nil, err
	}

	for _, list := range [...][]syspage.Map{imaps, dmaps} {
		for _, m := range list {
			if v7MapAlloced(p, uint32(m.ID)) {
				continue
			}
			if err := a.regionAlloc(p, m.Start, m.End, m.Attr, uint32(m.ID), true); err != nil {
				return nil, err
			}
		}
	}

	a.regionInvalidate(p, p.Count, a.regMax)
	return p, nil
}
