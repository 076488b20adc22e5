package mpu

import (
	"github.com/phoenix-rtos/plo-sub001/bitfield"
	"github.com/phoenix-rtos/plo-sub001/errs"
	"github.com/phoenix-rtos/plo-sub001/syspage"
)

// MaxRegionsV8 bounds the ARMv8-R region table this loader supports.
const MaxRegionsV8 = 16

// RegionV8 is a single ARMv8-R MPU region descriptor: rbar carries the
// base address and access attributes, rlar the limit address and the
// enable/MAIR-index/execute-never bits (spec §3). Unlike v7, there is
// no sub-region disable mask: [rbar&^0x1f, rlar|0x1f] is addressed
// directly, so a map that isn't naturally 32-aligned on both ends
// cannot be represented by one region.
type RegionV8 struct {
	RBAR uint32
	RLAR uint32
}

// V8Partition is one program's MPU region-table snapshot.
type V8Partition struct {
	Regions [MaxRegionsV8]RegionV8
	MapID   [MaxRegionsV8]uint32
	Count   int
}

func (p *V8Partition) AllocCount() int  { return p.Count }
func (p *V8Partition) MapIDs() []uint32 { return p.MapID[:p.Count] }

// V8Allocator drives the ARMv8-R region table.
type V8Allocator struct {
	regMax int
}

func NewV8Allocator(regMax int) *V8Allocator {
	if regMax > MaxRegionsV8 {
		regMax = MaxRegionsV8
	}
	return &V8Allocator{regMax: regMax}
}

func (a *V8Allocator) MaxRegions() int { return a.regMax }

// rlarFields mirrors the RLAR word: enable, the 2-bit MAIR attribute
// index selecting cacheable/bufferable, and execute-never.
type rlarFields struct {
	Enable    bool   `bitfield:",1"`
	AttrIndex uint32 `bitfield:",2"`
	Reserved0 uint32 `bitfield:",1"`
	ExecNever bool   `bitfield:",1"`
	Reserved1 uint32 `bitfield:",27"` // limit address lives in the high bits, ORed in by regionSet
}

// rbarFields mirrors the RBAR word's attribute bits; base address is
// ORed in separately by regionSet.
type rbarFields struct {
	ExecNever bool   `bitfield:",1"`
	AP        uint32 `bitfield:",3"`
	Shareable bool   `bitfield:",1"`
	Reserved0 uint32 `bitfield:",27"` // base address, ORed in by regionSet
}

func regionAttrsV8(attr syspage.Attr, enable bool) (rbarAttr, rlarAttr uint32, err error) {
	ap := uint32(0) // privileged RW, unprivileged none
	if attr&(syspage.AttrRead|syspage.AttrWrite) != 0 {
		// ARMv8-R has no read-only/read-write split across privilege
		// levels in this encoding; either grants full unprivileged RW.
		ap = 1
	}

	rbar := rbarFields{
		ExecNever: attr&syspage.AttrExec == 0,
		AP:        ap,
		Shareable: attr&syspage.AttrShareable != 0,
	}
	rbarPacked, err := bitfield.Pack(&rbar, &bitfield.Config{NumBits: 32})
	if err != nil {
		return 0, 0, err
	}

	attrIndex := uint32(0)
	if attr&syspage.AttrCacheable != 0 {
		attrIndex |= 1
	}
	if attr&syspage.AttrBufferable != 0 {
		attrIndex |= 2
	}
	rlar := rlarFields{
		Enable:    enable,
		AttrIndex: attrIndex,
		ExecNever: attr&syspage.AttrExec == 0,
	}
	rlarPacked, err := bitfield.Pack(&rlar, &bitfield.Config{NumBits: 32})
	if err != nil {
		return 0, 0, err
	}

	return uint32(rbarPacked), uint32(rlarPacked), nil
}

func (a *V8Allocator) regionSet(p *V8Partition, idx *int, start, end uint64, rbarAttr, rlarAttr uint32) error {
	if *idx >= a.regMax {
		return errs.EPERM
	}
	if end != 0 && end <= start {
		return errs.EINVAL
	}

	size := (end - start) & 0xffffffff
	limit := uint32(end) - 1
	if size == 0 {
		limit = 0xffffffff
	} else if size < 32 || size&0x1f != 0 || start&0x1f != 0 {
		// No SRD on v8: the range must already be 32-aligned on both ends.
		return errs.EPERM
	}

	p.Regions[*idx].RBAR = (uint32(start) &^ 0x1f) | rbarAttr
	p.Regions[*idx].RLAR = (limit &^ 0x1f) | rlarAttr
	*idx++
	return nil
}

func (a *V8Allocator) regionInvalidate(p *V8Partition, first, last int) {
	if last > a.regMax {
		last = a.regMax
	}
	for i := first; i < last; i++ {
		p.MapID[i] = noMap
		p.Regions[i].RLAR = 0
		p.Regions[i].RBAR = 1 // execute-never, disabled
	}
}

func v8MapAlloced(p *V8Partition, mapID uint32) bool {
	for i := 0; i < p.Count; i++ {
		if p.MapID[i] == mapID {
			return true
		}
	}
	return false
}

func (a *V8Allocator) regionAlloc(p *V8Partition, start, end uint64, attr syspage.Attr, mapID uint32, enable bool) error {
	if a.regMax == 0 {
		// No MPU on this board: nothing to program, not an error.
		return nil
	}

	regCur := p.Count
	rbarAttr, rlarAttr, err := regionAttrsV8(attr, enable)
	if err != nil {
		return err
	}
	if err := a.regionSet(p, &regCur, start, end, rbarAttr, rlarAttr); err != nil {
		a.regionInvalidate(p, p.Count, regCur)
		return err
	}
	for i := p.Count; i < regCur; i++ {
		p.MapID[i] = mapID
	}
	p.Count = regCur
	return nil
}

// AllocProgram mirrors V7Allocator.AllocProgram; v8 has no hole-punch
// or sub-region strategy, so a map that can't be covered by a single
// 32-aligned region simply fails with EPERM.
func (a *V8Allocator) AllocProgram(kernelMap syspage.Map, imaps, dmaps []syspage.Map) (Partition, error) {
	p := &V8Partition{}
	for i := range p.MapID {
		p.MapID[i] = noMap
	}

	if err := a.regionAlloc(p, kernelMap.Start, kernelMap.End, kernelMap.Attr, uint32(kernelMap.ID), true); err != nil {
		return nil, err
	}

	for _, list := range [...][]syspage.Map{imaps, dmaps} {
		for _, m := range list {
			if v8MapAlloced(p, uint32(m.ID)) {
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
