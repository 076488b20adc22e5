// Package syspage builds the handoff descriptor the loader hands to
// the kernel at jump time (spec §4.4, component H), grounded directly
// on original_source/syspage.c's syspage_common + plo_map_t model.
package syspage

import (
	"strings"

	"github.com/phoenix-rtos/plo-sub001/errs"
)

const (
	MaxMaps     = 16
	MaxPrograms = 32
	MaxArgsSize = 256
	MaxMapName  = 7  // + NUL = 8
	MaxProgName = 31 // + NUL = 32

	// maxEntriesPerMap mirrors MAX_ENTRIES_NB: 3 kernel sections, 2
	// loader sections, plus the syspage region itself.
	maxEntriesPerMap = 6
)

// Attr is the memory-map attribute bitset (spec §3).
type Attr uint32

const (
	AttrRead Attr = 1 << iota
	AttrWrite
	AttrExec
	AttrShareable
	AttrCacheable
	AttrBufferable
)

// ParseAttr decodes the case-sensitive rwxscb attr string (spec §6).
// An empty string is legal and means "no permissions".
func ParseAttr(s string) (Attr, error) {
	var a Attr
	for _, c := range s {
		switch c {
		case 'r':
			a |= AttrRead
		case 'w':
			a |= AttrWrite
		case 'x':
			a |= AttrExec
		case 's':
			a |= AttrShareable
		case 'c':
			a |= AttrCacheable
		case 'b':
			a |= AttrBufferable
		default:
			return 0, errs.EINVAL
		}
	}
	return a, nil
}

// String renders attr back into its rwxscb form, in bit order.
func (a Attr) String() string {
	var sb strings.Builder
	for _, pair := range []struct {
		bit Attr
		ch  byte
	}{
		{AttrRead, 'r'}, {AttrWrite, 'w'}, {AttrExec, 'x'},
		{AttrShareable, 's'}, {AttrCacheable, 'c'}, {AttrBufferable, 'b'},
	} {
		if a&pair.bit != 0 {
			sb.WriteByte(pair.ch)
		}
	}
	return sb.String()
}

// addrRange is a half-open [Start, End) byte range, used both for the
// occupied-entry list and for map bounds.
type addrRange struct {
	Start, End uint64
}

func (r addrRange) overlaps(o addrRange) bool {
	return r.Start < o.End && r.End > o.Start
}

// Map is a named memory map (spec §3).
type Map struct {
	Name  string
	ID    uint8
	Start uint64
	End   uint64
	Attr  Attr

	top     uint64
	entries []addrRange // occupied sub-ranges intersecting this map
}

// Top returns the map's current allocation cursor.
func (m *Map) Top() uint64 { return m.top }

// FreeSize returns the bytes remaining above top.
func (m *Map) FreeSize() uint64 { return m.End - m.top }

// Program is a loaded application entry (spec §3).
type Program struct {
	Start, End uint64
	IMap, DMap uint8
	Name       string
}

// KernelSection is one of the kernel's text/data/bss triples.
type KernelSection struct {
	Addr, Size uint64
}

// Builder accumulates kernel sections, programs, maps, and arguments
// before a final save() copies everything into the reserved syspage
// region (spec §4.4).
type Builder struct {
	maps    []Map
	entries []addrRange // general entries: syspage + elf sections, pre-map-registration

	progs []Program
	args  strings.Builder
	argN  int

	kernelText, kernelData, kernelBss KernelSection
	kernelEntry                       uint64

	address uint64
	hal     []byte
	writes  []WriteRecord
}

// New returns a freshly initialised Builder (spec §4.4 init()).
func New() *Builder {
	return &Builder{}
}

// SetAddress reserves ~8KiB starting at addr for the syspage itself,
// adding that range as an occupied entry in every overlapping map
// (spec §4.4 setAddress).
func (b *Builder) SetAddress(addr uint64) {
	const reserve = 8 * 1024
	b.address = addr
	b.addEntries(addr, reserve)
}

// Address returns the syspage's base address.
func (b *Builder) Address() uint64 { return b.address }

// addEntries records [start, start+sz) as a general occupied entry
// and propagates it into every already-registered map that overlaps
// it (syspage_addEntries).
func (b *Builder) addEntries(start, sz uint64) {
	if len(b.entries) < maxEntriesPerMap {
		b.entries = append(b.entries, addrRange{Start: start, End: start + sz})
	}
	for i := range b.maps {
		b.addEntryToMap(i, start, start+sz)
	}
}

// addEntryToMap intersects [start,end) with map id's bounds and
// records the intersection, advancing top if the intersection
// touches the map's start (syspage_addEntries2Map).
func (b *Builder) addEntryToMap(id int, start, end uint64) {
	m := &b.maps[id]
	if m.Start >= end || m.End <= start {
		return
	}
	enStart, enEnd := start, end
	if m.Start > start {
		enStart = m.Start
	}
	if m.End < end {
		enEnd = m.End
	}
	if len(m.entries) < maxEntriesPerMap {
		m.entries = append(m.entries, addrRange{Start: enStart, End: enEnd})
	}
	if enStart == m.Start {
		m.top = enEnd
	}
}

func (b *Builder) findMap(name string) int {
	for i := range b.maps {
		if b.maps[i].Name == name {
			return i
		}
	}
	return -1
}

// MapByName returns a copy of the named map's current state, if it exists.
func (b *Builder) MapByName(name string) (Map, bool) {
	i := b.findMap(name)
	if i < 0 {
		return Map{}, false
	}
	return b.maps[i], true
}

// AddMap registers a new named memory map (spec §4.4 addMap).
func (b *Builder) AddMap(name string, start, end uint64, attrStr string) error {
	if len(b.maps) >= MaxMaps {
		return errs.ENOMEM
	}
	attr, err := ParseAttr(attrStr)
	if err != nil {
		return errs.EINVAL
	}
	newRange := addrRange{Start: start, End: end}
	for i := range b.maps {
		if b.maps[i].Name == name || (addrRange{Start: b.maps[i].Start, End: b.maps[i].End}).overlaps(newRange) {
			return errs.EINVAL
		}
	}
	if len(name) > MaxMapName {
		name = name[:MaxMapName]
	}

	id := uint8(len(b.maps))
	m := Map{Name: name, ID: id, Start: start, End: end, Attr: attr, top: start}
	b.maps = append(b.maps, m)

	for _, e := range b.entries {
		if e.End != 0 {
			b.addEntryToMap(int(id), e.Start, e.End)
		}
	}
	return nil
}

// skipOccupied advances m.top past every occupied entry that overlaps
// [top, top+sz), repeating until none remain (spec §4.4 write2Map:
// "walks the occupied list to skip any range that overlaps... advancing
// top past it").
func skipOccupied(m *Map, sz uint64) {
	moved := true
	for moved {
		moved = false
		for _, e := range m.entries {
			if e.Start < m.top+sz && e.End > m.top {
				m.top = e.End
				moved = true
			}
		}
	}
}

// Write2Map places data in map name at its current top, skipping
// over any occupied entries first, and records the write for Writes
// (spec §4.4 write2Map).
func (b *Builder) Write2Map(name string, data []byte) error {
	id := b.findMap(name)
	if id < 0 {
		return errs.EINVAL
	}
	m := &b.maps[id]
	length := uint64(len(data))

	skipOccupied(m, length)
	if m.End-m.top < length {
		return errs.ENOMEM
	}

	// This builder tracks map bookkeeping only, not a byte-addressable
	// image of its own (the real loader writes straight into physical
	// RAM at m.top); callers with their own memory model replay the
	// write at the address reported by Writes().
	b.recordWrite(id, m.top, data)
	m.top += length
	return nil
}

// WriteRecord is a completed Write2Map call, returned so callers with
// their own backing memory can replay the write at the right address
// (this Builder tracks map bookkeeping only; it has no byte-addressable
// image of its own, unlike the original's direct RAM pointer writes).
type WriteRecord struct {
	MapID int
	Addr  uint64
	Data  []byte
}

func (b *Builder) recordWrite(id int, addr uint64, data []byte) {
	b.writes = append(b.writes, WriteRecord{MapID: id, Addr: addr, Data: append([]byte(nil), data...)})
}

// Writes returns every Write2Map call made so far, in order.
func (b *Builder) Writes() []WriteRecord {
	out := make([]WriteRecord, len(b.writes))
	copy(out, b.writes)
	return out
}

// ExecFlag mirrors flagSyspageExec: the cmdline is prefixed with 'X'
// in the arg string when set.
const ExecFlag = 1

// AddProg appends a program record and its cmdline to the arg string
// (spec §4.4 addProg).
func (b *Builder) AddProg(start, end uint64, imap, dmap, cmdline string, flags uint32) error {
	if len(b.progs) >= MaxPrograms {
		return errs.ENOMEM
	}
	imapID, ok := b.mapID(imap)
	if !ok {
		return errs.EINVAL
	}
	dmapID, ok := b.mapID(dmap)
	if !ok {
		return errs.EINVAL
	}

	isExec := 0
	if flags&ExecFlag != 0 {
		isExec = 1
	}
	if b.argN+isExec+len(cmdline)+1+1 > MaxArgsSize {
		return errs.ENOMEM
	}

	name := cmdline
	if idx := strings.IndexByte(cmdline, ';'); idx >= 0 {
		name = cmdline[:idx]
	}
	if len(name) > MaxProgName {
		return errs.EINVAL
	}

	if isExec == 1 {
		b.args.WriteByte('X')
		b.argN++
	}
	b.args.WriteString(cmdline)
	b.argN += len(cmdline)
	b.args.WriteByte(' ')
	b.argN++

	b.progs = append(b.progs, Program{Start: start, End: end, IMap: imapID, DMap: dmapID, Name: name})
	return nil
}

func (b *Builder) mapID(name string) (uint8, bool) {
	i := b.findMap(name)
	if i < 0 {
		return 0, false
	}
	return b.maps[i].ID, true
}

// SetKernelText records the kernel's text section and registers it as
// an occupied entry in every intersecting map.
func (b *Builder) SetKernelText(addr, size uint64) {
	b.kernelText = KernelSection{Addr: addr, Size: size}
	b.addEntries(addr, size)
}

// SetKernelData records the kernel's data section.
func (b *Builder) SetKernelData(addr, size uint64) {
	b.kernelData = KernelSection{Addr: addr, Size: size}
	b.addEntries(addr, size)
}

// SetKernelBss records the kernel's bss section.
func (b *Builder) SetKernelBss(addr, size uint64) {
	b.kernelBss = KernelSection{Addr: addr, Size: size}
	b.addEntries(addr, size)
}

// SetKernelEntry records the kernel's entry point address.
func (b *Builder) SetKernelEntry(addr uint64) { b.kernelEntry = addr }

// SetHAL records the platform-specific HAL block bytes copied
// verbatim into the syspage (spec §3, §6).
func (b *Builder) SetHAL(hal []byte) { b.hal = append([]byte(nil), hal...) }

const (
	validateTop  = 1 << 0
	validateMap  = 1 << 1
	validateAttr = 1 << 2
)

// validateAddrMap mirrors syspage_validateAddrMap: addr must sit
// inside some map, optionally below that map's top, optionally in a
// specific map id, optionally with the requested attr bits granted.
func (b *Builder) validateAddrMap(opt int, addr uint64, id uint8, want Attr) bool {
	for i := range b.maps {
		m := &b.maps[i]
		if addr < m.Start || addr >= m.End {
			continue
		}
		if opt&validateTop != 0 && addr >= m.top {
			continue
		}
		if opt&validateMap != 0 && uint8(i) != id {
			continue
		}
		if opt&validateAttr != 0 && m.Attr&want != want {
			continue
		}
		return true
	}
	return false
}

// ValidateKernel checks the kernel's sections sit in maps granting
// the required permissions and returns the entry address (spec §4.4
// validateKernel).
func (b *Builder) ValidateKernel() (uint64, error) {
	if b.kernelText.Size == 0 {
		return 0, errs.EINVAL
	}
	if b.kernelBss.Size == 0 {
		return 0, errs.EINVAL
	}
	if b.kernelData.Size > 0 {
		if !b.validateAddrMap(validateAttr, b.kernelData.Addr, 0, AttrRead|AttrWrite) {
			return 0, errs.EINVAL
		}
	}
	if !b.validateAddrMap(validateAttr|validateTop, b.kernelText.Addr, 0, AttrExec) {
		return 0, errs.EINVAL
	}
	if !b.validateAddrMap(validateAttr|validateTop, b.kernelEntry, 0, AttrExec) {
		return 0, errs.EINVAL
	}
	if !b.validateAddrMap(validateAttr, b.kernelBss.Addr, 0, AttrRead|AttrWrite) {
		return 0, errs.EINVAL
	}
	return b.kernelEntry, nil
}

// Maps returns a snapshot of every registered map.
func (b *Builder) Maps() []Map {
	out := make([]Map, len(b.maps))
	copy(out, b.maps)
	return out
}

// Programs returns a snapshot of every registered program.
func (b *Builder) Programs() []Program {
	out := make([]Program, len(b.progs))
	copy(out, b.progs)
	return out
}

// Args returns the accumulated argument string, without the NUL
// terminator that Save appends.
func (b *Builder) Args() string { return b.args.String() }
