// Package devices implements the (major, minor) device registry and
// dispatch layer (spec §4.1, component C). It holds a 4x16 table of
// handler vtables and fans out init/done across every populated slot.
package devices

import (
	"github.com/phoenix-rtos/plo-sub001/errs"
	"github.com/phoenix-rtos/plo-sub001/log"
)

const (
	// MaxMajor is the number of major device classes (spec §3).
	MaxMajor = 4
	// MaxMinor is the number of minor slots per major class.
	MaxMinor = 16
)

// Handler is the vtable every device slot must supply. Map is
// optional and lives in the separate Mappable interface: devices that
// do not implement it are reported NotMappable by IsMappable.
type Handler interface {
	Init(minor int) error
	Done(minor int) error
	Sync(minor int) error
	Read(minor int, offset uint64, buf []byte, timeoutMs uint32) (int, error)
	Write(minor int, offset uint64, buf []byte) (int, error)
}

// Mappable is implemented by handlers that can expose their backing
// storage as a CPU-addressable window (spec §4.3 map()).
type Mappable interface {
	Map(minor int, devRange AddrRange, devMode AccessMode, memRange AddrRange, memMode AccessMode) (MapResult, error)
}

// AddrRange is a half-open [Start, End) byte range.
type AddrRange struct {
	Start, End uint64
}

// AccessMode is the bitset of access attributes a mapping requests or
// a device grants; it reuses the same R/W/X/Shareable/Cacheable/
// Bufferable bits the memory-map attr string encodes (spec §3, §4.3).
type AccessMode uint8

const (
	ModeRead AccessMode = 1 << iota
	ModeWrite
	ModeExec
	ModeShareable
	ModeCacheable
	ModeBufferable
)

// Narrows reports whether dev can be satisfied by mem, i.e.
// (dev & mem) == dev — the mode narrowing rule from spec §4.3: a
// device's mode must not be higher than the map's mode.
func (dev AccessMode) Narrows(mem AccessMode) bool {
	return dev&mem == dev
}

// MapResult is the outcome of a map() call.
type MapResult struct {
	Mappable bool
	CPUAddr  uint64
}

// Registry is the process-wide device table.
type Registry struct {
	slots [MaxMajor][MaxMinor]Handler
	log   log.Logger
}

// New returns an empty registry. A nil logger defaults to log.Discard.
func New(l log.Logger) *Registry {
	if l == nil {
		l = log.Discard
	}
	return &Registry{log: l}
}

func inRange(major, minor int) bool {
	return major >= 0 && major < MaxMajor && minor >= 0 && minor < MaxMinor
}

// Register places handler in the first count free minor slots of
// major, starting at minor 0, skipping slots already filled. It must
// be called before InitAll. Returns the minors actually claimed.
func (r *Registry) Register(major int, count int, handler Handler) ([]int, error) {
	if major < 0 || major >= MaxMajor || count <= 0 || handler == nil {
		return nil, errs.EINVAL
	}
	claimed := make([]int, 0, count)
	for minor := 0; minor < MaxMinor && len(claimed) < count; minor++ {
		if r.slots[major][minor] != nil {
			continue
		}
		r.slots[major][minor] = handler
		claimed = append(claimed, minor)
	}
	if len(claimed) < count {
		return claimed, errs.ENOMEM
	}
	return claimed, nil
}

// InitAll invokes Init on every populated slot. A single slot's
// failure is logged and does not abort its siblings, matching the
// "failures at this layer are always recoverable" rule (spec §4.1).
func (r *Registry) InitAll() {
	for major := 0; major < MaxMajor; major++ {
		for minor := 0; minor < MaxMinor; minor++ {
			h := r.slots[major][minor]
			if h == nil {
				continue
			}
			if err := h.Init(minor); err != nil {
				r.log.Warnf("devices: init(%d,%d) failed: %v", major, minor, err)
			}
		}
	}
}

// DoneAll invokes Done on every populated slot, in the same order
// InitAll used, once — typically right before the kernel jump tears
// down the loader's own device state.
func (r *Registry) DoneAll() {
	for major := 0; major < MaxMajor; major++ {
		for minor := 0; minor < MaxMinor; minor++ {
			h := r.slots[major][minor]
			if h == nil {
				continue
			}
			if err := h.Done(minor); err != nil {
				r.log.Warnf("devices: done(%d,%d) failed: %v", major, minor, err)
			}
		}
	}
}

// Check reports whether (major, minor) is a populated slot whose
// handler is non-nil (every mandatory operation is guaranteed present
// by the Handler interface itself, so in this Go port "complete" only
// needs to check the slot is occupied — see DESIGN.md).
func (r *Registry) Check(major, minor int) error {
	if !inRange(major, minor) {
		return errs.EINVAL
	}
	if r.slots[major][minor] == nil {
		return errs.EINVAL
	}
	return nil
}

func (r *Registry) handler(major, minor int) (Handler, error) {
	if err := r.Check(major, minor); err != nil {
		return nil, err
	}
	return r.slots[major][minor], nil
}

// Read dispatches to the handler at (major, minor).
func (r *Registry) Read(major, minor int, offset uint64, buf []byte, timeoutMs uint32) (int, error) {
	h, err := r.handler(major, minor)
	if err != nil {
		return 0, err
	}
	return h.Read(minor, offset, buf, timeoutMs)
}

// Write dispatches to the handler at (major, minor).
func (r *Registry) Write(major, minor int, offset uint64, buf []byte) (int, error) {
	h, err := r.handler(major, minor)
	if err != nil {
		return 0, err
	}
	return h.Write(minor, offset, buf)
}

// Sync dispatches to the handler at (major, minor).
func (r *Registry) Sync(major, minor int) error {
	h, err := r.handler(major, minor)
	if err != nil {
		return err
	}
	return h.Sync(minor)
}

// IsMappable delegates to the handler's Map, if it implements
// Mappable; handlers that don't are reported NotMappable rather than
// erroring, so callers fall back to copying (spec §4.3).
func (r *Registry) IsMappable(major, minor int, devRange AddrRange, devMode AccessMode, memRange AddrRange, memMode AccessMode) (MapResult, error) {
	h, err := r.handler(major, minor)
	if err != nil {
		return MapResult{}, err
	}
	m, ok := h.(Mappable)
	if !ok {
		return MapResult{Mappable: false}, nil
	}
	if !devMode.Narrows(memMode) {
		return MapResult{Mappable: false}, nil
	}
	return m.Map(minor, devRange, devMode, memRange, memMode)
}
