// Package mmio abstracts the register-window access every register
// driver in the original (FlexSPI, NOR vendor quirks, UART, mailbox)
// performs directly through pointer casts. The teacher does this with
// an unexported platform "asm" package (asm.MmioRead/asm.MmioWrite,
// used throughout mazboot/golang/main/*.go); since that package is
// bare-metal-only and unimportable from a portable module, this core
// defines the same two-function shape as an interface with two
// backends: Direct (unsafe.Pointer, for the real target) and Fake (an
// in-memory register file, for every test in this module).
package mmio

import "unsafe"

// Bus is a register window: 32-bit-granular, byte-offset addressed,
// matching the teacher's asm.MmioRead32(base+offset) convention.
type Bus interface {
	Read32(offset uintptr) uint32
	Write32(offset uintptr, val uint32)
	Read16(offset uintptr) uint16
	Write16(offset uintptr, val uint16)
	Read8(offset uintptr) uint8
	Write8(offset uintptr, val uint8)
}

// Direct is the real backend: base is the physical/virtual MMIO base
// address of the peripheral's register window.
type Direct struct {
	Base uintptr
}

//go:nosplit
func (d Direct) Read32(offset uintptr) uint32 {
	return *(*uint32)(unsafe.Pointer(d.Base + offset))
}

//go:nosplit
func (d Direct) Write32(offset uintptr, val uint32) {
	*(*uint32)(unsafe.Pointer(d.Base + offset)) = val
}

//go:nosplit
func (d Direct) Read16(offset uintptr) uint16 {
	return *(*uint16)(unsafe.Pointer(d.Base + offset))
}

//go:nosplit
func (d Direct) Write16(offset uintptr, val uint16) {
	*(*uint16)(unsafe.Pointer(d.Base + offset)) = val
}

//go:nosplit
func (d Direct) Read8(offset uintptr) uint8 {
	return *(*uint8)(unsafe.Pointer(d.Base + offset))
}

//go:nosplit
func (d Direct) Write8(offset uintptr, val uint8) {
	*(*uint8)(unsafe.Pointer(d.Base + offset)) = val
}

var _ Bus = Direct{}
