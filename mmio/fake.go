package mmio

import (
	"encoding/binary"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Fake is an in-memory register file backed by a shared mapping of a
// temporary scratch file obtained through golang.org/x/sys/unix.Mmap, so flash/FlexSPI
// integration tests exercise real page-granular memory-mapping
// semantics (the thing PHFS's map() operation and the NOR engine's
// AHB-window short-circuit both depend on) without any real hardware.
//
// Reads/writes past the mapped size panic, matching the teacher's
// direct pointer dereference: an out-of-range register access is a
// programming error, not a recoverable condition.
type Fake struct {
	region []byte
	file   *os.File
}

// NewFake mmaps a size-byte scratch file and returns a Bus over it.
// Callers must call Close when done to release the mapping and
// backing file.
func NewFake(size int) (*Fake, error) {
	f, err := os.CreateTemp("", "plo-mmio-fake-*")
	if err != nil {
		return nil, fmt.Errorf("mmio: create scratch file: %w", err)
	}
	if err := f.Truncate(int64(size)); err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, fmt.Errorf("mmio: truncate scratch file: %w", err)
	}
	region, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, fmt.Errorf("mmio: mmap scratch file: %w", err)
	}
	return &Fake{region: region, file: f}, nil
}

// Close unmaps the region and removes the scratch file.
func (fk *Fake) Close() error {
	name := fk.file.Name()
	err := unix.Munmap(fk.region)
	fk.file.Close()
	os.Remove(name)
	return err
}

// Bytes exposes the backing region directly, for tests that want to
// preset or inspect "flash contents" behind the window.
func (fk *Fake) Bytes() []byte { return fk.region }

func (fk *Fake) Read32(offset uintptr) uint32 {
	return binary.LittleEndian.Uint32(fk.region[offset : offset+4])
}

func (fk *Fake) Write32(offset uintptr, val uint32) {
	binary.LittleEndian.PutUint32(fk.region[offset:offset+4], val)
}

func (fk *Fake) Read16(offset uintptr) uint16 {
	return binary.LittleEndian.Uint16(fk.region[offset : offset+2])
}

func (fk *Fake) Write16(offset uintptr, val uint16) {
	binary.LittleEndian.PutUint16(fk.region[offset:offset+2], val)
}

func (fk *Fake) Read8(offset uintptr) uint8  { return fk.region[offset] }
func (fk *Fake) Write8(offset uintptr, val uint8) { fk.region[offset] = val }

var _ Bus = (*Fake)(nil)
