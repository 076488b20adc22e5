// Package phfs implements the Phoenix FileSystem abstraction (spec
// §4.3, component G): a uniform named-alias layer over the device
// registry, optionally speaking the phoenixd packet protocol, that
// presents heterogeneous transports as files or raw byte streams.
package phfs

import (
	"github.com/phoenix-rtos/plo-sub001/devices"
	"github.com/phoenix-rtos/plo-sub001/errs"
	"github.com/phoenix-rtos/plo-sub001/transport"
)

const (
	// MaxBindings is the maximum number of device bindings (spec §3).
	MaxBindings = 8
	// MaxFiles is the maximum number of named file entries (spec §3).
	MaxFiles = 20
)

// Protocol selects how a binding's device is spoken to.
type Protocol int

const (
	ProtoRaw Protocol = iota
	ProtoPhoenixd
)

func ParseProtocol(s string) (Protocol, error) {
	switch s {
	case "raw":
		return ProtoRaw, nil
	case "phoenixd":
		return ProtoPhoenixd, nil
	default:
		return 0, errs.EINVAL
	}
}

// binding is a PHFS device binding (spec §3).
type binding struct {
	alias    string
	major    int
	minor    int
	protocol Protocol
	client   *transport.Client // only set for ProtoPhoenixd
}

// fileEntry is a named region inside a raw device (spec §3).
type fileEntry struct {
	alias string
	base  uint64
	size  uint64
}

// Handler is the opaque handle callers hold: a binding index plus a
// file index. fileIndex == -1 denotes "the raw device stream itself"
// for a raw binding with no named file.
type Handler struct {
	bindingIdx int
	fileIndex  int32
}

// FS is the process-wide PHFS singleton.
type FS struct {
	devs     *devices.Registry
	bindings []binding
	files    []fileEntry

	// phoenixdDial constructs a transport.Client for a phoenixd
	// binding given its (major, minor); callers wire a real UART/USB
	// byte stream factory here. Exposed as a field (not a constructor
	// parameter) so it can be set up after registry wiring, mirroring
	// the teacher's late-bound device construction.
	phoenixdDial func(major, minor int) (*transport.Client, error)
}

// New builds an empty PHFS bound to devs. dial resolves a phoenixd
// binding's (major, minor) to a transport.Client; pass nil if no
// phoenixd bindings will ever be registered.
func New(devs *devices.Registry, dial func(major, minor int) (*transport.Client, error)) *FS {
	return &FS{devs: devs, phoenixdDial: dial}
}

func (fs *FS) findBinding(alias string) int {
	for i, b := range fs.bindings {
		if b.alias == alias {
			return i
		}
	}
	return -1
}

func (fs *FS) findFile(alias string) int {
	for i, f := range fs.files {
		if f.alias == alias {
			return i
		}
	}
	return -1
}

// RegDev registers a device binding (spec §4.3 regDev).
func (fs *FS) RegDev(alias string, major, minor int, protocol Protocol) error {
	if alias == "" || len(fs.bindings) >= MaxBindings {
		return errs.EINVAL
	}
	if fs.findBinding(alias) >= 0 {
		return errs.EINVAL
	}
	if err := fs.devs.Check(major, minor); err != nil {
		return errs.EINVAL
	}

	b := binding{alias: alias, major: major, minor: minor, protocol: protocol}
	if protocol == ProtoPhoenixd {
		if fs.phoenixdDial == nil {
			return errs.ENXIO
		}
		client, err := fs.phoenixdDial(major, minor)
		if err != nil {
			return err
		}
		b.client = client
	}
	fs.bindings = append(fs.bindings, b)
	return nil
}

// RegFile registers a named file entry (spec §4.3 regFile).
func (fs *FS) RegFile(alias string, addr, size uint64) error {
	if alias == "" || len(fs.files) >= MaxFiles {
		return errs.EINVAL
	}
	if fs.findFile(alias) >= 0 {
		return errs.EINVAL
	}
	fs.files = append(fs.files, fileEntry{alias: alias, base: addr, size: size})
	return nil
}

// OpenFlags mirrors the flags argument phoenixd's OPEN message and
// raw opens both accept; raw ignores it beyond presence.
type OpenFlags uint32

// Open resolves device_alias (and, for raw protocol, an optional
// fileAlias) into a Handler (spec §4.3 open).
func (fs *FS) Open(deviceAlias string, fileAlias string, flags OpenFlags) (Handler, error) {
	bi := fs.findBinding(deviceAlias)
	if bi < 0 {
		return Handler{}, errs.EINVAL
	}
	b := &fs.bindings[bi]

	switch b.protocol {
	case ProtoRaw:
		if fileAlias == "" {
			return Handler{bindingIdx: bi, fileIndex: -1}, nil
		}
		fi := fs.findFile(fileAlias)
		if fi < 0 {
			return Handler{}, errs.EINVAL
		}
		return Handler{bindingIdx: bi, fileIndex: int32(fi)}, nil

	case ProtoPhoenixd:
		handle, err := b.client.Open(uint32(flags), fileAlias)
		if err != nil {
			return Handler{}, err
		}
		if handle == 0 {
			return Handler{}, errs.EINVAL
		}
		return Handler{bindingIdx: bi, fileIndex: int32(handle)}, nil
	}
	return Handler{}, errs.EINVAL
}

// clampRaw narrows (offset, length) against a raw binding's file
// entry, if h carries one; returns the absolute device offset and the
// clamped length.
func (fs *FS) clampRaw(b *binding, h Handler, offset uint64, length int) (uint64, int, error) {
	if h.fileIndex < 0 {
		return offset, length, nil
	}
	f := fs.files[h.fileIndex]
	if offset > f.size {
		return 0, 0, errs.EINVAL
	}
	if remaining := f.size - offset; uint64(length) > remaining {
		length = int(remaining)
	}
	return f.base + offset, length, nil
}

// Read performs a read through h (spec §4.3 read).
func (fs *FS) Read(h Handler, offset uint64, buf []byte, timeoutMs uint32) (int, error) {
	if h.bindingIdx < 0 || h.bindingIdx >= len(fs.bindings) {
		return 0, errs.EINVAL
	}
	b := &fs.bindings[h.bindingIdx]

	switch b.protocol {
	case ProtoRaw:
		devOffset, length, err := fs.clampRaw(b, h, offset, len(buf))
		if err != nil {
			return 0, err
		}
		return fs.devs.Read(b.major, b.minor, devOffset, buf[:length], timeoutMs)

	case ProtoPhoenixd:
		reply, err := b.client.Read(uint32(h.fileIndex), uint32(offset), uint32(len(buf)))
		if err != nil {
			return 0, err
		}
		n := copy(buf, reply)
		return n, nil
	}
	return 0, errs.EINVAL
}

// Write performs a write through h (spec §4.3 write).
func (fs *FS) Write(h Handler, offset uint64, buf []byte) (int, error) {
	if h.bindingIdx < 0 || h.bindingIdx >= len(fs.bindings) {
		return 0, errs.EINVAL
	}
	b := &fs.bindings[h.bindingIdx]

	switch b.protocol {
	case ProtoRaw:
		devOffset, length, err := fs.clampRaw(b, h, offset, len(buf))
		if err != nil {
			return 0, err
		}
		return fs.devs.Write(b.major, b.minor, devOffset, buf[:length])

	case ProtoPhoenixd:
		return b.client.Write(uint32(h.fileIndex), uint32(offset), buf)
	}
	return 0, errs.EINVAL
}

// Close performs a protocol-level close through h (spec §4.3).
func (fs *FS) Close(h Handler) error {
	if h.bindingIdx < 0 || h.bindingIdx >= len(fs.bindings) {
		return errs.EINVAL
	}
	b := &fs.bindings[h.bindingIdx]
	if b.protocol == ProtoPhoenixd && h.fileIndex > 0 {
		return b.client.Close(uint32(h.fileIndex))
	}
	return nil
}

// Sync delegates to devs_sync on the underlying device regardless of
// protocol, after a protocol-level close (spec §4.3 sync).
func (fs *FS) Sync(h Handler) error {
	if h.bindingIdx < 0 || h.bindingIdx >= len(fs.bindings) {
		return errs.EINVAL
	}
	b := &fs.bindings[h.bindingIdx]
	if err := fs.Close(h); err != nil {
		return err
	}
	return fs.devs.Sync(b.major, b.minor)
}

// Map asks the underlying device whether its backing storage can be
// memory-mapped into a proposed CPU address region (spec §4.3 map).
func (fs *FS) Map(h Handler, devRange devices.AddrRange, devMode devices.AccessMode, memRange devices.AddrRange, memMode devices.AccessMode) (devices.MapResult, error) {
	if h.bindingIdx < 0 || h.bindingIdx >= len(fs.bindings) {
		return devices.MapResult{}, errs.EINVAL
	}
	b := &fs.bindings[h.bindingIdx]
	if b.protocol != ProtoRaw {
		return devices.MapResult{Mappable: false}, nil
	}
	return fs.devs.IsMappable(b.major, b.minor, devRange, devMode, memRange, memMode)
}
