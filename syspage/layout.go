package syspage

import (
	"encoding/binary"

	"github.com/phoenix-rtos/plo-sub001/errs"
)

// Byte-exact layout constants from spec §6. The header is 0x30 bytes,
// followed in order by the arg string, program array, map array, and
// the platform HAL block.
const (
	HeaderSize = 0x30

	ProgramRecordSize = 48
	MapRecordSize     = 28
)

// Save finalises the syspage by encoding the header, arg string,
// program array, map array, and HAL block into a single contiguous
// byte slice, as save() does in spec §4.4/§6. base is the syspage's
// absolute CPU address, Address();
// every pointer field in the header is computed relative to base so
// the kernel can dereference them directly.
func (b *Builder) Save() ([]byte, error) {
	entry, err := b.ValidateKernel()
	if err != nil {
		return nil, err
	}
	_ = entry // entry address travels via register/ABI, not the syspage body itself

	args := b.Args()
	argBytes := append([]byte(args), 0)

	progsLen := len(b.progs) * ProgramRecordSize
	mapsLen := len(b.maps) * MapRecordSize
	total := HeaderSize + len(argBytes) + progsLen + mapsLen + len(b.hal)

	out := make([]byte, total)
	base := b.address

	argOff := HeaderSize
	progOff := argOff + len(argBytes)
	mapOff := progOff + progsLen
	halOff := mapOff + mapsLen

	binary.LittleEndian.PutUint32(out[0x00:], uint32(b.kernelText.Addr))
	binary.LittleEndian.PutUint32(out[0x04:], uint32(b.kernelText.Size))
	binary.LittleEndian.PutUint32(out[0x08:], uint32(b.kernelData.Addr))
	binary.LittleEndian.PutUint32(out[0x0C:], uint32(b.kernelData.Size))
	binary.LittleEndian.PutUint32(out[0x10:], uint32(b.kernelBss.Addr))
	binary.LittleEndian.PutUint32(out[0x14:], uint32(b.kernelBss.Size))
	binary.LittleEndian.PutUint32(out[0x18:], uint32(total))
	binary.LittleEndian.PutUint32(out[0x1C:], uint32(base)+uint32(argOff))
	binary.LittleEndian.PutUint32(out[0x20:], uint32(len(b.progs)))
	binary.LittleEndian.PutUint32(out[0x24:], uint32(base)+uint32(progOff))
	binary.LittleEndian.PutUint32(out[0x28:], uint32(len(b.maps)))
	binary.LittleEndian.PutUint32(out[0x2C:], uint32(base)+uint32(mapOff))

	copy(out[argOff:], argBytes)

	for i, p := range b.progs {
		rec := out[progOff+i*ProgramRecordSize:]
		binary.LittleEndian.PutUint32(rec[0:], uint32(p.Start))
		binary.LittleEndian.PutUint32(rec[4:], uint32(p.End))
		rec[8] = p.IMap
		rec[9] = p.DMap
		name := p.Name
		if len(name) > 31 {
			name = name[:31]
		}
		copy(rec[10:10+len(name)], name)
		// rec[10+len(name):42] already zero (NUL padding); rec[42:48] pad.
	}

	for i, m := range b.maps {
		rec := out[mapOff+i*MapRecordSize:]
		binary.LittleEndian.PutUint32(rec[0:], uint32(m.Start))
		binary.LittleEndian.PutUint32(rec[4:], uint32(m.End))
		binary.LittleEndian.PutUint32(rec[8:], uint32(m.Attr))
		rec[12] = m.ID
		name := m.Name
		if len(name) > 7 {
			name = name[:7]
		}
		copy(rec[13:13+len(name)], name)
		// rec[13+len(name):21] NUL padding; rec[21:28] pad.
	}

	if len(b.hal) > 0 {
		copy(out[halOff:], b.hal)
	}

	return out, nil
}

// Header is the decoded 0x30-byte syspage header. DecodeHeader parses
// it back out of an encoded syspage, for tests and for consumers that
// re-read a previously saved syspage.
type Header struct {
	KernelTextAddr, KernelTextSize uint32
	KernelDataAddr, KernelDataSize uint32
	KernelBssAddr, KernelBssSize   uint32
	TotalSize                      uint32
	ArgPtr                         uint32
	ProgCount, ProgArrayPtr        uint32
	MapCount, MapArrayPtr          uint32
}

func DecodeHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, errs.EINVAL
	}
	le := binary.LittleEndian
	return Header{
		KernelTextAddr: le.Uint32(buf[0x00:]),
		KernelTextSize: le.Uint32(buf[0x04:]),
		KernelDataAddr: le.Uint32(buf[0x08:]),
		KernelDataSize: le.Uint32(buf[0x0C:]),
		KernelBssAddr:  le.Uint32(buf[0x10:]),
		KernelBssSize:  le.Uint32(buf[0x14:]),
		TotalSize:      le.Uint32(buf[0x18:]),
		ArgPtr:         le.Uint32(buf[0x1C:]),
		ProgCount:      le.Uint32(buf[0x20:]),
		ProgArrayPtr:   le.Uint32(buf[0x24:]),
		MapCount:       le.Uint32(buf[0x28:]),
		MapArrayPtr:    le.Uint32(buf[0x2C:]),
	}, nil
}
