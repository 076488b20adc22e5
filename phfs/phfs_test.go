package phfs

import (
	"errors"
	"testing"

	"github.com/phoenix-rtos/plo-sub001/devices"
	"github.com/phoenix-rtos/plo-sub001/errs"
)

type memDevice struct {
	data []byte
}

func (m *memDevice) Init(int) error { return nil }
func (m *memDevice) Done(int) error { return nil }
func (m *memDevice) Sync(int) error { return nil }

func (m *memDevice) Read(minor int, offset uint64, buf []byte, timeoutMs uint32) (int, error) {
	if offset >= uint64(len(m.data)) {
		return 0, nil
	}
	return copy(buf, m.data[offset:]), nil
}

func (m *memDevice) Write(minor int, offset uint64, buf []byte) (int, error) {
	need := int(offset) + len(buf)
	if need > len(m.data) {
		grown := make([]byte, need)
		copy(grown, m.data)
		m.data = grown
	}
	return copy(m.data[offset:], buf), nil
}

func setup(t *testing.T) (*FS, *memDevice) {
	t.Helper()
	reg := devices.New(nil)
	dev := &memDevice{data: make([]byte, 4096)}
	if _, err := reg.Register(0, 1, dev); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	fs := New(reg, nil)
	return fs, dev
}

func TestRegDevDuplicateAliasRejected(t *testing.T) {
	fs, _ := setup(t)
	if err := fs.RegDev("flash0", 0, 0, ProtoRaw); err != nil {
		t.Fatalf("first RegDev() error = %v", err)
	}
	if err := fs.RegDev("flash0", 0, 0, ProtoRaw); !errors.Is(err, errs.EINVAL) {
		t.Fatalf("duplicate RegDev() error = %v, want EINVAL", err)
	}
}

func TestRegDevRejectsUnregisteredDevice(t *testing.T) {
	fs, _ := setup(t)
	if err := fs.RegDev("bad", 3, 15, ProtoRaw); !errors.Is(err, errs.EINVAL) {
		t.Fatalf("RegDev() on unpopulated slot = %v, want EINVAL", err)
	}
}

func TestOpenWholeRawDevice(t *testing.T) {
	fs, dev := setup(t)
	if err := fs.RegDev("flash0", 0, 0, ProtoRaw); err != nil {
		t.Fatalf("RegDev() error = %v", err)
	}
	h, err := fs.Open("flash0", "", 0)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if _, err := fs.Write(h, 0, []byte("hello")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if string(dev.data[:5]) != "hello" {
		t.Fatalf("device data = %q, want hello", dev.data[:5])
	}
}

func TestOpenNamedFileClampsToBounds(t *testing.T) {
	fs, dev := setup(t)
	if err := fs.RegDev("flash0", 0, 0, ProtoRaw); err != nil {
		t.Fatalf("RegDev() error = %v", err)
	}
	if err := fs.RegFile("kernel", 100, 8); err != nil {
		t.Fatalf("RegFile() error = %v", err)
	}
	h, err := fs.Open("flash0", "kernel", 0)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	// Writing 16 bytes at file-relative offset 0 must clamp to the
	// file's 8-byte size window, landing at device offset 100.
	n, err := fs.Write(h, 0, make([]byte, 16))
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if n != 8 {
		t.Fatalf("Write() clamped length = %d, want 8", n)
	}

	dev.data[108] = 0xAA // just past the file window
	buf := make([]byte, 16)
	n, err = fs.Read(h, 0, buf, 0)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if n != 8 {
		t.Fatalf("Read() clamped length = %d, want 8", n)
	}
}

func TestRegFileDuplicateAliasRejected(t *testing.T) {
	fs, _ := setup(t)
	if err := fs.RegFile("kernel", 0, 10); err != nil {
		t.Fatalf("first RegFile() error = %v", err)
	}
	if err := fs.RegFile("kernel", 100, 10); !errors.Is(err, errs.EINVAL) {
		t.Fatalf("duplicate RegFile() error = %v, want EINVAL", err)
	}
}

func TestMapNonMappableDeviceReportsNotMappable(t *testing.T) {
	fs, _ := setup(t)
	if err := fs.RegDev("flash0", 0, 0, ProtoRaw); err != nil {
		t.Fatalf("RegDev() error = %v", err)
	}
	h, err := fs.Open("flash0", "", 0)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	res, err := fs.Map(h, devices.AddrRange{}, devices.ModeRead, devices.AddrRange{}, devices.ModeRead|devices.ModeWrite)
	if err != nil {
		t.Fatalf("Map() error = %v", err)
	}
	if res.Mappable {
		t.Fatal("Map() should report NotMappable when memDevice doesn't implement Mappable")
	}
}
