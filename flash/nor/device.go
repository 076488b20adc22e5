package nor

import (
	"github.com/phoenix-rtos/plo-sub001/devices"
	"github.com/phoenix-rtos/plo-sub001/errs"
)

// Device adapts a set of open Contexts (one per minor) to
// devices.Handler/Mappable, the same shape flashdrv_reg's dev_handler_t
// registration gave the original NOR driver.
type Device struct {
	ctxs [devices.MaxMinor]*Context
}

// NewDevice builds an empty adapter; Attach populates minors as they
// are probed.
func NewDevice() *Device { return &Device{} }

// Attach records an already-open Context under minor, so Registry
// dispatch can reach it.
func (d *Device) Attach(minor int, ctx *Context) error {
	if minor < 0 || minor >= devices.MaxMinor {
		return errs.EINVAL
	}
	d.ctxs[minor] = ctx
	return nil
}

func (d *Device) ctx(minor int) (*Context, error) {
	if minor < 0 || minor >= devices.MaxMinor || d.ctxs[minor] == nil {
		return nil, errs.EINVAL
	}
	return d.ctxs[minor], nil
}

// Init is a no-op: Open already brought the Context up (the probe,
// PostInit quirks, and LUT load all happen before Attach).
func (d *Device) Init(minor int) error {
	_, err := d.ctx(minor)
	return err
}

// Done flushes any dirty sector before the slot is torn down.
func (d *Device) Done(minor int) error {
	c, err := d.ctx(minor)
	if err != nil {
		return err
	}
	return c.Flush()
}

func (d *Device) Sync(minor int) error {
	c, err := d.ctx(minor)
	if err != nil {
		return err
	}
	return c.Sync()
}

func (d *Device) Read(minor int, offset uint64, buf []byte, timeoutMs uint32) (int, error) {
	c, err := d.ctx(minor)
	if err != nil {
		return 0, err
	}
	if offset+uint64(len(buf)) > uint64(c.Info.TotalSize) {
		return 0, errs.EINVAL
	}
	return c.ReadBack(uint32(offset), buf)
}

func (d *Device) Write(minor int, offset uint64, buf []byte) (int, error) {
	c, err := d.ctx(minor)
	if err != nil {
		return 0, err
	}
	if offset+uint64(len(buf)) > uint64(c.Info.TotalSize) {
		return 0, errs.EINVAL
	}
	if err := c.BufferedWrite(uint32(offset), buf); err != nil {
		return 0, err
	}
	return len(buf), nil
}

// Map is unsupported: NOR flash is XIP-mapped by the controller's AHB
// window at a fixed address chosen at board-config time, not through
// the generic per-request mapping path.
func (d *Device) Map(minor int, devRange devices.AddrRange, devMode devices.AccessMode, memRange devices.AddrRange, memMode devices.AccessMode) (devices.MapResult, error) {
	return devices.MapResult{Mappable: false}, nil
}

var (
	_ devices.Handler  = (*Device)(nil)
	_ devices.Mappable = (*Device)(nil)
)
