// Package errs defines the sentinel error values shared by every loader
// component, matching the errno-shaped taxonomy the original C source
// returns as negative ints (spec §7).
package errs

import "errors"

var (
	// EINVAL: argument shape wrong — bad name, duplicate alias,
	// out-of-range index, unaligned offset, unparseable attr string.
	EINVAL = errors.New("einval: invalid argument")

	// ENOMEM: target region full — syspage arg string overflow, map out
	// of space, MPU region table exhausted.
	ENOMEM = errors.New("enomem: out of space")

	// EPERM: MPU encoding impossible.
	EPERM = errors.New("eperm: operation not permitted")

	// EIO: transport-level error not recoverable by local retry.
	EIO = errors.New("eio: i/o error")

	// ETIME: deadline expired.
	ETIME = errors.New("etime: timed out")

	// ENXIO: handler present but doesn't support this call.
	ENXIO = errors.New("enxio: no such device or address")

	// ECONNREFUSED: device declares itself disconnected.
	ECONNREFUSED = errors.New("econnrefused: device disconnected")

	// ENODEV: flash device inactive; JEDEC probe found no known vendor.
	ENODEV = errors.New("enodev: no such device")
)

// Code is the negative-int form callers of the original C API expect;
// kept around for components that bridge to the byte-exact wire/ABI
// surfaces (packet transport, PHFS dispatch) where an errno-shaped
// return still matters.
type Code int

const (
	OK Code = 0
)

// ToCode maps a sentinel (or nil) to its negative errno-shaped code.
// Unrecognised non-nil errors map to EIO's code, since they indicate an
// unrecoverable transport-level condition by default.
func ToCode(err error) Code {
	switch {
	case err == nil:
		return OK
	case errors.Is(err, EINVAL):
		return -22
	case errors.Is(err, ENOMEM):
		return -12
	case errors.Is(err, EPERM):
		return -1
	case errors.Is(err, EIO):
		return -5
	case errors.Is(err, ETIME):
		return -110
	case errors.Is(err, ENXIO):
		return -6
	case errors.Is(err, ECONNREFUSED):
		return -111
	case errors.Is(err, ENODEV):
		return -19
	default:
		return -5
	}
}
