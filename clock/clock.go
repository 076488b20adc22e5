// Package clock provides the monotonic millisecond counter and the
// blocking wait-with-cancel primitive every timeout-bounded operation
// in the loader is built on (spec §5, component A).
//
// The teacher reads a hardware cycle counter (CNTVCT_EL0) and derives
// nanoseconds-per-tick from CNTFRQ_EL0 (nanotime.go); this package
// keeps that shape — a Source that yields ticks, converted to
// milliseconds — but substitutes a pluggable Source so host tests run
// against a fake clock instead of real hardware.
package clock

import "time"

// Source yields the current tick count. A real board wires this to
// its generic timer counter register; tests wire it to a manually
// advanced fake.
type Source interface {
	Ticks() uint64
}

// Clock converts a tick Source into millisecond timestamps and
// implements the wait-with-cancel primitive from spec §5.2.
type Clock struct {
	src         Source
	ticksPerSec uint64
}

// New builds a Clock from src, whose ticks advance at ticksPerSec.
func New(src Source, ticksPerSec uint64) *Clock {
	if ticksPerSec == 0 {
		ticksPerSec = 1
	}
	return &Clock{src: src, ticksPerSec: ticksPerSec}
}

// NowMs returns milliseconds elapsed since the Source's epoch.
func (c *Clock) NowMs() uint64 {
	return c.src.Ticks() * 1000 / c.ticksPerSec
}

// CancelFlags select which external conditions, besides the deadline
// itself, end a Wait early — mirroring timer_wait's KEYB/VALCHG flags.
type CancelFlags uint8

const (
	// Keyb cancels the wait as soon as KeyPressed reports true.
	Keyb CancelFlags = 1 << iota
	// ValChg cancels the wait as soon as *Value no longer equals the
	// snapshot taken when Wait was called.
	ValChg
)

// Wait blocks until ms milliseconds have elapsed, or until a requested
// cancellation condition fires, whichever comes first. KeyPressed may
// be nil when Keyb is not set; value/want are only consulted when
// ValChg is set. Returns true if the wait ran to completion (deadline
// reached without cancellation), false if cancelled early.
//
// ms == 0 means "no deadline": with no cancellation flag set, Wait
// returns true immediately; with a flag set, it waits until that
// cancellation fires and then returns false.
func (c *Clock) Wait(ms uint64, flags CancelFlags, keyPressed func() bool, value *uint32, want uint32) bool {
	deadline := c.NowMs() + ms
	hasDeadline := ms != 0
	for {
		if flags&Keyb != 0 && keyPressed != nil && keyPressed() {
			return false
		}
		if flags&ValChg != 0 && value != nil && *value != want {
			return false
		}
		now := c.NowMs()
		if hasDeadline && now >= deadline {
			return true
		}
		if !hasDeadline && flags == 0 {
			return true
		}
		c.yield()
	}
}

// Deadline reports whether the deadline startMs+ms has passed as of
// NowMs; ms == 0 never expires. Used by polling loops (FlexSPI status,
// packet timeouts) that need to check progress without blocking.
func (c *Clock) Deadline(startMs, ms uint64) bool {
	if ms == 0 {
		return false
	}
	return c.NowMs() >= startMs+ms
}

// yield is the WFI-between-polls point; on host builds it sleeps
// briefly so spin loops in tests don't burn a core.
func (c *Clock) yield() {
	time.Sleep(time.Microsecond)
}

// SystemSource is a Source backed by wall-clock time, for host builds
// and tests that don't need to simulate hardware tick skew.
type SystemSource struct{ start time.Time }

// NewSystemSource returns a Source whose tick is one nanosecond,
// anchored at construction time.
func NewSystemSource() *SystemSource { return &SystemSource{start: time.Now()} }

func (s *SystemSource) Ticks() uint64 { return uint64(time.Since(s.start).Nanoseconds()) }

// NewSystem builds a Clock over a SystemSource at 1GHz (nanosecond ticks).
func NewSystem() *Clock { return New(NewSystemSource(), 1_000_000_000) }
