// Package mpu translates named memory maps (syspage.Map) into concrete
// hardware region descriptors for the two MPU generations this loader
// targets: ARMv7-M/R's {rbar,rasr} pair and ARMv8-R's {rbar,rlar} pair
// (spec §4.5). Both implementations share the Allocator/Partition
// seam; only region-descriptor emission differs.
package mpu

import "github.com/phoenix-rtos/plo-sub001/syspage"

// Partition is one program's MPU region-table snapshot, generation
// agnostic. Callers that need the raw register pairs type-assert to
// *V7Partition or *V8Partition.
type Partition interface {
	AllocCount() int
	MapIDs() []uint32
}

// Allocator builds a Partition for one program: the kernel code map,
// then the program's own instruction/data maps (spec §4.5 "Per-program
// allocation").
type Allocator interface {
	MaxRegions() int
	AllocProgram(kernelMap syspage.Map, imaps, dmaps []syspage.Map) (Partition, error)
}
