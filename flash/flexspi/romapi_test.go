package flexspi

import (
	"testing"

	"github.com/phoenix-rtos/plo-sub001/errs"
)

func TestROMAPIExecDispatchesProgram(t *testing.T) {
	var gotInstance, gotAddr uint32
	var gotData []byte
	r := &ROMAPI{
		Instance: 2,
		Table: Table{
			Program: func(instance uint32, dstAddr uint32, src []byte) error {
				gotInstance, gotAddr, gotData = instance, dstAddr, src
				return nil
			},
		},
	}
	data := []byte{1, 2, 3, 4}
	n, err := r.Exec(Transfer{Op: OpWrite, SeqIndex: SeqProgramQPP, Addr: 0x1000, Data: data})
	if err != nil {
		t.Fatalf("Exec: %v", err)
	}
	if n != len(data) {
		t.Fatalf("Exec returned %d, want %d", n, len(data))
	}
	if gotInstance != 2 || gotAddr != 0x1000 || len(gotData) != len(data) {
		t.Fatalf("Program called with (%d,%#x,%v), want (2,0x1000,%v)", gotInstance, gotAddr, gotData, data)
	}
}

func TestROMAPIExecDispatchesEraseSector(t *testing.T) {
	var gotStart, gotLength uint32
	r := &ROMAPI{
		Instance: 1,
		Table: Table{
			Erase: func(instance uint32, start, length uint32) error {
				gotStart, gotLength = start, length
				return nil
			},
		},
	}
	if _, err := r.Exec(Transfer{Op: OpCommand, SeqIndex: SeqEraseSector, Addr: 0x2000, Size: 4096}); err != nil {
		t.Fatalf("Exec: %v", err)
	}
	if gotStart != 0x2000 || gotLength != 4096 {
		t.Fatalf("Erase called with (%#x,%d), want (0x2000,4096)", gotStart, gotLength)
	}
}

func TestROMAPIExecDispatchesEraseAll(t *testing.T) {
	called := false
	r := &ROMAPI{
		Table: Table{
			EraseAll: func(instance uint32) error {
				called = true
				return nil
			},
		},
	}
	if _, err := r.Exec(Transfer{Op: OpCommand, SeqIndex: SeqEraseChip}); err != nil {
		t.Fatalf("Exec: %v", err)
	}
	if !called {
		t.Fatal("EraseAll was not invoked for a chip-erase transfer")
	}
}

func TestROMAPIExecFallsBackToXfer(t *testing.T) {
	called := false
	r := &ROMAPI{
		Table: Table{
			Xfer: func(instance uint32, xfer Transfer) (int, error) {
				called = true
				return 0, nil
			},
		},
	}
	if _, err := r.Exec(Transfer{Op: OpCommand, SeqIndex: SeqReadStatus}); err != nil {
		t.Fatalf("Exec: %v", err)
	}
	if !called {
		t.Fatal("Xfer was not invoked for an unmatched transfer")
	}
}

func TestROMAPIExecNoTableNoFallback(t *testing.T) {
	r := &ROMAPI{}
	if _, err := r.Exec(Transfer{Op: OpCommand, SeqIndex: SeqReadStatus}); err != errs.ENXIO {
		t.Fatalf("Exec with no table entries: err = %v, want ENXIO", err)
	}
}
