package imageconv

import (
	"image"
	"image/color"
	"testing"
)

func TestConvertOrdersBytesBGRX(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.Set(0, 0, color.RGBA{R: 0x11, G: 0x22, B: 0x33, A: 0xff})
	img.Set(1, 0, color.RGBA{R: 0xaa, G: 0xbb, B: 0xcc, A: 0xff})

	h, pix := Convert(img)
	if h.Width != 2 || h.Height != 1 {
		t.Fatalf("Header = %+v, want {2 1}", h)
	}
	if len(pix) != 8 {
		t.Fatalf("len(pix) = %d, want 8", len(pix))
	}
	want := []byte{0x33, 0x22, 0x11, 0, 0xcc, 0xbb, 0xaa, 0}
	for i, b := range want {
		if pix[i] != b {
			t.Fatalf("pix[%d] = %#x, want %#x", i, pix[i], b)
		}
	}
}

func TestWriteHeaderLittleEndian(t *testing.T) {
	var got []byte
	err := WriteHeader(func(b []byte) error {
		got = append(got, b...)
		return nil
	}, Header{Width: 0x100, Height: 0x2})
	if err != nil {
		t.Fatalf("WriteHeader: %v", err)
	}
	want := []byte{0x00, 0x01, 0x00, 0x00, 0x02, 0x00, 0x00, 0x00}
	for i, b := range want {
		if got[i] != b {
			t.Fatalf("got[%d] = %#x, want %#x", i, got[i], b)
		}
	}
}
