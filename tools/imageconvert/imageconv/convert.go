// Package imageconv turns a PNG/JPEG boot-splash image into the
// raw XRGB8888 byte layout console.Console.Flush expects its
// framebuffer destination buffer in: a little-endian [B,G,R,0] pixel
// stream, matching the teacher's flushGGToFramebuffer byte order.
package imageconv

import (
	"encoding/binary"
	"image"
)

// Header is the 8-byte width/height prefix written ahead of the pixel
// stream, so a board's boot-splash loader knows the backbuffer size
// before it allocates one.
type Header struct {
	Width, Height uint32
}

// Convert rasterizes img into a Header plus XRGB8888 pixel bytes ready
// to hand to a console.Console's Flush destination (or to embed
// directly as a boot-splash asset).
func Convert(img image.Image) (Header, []byte) {
	bounds := img.Bounds()
	width := uint32(bounds.Dx())
	height := uint32(bounds.Dy())

	pix := make([]byte, int(width)*int(height)*4)
	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			pix[i+0] = byte(b >> 8)
			pix[i+1] = byte(g >> 8)
			pix[i+2] = byte(r >> 8)
			pix[i+3] = 0
			i += 4
		}
	}
	return Header{Width: width, Height: height}, pix
}

// WriteHeader writes h in the little-endian layout main's output file
// carries ahead of the pixel stream.
func WriteHeader(put func([]byte) error, h Header) error {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint32(buf[0:4], h.Width)
	binary.LittleEndian.PutUint32(buf[4:8], h.Height)
	return put(buf)
}
