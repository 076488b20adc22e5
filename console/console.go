// Package console renders the loader's boot-progress text: a plain
// io.Writer backend for boards with only a UART alias bound, and a
// rasterized status line for boards with a framebuffer device binding
// (PHFS alias "fbcon"), grounded on the teacher's gg_circle_qemu.go
// composite/flush loop over a Bochs-style XRGB8888 backbuffer.
package console

import (
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/fogleman/gg"
	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/text/width"
)

// Console is the progress sink every boot-time operation that wants to
// tell a human something writes to. A text-only console wraps an
// io.Writer; a framebuffer console additionally rasterizes the same
// lines onto a backbuffer.
type Console struct {
	w  io.Writer
	fb *framebuffer
}

// NewText returns a Console that only ever writes lines to w, matching
// boards with no framebuffer device bound.
func NewText(w io.Writer) *Console { return &Console{w: w} }

// framebuffer holds the gg/freetype rendering state for boards whose
// boot config binds an "fbcon" alias.
type framebuffer struct {
	ctx        *gg.Context
	font       *truetype.Font
	lineHeight float64
	cursorY    float64
	width      int
	buf        []byte // XRGB8888 backbuffer the caller flushes to hardware
	pitch      int
}

// NewFramebuffer returns a Console that rasterizes onto a
// pixelWidth x pixelHeight backbuffer in addition to writing plain
// lines to textWriter. fontSize is in
// points; pass 0 for a sensible default.
func NewFramebuffer(textWriter io.Writer, pixelWidth, pixelHeight int, fontSize float64) (*Console, error) {
	if fontSize <= 0 {
		fontSize = 14
	}
	font, err := freetype.ParseFont(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("console: parse embedded font: %w", err)
	}
	ctx := gg.NewContext(pixelWidth, pixelHeight)
	ctx.SetColor(color.Black)
	ctx.Clear()
	face := truetype.NewFace(font, &truetype.Options{Size: fontSize})
	ctx.SetFontFace(face)

	return &Console{
		w: textWriter,
		fb: &framebuffer{
			ctx:        ctx,
			font:       font,
			lineHeight: fontSize * 1.4,
			width:      pixelWidth,
			pitch:      pixelWidth * 4,
			buf:        make([]byte, pixelWidth*pixelHeight*4),
		},
	}, nil
}

// maxAliasColumns is the fixed column budget a rasterized status line
// reserves for a device/map alias before the free-form message.
const maxAliasColumns = 16

// truncateAlias shortens alias to fit within maxAliasColumns display
// columns, counting East-Asian wide runes as two columns via
// golang.org/x/text/width — plain byte-length truncation would cut a
// wide rune in half and corrupt the rendered glyph.
func truncateAlias(alias string) string {
	cols := 0
	out := make([]rune, 0, len(alias))
	for _, r := range alias {
		w := 1
		if p := width.LookupRune(r); p.Kind() == width.EastAsianWide || p.Kind() == width.EastAsianFullwidth {
			w = 2
		}
		if cols+w > maxAliasColumns {
			break
		}
		cols += w
		out = append(out, r)
	}
	return string(out)
}

// Statusf writes a "[alias] message" progress line: to the plain text
// writer always, and rasterized onto the framebuffer backbuffer if one
// is configured.
func (c *Console) Statusf(alias, format string, args ...any) {
	line := fmt.Sprintf("[%s] %s", truncateAlias(alias), fmt.Sprintf(format, args...))
	fmt.Fprintln(c.w, line)
	if c.fb != nil {
		c.fb.drawLine(line)
	}
}

func (f *framebuffer) drawLine(line string) {
	if f.cursorY+f.lineHeight > float64(f.ctx.Height()) {
		f.scroll()
	}
	f.ctx.SetColor(color.White)
	f.ctx.DrawString(line, 4, f.cursorY+f.lineHeight*0.8)
	f.cursorY += f.lineHeight
}

// scroll shifts the backbuffer content up by one line height and clears
// the vacated strip, the rasterized analog of the teacher's
// ScrollScreenUp text-mode console.
func (f *framebuffer) scroll() {
	im, ok := f.ctx.Image().(*image.RGBA)
	if !ok {
		return
	}
	shift := int(f.lineHeight) * im.Stride
	copy(im.Pix, im.Pix[shift:])
	for i := len(im.Pix) - shift; i < len(im.Pix); i++ {
		im.Pix[i] = 0
	}
	f.cursorY -= f.lineHeight
	if f.cursorY < 0 {
		f.cursorY = 0
	}
}

// Flush copies the rasterized RGBA backbuffer into dst as XRGB8888
// (teacher's flushGGToFramebuffer byte order), for the board's
// framebuffer device Write call. Returns 0, nil on a text-only
// console.
func (c *Console) Flush(dst []byte) (int, error) {
	if c.fb == nil {
		return 0, nil
	}
	im, ok := c.fb.ctx.Image().(*image.RGBA)
	if !ok {
		return 0, fmt.Errorf("console: backbuffer is not RGBA")
	}
	n := len(dst)
	if n > len(c.fb.buf) {
		n = len(c.fb.buf)
	}
	for i := 0; i+4 <= n; i += 4 {
		r, g, b, _ := im.Pix[i], im.Pix[i+1], im.Pix[i+2], im.Pix[i+3]
		dst[i+0] = b
		dst[i+1] = g
		dst[i+2] = r
		dst[i+3] = 0
	}
	return n, nil
}
