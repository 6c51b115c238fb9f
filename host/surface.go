package host

import (
	"image"
	"image/color"
	"image/png"
	"io"
	"math"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Surface is the pixel store behind a canvas element.
type Surface struct {
	img *image.RGBA
}

// NewSurface returns a transparent surface of the given size.
func NewSurface(width, height int) *Surface {
	return &Surface{img: image.NewRGBA(image.Rect(0, 0, width, height))}
}

// Image returns the backing image. Frontends read Pix directly.
func (s *Surface) Image() *image.RGBA { return s.img }

func (s *Surface) Width() int  { return s.img.Rect.Dx() }
func (s *Surface) Height() int { return s.img.Rect.Dy() }

// Resize replaces the backing image, clearing it.
func (s *Surface) Resize(width, height int) {
	s.img = image.NewRGBA(image.Rect(0, 0, max(width, 0), max(height, 0)))
}

// Clear makes the rectangle fully transparent.
func (s *Surface) Clear(x, y, w, h float64) {
	r, ok := s.rect(x, y, w, h)
	if !ok {
		return
	}
	xdraw.Draw(s.img, r, image.Transparent, image.Point{}, xdraw.Src)
}

// Fill composites c over the rectangle.
func (s *Surface) Fill(x, y, w, h float64, c color.Color) {
	r, ok := s.rect(x, y, w, h)
	if !ok {
		return
	}
	xdraw.Draw(s.img, r, image.NewUniform(c), image.Point{}, xdraw.Over)
}

// Text draws str with its alphabetic baseline at y, scaling the built-in
// bitmap face to px.
func (s *Surface) Text(str string, x, y, px float64, c color.Color) {
	if str == "" || !finite(x, y, px) || px <= 0 {
		return
	}
	face := basicfont.Face7x13
	metrics := face.Metrics()
	lineH := metrics.Height.Ceil()
	ascent := metrics.Ascent.Ceil()
	adv := font.MeasureString(face, str).Ceil()
	if adv <= 0 {
		return
	}

	glyphs := image.NewRGBA(image.Rect(0, 0, adv, lineH))
	d := font.Drawer{
		Dst:  glyphs,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(0, ascent),
	}
	d.DrawString(str)

	scale := px / float64(lineH)
	top := y - float64(ascent)*scale
	dst := image.Rect(
		int(math.Floor(x)),
		int(math.Floor(top)),
		int(math.Floor(x+float64(adv)*scale)),
		int(math.Floor(top+float64(lineH)*scale)),
	)
	xdraw.NearestNeighbor.Scale(s.img, dst, glyphs, glyphs.Bounds(), xdraw.Over, nil)
}

// Snapshot returns a copy of the current pixels.
func (s *Surface) Snapshot() *image.RGBA {
	out := image.NewRGBA(s.img.Rect)
	copy(out.Pix, s.img.Pix)
	return out
}

// EncodePNG writes the current pixels as PNG.
func (s *Surface) EncodePNG(w io.Writer) error {
	return png.Encode(w, s.img)
}

func (s *Surface) rect(x, y, w, h float64) (image.Rectangle, bool) {
	if !finite(x, y, w, h) {
		return image.Rectangle{}, false
	}
	if w < 0 {
		x, w = x+w, -w
	}
	if h < 0 {
		y, h = y+h, -h
	}
	r := image.Rect(
		int(math.Floor(x)),
		int(math.Floor(y)),
		int(math.Floor(x+w)),
		int(math.Floor(y+h)),
	).Intersect(s.img.Rect)
	return r, !r.Empty()
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
