// Package card rasterizes a summary into a PNG share card: dark background,
// one soft radial accent, the Clarity mark, the wrapped TL;DR and a footer
// with tone and article type.
package card

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"
	"math/rand/v2"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"

	"github.com/hyperifyio/clarity/internal/normalize"
)

// Geometry in pixels.
const (
	Width        = 800
	Padding      = 32
	TLDRFontSize = 28
	LineHeight   = 42
	ContentWidth = Width - 2*Padding

	headerH  = 90
	eyebrowH = 50
	gapH     = 20
	footerH  = 80

	eyebrowY   = 90
	textStartY = eyebrowY + 36
)

// Height returns the card height for a given number of TL;DR lines.
func Height(lines int) int {
	return headerH + eyebrowH + lines*LineHeight + gapH + footerH
}

var (
	background = hex(0x0e0e0e)
	logoFill   = hex(0x1a4a1a)
	logoText   = hex(0xd4e8a0)
	wordmark   = hex(0xfaf9f6)
	domainText = hex(0x555555)
	eyebrow    = hex(0xc8f04a)
	tldrText   = hex(0xf5f5f0)
	divider    = hex(0x252525)
	footerText = hex(0x666666)
	brandText  = hex(0x444444)
)

func hex(v uint32) color.RGBA {
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}
}

// Gradient is one radial accent: centre, radius and RGB. Alpha runs from
// GradientAlpha at the centre to 0 at the radius.
type Gradient struct {
	X, Y, R float64
	Color   color.RGBA
}

// GradientAlpha is the accent opacity at its centre.
const GradientAlpha = 0.22

// Palette returns the five accents for a card of height h.
func Palette(h int) []Gradient {
	H := float64(h)
	return []Gradient{
		{X: Width - 80, Y: 80, R: 200, Color: hex(0xc8f04a)},
		{X: 80, Y: H - 80, R: 180, Color: hex(0x4ac88c)},
		{X: Width / 2, Y: 50, R: 220, Color: hex(0x7850f0)},
		{X: Width - 60, Y: H - 60, R: 190, Color: hex(0xf0a04a)},
		{X: 60, Y: 60, R: 170, Color: hex(0x4aa0f0)},
	}
}

// Chooser picks an index in [0, n).
type Chooser func(n int) int

// NewChooser returns a deterministic Chooser for a non-zero seed and a
// random one otherwise.
func NewChooser(seed uint64) Chooser {
	if seed == 0 {
		return rand.IntN
	}
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	var mu sync.Mutex
	return func(n int) int {
		mu.Lock()
		defer mu.Unlock()
		return r.IntN(n)
	}
}

// Layout is the measured TL;DR block and the resulting card size.
type Layout struct {
	Width  int
	Height int
	Lines  []string
}

// Renderer draws cards. The zero value picks accents at random.
type Renderer struct {
	Choose Chooser
}

// Measure wraps tldr to ContentWidth at TLDRFontSize and sizes the card.
func Measure(tldr string) (Layout, error) {
	f, err := loadFaces()
	if err != nil {
		return Layout{}, err
	}
	lines := Wrap(f.tldr, tldr, ContentWidth)
	return Layout{Width: Width, Height: Height(len(lines)), Lines: lines}, nil
}

// Wrap breaks text greedily on single spaces so no line exceeds maxWidth,
// except a single word wider than maxWidth which gets its own line.
func Wrap(face font.Face, text string, maxWidth int) []string {
	lines := []string{}
	limit := fixed.I(maxWidth)
	current := ""
	for _, word := range strings.Split(text, " ") {
		test := word
		if current != "" {
			test = current + " " + word
		}
		if current != "" && font.MeasureString(face, test) > limit {
			lines = append(lines, current)
			current = word
		} else {
			current = test
		}
	}
	if current != "" {
		lines = append(lines, current)
	}
	return lines
}

// Render draws the card for s. sourceURL only contributes its host name.
func (r *Renderer) Render(s normalize.Summary, sourceURL string) (*image.RGBA, error) {
	f, err := loadFaces()
	if err != nil {
		return nil, err
	}
	lines := Wrap(f.tldr, s.TLDR, ContentWidth)
	W, H := Width, Height(len(lines))
	img := image.NewRGBA(image.Rect(0, 0, W, H))

	draw.Draw(img, img.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)

	choose := r.Choose
	if choose == nil {
		choose = rand.IntN
	}
	palette := Palette(H)
	g := palette[choose(len(palette))]
	draw.Draw(img, img.Bounds(), &radial{g: g, bounds: img.Bounds()}, image.Point{}, draw.Over)

	fillRoundRect(img, Padding, 26, 36, 36, 9, logoFill)
	drawCentered(img, f.logo, "C", Padding+18, 51, logoText)
	drawText(img, f.wordmark, "Clarity", Padding+46, 52, wordmark)
	drawRight(img, f.mono13, Domain(sourceURL), W-Padding, 50, domainText)

	drawText(img, f.eyebrow, "TL;DR", Padding, eyebrowY, eyebrow)
	for i, line := range lines {
		drawText(img, f.tldr, line, Padding, textStartY+i*LineHeight, tldrText)
	}

	dividerY := H - 64
	draw.Draw(img, image.Rect(Padding, dividerY, W-Padding, dividerY+1), image.NewUniform(divider), image.Point{}, draw.Over)

	drawText(img, f.mono13, Footer(s), Padding, dividerY+28, footerText)
	drawRight(img, f.mono12, "Summarized with Clarity", W-Padding, dividerY+28, brandText)
	return img, nil
}

// Footer is "<tone>  ·  <score>%   <type>" with absent parts left out.
func Footer(s normalize.Summary) string {
	var b strings.Builder
	if s.Tone.Primary != "" {
		b.WriteString(s.Tone.Primary)
	}
	if s.Tone.ConfidenceScore != nil {
		b.WriteString("  ·  " + strconv.FormatFloat(*s.Tone.ConfidenceScore, 'f', -1, 64) + "%")
	}
	if s.ArticleType != "" {
		b.WriteString("   " + s.ArticleType)
	}
	return strings.TrimLeft(b.String(), " ·")
}

// Domain is the host of raw without a leading "www.". Unparseable input
// yields "".
func Domain(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}

// EncodePNG writes img as PNG.
func EncodePNG(w io.Writer, img image.Image) error {
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encode card: %w", err)
	}
	return nil
}

type radial struct {
	g      Gradient
	bounds image.Rectangle
}

func (r *radial) ColorModel() color.Model { return color.NRGBAModel }
func (r *radial) Bounds() image.Rectangle { return r.bounds }

func (r *radial) At(x, y int) color.Color {
	dx := float64(x) + 0.5 - r.g.X
	dy := float64(y) + 0.5 - r.g.Y
	d := math.Hypot(dx, dy)
	if d >= r.g.R {
		return color.NRGBA{}
	}
	a := GradientAlpha * (1 - d/r.g.R)
	return color.NRGBA{R: r.g.Color.R, G: r.g.Color.G, B: r.g.Color.B, A: uint8(math.Round(a * 255))}
}

func fillRoundRect(dst draw.Image, x, y, w, h, rad float32, c color.Color) {
	b := dst.Bounds()
	z := vector.NewRasterizer(b.Dx(), b.Dy())
	z.MoveTo(x+rad, y)
	z.LineTo(x+w-rad, y)
	z.QuadTo(x+w, y, x+w, y+rad)
	z.LineTo(x+w, y+h-rad)
	z.QuadTo(x+w, y+h, x+w-rad, y+h)
	z.LineTo(x+rad, y+h)
	z.QuadTo(x, y+h, x, y+h-rad)
	z.LineTo(x, y+rad)
	z.QuadTo(x, y, x+rad, y)
	z.ClosePath()
	z.Draw(dst, b, image.NewUniform(c), image.Point{})
}

func drawText(dst draw.Image, face font.Face, s string, x, baseline int, c color.Color) {
	d := &font.Drawer{Dst: dst, Src: image.NewUniform(c), Face: face, Dot: fixed.P(x, baseline)}
	d.DrawString(s)
}

func drawRight(dst draw.Image, face font.Face, s string, right, baseline int, c color.Color) {
	w := font.MeasureString(face, s).Round()
	drawText(dst, face, s, right-w, baseline, c)
}

func drawCentered(dst draw.Image, face font.Face, s string, cx, baseline int, c color.Color) {
	w := font.MeasureString(face, s).Round()
	drawText(dst, face, s, cx-w/2, baseline, c)
}

type faces struct {
	tldr, logo, wordmark, eyebrow, mono13, mono12 font.Face
}

var (
	fontsOnce sync.Once
	fonts     struct {
		regular, bold, boldItalic, mono, monoBold *opentype.Font
	}
	fontsErr error
)

// loadFaces parses the embedded Go fonts once and builds fresh faces; faces
// keep per-face glyph buffers and are not shared between renders.
func loadFaces() (*faces, error) {
	fontsOnce.Do(func() {
		parse := func(b []byte) *opentype.Font {
			if fontsErr != nil {
				return nil
			}
			f, err := opentype.Parse(b)
			if err != nil {
				fontsErr = fmt.Errorf("parse font: %w", err)
			}
			return f
		}
		fonts.regular = parse(goregular.TTF)
		fonts.bold = parse(gobold.TTF)
		fonts.boldItalic = parse(gobolditalic.TTF)
		fonts.mono = parse(gomono.TTF)
		fonts.monoBold = parse(gomonobold.TTF)
	})
	if fontsErr != nil {
		return nil, fontsErr
	}
	var err error
	face := func(f *opentype.Font, size float64) font.Face {
		if err != nil {
			return nil
		}
		var fc font.Face
		fc, err = opentype.NewFace(f, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingNone})
		return fc
	}
	out := &faces{
		tldr:     face(fonts.regular, TLDRFontSize),
		logo:     face(fonts.bold, 22),
		wordmark: face(fonts.boldItalic, 22),
		eyebrow:  face(fonts.monoBold, 11),
		mono13:   face(fonts.mono, 13),
		mono12:   face(fonts.mono, 12),
	}
	if err != nil {
		return nil, fmt.Errorf("build font face: %w", err)
	}
	return out, nil
}
