// Package chart renders the daily usage bar chart shown on the dashboard.
package chart

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"strconv"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/erazemk/holdfolio/internal/model"
)

// Default image size in pixels.
const (
	DefaultWidth  = 720
	DefaultHeight = 240
)

// LabelEvery is the interval, in days, between x-axis labels.
const LabelEvery = 5

const (
	marginLeft   = 36
	marginRight  = 8
	marginTop    = 10
	marginBottom = 22
	barGap       = 2
)

var (
	background = color.RGBA{0xff, 0xff, 0xff, 0xff}
	axisColor  = color.RGBA{0xcb, 0xd5, 0xe1, 0xff}
	barColor   = color.RGBA{0x25, 0x63, 0xeb, 0xff}
	textColor  = color.RGBA{0x47, 0x55, 0x69, 0xff}
)

// Options controls the rendered image. Zero values use the defaults.
type Options struct {
	Width  int
	Height int
}

// RenderUses writes a PNG bar chart with one bar per day, oldest on the left.
func RenderUses(w io.Writer, days []model.DayUses, opts Options) error {
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = DefaultHeight
	}
	if opts.Width <= marginLeft+marginRight || opts.Height <= marginTop+marginBottom {
		return fmt.Errorf("chart size %dx%d too small", opts.Width, opts.Height)
	}

	img := image.NewRGBA(image.Rect(0, 0, opts.Width, opts.Height))
	draw.Draw(img, img.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)

	plot := image.Rect(marginLeft, marginTop, opts.Width-marginRight, opts.Height-marginBottom)

	var peak int64
	for _, d := range days {
		peak = max(peak, d.Uses)
	}
	scale := max(peak, 1)

	// Axes.
	fill(img, image.Rect(plot.Min.X-1, plot.Min.Y, plot.Min.X, plot.Max.Y+1), axisColor)
	fill(img, image.Rect(plot.Min.X-1, plot.Max.Y, plot.Max.X, plot.Max.Y+1), axisColor)

	label(img, strconv.FormatInt(peak, 10), plot.Min.X-4, plot.Min.Y+10, alignRight)
	label(img, "0", plot.Min.X-4, plot.Max.Y, alignRight)

	if len(days) == 0 {
		return encode(w, img)
	}

	slot := plot.Dx() / len(days)
	if slot < 1 {
		slot = 1
	}
	for i, d := range days {
		x0 := plot.Min.X + i*slot
		x1 := x0 + slot
		if slot > 2*barGap {
			x0 += barGap
			x1 -= barGap
		}

		if d.Uses > 0 {
			h := int(d.Uses * int64(plot.Dy()) / scale)
			h = max(h, 1)
			fill(img, image.Rect(x0, plot.Max.Y-h, x1, plot.Max.Y), barColor)
		}

		if i%LabelEvery == 0 {
			label(img, shortDay(d.Day), x0, opts.Height-6, alignLeft)
		}
	}

	return encode(w, img)
}

func encode(w io.Writer, img image.Image) error {
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encoding PNG: %w", err)
	}
	return nil
}

func fill(img *image.RGBA, r image.Rectangle, c color.Color) {
	draw.Draw(img, r, image.NewUniform(c), image.Point{}, draw.Src)
}

type alignment int

const (
	alignLeft alignment = iota
	alignRight
)

// label draws s with its baseline at y. x is the left or right edge
// depending on align.
func label(img *image.RGBA, s string, x, y int, align alignment) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(textColor),
		Face: basicfont.Face7x13,
	}
	if align == alignRight {
		x -= d.MeasureString(s).Ceil()
	}
	d.Dot = fixed.P(x, y)
	d.DrawString(s)
}

// shortDay turns "2026-01-31" into "01-31".
func shortDay(s string) string {
	if len(s) == len("2006-01-02") {
		return s[5:]
	}
	return s
}
