// SPDX-License-Identifier: MIT

// Package cover renders EPUB cover images: a gradient-dark background chosen
// deterministically from the title, a spine band, the wrapped title and the
// author line.
package cover

import (
	"crypto/md5" // #nosec G501 -- non-cryptographic palette selection
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"strings"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

const (
	// Canvas is rendered large and downscaled for crisp text.
	canvasWidth  = 1200
	canvasHeight = 1600
	outputWidth  = 600
	outputHeight = 800

	spineWidth     = 40
	titleFontSize  = 128
	authorFontSize = 72
	lineSpacing    = 40

	jpegQuality = 95
)

// palette holds the background candidates; the title hash picks one so the
// same story always gets the same cover.
var palette = []color.RGBA{
	{47, 53, 66, 255}, {44, 62, 80, 255}, {52, 73, 94, 255}, {69, 39, 60, 255},
	{81, 46, 95, 255}, {45, 52, 54, 255}, {33, 33, 33, 255}, {25, 42, 86, 255},
	{56, 29, 42, 255}, {28, 40, 51, 255},
}

// Render draws a cover for the given title and author and writes it as JPEG.
func Render(title, author string, w io.Writer) error {
	bg := pickBackground(title)
	spine := color.RGBA{dim(bg.R), dim(bg.G), dim(bg.B), 255}
	white := color.RGBA{255, 255, 255, 255}

	canvas := image.NewRGBA(image.Rect(0, 0, canvasWidth, canvasHeight))
	fill(canvas, canvas.Bounds(), bg)
	fill(canvas, image.Rect(0, 0, spineWidth, canvasHeight), spine)

	titleFace, err := newFace(gobold.TTF, titleFontSize)
	if err != nil {
		return fmt.Errorf("load title font: %w", err)
	}
	defer func() { _ = titleFace.Close() }()

	authorFace, err := newFace(goregular.TTF, authorFontSize)
	if err != nil {
		return fmt.Errorf("load author font: %w", err)
	}
	defer func() { _ = authorFace.Close() }()

	// Title: wrapped, centered around the upper third.
	maxWidth := canvasWidth - (spineWidth + 100)
	lines := wrapText(title, titleFace, maxWidth)

	lineHeight := titleFace.Metrics().Height.Ceil()
	totalHeight := len(lines)*lineHeight + (len(lines)-1)*lineSpacing
	y := canvasHeight/3 - totalHeight/2 + titleFace.Metrics().Ascent.Ceil()
	for _, line := range lines {
		x := (canvasWidth - textWidth(titleFace, line)) / 2
		drawText(canvas, titleFace, line, x, y, white)
		y += lineHeight + lineSpacing
	}

	// Author near the bottom.
	ax := (canvasWidth - textWidth(authorFace, author)) / 2
	ay := canvasHeight - 200 + authorFace.Metrics().Ascent.Ceil()
	drawText(canvas, authorFace, author, ax, ay, white)

	// Downscale to the final size.
	out := image.NewRGBA(image.Rect(0, 0, outputWidth, outputHeight))
	draw.CatmullRom.Scale(out, out.Bounds(), canvas, canvas.Bounds(), draw.Src, nil)

	return jpeg.Encode(w, out, &jpeg.Options{Quality: jpegQuality})
}

func pickBackground(title string) color.RGBA {
	sum := md5.Sum([]byte(title)) // #nosec G401
	idx := binary.BigEndian.Uint64(sum[:8]) % uint64(len(palette))
	return palette[idx]
}

func dim(c uint8) uint8 {
	if c < 20 {
		return 0
	}
	return c - 20
}

func fill(dst *image.RGBA, r image.Rectangle, c color.RGBA) {
	draw.Draw(dst, r, &image.Uniform{C: c}, image.Point{}, draw.Src)
}

func newFace(ttf []byte, size float64) (font.Face, error) {
	parsed, err := opentype.Parse(ttf)
	if err != nil {
		return nil, err
	}
	return opentype.NewFace(parsed, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
}

func textWidth(face font.Face, s string) int {
	return font.MeasureString(face, s).Ceil()
}

func drawText(dst *image.RGBA, face font.Face, s string, x, y int, c color.RGBA) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  &image.Uniform{C: c},
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

// wrapText greedily packs words into lines no wider than maxWidth. A single
// overlong word gets its own line rather than being split.
func wrapText(s string, face font.Face, maxWidth int) []string {
	words := strings.Fields(s)
	if len(words) == 0 {
		return []string{""}
	}

	var lines []string
	var current []string
	for _, word := range words {
		candidate := strings.Join(append(current, word), " ")
		if textWidth(face, candidate) <= maxWidth || len(current) == 0 {
			current = append(current, word)
			continue
		}
		lines = append(lines, strings.Join(current, " "))
		current = []string{word}
	}
	lines = append(lines, strings.Join(current, " "))
	return lines
}
