// Package raster wraps the handful of grayscale image operations the layout
// pipelines need: open, crop, rotate, paste, draw rectangles and save.
package raster

import (
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	"image/png"
	"os"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
)

var (
	White = color.Gray{Y: 0xff}
	Black = color.Gray{Y: 0x00}
)

// Decode reads an image file and converts it to grayscale.
func Decode(path string) (*image.Gray, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	if g, ok := img.(*image.Gray); ok && g.Rect.Min == (image.Point{}) {
		return g, nil
	}
	b := img.Bounds()
	g := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(g, g.Rect, img, b.Min, draw.Src)
	return g, nil
}

// NewCanvas returns a white canvas of the given size.
func NewCanvas(width, height int) *image.Gray {
	g := image.NewGray(image.Rect(0, 0, width, height))
	Fill(g, g.Rect, White)
	return g
}

// Crop copies r out of src into a new image anchored at the origin. The
// part of r outside src stays white.
func Crop(src *image.Gray, r image.Rectangle) *image.Gray {
	dst := NewCanvas(r.Dx(), r.Dy())
	draw.Draw(dst, dst.Rect, src, r.Min, draw.Src)
	return dst
}

// Rotate180 returns src turned half a revolution.
func Rotate180(src *image.Gray) *image.Gray {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		srcRow := src.Pix[src.PixOffset(b.Min.X, b.Min.Y+y):]
		dstRow := dst.Pix[dst.PixOffset(0, h-1-y):]
		for x := 0; x < w; x++ {
			dstRow[w-1-x] = srcRow[x]
		}
	}
	return dst
}

// Paste draws src onto dst with its top-left corner at at. Pixels falling
// outside dst are dropped.
func Paste(dst *image.Gray, src image.Image, at image.Point) {
	b := src.Bounds()
	draw.Draw(dst, image.Rectangle{Min: at, Max: at.Add(b.Size())}, src, b.Min, draw.Src)
}

// Fill paints r with c.
func Fill(dst *image.Gray, r image.Rectangle, c color.Gray) {
	draw.Draw(dst, r, image.NewUniform(c), image.Point{}, draw.Src)
}

// StrokeRect outlines r with lines width pixels thick, drawn inside r.
func StrokeRect(dst *image.Gray, r image.Rectangle, width int, c color.Gray) {
	if width <= 0 {
		width = 1
	}
	Fill(dst, image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+width), c)
	Fill(dst, image.Rect(r.Min.X, r.Max.Y-width, r.Max.X, r.Max.Y), c)
	Fill(dst, image.Rect(r.Min.X, r.Min.Y, r.Min.X+width, r.Max.Y), c)
	Fill(dst, image.Rect(r.Max.X-width, r.Min.Y, r.Max.X, r.Max.Y), c)
}

// Resize scales src to width x height.
func Resize(src *image.Gray, width, height int) *image.Gray {
	dst := image.NewGray(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Rect, src, src.Bounds(), draw.Src, nil)
	return dst
}

var bilevelPalette = color.Palette{Black, White}

// Bilevel thresholds src at mid gray into a two-color image, which the PNG
// encoder stores at one bit per pixel.
func Bilevel(src *image.Gray) *image.Paletted {
	b := src.Bounds()
	dst := image.NewPaletted(image.Rect(0, 0, b.Dx(), b.Dy()), bilevelPalette)
	for y := 0; y < b.Dy(); y++ {
		row := src.Pix[src.PixOffset(b.Min.X, b.Min.Y+y):]
		for x := 0; x < b.Dx(); x++ {
			if row[x] >= 0x80 {
				dst.Pix[dst.PixOffset(x, y)] = 1
			}
		}
	}
	return dst
}

// SavePNG writes img to path.
func SavePNG(img image.Image, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := png.Encode(file, img); err != nil {
		file.Close()
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
