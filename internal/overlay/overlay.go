// Package overlay draws detected face boxes over camera frames.
package overlay

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"math"
	"sync"

	"github.com/andresmejia3/goober/internal/types"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var (
	boxColor   = color.RGBA{0, 255, 0, 255}
	labelColor = color.RGBA{0, 0, 0, 255}
)

// StrokeWidth is the box outline thickness in pixels.
const StrokeWidth = 3

// Canvas holds the boxes of the latest detection. DrawFaces replaces them wholesale.
type Canvas struct {
	mu     sync.RWMutex
	boxes  []types.FaceBox
	labels bool
}

// NewCanvas creates an empty overlay. labels adds a "Face N" tag above each box.
func NewCanvas(labels bool) *Canvas {
	return &Canvas{labels: labels}
}

func (c *Canvas) DrawFaces(boxes []types.FaceBox) {
	cp := append([]types.FaceBox(nil), boxes...)
	c.mu.Lock()
	c.boxes = cp
	c.mu.Unlock()
}

// Boxes returns a copy of the current boxes.
func (c *Canvas) Boxes() []types.FaceBox {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]types.FaceBox(nil), c.boxes...)
}

// Render returns a copy of frame with the current boxes stroked on it.
func (c *Canvas) Render(frame image.Image) *image.RGBA {
	return c.render(frame, 1, 1)
}

// RenderFit scales frame down to maxWidth like Fit and draws the boxes at
// their scaled position. Strokes and labels keep their pixel size.
func (c *Canvas) RenderFit(frame image.Image, maxWidth int) *image.RGBA {
	src := frame.Bounds()
	fitted := Fit(frame, maxWidth)
	if src.Empty() {
		return c.render(fitted, 1, 1)
	}
	fb := fitted.Bounds()
	return c.render(fitted, float64(fb.Dx())/float64(src.Dx()), float64(fb.Dy())/float64(src.Dy()))
}

func (c *Canvas) render(frame image.Image, sx, sy float64) *image.RGBA {
	b := frame.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), frame, b.Min, draw.Src)

	for i, box := range c.Boxes() {
		rect := scaleRect(box, sx, sy)
		strokeRect(dst, rect, StrokeWidth, boxColor)
		if c.labels {
			drawLabel(dst, rect, fmt.Sprintf("Face %d", i+1))
		}
	}
	return dst
}

func scaleRect(box types.FaceBox, sx, sy float64) image.Rectangle {
	return image.Rect(
		int(math.Round(float64(box.X)*sx)),
		int(math.Round(float64(box.Y)*sy)),
		int(math.Round(float64(box.X+box.Width)*sx)),
		int(math.Round(float64(box.Y+box.Height)*sy)),
	)
}

// RenderJPEG renders and encodes the annotated frame.
func (c *Canvas) RenderJPEG(frame image.Image, quality int) ([]byte, error) {
	return encodeJPEG(c.Render(frame), quality)
}

// RenderFitJPEG is RenderFit followed by JPEG encoding.
func (c *Canvas) RenderFitJPEG(frame image.Image, maxWidth, quality int) ([]byte, error) {
	return encodeJPEG(c.RenderFit(frame, maxWidth), quality)
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// strokeRect outlines rect, clipped to the image so off-frame boxes never panic.
func strokeRect(img *image.RGBA, rect image.Rectangle, width int, c color.Color) {
	if rect.Empty() {
		return
	}
	src := image.NewUniform(c)
	edges := []image.Rectangle{
		image.Rect(rect.Min.X, rect.Min.Y, rect.Max.X, rect.Min.Y+width),
		image.Rect(rect.Min.X, rect.Max.Y-width, rect.Max.X, rect.Max.Y),
		image.Rect(rect.Min.X, rect.Min.Y, rect.Min.X+width, rect.Max.Y),
		image.Rect(rect.Max.X-width, rect.Min.Y, rect.Max.X, rect.Max.Y),
	}
	for _, e := range edges {
		e = e.Intersect(img.Bounds())
		if e.Empty() {
			continue
		}
		draw.Draw(img, e, src, image.Point{}, draw.Src)
	}
}

func drawLabel(img *image.RGBA, rect image.Rectangle, text string) {
	face := basicfont.Face7x13
	width := font.MeasureString(face, text).Ceil() + 4
	height := face.Metrics().Height.Ceil() + 2

	// Above the box when there is room, inside it otherwise.
	top := rect.Min.Y - height
	if top < img.Bounds().Min.Y {
		top = rect.Min.Y
	}
	bg := image.Rect(rect.Min.X, top, rect.Min.X+width, top+height).Intersect(img.Bounds())
	if bg.Empty() {
		return
	}
	draw.Draw(img, bg, image.NewUniform(boxColor), image.Point{}, draw.Src)

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(labelColor),
		Face: face,
		Dot:  fixed.P(bg.Min.X+2, bg.Min.Y+face.Metrics().Ascent.Ceil()+1),
	}
	d.DrawString(text)
}

// Fit scales img down so its width is at most maxWidth, keeping the aspect ratio.
func Fit(img image.Image, maxWidth int) image.Image {
	b := img.Bounds()
	if maxWidth <= 0 || b.Dx() <= maxWidth {
		return img
	}
	h := b.Dy() * maxWidth / b.Dx()
	if h < 1 {
		h = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, maxWidth, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}
