package capture

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"strings"

	"golang.org/x/image/draw"
)

// JPEGQuality matches a 0.9 quality canvas export.
const JPEGQuality = 90

const dataURLPrefix = "data:image/jpeg;base64,"

// EncodeDataURL copies img onto an off-screen RGBA canvas of the same size and
// returns it as a base64 JPEG data URL.
func EncodeDataURL(img image.Image) (string, error) {
	b := img.Bounds()
	if b.Empty() {
		return "", fmt.Errorf("%w: empty frame", ErrNoFrame)
	}
	canvas := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(canvas, canvas.Bounds(), img, b.Min, draw.Src)

	var buf bytes.Buffer
	buf.Grow(b.Dx() * b.Dy() / 4)
	if err := jpeg.Encode(&buf, canvas, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return "", fmt.Errorf("encode frame: %w", err)
	}
	return dataURLPrefix + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// DecodeDataURL reverses EncodeDataURL. It also accepts bare base64.
func DecodeDataURL(s string) (image.Image, error) {
	if i := strings.IndexByte(s, ','); i >= 0 {
		s = s[i+1:]
	}
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}
