package imageprocessing

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log/slog"

	"github.com/jo-hoe/imageset/internal/failure"
)

const (
	// Width and Height of every image stored in a batch record.
	Width  = 32
	Height = 32
	// Channels is the number of colour planes in a raw buffer (R, G, B).
	Channels = 3
	// PlaneSize is the number of bytes in one colour plane.
	PlaneSize = Width * Height
	// RawSize is the exact length of one raw planar buffer.
	RawSize = Channels * PlaneSize
)

var pngSignature = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}

// HasPngSignature checks whether the provided data begins with a valid PNG signature
func HasPngSignature(data []byte) bool {
	if len(data) < len(pngSignature) {
		return false
	}
	return bytes.Equal(data[:len(pngSignature)], pngSignature)
}

// PlanarToImage interleaves a channel-major buffer into an RGBA image.
// Output pixel (x,y) channel c is raw[c*PlaneSize + y*Width + x]; alpha is opaque.
func PlanarToImage(raw []byte) (*image.RGBA, error) {
	if len(raw) != RawSize {
		return nil, failure.Newf(failure.KindRecordMalformed, "planar to image",
			"raw buffer has %d bytes, want %d", len(raw), RawSize)
	}

	img := image.NewRGBA(image.Rect(0, 0, Width, Height))
	for y := 0; y < Height; y++ {
		for x := 0; x < Width; x++ {
			pos := y*Width + x
			off := img.PixOffset(x, y)
			img.Pix[off+0] = raw[pos]
			img.Pix[off+1] = raw[PlaneSize+pos]
			img.Pix[off+2] = raw[2*PlaneSize+pos]
			img.Pix[off+3] = 0xff
		}
	}
	return img, nil
}

// PlanarToPNG converts one raw planar buffer into PNG bytes.
func PlanarToPNG(raw []byte) ([]byte, error) {
	img, err := PlanarToImage(raw)
	if err != nil {
		return nil, err
	}

	// Fully opaque RGBA is written as 8-bit truecolour without an alpha channel.
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		slog.Error("PlanarToPNG: failed to encode image to PNG", "error", err)
		return nil, fmt.Errorf("failed to encode image to PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// PNGToPlanar decodes a 32x32 PNG back into its channel-major raw buffer.
func PNGToPlanar(data []byte) ([]byte, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode PNG image: %w", err)
	}

	b := img.Bounds()
	if b.Dx() != Width || b.Dy() != Height {
		return nil, failure.Newf(failure.KindRecordMalformed, "png to planar",
			"image is %dx%d, want %dx%d", b.Dx(), b.Dy(), Width, Height)
	}

	raw := make([]byte, RawSize)
	for y := 0; y < Height; y++ {
		for x := 0; x < Width; x++ {
			c := color.RGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.RGBA)
			pos := y*Width + x
			raw[pos] = c.R
			raw[PlaneSize+pos] = c.G
			raw[2*PlaneSize+pos] = c.B
		}
	}
	return raw, nil
}
