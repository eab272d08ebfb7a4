package commands

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"log/slog"

	"github.com/jo-hoe/imageset/internal/backend/commandstructure"
	"golang.org/x/image/draw"
)

const (
	PixelScaleCommandName = "PixelScaleCommand"

	// MaxScaledDimension bounds either side of a scaled image.
	MaxScaledDimension = 2048
)

var interpolators = map[string]draw.Interpolator{
	"nearest":    draw.NearestNeighbor,
	"approx":     draw.ApproxBiLinear,
	"bilinear":   draw.BiLinear,
	"catmullrom": draw.CatmullRom,
}

// PixelScaleParams holds the target size. A nil side is derived from the
// other one so the aspect ratio is kept.
type PixelScaleParams struct {
	Height        *int
	Width         *int
	Interpolation string
}

func NewPixelScaleParamsFromMap(params map[string]any) (*PixelScaleParams, error) {
	if !commandstructure.HasAnyParam(params, "height", "width") {
		return nil, fmt.Errorf("at least one of 'height' or 'width' must be specified")
	}

	result := &PixelScaleParams{
		Interpolation: commandstructure.GetStringParam(params, "interpolation", "nearest"),
	}
	if _, ok := interpolators[result.Interpolation]; !ok {
		return nil, fmt.Errorf("unknown interpolation %q", result.Interpolation)
	}

	for _, side := range []struct {
		key    string
		target **int
	}{
		{"height", &result.Height},
		{"width", &result.Width},
	} {
		if !commandstructure.HasAnyParam(params, side.key) {
			continue
		}
		v := commandstructure.GetIntParam(params, side.key, 0)
		if v <= 0 || v > MaxScaledDimension {
			return nil, fmt.Errorf("%s must be in 1..%d, got %v", side.key, MaxScaledDimension, params[side.key])
		}
		*side.target = &v
	}

	return result, nil
}

// PixelScaleCommand resizes a PNG. Nearest-neighbour keeps the hard pixel
// edges of tiny dataset images when they are enlarged for viewing.
type PixelScaleCommand struct {
	params *PixelScaleParams
}

func NewPixelScaleCommand(params map[string]any) (commandstructure.Command, error) {
	typedParams, err := NewPixelScaleParamsFromMap(params)
	if err != nil {
		return nil, err
	}
	return &PixelScaleCommand{params: typedParams}, nil
}

func (c *PixelScaleCommand) Name() string {
	return PixelScaleCommandName
}

// TargetSize computes the output size for an image of the given size.
func (c *PixelScaleCommand) TargetSize(width, height int) (int, int) {
	switch {
	case c.params.Width != nil && c.params.Height != nil:
		return *c.params.Width, *c.params.Height
	case c.params.Width != nil:
		w := *c.params.Width
		return w, max(1, w*height/width)
	default:
		h := *c.params.Height
		return max(1, h*width/height), h
	}
}

func (c *PixelScaleCommand) Execute(imageData []byte) ([]byte, error) {
	src, err := png.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("failed to decode PNG image: %w", err)
	}

	bounds := src.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return nil, fmt.Errorf("cannot scale empty image")
	}
	targetWidth, targetHeight := c.TargetSize(bounds.Dx(), bounds.Dy())

	slog.Debug("scaling image",
		"original_width", bounds.Dx(),
		"original_height", bounds.Dy(),
		"target_width", targetWidth,
		"target_height", targetHeight,
		"interpolation", c.params.Interpolation)

	dst := image.NewRGBA(image.Rect(0, 0, targetWidth, targetHeight))
	interpolators[c.params.Interpolation].Scale(dst, dst.Bounds(), src, bounds, draw.Src, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("failed to encode scaled PNG image: %w", err)
	}
	return buf.Bytes(), nil
}

func init() {
	if err := commandstructure.DefaultRegistry.Register(PixelScaleCommandName, NewPixelScaleCommand); err != nil {
		panic(fmt.Sprintf("failed to register %s: %v", PixelScaleCommandName, err))
	}
}
