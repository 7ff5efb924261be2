package magick

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DefaultQuality is used when a request leaves quality unset.
const DefaultQuality = 85

// Options mirrors the processing controls sent with a process request.
// Zero values mean "leave the image alone"; Normalize fills defaults.
type Options struct {
	OutputFormat        string `json:"outputFormat"`
	ResizeEnabled       bool   `json:"resizeEnabled"`
	TargetWidth         int    `json:"targetWidth"`
	TargetHeight        int    `json:"targetHeight"`
	MaintainAspectRatio bool   `json:"maintainAspectRatio"`
	ColorCorrection     bool   `json:"colorCorrection"`
	Sharpen             bool   `json:"sharpen"`
	Watermark           bool   `json:"watermark"`
	WatermarkText       string `json:"watermarkText"`
	Quality             int    `json:"quality"`
}

// ParseOptions decodes the JSON config field of a process request and
// returns normalized options. An empty config selects the defaults.
func ParseOptions(raw string) (Options, error) {
	var opts Options
	if strings.TrimSpace(raw) != "" {
		if err := json.Unmarshal([]byte(raw), &opts); err != nil {
			return Options{}, fmt.Errorf("parse processing config: %w", err)
		}
	}
	return opts.Normalize()
}

// Normalize validates o and fills defaults: the output format is folded to
// its canonical lowercase name (png when unset), quality is clamped to
// [0,100] with 0 meaning DefaultQuality, and resize targets must be
// positive when resizing is enabled.
func (o Options) Normalize() (Options, error) {
	out := o

	switch strings.ToLower(strings.TrimSpace(out.OutputFormat)) {
	case "":
		out.OutputFormat = "png"
	case "jpg", "jpeg":
		out.OutputFormat = "jpg"
	case "png":
		out.OutputFormat = "png"
	case "webp":
		out.OutputFormat = "webp"
	default:
		return out, fmt.Errorf("unsupported output format %q", o.OutputFormat)
	}

	switch {
	case out.Quality == 0:
		out.Quality = DefaultQuality
	case out.Quality < 0:
		out.Quality = 0
	case out.Quality > 100:
		out.Quality = 100
	}

	if out.ResizeEnabled && (out.TargetWidth <= 0 || out.TargetHeight <= 0) {
		return out, fmt.Errorf("resize requires positive target dimensions, got %dx%d", o.TargetWidth, o.TargetHeight)
	}

	return out, nil
}
