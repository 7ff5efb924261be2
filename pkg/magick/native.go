package magick

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	"github.com/snapforge/snapforge/pkg/logging"
	"github.com/spf13/afero"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	// Uploads may be WebP; register the decoder.
	_ "golang.org/x/image/webp"
)

// Native is the pure-Go fallback backend used when the ImageMagick
// binaries are not installed. It supports everything Runner does except
// WebP output, which has no pure-Go encoder.
type Native struct {
	fs     afero.Fs
	logger *logging.Logger
}

// NewNative returns a Native backend reading and writing through fs.
func NewNative(fs afero.Fs, logger *logging.Logger) *Native {
	return &Native{fs: fs, logger: logger}
}

// Name implements Converter.
func (n *Native) Name() string { return "native" }

// Convert implements Converter.
func (n *Native) Convert(ctx context.Context, src, dst string, opts Options) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if opts.OutputFormat == "webp" {
		return errors.New("webp output requires the imagemagick backend")
	}

	data, err := afero.ReadFile(n.fs, src)
	if err != nil {
		return fmt.Errorf("read %s: %w", src, err)
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("decode %s: %w", src, err)
	}

	if opts.ResizeEnabled {
		img = resizeTo(img, opts.TargetWidth, opts.TargetHeight, opts.MaintainAspectRatio)
	}
	if opts.ColorCorrection {
		img = normalizeLevels(img)
	}
	if opts.Sharpen {
		img = imaging.Sharpen(img, 1.0)
	}
	if opts.Watermark && opts.WatermarkText != "" {
		img = stampText(img, opts.WatermarkText)
	}

	return n.save(img, dst, opts)
}

// Identify implements Converter.
func (n *Native) Identify(ctx context.Context, path string) (Info, error) {
	if err := ctx.Err(); err != nil {
		return Info{}, err
	}

	data, err := afero.ReadFile(n.fs, path)
	if err != nil {
		return Info{}, fmt.Errorf("read %s: %w", path, err)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Info{}, fmt.Errorf("decode %s: %w", path, err)
	}

	return Info{Width: cfg.Width, Height: cfg.Height, Format: format}, nil
}

func (n *Native) save(img image.Image, dst string, opts Options) error {
	var buf bytes.Buffer

	switch opts.OutputFormat {
	case "jpg":
		if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(opts.Quality)); err != nil {
			return fmt.Errorf("encode jpg: %w", err)
		}
	case "png":
		if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
			return fmt.Errorf("encode png: %w", err)
		}
	default:
		return fmt.Errorf("unsupported output format %q", opts.OutputFormat)
	}

	return afero.WriteFile(n.fs, dst, buf.Bytes(), 0o644)
}

// resizeTo matches convert's -resize semantics: with keepAspect the image
// is scaled, up or down, to the largest size fitting inside width x height;
// without it the target is taken literally.
func resizeTo(img image.Image, width, height int, keepAspect bool) image.Image {
	if !keepAspect {
		return imaging.Resize(img, width, height, imaging.Lanczos)
	}

	b := img.Bounds()
	scale := math.Min(float64(width)/float64(b.Dx()), float64(height)/float64(b.Dy()))

	w := int(math.Round(float64(b.Dx()) * scale))
	h := int(math.Round(float64(b.Dy()) * scale))
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}

	return imaging.Resize(img, w, h, imaging.Lanczos)
}

// normalizeLevels stretches the intensity range to full scale, the rough
// equivalent of convert's -normalize operator.
func normalizeLevels(img image.Image) image.Image {
	src := imaging.Clone(img)

	lo, hi := uint8(255), uint8(0)
	for i := 0; i < len(src.Pix); i += 4 {
		for j := 0; j < 3; j++ {
			v := src.Pix[i+j]
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
	}
	if hi <= lo {
		return src
	}

	scale := 255.0 / float64(hi-lo)
	return imaging.AdjustFunc(src, func(c color.NRGBA) color.NRGBA {
		c.R = stretch(c.R, lo, scale)
		c.G = stretch(c.G, lo, scale)
		c.B = stretch(c.B, lo, scale)
		return c
	})
}

func stretch(v, lo uint8, scale float64) uint8 {
	f := float64(v-lo) * scale
	if f > 255 {
		f = 255
	}
	return uint8(f + 0.5)
}

// stampText draws text near the bottom-right corner, mirroring the
// southeast-gravity annotate the imagemagick backend applies.
func stampText(img image.Image, text string) image.Image {
	dst := imaging.Clone(img)
	face := basicfont.Face7x13

	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(color.NRGBA{R: 255, G: 255, B: 255, A: 230}),
		Face: face,
	}

	x := dst.Bounds().Max.X - d.MeasureString(text).Ceil() - 10
	if x < 0 {
		x = 0
	}
	y := dst.Bounds().Max.Y - 10
	if y < face.Height {
		y = face.Height
	}

	d.Dot = fixed.P(x, y)
	d.DrawString(text)

	return dst
}
