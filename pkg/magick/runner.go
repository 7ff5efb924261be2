package magick

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/snapforge/snapforge/pkg/logging"
	"github.com/snapforge/snapforge/pkg/messages"
	"github.com/snapforge/snapforge/pkg/snapexec"
)

// Runner drives the ImageMagick convert and identify binaries.
type Runner struct {
	convertBin  string
	identifyBin string
	timeout     time.Duration
	logger      *logging.Logger
}

// NewRunner returns a Runner using the given binaries. A positive timeout
// bounds each invocation.
func NewRunner(convertBin, identifyBin string, timeout time.Duration, logger *logging.Logger) *Runner {
	return &Runner{
		convertBin:  convertBin,
		identifyBin: identifyBin,
		timeout:     timeout,
		logger:      logger,
	}
}

// Name implements Converter.
func (r *Runner) Name() string { return "imagemagick" }

// BuildConvertArgs assembles the convert argv for one conversion: the input
// path, the operators opts enables, then the output path. The output format
// is carried by the dst extension, which convert keys off.
func BuildConvertArgs(src, dst string, opts Options) []string {
	args := []string{src}

	if opts.ResizeEnabled {
		geometry := fmt.Sprintf("%dx%d", opts.TargetWidth, opts.TargetHeight)
		if !opts.MaintainAspectRatio {
			// The bang tells convert to ignore the aspect ratio.
			geometry += "!"
		}
		args = append(args, "-resize", geometry)
	}

	if opts.ColorCorrection {
		args = append(args, "-normalize")
	}

	if opts.Sharpen {
		args = append(args, "-sharpen", "0x1.0")
	}

	if opts.Watermark && opts.WatermarkText != "" {
		args = append(args,
			"-gravity", "southeast",
			"-pointsize", "24",
			"-annotate", "+10+10", opts.WatermarkText,
		)
	}

	args = append(args, "-quality", strconv.Itoa(opts.Quality))

	return append(args, dst)
}

// Convert implements Converter by invoking the convert binary.
func (r *Runner) Convert(ctx context.Context, src, dst string, opts Options) error {
	args := BuildConvertArgs(src, dst, opts)
	r.logger.Debug(messages.MsgRunningConvert, "bin", r.convertBin, "args", args)

	_, stderr, exitCode, err := snapexec.SnapExec(ctx, r.convertBin, args, "", r.timeout, r.logger)
	if err != nil {
		if s := strings.TrimSpace(stderr); s != "" {
			return fmt.Errorf("convert exited %d: %s: %w", exitCode, s, err)
		}
		return fmt.Errorf("convert exited %d: %w", exitCode, err)
	}

	return nil
}

// Identify implements Converter by invoking the identify binary.
func (r *Runner) Identify(ctx context.Context, path string) (Info, error) {
	r.logger.Debug(messages.MsgRunningIdentify, "bin", r.identifyBin, "path", path)

	args := []string{"-format", "%w %h %m", path}
	stdout, stderr, exitCode, err := snapexec.SnapExec(ctx, r.identifyBin, args, "", r.timeout, r.logger)
	if err != nil {
		if s := strings.TrimSpace(stderr); s != "" {
			return Info{}, fmt.Errorf("identify exited %d: %s: %w", exitCode, s, err)
		}
		return Info{}, fmt.Errorf("identify exited %d: %w", exitCode, err)
	}

	return parseIdentifyOutput(stdout)
}

// parseIdentifyOutput reads "<width> <height> <FORMAT>" as printed by
// identify -format "%w %h %m". Multi-frame images print one line per
// frame; the first frame wins.
func parseIdentifyOutput(out string) (Info, error) {
	var info Info
	var format string

	if _, err := fmt.Sscanf(strings.TrimSpace(out), "%d %d %s", &info.Width, &info.Height, &format); err != nil {
		return Info{}, fmt.Errorf("parse identify output %q: %w", out, err)
	}

	info.Format = strings.ToLower(format)
	return info, nil
}
