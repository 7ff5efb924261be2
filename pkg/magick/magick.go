// Package magick converts images. Two interchangeable backends implement
// the Converter interface: Runner shells out to the ImageMagick CLI and
// Native is a pure-Go fallback, so the service stays usable on hosts
// without ImageMagick installed.
package magick

import (
	"context"
	"os/exec"
	"time"

	"github.com/snapforge/snapforge/pkg/logging"
	"github.com/snapforge/snapforge/pkg/messages"
	"github.com/spf13/afero"
)

// Info describes an image: dimensions, decoded format and byte size.
// Identify leaves Size zero; callers that know the file fill it in.
type Info struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Format string `json:"format"`
	Size   int64  `json:"size"`
}

// Converter turns a staged input file into a processed output file.
type Converter interface {
	// Name identifies the backend, e.g. "imagemagick" or "native".
	Name() string
	// Convert processes src into dst according to normalized opts.
	Convert(ctx context.Context, src, dst string, opts Options) error
	// Identify reports dimensions and format of the image at path.
	Identify(ctx context.Context, path string) (Info, error)
}

// Detect picks the backend: the ImageMagick CLI when both configured
// binaries resolve on PATH, the pure-Go fallback otherwise.
func Detect(fs afero.Fs, convertBin, identifyBin string, timeout time.Duration, logger *logging.Logger) Converter {
	if _, err := exec.LookPath(convertBin); err == nil {
		if _, err := exec.LookPath(identifyBin); err == nil {
			logger.Info(messages.MsgMagickDetected, "convert", convertBin, "identify", identifyBin)
			return NewRunner(convertBin, identifyBin, timeout, logger)
		}
	}

	logger.Warn(messages.MsgMagickMissing)
	return NewNative(fs, logger)
}
