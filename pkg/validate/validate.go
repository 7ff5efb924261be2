// Package validate decides whether an upload buffer is an acceptable image.
// Acceptance is strict: the declared media type, the filename extension and
// the leading magic bytes must all agree on one of the supported formats.
// Content sniffing via the mimetype library is advisory only and never
// overrides the magic table.
package validate

import (
	"bytes"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
	"github.com/snapforge/snapforge/pkg/apierr"
	"github.com/snapforge/snapforge/pkg/messages"
)

// DefaultMaxBytes caps uploads at 10 MiB unless configured otherwise.
const DefaultMaxBytes = 10 << 20

// signatures maps each accepted media type to the magic bytes an upload must
// start with. WebP files begin with the RIFF container tag.
var signatures = map[string][]byte{
	"image/jpeg": {0xFF, 0xD8, 0xFF},
	"image/png":  {0x89, 0x50, 0x4E, 0x47},
	"image/webp": {0x52, 0x49, 0x46, 0x46},
}

// extensions maps each accepted media type to its allowed filename
// extensions, lowercased.
var extensions = map[string][]string{
	"image/jpeg": {".jpg", ".jpeg"},
	"image/png":  {".png"},
	"image/webp": {".webp"},
}

// Validator checks upload buffers against a configured size cap.
type Validator struct {
	maxBytes int64
}

// New returns a Validator enforcing the given byte cap. Non-positive caps
// fall back to DefaultMaxBytes.
func New(maxBytes int64) *Validator {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Validator{maxBytes: maxBytes}
}

// MaxBytes returns the configured upload cap.
func (v *Validator) MaxBytes() int64 { return v.maxBytes }

// Validate checks emptiness, size, declared type, extension agreement and
// magic bytes, in that order. A nil return means the buffer is acceptable.
func (v *Validator) Validate(buf []byte, declaredType, filename string) *apierr.Error {
	if len(buf) == 0 {
		return apierr.New(apierr.CodeInvalidFile, messages.ErrFileEmpty)
	}

	if int64(len(buf)) > v.maxBytes {
		return apierr.Newf(apierr.CodeFileTooLarge, messages.ErrFileTooLargeFmt, humanize.IBytes(uint64(v.maxBytes)))
	}

	mediaType := NormalizeType(declaredType)

	sig, ok := signatures[mediaType]
	if !ok {
		return apierr.New(apierr.CodeInvalidFileType, messages.ErrWrongFileType)
	}

	if !extensionMatches(mediaType, filename) {
		return apierr.New(apierr.CodeInvalidFileType, messages.ErrWrongFileType)
	}

	if !bytes.HasPrefix(buf, sig) {
		return apierr.New(apierr.CodeInvalidFileType, messages.ErrWrongFileType)
	}

	return nil
}

// SniffedType reports the content-derived media type for logging. It may
// disagree with the declared type; mismatches are worth a log line but are
// not grounds for rejection on their own.
func (v *Validator) SniffedType(buf []byte) string {
	return mimetype.Detect(buf).String()
}

// NormalizeType lowercases a declared content type and drops parameters such
// as "; charset=binary".
func NormalizeType(declaredType string) string {
	if i := strings.IndexByte(declaredType, ';'); i >= 0 {
		declaredType = declaredType[:i]
	}
	return strings.ToLower(strings.TrimSpace(declaredType))
}

func extensionMatches(mediaType, filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, allowed := range extensions[mediaType] {
		if ext == allowed {
			return true
		}
	}
	return false
}
