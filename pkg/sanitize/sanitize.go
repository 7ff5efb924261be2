// Package sanitize turns client-supplied filenames into names that are safe
// to store and serve. Directory components are stripped, everything outside
// [a-z0-9] collapses to dashes and a timestamp-plus-random suffix keeps
// concurrent uploads of the same name from colliding. Only image extensions
// survive sanitization; anything else is folded into the name itself.
package sanitize

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const fallbackName = "file"

// allowedExts are the only extensions reattached after sanitization, always
// lowercased. The set matches the validator's accepted image types.
var allowedExts = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".webp": {},
}

// foldChain strips diacritics: decompose, drop combining marks, recompose.
var foldChain = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// SafeName sanitizes a client-supplied filename into a unique, servable name
// of the form <slug>-<unix-millis>-<random><ext>.
func SafeName(original string) string {
	base := original
	if i := strings.LastIndexAny(base, `/\`); i >= 0 {
		base = base[i+1:]
	}

	ext := strings.ToLower(filepath.Ext(base))
	stem := base
	if _, ok := allowedExts[ext]; ok {
		stem = base[:len(base)-len(ext)]
	} else {
		// Unknown extensions become part of the slug so ".php" and
		// friends can never reach disk as an extension.
		ext = ""
	}

	slug := slugify(stem)
	if slug == "" {
		slug = fallbackName
	}

	suffix := fmt.Sprintf("%d-%s", time.Now().UnixMilli(), uuid.NewString()[:8])
	return slug + "-" + suffix + ext
}

// slugify folds diacritics, lowercases and collapses every run outside
// [a-z0-9] into a single dash.
func slugify(s string) string {
	folded, _, err := transform.String(foldChain, s)
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(folded)

	var b strings.Builder
	b.Grow(len(folded))
	pendingDash := false
	for _, r := range folded {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}
	return b.String()
}
