// Package storage owns the public file tree: the uploads/ and processed/
// directories, upload persistence, staging copies for the converter and the
// retention sweep. All access goes through afero so tests can run against an
// in-memory filesystem.
package storage

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/snapforge/snapforge/pkg/apierr"
	"github.com/snapforge/snapforge/pkg/logging"
	"github.com/snapforge/snapforge/pkg/messages"
	"github.com/spf13/afero"
)

// Area is the storage root of the service. The zero value is not usable;
// construct with NewArea.
type Area struct {
	fs        afero.Fs
	publicDir string
	logger    *logging.Logger
}

// SweepResult summarizes one retention sweep.
type SweepResult struct {
	Scanned    int
	Removed    int
	BytesFreed int64
}

// NewArea returns an Area rooted at publicDir.
func NewArea(fs afero.Fs, publicDir string, logger *logging.Logger) *Area {
	return &Area{fs: fs, publicDir: publicDir, logger: logger}
}

// Fs exposes the underlying filesystem, mainly for tests.
func (a *Area) Fs() afero.Fs { return a.fs }

// PublicDir returns the root of the public tree.
func (a *Area) PublicDir() string { return a.publicDir }

// UploadsDir returns the directory holding raw uploads.
func (a *Area) UploadsDir() string { return filepath.Join(a.publicDir, "uploads") }

// ProcessedDir returns the directory holding converter output.
func (a *Area) ProcessedDir() string { return filepath.Join(a.publicDir, "processed") }

// EnsureDirs creates the uploads and processed directories if missing.
func (a *Area) EnsureDirs() error {
	for _, dir := range []string{a.UploadsDir(), a.ProcessedDir()} {
		if err := a.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("ensure %s: %w", dir, err)
		}
	}
	a.logger.Debug(messages.MsgEnsuredDirectories, "public-dir", a.publicDir)
	return nil
}

// SaveUpload writes data under the uploads directory and re-stats the file
// to confirm the write landed. The returned FileInfo carries the on-disk
// size reported to the client.
func (a *Area) SaveUpload(name string, data []byte) (os.FileInfo, *apierr.Error) {
	target := filepath.Join(a.UploadsDir(), name)

	if err := afero.WriteFile(a.fs, target, data, 0o644); err != nil {
		return nil, apierr.Wrap(apierr.CodeWriteError, messages.ErrStoreUpload, err)
	}

	info, err := a.fs.Stat(target)
	if err != nil {
		return nil, apierr.Wrap(apierr.CodeWriteError, messages.ErrVerifyUpload, err)
	}

	a.logger.Debug(messages.MsgWroteFile, "path", target, "size", info.Size())
	return info, nil
}

// ResolveUpload maps a client-supplied reference (a bare filename or an
// /uploads/... URL) onto an existing upload path. Only the base name is
// honored, so a reference can never escape the uploads directory.
func (a *Area) ResolveUpload(ref string) (string, error) {
	raw := strings.TrimSpace(ref)
	if raw == "" {
		return "", errors.New("empty upload reference")
	}

	if u, err := url.Parse(raw); err == nil && u.Path != "" {
		raw = u.Path
	}

	base := path.Base(strings.ReplaceAll(raw, `\`, "/"))
	if base == "" || base == "." || base == ".." || base == "/" {
		return "", fmt.Errorf("invalid upload reference %q", ref)
	}

	target := filepath.Join(a.UploadsDir(), base)
	info, err := a.fs.Stat(target)
	if err != nil {
		return "", fmt.Errorf("upload %q not found", base)
	}
	if info.IsDir() {
		return "", fmt.Errorf("invalid upload reference %q", ref)
	}

	return target, nil
}

// StageInput copies an upload into a scratch directory for the converter and
// returns the staged path together with a cleanup func. Cleanup is safe to
// call on both the success and failure paths.
func (a *Area) StageInput(name string) (string, func(), error) {
	src := filepath.Join(a.UploadsDir(), name)
	data, err := afero.ReadFile(a.fs, src)
	if err != nil {
		return "", nil, fmt.Errorf("read upload %s: %w", name, err)
	}

	stageDir, err := afero.TempDir(a.fs, "", "snapforge-stage-")
	if err != nil {
		return "", nil, fmt.Errorf("create staging dir: %w", err)
	}

	staged := filepath.Join(stageDir, name)
	if err := afero.WriteFile(a.fs, staged, data, 0o644); err != nil {
		_ = a.fs.RemoveAll(stageDir)
		return "", nil, fmt.Errorf("stage input copy: %w", err)
	}

	cleanup := func() {
		if err := a.fs.RemoveAll(stageDir); err != nil {
			a.logger.Warn("failed to remove staging dir", "path", stageDir, "error", err)
			return
		}
		a.logger.Debug(messages.MsgRemovedStageCopy, "path", staged)
	}

	a.logger.Debug(messages.MsgStagedInputCopy, "path", staged)
	return staged, cleanup, nil
}

// ProcessedFile derives the output name and path for a processed upload.
// The name embeds a timestamp so reprocessing the same upload with different
// options never overwrites earlier output.
func (a *Area) ProcessedFile(uploadName, ext string) (string, string) {
	stem := strings.TrimSuffix(uploadName, filepath.Ext(uploadName))
	name := fmt.Sprintf("processed-%d-%s.%s", time.Now().UnixMilli(), stem, ext)
	return name, filepath.Join(a.ProcessedDir(), name)
}

// UploadsHTTPFS returns the uploads directory as an http.FileSystem.
func (a *Area) UploadsHTTPFS() http.FileSystem {
	return afero.NewHttpFs(afero.NewBasePathFs(a.fs, a.UploadsDir()))
}

// ProcessedHTTPFS returns the processed directory as an http.FileSystem.
func (a *Area) ProcessedHTTPFS() http.FileSystem {
	return afero.NewHttpFs(afero.NewBasePathFs(a.fs, a.ProcessedDir()))
}

// Sweep removes files older than maxAge from the uploads and processed
// directories. Removal failures are logged and skipped; the sweep keeps
// going. With dryRun set, candidates are counted but nothing is deleted.
func (a *Area) Sweep(maxAge time.Duration, dryRun bool) (SweepResult, error) {
	var res SweepResult
	cutoff := time.Now().Add(-maxAge)

	for _, dir := range []string{a.UploadsDir(), a.ProcessedDir()} {
		infos, err := afero.ReadDir(a.fs, dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return res, fmt.Errorf("list %s: %w", dir, err)
		}

		for _, info := range infos {
			if info.IsDir() {
				continue
			}
			res.Scanned++
			if !info.ModTime().Before(cutoff) {
				continue
			}

			target := filepath.Join(dir, info.Name())
			if dryRun {
				res.Removed++
				res.BytesFreed += info.Size()
				continue
			}

			if err := a.fs.Remove(target); err != nil {
				a.logger.Warn("failed to remove expired file", "path", target, "error", err)
				continue
			}
			a.logger.Debug(messages.MsgSweptFile, "path", target)
			res.Removed++
			res.BytesFreed += info.Size()
		}
	}

	return res, nil
}
