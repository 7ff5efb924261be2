package server

import (
	"context"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/snapforge/snapforge/pkg/apierr"
	"github.com/snapforge/snapforge/pkg/logging"
	"github.com/snapforge/snapforge/pkg/magick"
	"github.com/snapforge/snapforge/pkg/messages"
)

// ProcessHandler returns the POST /api/process handler. Each referenced
// upload is staged, run through the converter and reported as one
// descriptor. The first tool failure aborts the whole batch; output files
// produced before the failure stay on disk for the sweeper.
func (s *Server) ProcessHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := reqLogger(c)

		refs := c.PostFormArray("files")
		if len(refs) == 0 {
			if ref := c.PostForm("file"); ref != "" {
				refs = []string{ref}
			}
		}
		if len(refs) == 0 {
			abortWithError(c, logger, apierr.New(apierr.CodeValidationFailed, messages.ErrNoFilesReferenced))
			return
		}

		opts, err := magick.ParseOptions(c.PostForm("config"))
		if err != nil {
			abortWithError(c, logger, apierr.Wrap(apierr.CodeValidationFailed, messages.ErrBadProcessConfig, err))
			return
		}

		logger.Debug(messages.MsgProcessingBatch, "count", len(refs), "format", opts.OutputFormat)

		begin := time.Now()
		files := make([]ProcessedFile, 0, len(refs))
		for _, ref := range refs {
			entry, apiErr := s.processOne(c.Request.Context(), logger, ref, opts)
			if apiErr != nil {
				abortWithError(c, logger, apiErr)
				return
			}
			files = append(files, entry)
		}

		c.JSON(http.StatusOK, ProcessResponse{
			Success:          true,
			Files:            files,
			Count:            len(files),
			ProcessingTimeMs: time.Since(begin).Milliseconds(),
		})
	}
}

func (s *Server) processOne(ctx context.Context, logger *logging.Logger, ref string, opts magick.Options) (ProcessedFile, *apierr.Error) {
	src, err := s.area.ResolveUpload(ref)
	if err != nil {
		return ProcessedFile{}, apierr.Wrap(apierr.CodeValidationFailed, messages.ErrUnknownUploadRef, err)
	}
	uploadName := filepath.Base(src)

	staged, cleanup, err := s.area.StageInput(uploadName)
	if err != nil {
		return ProcessedFile{}, apierr.Wrap(apierr.CodeProcessingFailed, messages.ErrProcessingFailed, err)
	}
	defer cleanup()

	outName, outPath := s.area.ProcessedFile(uploadName, opts.OutputFormat)

	begin := time.Now()
	if err := s.conv.Convert(ctx, staged, outPath, opts); err != nil {
		s.stats.Observe(opts.OutputFormat, time.Since(begin), false)
		logger.Error(messages.MsgBatchAborted, "file", uploadName, "error", err)
		// Drop partial output so the processed tree only holds good files.
		_ = s.area.Fs().Remove(outPath)
		return ProcessedFile{}, apierr.Wrap(apierr.CodeProcessingFailed, messages.ErrProcessingFailed, err)
	}
	s.stats.Observe(opts.OutputFormat, time.Since(begin), true)

	entry := ProcessedFile{
		Original:         uploadName,
		Processed:        outName,
		URL:              "/processed/" + outName,
		ProcessingTimeMs: time.Since(begin).Milliseconds(),
		Status:           StatusComplete,
	}

	// Metadata is best effort; a probe failure downgrades the descriptor
	// but never fails a conversion that already succeeded.
	if info, err := s.conv.Identify(ctx, outPath); err != nil {
		logger.Warn(messages.ErrMetadataRead, "file", outName, "error", err)
	} else {
		if st, statErr := s.area.Fs().Stat(outPath); statErr == nil {
			info.Size = st.Size()
		}
		entry.Metadata = info
	}

	logger.Info(messages.MsgImageProcessed, "original", uploadName, "processed", outName, "ms", entry.ProcessingTimeMs)
	return entry, nil
}
