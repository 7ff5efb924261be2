package server

import (
	"io"
	"mime/multipart"
	"net/http"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"
	"github.com/snapforge/snapforge/pkg/apierr"
	"github.com/snapforge/snapforge/pkg/logging"
	"github.com/snapforge/snapforge/pkg/messages"
	"github.com/snapforge/snapforge/pkg/sanitize"
	"github.com/snapforge/snapforge/pkg/validate"
)

// UploadHandler returns the POST /api/upload handler: exactly one multipart
// "file" field is validated, given a safe unique name and persisted under
// the public uploads directory.
func (s *Server) UploadHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := reqLogger(c)

		form, err := c.MultipartForm()
		if err != nil {
			abortWithError(c, logger, apierr.Wrap(apierr.CodeInvalidFile, messages.ErrNoFileUploaded, err))
			return
		}

		files := form.File["file"]
		switch {
		case len(files) == 0:
			abortWithError(c, logger, apierr.New(apierr.CodeInvalidFile, messages.ErrNoFileUploaded))
			return
		case len(files) > 1:
			abortWithError(c, logger, apierr.New(apierr.CodeInvalidFile, messages.ErrExactlyOneFile))
			return
		}

		header := files[0]

		// Cheap size gate before buffering the body; the validator
		// re-checks against the bytes actually read.
		if header.Size > s.validator.MaxBytes() {
			abortWithError(c, logger, apierr.Newf(apierr.CodeFileTooLarge, messages.ErrFileTooLargeFmt,
				humanize.IBytes(uint64(s.validator.MaxBytes()))))
			return
		}

		data, err := readMultipartFile(header)
		if err != nil {
			logger.Error(messages.ErrReadUploadedLog, "error", err)
			abortWithError(c, logger, apierr.Wrap(apierr.CodeInvalidFile, messages.ErrReadUploaded, err))
			return
		}

		declaredType := header.Header.Get("Content-Type")
		if apiErr := s.validator.Validate(data, declaredType, header.Filename); apiErr != nil {
			abortWithError(c, logger, apiErr)
			return
		}
		logger.Debug(messages.MsgSniffedMediaType, "declared", declaredType, "sniffed", s.validator.SniffedType(data))

		if err := s.area.EnsureDirs(); err != nil {
			abortWithError(c, logger, apierr.Wrap(apierr.CodeWriteError, messages.ErrStoreUpload, err))
			return
		}

		name := sanitize.SafeName(header.Filename)
		info, apiErr := s.area.SaveUpload(name, data)
		if apiErr != nil {
			abortWithError(c, logger, apiErr)
			return
		}

		// Uploads double as sweep triggers, so expired files get pruned
		// even on deployments that never run the sweep command.
		s.sweepAsSideEffect(logger)

		logger.Info(messages.MsgUploadStored, "filename", name, "size", info.Size())
		c.JSON(http.StatusOK, UploadResponse{
			Success:  true,
			Filename: name,
			URL:      "/uploads/" + name,
			Size:     info.Size(),
			Type:     validate.NormalizeType(declaredType),
		})
	}
}

func (s *Server) sweepAsSideEffect(logger *logging.Logger) {
	if s.conf.RetentionAge <= 0 {
		return
	}

	res, err := s.area.Sweep(s.conf.RetentionAge, false)
	if err != nil {
		logger.Warn(messages.MsgSweepFailed, "error", err)
		return
	}
	if res.Removed > 0 {
		logger.Info(messages.MsgSweepComplete,
			"scanned", res.Scanned,
			"removed", res.Removed,
			"freed", humanize.IBytes(uint64(res.BytesFreed)))
	}
}

func readMultipartFile(header *multipart.FileHeader) ([]byte, error) {
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return io.ReadAll(f)
}
