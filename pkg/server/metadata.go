package server

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/snapforge/snapforge/pkg/apierr"
	"github.com/snapforge/snapforge/pkg/messages"
	"github.com/spf13/afero"
)

// MetadataHandler returns the POST /api/metadata handler: the posted
// "image" field is probed with the converter's identify and its dimensions
// reported. Nothing is stored; the probe copy is removed before returning.
func (s *Server) MetadataHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := reqLogger(c)

		header, err := c.FormFile("image")
		if err != nil {
			abortWithError(c, logger, apierr.New(apierr.CodeValidationFailed, messages.ErrImageFieldMissing))
			return
		}

		data, err := readMultipartFile(header)
		if err != nil {
			abortWithError(c, logger, apierr.Wrap(apierr.CodeValidationFailed, messages.ErrReadUploaded, err))
			return
		}

		if sniffed := s.validator.SniffedType(data); !strings.HasPrefix(sniffed, "image/") {
			abortWithError(c, logger, apierr.New(apierr.CodeValidationFailed, messages.ErrNotAnImage))
			return
		}

		tmpDir, err := afero.TempDir(s.area.Fs(), "", "snapforge-meta-")
		if err != nil {
			abortWithError(c, logger, apierr.Wrap(apierr.CodeUnknown, messages.ErrMetadataRead, err))
			return
		}
		defer func() { _ = s.area.Fs().RemoveAll(tmpDir) }()

		probe := filepath.Join(tmpDir, "probe"+strings.ToLower(filepath.Ext(header.Filename)))
		if err := afero.WriteFile(s.area.Fs(), probe, data, 0o644); err != nil {
			abortWithError(c, logger, apierr.Wrap(apierr.CodeUnknown, messages.ErrMetadataRead, err))
			return
		}

		info, err := s.conv.Identify(c.Request.Context(), probe)
		if err != nil {
			abortWithError(c, logger, apierr.Wrap(apierr.CodeValidationFailed, messages.ErrMetadataRead, err))
			return
		}
		info.Size = int64(len(data))

		c.JSON(http.StatusOK, info)
	}
}
