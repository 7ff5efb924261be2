package server

import (
	"github.com/gin-gonic/gin"
	"github.com/snapforge/snapforge/pkg/apierr"
	"github.com/snapforge/snapforge/pkg/logging"
	"github.com/snapforge/snapforge/pkg/magick"
)

// StatusComplete is the per-file status reported for successfully
// processed batch entries.
const StatusComplete = "complete"

// UploadResponse is the success body of POST /api/upload.
type UploadResponse struct {
	Success  bool   `json:"success"`
	Filename string `json:"filename"`
	URL      string `json:"url"`
	Size     int64  `json:"size"`
	Type     string `json:"type"`
}

// ProcessedFile describes one output of a processing batch.
type ProcessedFile struct {
	Original         string      `json:"original"`
	Processed        string      `json:"processed"`
	URL              string      `json:"url"`
	Metadata         magick.Info `json:"metadata"`
	ProcessingTimeMs int64       `json:"processingTimeMs"`
	Status           string      `json:"status"`
}

// ProcessResponse is the success body of POST /api/process.
type ProcessResponse struct {
	Success          bool            `json:"success"`
	Files            []ProcessedFile `json:"files"`
	Count            int             `json:"count"`
	ProcessingTimeMs int64           `json:"processingTimeMs"`
}

// HealthResponse is the body of GET /api/health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Backend string `json:"backend"`
}

// ErrorResponse is the failure body of every endpoint. Message texts are
// client-safe; the wrapped cause only ever reaches the log.
type ErrorResponse struct {
	Success bool        `json:"success"`
	Error   string      `json:"error"`
	Code    apierr.Code `json:"code"`
}

// abortWithError classifies err, logs it and writes the matching error body.
func abortWithError(c *gin.Context, logger *logging.Logger, err error) {
	apiErr := apierr.From(err)

	if apiErr.Err != nil {
		logger.Error("request failed", "code", apiErr.Code, "error", apiErr.Err)
	} else {
		logger.Warn("request rejected", "code", apiErr.Code, "message", apiErr.Message)
	}

	c.AbortWithStatusJSON(apiErr.Status, ErrorResponse{Error: apiErr.Message, Code: apiErr.Code})
}
