// Package messages centralizes all log and API-response message literals so they can
// be reused across the code-base and kept consistent.  Constants are grouped by
// functional area (Server, Upload, Processing, Storage, Sweep, Exec).
package messages

// Log and API response message constants.
const (
	// Server lifecycle
	MsgServerStarting     = "starting API server"
	MsgServerStopped      = "API server stopped"
	MsgServerShuttingDown = "shutting down API server..."
	MsgRequestReceived    = "API request received"
	MsgRequestCompleted   = "API request completed"

	// Upload handler API response texts
	ErrNoFileUploaded  = "No file uploaded"
	ErrExactlyOneFile  = "Exactly one file must be uploaded per request"
	ErrReadUploadedLog = "failed to read uploaded file"
	ErrReadUploaded    = "Failed to read uploaded file"
	ErrFileEmpty       = "Uploaded file is empty"
	ErrFileTooLargeFmt = "File too large. Maximum size is %s"
	ErrWrongFileType   = "Invalid file type. Only JPEG, PNG and WebP images are allowed"
	ErrRateLimited     = "Too many uploads from this IP, please try again later"
	ErrStoreUpload     = "Failed to store uploaded file"
	ErrVerifyUpload    = "Failed to verify stored file"

	// Upload handler log messages
	MsgUploadStored     = "upload stored"
	MsgSniffedMediaType = "sniffed media type"

	// Processing handler API response texts
	ErrNoFilesReferenced = "No files referenced for processing"
	ErrBadProcessConfig  = "Invalid processing configuration"
	ErrUnknownUploadRef  = "Referenced upload does not exist"
	ErrProcessingFailed  = "Image processing failed"

	// Processing handler log messages
	MsgProcessingBatch  = "processing image batch"
	MsgImageProcessed   = "image processed"
	MsgBatchAborted     = "batch aborted after tool failure"
	MsgStagedInputCopy  = "staged input copy"
	MsgRemovedStageCopy = "removed staged input copy"

	// Metadata handler API response texts
	ErrImageFieldMissing = "An image file is required"
	ErrNotAnImage        = "Uploaded file is not an image"
	ErrMetadataRead      = "Unable to read image metadata"

	// Storage messages
	MsgEnsuredDirectories = "ensured public directories"
	MsgWroteFile          = "wrote file"

	// Sweep messages
	MsgSweepStarted  = "retention sweep started"
	MsgSweepComplete = "retention sweep complete"
	MsgSweepFailed   = "retention sweep failed"
	MsgSweptFile     = "removed expired file"

	// Converter detection / execution
	MsgMagickDetected  = "imagemagick binaries detected"
	MsgMagickMissing   = "imagemagick not found, falling back to native backend"
	MsgRunningConvert  = "running convert"
	MsgRunningIdentify = "running identify"
)
