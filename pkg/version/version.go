package version

// Application version information
var (
	Version = "dev"
	Commit  = ""
)

// Component constants
const (
	// Name is the service name reported in logs and the health endpoint.
	Name = "snapforge"

	// MinimumMagickMajor is the oldest ImageMagick major release the
	// convert argument set is known to work with.
	MinimumMagickMajor = 6
)
