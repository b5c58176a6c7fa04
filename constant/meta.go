// Package constant defines immutable application-level identifiers and configuration defaults.
package constant

const (
	// App is the canonical application identifier used for filesystem paths and CLI branding.
	App = "tvplay"

	// Version is the current application semantic version string.
	Version = "0.3.0"

	// UserAgentProduct is the product token sent with every HTTP request issued by the data source factory.
	UserAgentProduct = "ProjectJack-v3"
)

// Build metadata, overridden at link time with -ldflags "-X".
var (
	BuiltAt  = "unknown"
	BuiltBy  = "unknown"
	Revision = "unknown"
)
