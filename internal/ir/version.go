package ir

// Version constants for the IR encoding and the frontend.
const (
	// SchemaVersion is the canonical encoding version. Hash domains carry it,
	// so bumping it changes every function and module hash.
	SchemaVersion = "1"

	// FrontendVersion is the tessera release.
	FrontendVersion = "0.1.0"
)
