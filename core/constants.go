package core

const (
	// Version of the directory layout this build reads. A table with a
	// different major version is never interpreted.
	CurrentMajorVersion uint32 = 1
	CurrentMinorVersion uint32 = 1

	// First minor version whose header carries the disabled process table.
	MinorVersionDisabledProcesses uint32 = 1

	// Name of the exported directory header inside an image.
	TopLevelSymbolName = "_prespecializationsData"

	ImageFileExt = ".pspi"

	EnvImagePath = "PRESPEC_IMAGE"  // path of the image the default locator maps
	EnvEnable    = "PRESPEC_ENABLE" // "0" or "false" turns the default directory off

	DefaultListenerPort = 7373
)
