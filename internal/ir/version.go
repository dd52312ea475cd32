package ir

// Version constants for the trajectory format and engine.
const (
	// FormatVersion is the trajectory record format version.
	FormatVersion = "1"

	// EngineVersion is the stepsim engine version.
	EngineVersion = "0.1.0"
)
