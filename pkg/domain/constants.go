package domain

const (
	// DefaultConfigFile is the configuration path used when none is given.
	DefaultConfigFile = "plumber.yml"

	// DefaultCheckpointFile is where the local file store keeps the document.
	DefaultCheckpointFile = ".plumber.checkpoint.yml"

	// TimeoutExitCode is recorded for steps killed by their timeout.
	TimeoutExitCode = 130

	// KeyCommit is the field of a local-diff checkpoint holding the revision.
	KeyCommit = "commit"
)

// CheckpointUnit selects the persistence granularity of a run.
type CheckpointUnit string

const (
	// UnitSingle persists only after a fully successful run.
	UnitSingle CheckpointUnit = "single"
	// UnitPipe persists whatever progress was made, even when a later pipe fails.
	UnitPipe CheckpointUnit = "pipe"
)
