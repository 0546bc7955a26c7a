package cli

import (
	"io"
	"os"
)

// RunOptions contains the settings shared by every command.
type RunOptions struct {
	ConfigPath  string
	Verbosity   int
	NoBanner    bool
	Pushgateway string
	WorkDir     string
	Out         io.Writer // Reports and banner; defaults to stdout
	Log         io.Writer // Log records; defaults to stderr
}

func (o RunOptions) out() io.Writer {
	if o.Out == nil {
		return os.Stdout
	}
	return o.Out
}

func (o RunOptions) log() io.Writer {
	if o.Log == nil {
		return os.Stderr
	}
	return o.Log
}
