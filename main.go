package main

import "github.com/mehul-tandon/WipeOut/cmd"

// Stamped via -ldflags by the release build.
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

func main() {
	cmd.Version = version
	cmd.Commit = commit
	cmd.BuildTime = buildTime
	cmd.Execute()
}
