// Package version holds build metadata, set at link time:
//
//	go build -ldflags "-X github.com/MrSnakeDoc/marks/internal/version.Version=v0.1.0"
package version

import "runtime"

var (
	Version   = "dev"             // ex: v0.1.0
	Commit    = "none"            // ex: abcd123
	BuildDate = "unknown"         // ex: 2026-10-18T18:42:00Z
	GoVersion = runtime.Version() // go version
)
