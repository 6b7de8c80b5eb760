// meteoreg is the meteorological metrics catalog service. It serves metric
// registries and schema-gated time-series queries over HTTP and ships a CLI
// for inspecting the catalog.
package main

import (
	"github.com/windrose/meteoreg/cmd/cli"
)

// Build information - set by ldflags during build.
var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

func main() {
	cli.SetVersion(version, commit, buildTime)
	cli.Execute()
}
