// Package main provides the entry point for the treedump CLI tool.
package main

import (
	"os"

	"github.com/Sumatoshi-tech/treedump/cmd/treedump/commands"
	"github.com/Sumatoshi-tech/treedump/pkg/version"
)

func main() {
	version.InitBinaryVersion()

	os.Exit(commands.Execute())
}
