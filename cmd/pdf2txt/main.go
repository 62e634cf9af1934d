// Package main is the entry point for the pdf2txt CLI: offline
// provisioning of a Python PDF-processing environment plus a native
// text-extraction comparison harness. All behavior lives in
// internal/cli; this file only wires version info and runs the tree.
package main

import (
	"github.com/mmr-tortoise/pdf2txt/internal/cli"
)

// Populated through ldflags at release time; the dev defaults apply to
// plain `go build`.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cli.Version = version
	cli.Commit = commit
	cli.Date = date

	cli.Execute(cli.NewRootCommand())
}
