// Command fleur lays out the drawn pages of a fleur flexagon onto a
// printable front and back sheet, and rebuilds the pages that only exist
// as parts of other drawings.
package main

import (
	"context"
	"os"
	"syscall"

	"github.com/charmbracelet/fang"
	"github.com/fleurfold/fleur/cmd"
)

// Set at build time with -ldflags "-X main.version=... -X main.commit=...".
var (
	version = "dev"
	commit  = ""
)

func main() {
	root := cmd.NewRootCmd()

	// A cancelled context stops the parallel page loads mid-sheet.
	if err := fang.Execute(
		context.Background(),
		root,
		fang.WithVersion(version),
		fang.WithCommit(commit),
		fang.WithNotifySignal(os.Interrupt, syscall.SIGTERM),
	); err != nil {
		os.Exit(1)
	}
}
