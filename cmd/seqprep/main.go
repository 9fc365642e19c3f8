package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/aaronlmathis/seqprep/internal/cli/commands"
	"github.com/aaronlmathis/seqprep/internal/cli/ui"
)

func main() {
	if err := commands.Execute(); err != nil {
		if strings.Contains(err.Error(), "unknown command") {
			ui.PrintError("%s", err)
			fmt.Fprintln(os.Stderr, "\nRun 'seqprep --help' for usage.")
		}
		os.Exit(1)
	}
}
