package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type checkState int

const (
	checkInfo checkState = iota
	checkPass
	checkFail
)

var checkTags = map[checkState]struct{ tag, color string }{
	checkInfo: {"INFO", "\x1b[34m"},
	checkPass: {"OK", "\x1b[32m"},
	checkFail: {"FAIL", "\x1b[31m"},
}

// checkPrinter writes aligned "name: [TAG] detail" lines, colored on terminals.
type checkPrinter struct {
	w     io.Writer
	color bool
}

func newCheckPrinter(w io.Writer) checkPrinter {
	return checkPrinter{w: w, color: isTerminal(w)}
}

func (p checkPrinter) line(name string, state checkState, detail string) {
	tag := checkTags[state]
	text := fmt.Sprintf("  %-22s [%s]", name+":", tag.tag)
	if detail != "" {
		text += " " + detail
	}
	if p.color {
		text = tag.color + text + "\x1b[0m"
	}
	fmt.Fprintln(p.w, text)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
