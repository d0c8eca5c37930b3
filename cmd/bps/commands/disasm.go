// Copyright 2026 The Patchforge Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/patchforge/bps/cmd/bps/cli"
	"github.com/patchforge/bps/lib/asm"
	"github.com/patchforge/bps/lib/patchfile"
	"github.com/patchforge/bps/lib/patchio"
)

var (
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	hexStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

func disassembleCommand() *cli.Command {
	var plain bool
	return &cli.Command{
		Name:    "disassemble",
		Summary: "Render a patch as a text listing",
		Usage:   "bps disassemble [flags] <patch> [output]",
		Description: `Render a patch as a human-readable text listing. With no output
file the listing goes to stdout, colorized when stdout is a terminal.

The listing is exact: 'bps assemble' turns it back into the original
patch byte for byte.`,
		Examples: []cli.Example{
			{
				Description: "Inspect what a patch does",
				Command:     "bps disassemble hack.bps | less",
			},
		},
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("disassemble", pflag.ContinueOnError)
			flags.BoolVar(&plain, "plain", false, "never colorize the listing")
			return flags
		},
		Run: func(args []string) error {
			if len(args) != 1 && len(args) != 2 {
				return fmt.Errorf("disassemble needs <patch> [output], got %d arguments", len(args))
			}
			patchPath := args[0]

			patch, err := patchfile.Open(patchPath)
			if err != nil {
				return err
			}
			defer patch.Close()

			if len(args) == 2 {
				out, err := os.Create(args[1])
				if err != nil {
					return err
				}
				if err := asm.Disassemble(patchio.NewReader(patch), out); err != nil {
					out.Close()
					os.Remove(args[1])
					return err
				}
				return out.Close()
			}

			if plain || !term.IsTerminal(int(os.Stdout.Fd())) {
				return asm.Disassemble(patchio.NewReader(patch), os.Stdout)
			}

			// Render into memory, then colorize labels line by line.
			var listing bytes.Buffer
			if err := asm.Disassemble(patchio.NewReader(patch), &listing); err != nil {
				return err
			}
			out := bufio.NewWriter(os.Stdout)
			defer out.Flush()
			for line := range strings.Lines(listing.String()) {
				fmt.Fprint(out, colorizeLine(line))
			}
			return nil
		},
	}
}

// colorizeLine styles a listing line: operation labels in color, hex
// payload dimmed, everything else untouched.
func colorizeLine(line string) string {
	trimmed := strings.TrimSuffix(line, "\n")
	if label, rest, ok := strings.Cut(trimmed, ":"); ok && !strings.ContainsAny(label, " \t") {
		return labelStyle.Render(label+":") + rest + "\n"
	}
	if trimmed != asm.MagicLine && trimmed != "." && isHexLine(trimmed) {
		return hexStyle.Render(trimmed) + "\n"
	}
	return line
}

func isHexLine(line string) bool {
	if line == "" {
		return false
	}
	for _, r := range line {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}
