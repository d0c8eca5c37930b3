// Copyright 2026 The Patchforge Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/pflag"

	"github.com/patchforge/bps/cmd/bps/cli"
	"github.com/patchforge/bps/lib/patchfile"
	"github.com/patchforge/bps/lib/patchio"
	"github.com/patchforge/bps/lib/validate"
)

var (
	okStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	badStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
)

func validateCommand() *cli.Command {
	var (
		sourcePath string
		targetPath string
	)
	return &cli.Command{
		Name:    "validate",
		Summary: "Check a patch for corruption",
		Usage:   "bps validate [flags] <patch>",
		Description: `Check every structural invariant of a patch: framing, cursor
bounds, bytespan accounting, and the patch checksum.

With --source or --target, the declared sizes and checksums are also
compared against the actual files.`,
		Examples: []cli.Example{
			{
				Description: "Structural check only",
				Command:     "bps validate hack.bps",
			},
			{
				Description: "Also verify the patch matches its source file",
				Command:     "bps validate --source original.rom hack.bps",
			},
		},
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("validate", pflag.ContinueOnError)
			flags.StringVar(&sourcePath, "source", "", "source file to verify against")
			flags.StringVar(&targetPath, "target", "", "target file to verify against")
			return flags
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("validate needs <patch>, got %d arguments", len(args))
			}
			patchPath := args[0]

			patch, err := patchfile.Open(patchPath)
			if err != nil {
				return err
			}
			defer patch.Close()

			validator := validate.New(patchio.NewReader(patch))
			if sourcePath != "" {
				source, err := os.ReadFile(sourcePath)
				if err != nil {
					return err
				}
				validator.WithSource(source)
			}
			if targetPath != "" {
				target, err := os.ReadFile(targetPath)
				if err != nil {
					return err
				}
				validator.WithTarget(target)
			}

			if err := validator.Drain(); err != nil {
				fmt.Fprintf(os.Stderr, "%s %s: %v\n", badStyle.Render("invalid"), patchPath, err)
				return &cli.ExitError{Code: 1}
			}
			fmt.Printf("%s %s\n", okStyle.Render("ok"), patchPath)
			return nil
		},
	}
}
