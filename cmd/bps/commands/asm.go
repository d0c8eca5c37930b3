// Copyright 2026 The Patchforge Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"
	"os"

	"github.com/patchforge/bps/cmd/bps/cli"
	"github.com/patchforge/bps/lib/asm"
	"github.com/patchforge/bps/lib/patchfile"
	"github.com/patchforge/bps/lib/patchio"
)

func assembleCommand() *cli.Command {
	return &cli.Command{
		Name:    "assemble",
		Summary: "Build a patch from a text listing",
		Usage:   "bps assemble <listing> <patch>",
		Description: `Build a binary patch from a text listing produced by
'bps disassemble' (or written by hand). The patch checksum is
computed during serialization, so listings never carry one.`,
		Examples: []cli.Example{
			{
				Description: "Round-trip a patch through its listing",
				Command:     "bps assemble hack.bpsasm hack.bps",
			},
		},
		Run: func(args []string) error {
			if len(args) != 2 {
				return fmt.Errorf("assemble needs <listing> <patch>, got %d arguments", len(args))
			}
			listingPath, patchPath := args[0], args[1]

			listing, err := os.Open(listingPath)
			if err != nil {
				return err
			}
			defer listing.Close()

			stream, err := asm.Assemble(listing)
			if err != nil {
				return fmt.Errorf("parsing %s: %w", listingPath, err)
			}

			out, err := patchfile.Create(patchPath)
			if err != nil {
				return err
			}
			if err := patchio.Write(out, stream); err != nil {
				out.Close()
				os.Remove(patchPath)
				return err
			}
			return out.Close()
		},
	}
}
