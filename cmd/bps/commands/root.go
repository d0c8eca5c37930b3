// Copyright 2026 The Patchforge Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands assembles the bps command tree.
package commands

import "github.com/patchforge/bps/cmd/bps/cli"

// Root returns the top-level bps command.
func Root() *cli.Command {
	return &cli.Command{
		Name:    "bps",
		Summary: "Create, apply, and inspect BPS binary patches",
		Description: `bps works with BPS binary patches: compact, checksummed encodings
of the differences between two files.

A patch records how to rebuild a target file from a source file. The
format carries checksums of the source, the target, and the patch
itself, so applying a patch to the wrong file fails loudly instead of
producing a silently broken result.`,
		Subcommands: []*cli.Command{
			diffCommand(),
			applyCommand(),
			validateCommand(),
			optimizeCommand(),
			disassembleCommand(),
			assembleCommand(),
		},
	}
}
