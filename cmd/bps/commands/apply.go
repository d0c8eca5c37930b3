// Copyright 2026 The Patchforge Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"
	"os"

	"github.com/patchforge/bps/cmd/bps/cli"
	"github.com/patchforge/bps/lib/apply"
	"github.com/patchforge/bps/lib/ops"
	"github.com/patchforge/bps/lib/patchfile"
	"github.com/patchforge/bps/lib/patchio"
	"github.com/patchforge/bps/lib/progress"
	"github.com/patchforge/bps/lib/validate"
)

func applyCommand() *cli.Command {
	return &cli.Command{
		Name:    "apply",
		Summary: "Apply a patch to a source file, producing the target",
		Usage:   "bps apply <patch> <source> <output>",
		Description: `Apply a patch to a source file, writing the reconstructed target.

The patch is validated while it is applied; a corrupt patch or a
source file the patch was not made for leaves no output file behind.`,
		Examples: []cli.Example{
			{
				Description: "Rebuild the hacked ROM from the original",
				Command:     "bps apply hack.bps original.rom hacked.rom",
			},
		},
		Run: func(args []string) error {
			if len(args) != 3 {
				return fmt.Errorf("apply needs <patch> <source> <output>, got %d arguments", len(args))
			}
			patchPath, sourcePath, outputPath := args[0], args[1], args[2]

			source, err := os.ReadFile(sourcePath)
			if err != nil {
				return err
			}
			patch, err := patchfile.Open(patchPath)
			if err != nil {
				return err
			}
			defer patch.Close()

			var pipeline ops.Stream = patchio.NewReader(patch)
			pipeline = validate.New(pipeline).WithSource(source)
			pipeline = progress.Wrap(pipeline, os.Stderr, "applying")

			target, err := apply.Bytes(pipeline, source)
			if err != nil {
				return err
			}
			return os.WriteFile(outputPath, target, 0644)
		},
	}
}
