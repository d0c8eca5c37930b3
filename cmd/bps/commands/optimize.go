// Copyright 2026 The Patchforge Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"
	"os"

	"github.com/patchforge/bps/cmd/bps/cli"
	"github.com/patchforge/bps/lib/ops"
	"github.com/patchforge/bps/lib/optimize"
	"github.com/patchforge/bps/lib/patchfile"
	"github.com/patchforge/bps/lib/patchio"
	"github.com/patchforge/bps/lib/progress"
	"github.com/patchforge/bps/lib/validate"
)

func optimizeCommand() *cli.Command {
	return &cli.Command{
		Name:    "optimize",
		Summary: "Rewrite a patch into an equivalent, smaller one",
		Usage:   "bps optimize <patch> <output>",
		Description: `Rewrite a patch by merging adjacent operations where the result
encodes shorter. The output applies to exactly the same files and
produces exactly the same target as the input.`,
		Examples: []cli.Example{
			{
				Description: "Shrink a patch produced by another tool",
				Command:     "bps optimize their.bps ours.bps",
			},
		},
		Run: func(args []string) error {
			if len(args) != 2 {
				return fmt.Errorf("optimize needs <patch> <output>, got %d arguments", len(args))
			}
			patchPath, outputPath := args[0], args[1]

			patch, err := patchfile.Open(patchPath)
			if err != nil {
				return err
			}
			defer patch.Close()

			var pipeline ops.Stream = patchio.NewReader(patch)
			pipeline = validate.New(pipeline)
			pipeline = optimize.New(pipeline)
			pipeline = progress.Wrap(pipeline, os.Stderr, "optimizing")

			out, err := patchfile.Create(outputPath)
			if err != nil {
				return err
			}
			if err := patchio.Write(out, pipeline); err != nil {
				out.Close()
				os.Remove(outputPath)
				return err
			}
			return out.Close()
		},
	}
}
