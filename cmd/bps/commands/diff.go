// Copyright 2026 The Patchforge Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/patchforge/bps/cmd/bps/cli"
	"github.com/patchforge/bps/lib/config"
	"github.com/patchforge/bps/lib/diff"
	"github.com/patchforge/bps/lib/ops"
	"github.com/patchforge/bps/lib/optimize"
	"github.com/patchforge/bps/lib/patchfile"
	"github.com/patchforge/bps/lib/patchio"
	"github.com/patchforge/bps/lib/progress"
)

func diffCommand() *cli.Command {
	var (
		configPath string
		blockSize  int
		metadata   string
		noOptimize bool
	)
	return &cli.Command{
		Name:    "diff",
		Summary: "Create a patch from a source and a target file",
		Usage:   "bps diff [flags] <source> <target> <patch>",
		Description: `Create a patch that rebuilds the target file from the source file.

The patch file name controls compression: .bps is written plain, and
.bps.gz, .bps.zst, and .bps.lz4 are compressed accordingly.`,
		Examples: []cli.Example{
			{
				Description: "Create a patch between two ROM revisions",
				Command:     "bps diff original.rom hacked.rom hack.bps",
			},
			{
				Description: "Finer matching granularity for small inputs",
				Command:     "bps diff --block-size 4 old.bin new.bin delta.bps.zst",
			},
		},
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("diff", pflag.ContinueOnError)
			flags.StringVar(&configPath, "config", "", "config file (default $BPS_CONFIG)")
			flags.IntVar(&blockSize, "block-size", 0,
				"match granularity in bytes (0 = derive from input sizes)")
			flags.StringVar(&metadata, "metadata", "", "metadata string to embed in the patch")
			flags.BoolVar(&noOptimize, "no-optimize", false, "skip the optimizer pass")
			return flags
		},
		Run: func(args []string) error {
			if len(args) != 3 {
				return fmt.Errorf("diff needs <source> <target> <patch>, got %d arguments", len(args))
			}
			sourcePath, targetPath, patchPath := args[0], args[1], args[2]

			conf, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if blockSize == 0 {
				blockSize = conf.Diff.BlockSize
			}

			source, err := os.ReadFile(sourcePath)
			if err != nil {
				return err
			}
			target, err := os.ReadFile(targetPath)
			if err != nil {
				return err
			}
			if blockSize == 0 {
				blockSize = diff.DefaultBlockSize(len(source), len(target))
			}

			var meta []byte
			if metadata != "" {
				meta = []byte(metadata)
			}
			stream, err := diff.New(blockSize, source, target, meta)
			if err != nil {
				return err
			}

			var pipeline ops.Stream = stream
			if conf.ShouldOptimize() && !noOptimize {
				pipeline = optimize.New(pipeline)
			}
			pipeline = progress.Wrap(pipeline, os.Stderr, "diffing")

			out, err := patchfile.Create(patchPath)
			if err != nil {
				return err
			}
			if err := patchio.Write(out, pipeline); err != nil {
				out.Close()
				os.Remove(patchPath)
				return err
			}
			if err := out.Close(); err != nil {
				os.Remove(patchPath)
				return err
			}
			return nil
		},
	}
}
