// Copyright 2026 The Patchforge Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"strings"
	"testing"

	"github.com/spf13/pflag"
)

func TestDispatchesSubcommand(t *testing.T) {
	ran := false
	root := &Command{
		Name: "bps",
		Subcommands: []*Command{
			{Name: "diff", Run: func(args []string) error {
				ran = true
				return nil
			}},
		},
	}
	if err := root.Execute([]string{"diff"}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !ran {
		t.Error("subcommand did not run")
	}
}

func TestSuggestsOnTypo(t *testing.T) {
	root := &Command{
		Name: "bps",
		Subcommands: []*Command{
			{Name: "validate", Run: func([]string) error { return nil }},
		},
	}
	err := root.Execute([]string{"valdiate"})
	if err == nil || !strings.Contains(err.Error(), `did you mean "validate"`) {
		t.Errorf("Execute error = %v, want a suggestion for validate", err)
	}
}

func TestFlagParsing(t *testing.T) {
	var level int
	cmd := &Command{
		Name: "tool",
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("tool", pflag.ContinueOnError)
			flags.IntVar(&level, "level", 3, "compression level")
			return flags
		},
		Run: func(args []string) error { return nil },
	}
	if err := cmd.Execute([]string{"--level", "9"}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if level != 9 {
		t.Errorf("level = %d, want 9", level)
	}
}

func TestUnknownFlagSuggestion(t *testing.T) {
	cmd := &Command{
		Name: "tool",
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("tool", pflag.ContinueOnError)
			flags.Bool("plain", false, "no color")
			return flags
		},
		Run: func(args []string) error { return nil },
	}
	err := cmd.Execute([]string{"--plian"})
	if err == nil || !strings.Contains(err.Error(), "--plain") {
		t.Errorf("Execute error = %v, want a suggestion for --plain", err)
	}
}

func TestLevenshtein(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "abc", 0},
		{"abc", "abd", 1},
		{"diff", "disassemble", 9},
		{"aply", "apply", 1},
	}
	for _, tc := range cases {
		if got := levenshtein(tc.a, tc.b); got != tc.want {
			t.Errorf("levenshtein(%q, %q) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}
}
