// Copyright (c) 2025 Groundwork Team
// Groundwork - server environment bootstrapper
// This source code is licensed under the MIT license found in the LICENSE file.
package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
)

func TestApplyDefaultFlagsRegistersJournalFlags(t *testing.T) {
	cmd := &cobra.Command{}
	applyDefaultFlags(cmd)
	applyDefaultFlags(cmd) // repeat registration must not panic

	for _, name := range []string{"journal.type", "journal.dsn"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("flag %s not registered", name)
		}
	}
}

func TestGetConfigPathFromCli(t *testing.T) {
	newCmd := func() *cobra.Command {
		cmd := &cobra.Command{}
		cmd.Flags().String("config", "", "config file")
		return cmd
	}

	t.Run("flag not set", func(t *testing.T) {
		p, err := getConfigPathFromCli(newCmd())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if p != nil {
			t.Fatalf("expected nil path, got %q", *p)
		}
	})

	t.Run("existing file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "groundwork.yaml")
		if err := os.WriteFile(path, []byte("language: en\n"), 0600); err != nil {
			t.Fatalf("write config: %v", err)
		}
		cmd := newCmd()
		if err := cmd.Flags().Set("config", path); err != nil {
			t.Fatalf("set flag: %v", err)
		}

		p, err := getConfigPathFromCli(cmd)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if p == nil || *p != path {
			t.Fatalf("expected %q, got %v", path, p)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		cmd := newCmd()
		if err := cmd.Flags().Set("config", filepath.Join(t.TempDir(), "nope.yaml")); err != nil {
			t.Fatalf("set flag: %v", err)
		}
		if _, err := getConfigPathFromCli(cmd); err == nil {
			t.Fatal("expected an error for a missing config file")
		}
	})
}
