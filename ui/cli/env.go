// Copyright (c) 2025 Groundwork Team
// Groundwork - server environment bootstrapper
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/groundwork-sh/groundwork/internal/core"
	"github.com/groundwork-sh/groundwork/internal/envfile"
	"github.com/groundwork-sh/groundwork/internal/profile"
)

// envCmd is the root command for environment file operations.
var envCmd = &cobra.Command{
	Use:   "env",
	Short: "Render and check application environment files",
	Long: `The 'env' command group works with the environment file that provisioning
writes from the profile's env schema:
  - Render the file content for a profile without touching any server
  - Check an existing file for drift against the profile`,
}

// envRenderCmd renders the environment file for a profile to stdout.
var envRenderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render the environment file for a profile",
	Long: `Renders the environment file exactly as provisioning writes it. Secret-flagged
variables with no value in the profile render as empty assignments, to be
filled in by hand after provisioning. 'groundwork up' overwrites the file
wholesale on every run, so values worth keeping belong in the profile.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := resolveProfileFlag(cmd)
		if err != nil {
			return err
		}
		fmt.Print(envfile.Render(p))
		return nil
	},
}

// envCheckCmd analyzes an environment file for drift against the profile.
var envCheckCmd = &cobra.Command{
	Use:   "check [file]",
	Short: "Check an environment file for drift against the profile",
	Long: `Compares an environment file against the profile's env schema and reports
missing keys, extra keys, unset secrets and changed values.

If no file is given, the profile's own env file path is checked, which is
useful when running directly on a provisioned host. The command exits
non-zero when the drift is classified as critical.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := resolveProfileFlag(cmd)
		if err != nil {
			return err
		}

		filePath := p.EnvFilePath()
		if len(args) == 1 {
			filePath = args[0]
		}

		content := ""
		fileExists := true
		raw, err := os.ReadFile(filePath)
		if err != nil {
			if !os.IsNotExist(err) {
				return fmt.Errorf("failed to read %s: %w", filePath, err)
			}
			fileExists = false
		} else {
			content = string(raw)
		}

		analysis := envfile.Analyze(p, content, fileExists)
		fmt.Printf("%s: %s\n", filePath, analysis.Summary())
		for _, k := range analysis.MissingKeys {
			fmt.Printf("  missing:      %s\n", k)
		}
		for _, k := range analysis.ExtraKeys {
			fmt.Printf("  extra:        %s\n", k)
		}
		for _, k := range analysis.EmptySecrets {
			fmt.Printf("  empty secret: %s\n", k)
		}
		for _, k := range analysis.ChangedValues {
			fmt.Printf("  changed:      %s\n", k)
		}

		if analysis.IsCritical() {
			return fmt.Errorf("environment file drift is critical")
		}
		return nil
	},
}

// secretCmd generates a random secret suitable for the env schema.
var secretCmd = &cobra.Command{
	Use:   "secret",
	Short: "Generate a URL-safe random secret",
	Long: `Generates a cryptographically random, URL-safe secret of the given byte
length, suitable for filling in secret-flagged env vars (JWT_SECRET and
friends) after provisioning has written the environment file.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		length, _ := cmd.Flags().GetInt("length")
		secret, err := core.GenerateSecret(length)
		if err != nil {
			return fmt.Errorf("failed to generate secret: %w", err)
		}
		fmt.Println(secret)
		return nil
	},
}

// profileCmd is the root command for profile file operations.
var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Create and inspect provisioning profiles",
	Long: `The 'profile' command group manages the YAML profiles that describe what a
service needs on its host:
  - Write a starter profile to edit
  - Show the effective profile after loading and validation`,
}

// profileInitCmd writes a starter profile file.
var profileInitCmd = &cobra.Command{
	Use:   "init [file]",
	Short: "Write a starter profile",
	Long: `Writes the built-in default profile to the given path (default:
profile.yaml) as a starting point. Existing files are not overwritten.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filePath := "profile.yaml"
		if len(args) == 1 {
			filePath = args[0]
		}
		if _, err := os.Stat(filePath); err == nil {
			return fmt.Errorf("%s already exists, refusing to overwrite", filePath)
		}
		if err := profile.Default().Save(filePath); err != nil {
			return fmt.Errorf("failed to write profile: %w", err)
		}
		fmt.Printf("Wrote starter profile to %s\n", filePath)
		return nil
	},
}

// profileShowCmd prints the loaded, validated profile.
var profileShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective profile",
	Long:  `Loads and validates the profile, then prints it as YAML. Useful to confirm which profile a run would use and that it parses cleanly.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := resolveProfileFlag(cmd)
		if err != nil {
			return err
		}
		out, err := yaml.Marshal(p)
		if err != nil {
			return fmt.Errorf("failed to marshal profile: %w", err)
		}
		fmt.Print(string(out))
		return nil
	},
}

// resolveProfileFlag loads the profile named by --profile, falling back to
// the configured default profile path and then the built-in profile.
func resolveProfileFlag(cmd *cobra.Command) (*profile.Profile, error) {
	path, _ := cmd.Flags().GetString("profile")
	if path == "" {
		path = appConfig.Profile
	}
	p, err := core.ResolveProfile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	return p, nil
}

// registerEnvCommands registers all env-related subcommands.
func registerEnvCommands() {
	envCmd.AddCommand(envRenderCmd)
	envCmd.AddCommand(envCheckCmd)
	envCmd.AddCommand(secretCmd)

	// Setup flags (only if not already defined)
	if envRenderCmd.Flags().Lookup("profile") == nil {
		envRenderCmd.Flags().StringP("profile", "p", "", "Path to the provisioning profile")
	}
	if envCheckCmd.Flags().Lookup("profile") == nil {
		envCheckCmd.Flags().StringP("profile", "p", "", "Path to the provisioning profile")
	}
	if secretCmd.Flags().Lookup("length") == nil {
		secretCmd.Flags().IntP("length", "n", 32, "Secret length in bytes before encoding")
	}
}

// registerProfileCommands registers all profile-related subcommands.
func registerProfileCommands() {
	profileCmd.AddCommand(profileInitCmd)
	profileCmd.AddCommand(profileShowCmd)

	if profileShowCmd.Flags().Lookup("profile") == nil {
		profileShowCmd.Flags().StringP("profile", "p", "", "Path to the provisioning profile")
	}
}
