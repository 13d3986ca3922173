// Copyright (c) 2025 Groundwork Team
// Groundwork - server environment bootstrapper
// This source code is licensed under the MIT license found in the LICENSE file.

// main.go wires up the groundwork command tree: the root command, the
// provisioning subcommands (up, plan, doctor, trust-host), their flags, and
// the Execute entry point the binary calls.

package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"

	log "github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/crypto/ssh"
	"golang.org/x/term"

	"github.com/groundwork-sh/groundwork/buildvars"
	"github.com/groundwork-sh/groundwork/internal/config"
	"github.com/groundwork-sh/groundwork/internal/core"
	"github.com/groundwork-sh/groundwork/internal/engine"
	"github.com/groundwork-sh/groundwork/internal/i18n"
	"github.com/groundwork-sh/groundwork/internal/profile"
	"github.com/groundwork-sh/groundwork/internal/runner"
	"github.com/groundwork-sh/groundwork/internal/security"
	"github.com/groundwork-sh/groundwork/internal/state"
	"github.com/groundwork-sh/groundwork/ui/tui"
)

// Build metadata, stamped by the linker on release builds.
var (
	version   = "dev"
	gitCommit = "dev"
	buildDate = "" // RFC3339
)

var (
	cfgFile         string
	fullRestore     bool
	verbose         bool
	showVersionFlag bool

	// appConfig holds the resolved configuration once setupDefaultServices
	// has run.
	appConfig config.Config
)

// configDefaults fill in for a missing config file and for fields the user
// left blank.
var configDefaults = map[string]any{
	"journal.type": "sqlite",
	"journal.dsn":  "./groundwork.db",
	"language":     "en",
}

// setupDefaultServices loads the configuration, initializes i18n and opens
// the journal. Every subcommand runs it as its PreRunE.
func setupDefaultServices(cmd *cobra.Command, args []string) error {
	cfgPath, err := getConfigPathFromCli(cmd)
	if err != nil {
		return err
	}

	appConfig, err = config.LoadConfig[config.Config](cmd, configDefaults, cfgPath)
	switch {
	case errors.As(err, &viper.ConfigFileNotFoundError{}):
		// First run. Drop a default config file for later runs to pick up;
		// this invocation keeps going on defaults either way.
		if writeErr := config.WriteConfigFile(&appConfig, false); writeErr != nil {
			log.Warnf("Warning: could not write default config file: %v", writeErr)
		}
	case err != nil:
		return fmt.Errorf("error loading config: %w", err)
	}

	fillDefault(&appConfig.Journal.Type, "journal.type")
	fillDefault(&appConfig.Journal.Dsn, "journal.dsn")
	fillDefault(&appConfig.Language, "language")

	i18n.Init(appConfig.Language)

	// Tests open their own journal before running a command; leave that one
	// alone.
	if core.IsJournalInitialized() {
		return nil
	}
	if err := core.InitJournal(appConfig.Journal.Type, appConfig.Journal.Dsn); err != nil {
		return errors.New(i18n.T("config.error_init_journal", err))
	}
	return nil
}

// fillDefault replaces an empty config field with its default value and
// mirrors it into viper so a later save writes the complete config.
func fillDefault(field *string, key string) {
	if *field != "" {
		return
	}
	*field = configDefaults[key].(string)
	viper.Set(key, *field)
}

// Execute runs the CLI entrypoint. The root main package calls this and
// handles process exit.
func Execute() error {
	// Interrupts cancel the command context so a provisioning run stops at
	// the next step boundary and is journaled as interrupted.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return NewRootCmd().ExecuteContext(ctx)
}

// applyDefaultFlags registers the journal connection flags on a command.
// The subcommands are package-level while NewRootCmd may run several times
// in tests, and pflag panics on redefinition, so existing flags stay as
// they are.
func applyDefaultFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	if flags.Lookup("journal.type") == nil {
		flags.String("journal.type", "sqlite", "Journal database type (e.g., sqlite, postgres)")
	}
	if flags.Lookup("journal.dsn") == nil {
		flags.String("journal.dsn", "./groundwork.db", "Journal database connection string (DSN)")
	}
}

// getConfigPathFromCli returns the config file path when the user passed
// --config explicitly, nil otherwise.
func getConfigPathFromCli(cmd *cobra.Command) (*string, error) {
	if !cmd.Flags().Changed("config") {
		return nil, nil
	}
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, fmt.Errorf("could not read --config flag: %w", err)
	}
	if path == "" {
		return nil, nil
	}
	// Fail early on a bad path instead of silently falling back to the
	// default config locations.
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file %s is not accessible: %w", path, err)
	}
	return &path, nil
}

// displayVersion builds the composite version string shown by --version and
// by cobra's version template, e.g. "v1.4.0 (ab12cd3) built: 2025-11-02..".
func displayVersion() string {
	v, c, d := resolveBuildVersion(nil)
	out := v
	if c != "" && c != "dev" {
		out += " (" + c + ")"
	}
	if d != "" {
		out += " built: " + d
	}
	return out
}

// NewRootCmd creates and configures a new root cobra command. The binary
// calls it once via Execute; tests create fresh instances for isolation.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "groundwork",
		Short: "Groundwork prepares a machine to run a Python backend service.",
		Long: `Groundwork provisions a host for a Python backend service.
A declarative profile describes what the service needs: system packages,
a Python toolchain, a project checkout, an environment file, dependencies,
working directories and helper scripts. Groundwork derives an ordered step
plan from the profile and executes it fail-fast, locally or over SSH, and
records every run in a journal database.

Running without a subcommand will launch the interactive TUI.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if showVersionFlag {
				fmt.Println(displayVersion())
				os.Exit(0)
			}
			if verbose {
				core.SetJournalDebug(true)
			}
			return setupDefaultServices(cmd, args)
		},
		Run: func(cmd *cobra.Command, args []string) {
			// PersistentPreRunE has already opened the journal and loaded
			// i18n. The TUI needs a terminal; piped invocations get the
			// help text instead.
			if !term.IsTerminal(int(os.Stdin.Fd())) {
				_ = cmd.Help()
				return
			}
			tui.Run()
		},
	}
	cmd.Version = displayVersion()

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output (sets -v for journal logs)")
	cmd.PersistentFlags().BoolVarP(&showVersionFlag, "version", "V", false, "Print version and exit")
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file")
	cmd.PersistentFlags().String("language", "en", `UI language ("en", "de")`)
	applyDefaultFlags(cmd)

	registerProvisionFlags()
	registerJournalFlags()
	registerEnvCommands()
	registerProfileCommands()

	cmd.AddCommand(
		upCmd,
		planCmd,
		doctorCmd,
		historyCmd,
		showCmd,
		envCmd,
		profileCmd,
		trustHostCmd,
		backupCmd,
		restoreCmd,
		migrateCmd,
		dbMaintainCmd,
		debugCmd,
		versionCmd,
	)

	return cmd
}

// registerProvisionFlags defines the flags of the provisioning subcommands.
// Guarded like applyDefaultFlags because the commands are package-level.
func registerProvisionFlags() {
	applyDefaultFlags(upCmd)
	if upCmd.Flags().Lookup("profile") == nil {
		upCmd.Flags().StringP("profile", "p", "", "Path to the provisioning profile (default: built-in profile)")
		upCmd.Flags().StringP("target", "t", "local", `Target host: "local" or user@host[:port]`)
		upCmd.Flags().BoolP("dry-run", "n", false, "Print the plan without executing it")
		upCmd.Flags().Bool("verify", false, "Probe the profile's health URL after provisioning")
		upCmd.Flags().StringP("identity", "i", "", "SSH identity file for remote targets")
	}

	applyDefaultFlags(planCmd)
	if planCmd.Flags().Lookup("profile") == nil {
		planCmd.Flags().StringP("profile", "p", "", "Path to the provisioning profile (default: built-in profile)")
		planCmd.Flags().Bool("verify", false, "Include the health-check step in the plan")
	}

	applyDefaultFlags(doctorCmd)
	if doctorCmd.Flags().Lookup("profile") == nil {
		doctorCmd.Flags().StringP("profile", "p", "", "Path to the provisioning profile (default: built-in profile)")
		doctorCmd.Flags().StringP("target", "t", "local", `Target host: "local" or user@host[:port]`)
		doctorCmd.Flags().StringP("identity", "i", "", "SSH identity file for remote targets")
	}

	applyDefaultFlags(historyCmd)
	if historyCmd.Flags().Lookup("filter") == nil {
		historyCmd.Flags().StringP("filter", "f", "", "Filter expression or free-text search")
		historyCmd.Flags().Int("limit", 0, "Show at most this many runs (0 means all)")
	}

	applyDefaultFlags(showCmd)
	applyDefaultFlags(trustHostCmd)
}

// registerJournalFlags defines the flags of the journal maintenance
// subcommands.
func registerJournalFlags() {
	applyDefaultFlags(dbMaintainCmd)
	if dbMaintainCmd.Flags().Lookup("skip-integrity") == nil {
		dbMaintainCmd.Flags().Bool("skip-integrity", false, "Skip integrity_check (SQLite) during maintenance")
		dbMaintainCmd.Flags().Int("timeout", 0, "Timeout in seconds for maintenance (0 means no timeout)")
	}

	applyDefaultFlags(backupCmd)

	applyDefaultFlags(restoreCmd)
	if restoreCmd.Flags().Lookup("full") == nil {
		restoreCmd.Flags().BoolVar(&fullRestore, "full", false, "Perform a full, destructive restore (wipes all existing data first)")
	}

	// Migrate keeps the journal.* flags for the source and takes the target
	// database on dedicated flags so the two cannot be confused.
	applyDefaultFlags(migrateCmd)
	if migrateCmd.Flags().Lookup("type") == nil {
		migrateCmd.Flags().String("type", "", "Target journal database type (sqlite, postgres, mysql)")
		migrateCmd.Flags().String("dsn", "", "Target journal DSN")
	}
}

// versionCmd prints the resolved build metadata one field per line, for
// users and CI scripts.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		v, c, d := resolveBuildVersion(nil)
		fmt.Printf("version: %s\n", v)
		fmt.Printf("commit: %s\n", c)
		if d != "" {
			fmt.Printf("built: %s\n", d)
		}
	},
}

// resolveBuildVersion computes the best available version, commit and build
// date for the running binary. A nil info reads the runtime's build info;
// tests pass a synthetic one.
func resolveBuildVersion(info *debug.BuildInfo) (string, string, string) {
	// buildvars is stamped by the release pipeline; the package-local vars
	// cover builds that link -X against this package directly.
	v := buildvars.VersionOrDefault(version)
	commit := gitCommit
	date := buildDate

	if info == nil {
		info, _ = debug.ReadBuildInfo()
	}
	if info != nil {
		if mv := info.Main.Version; mv != "" && mv != "(devel)" {
			v = mv
		}
		if v == "dev" || v == "(devel)" {
			// Some build paths leave Main blank but list the module among
			// the dependencies.
			for _, dep := range info.Deps {
				if dep.Path == "github.com/groundwork-sh/groundwork" && dep.Version != "" {
					v = dep.Version
					break
				}
			}
		}
		for _, s := range info.Settings {
			if s.Value == "" {
				continue
			}
			switch s.Key {
			case "vcs.revision":
				commit = s.Value
			case "vcs.time":
				date = s.Value
			}
		}
	}

	// Nothing found anywhere. An ldflags commit alone still helps support.
	if v == "dev" && gitCommit != "dev" && gitCommit != "" {
		v = gitCommit
	}
	return v, commit, date
}

// runnerOptions builds the runner options for a target, carrying any
// passphrase unlocked earlier in this session.
func runnerOptions(identity string) runner.Options {
	return runner.Options{
		IdentityFile: identity,
		Passphrase:   security.FromBytes(state.PassphraseCache.Get()),
	}
}

// promptPassphrase asks for the identity file's passphrase on the terminal.
// Non-interactive invocations get no prompt and keep their original error.
func promptPassphrase(identityFile string) ([]byte, bool) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return nil, false
	}
	fmt.Printf("Enter passphrase for %s: ", identityFile)
	pass, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil || len(pass) == 0 {
		return nil, false
	}
	return pass, true
}

// upCmd represents the 'up' command. It derives the step plan from the
// profile and executes it against the target, journaling every step.
var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Provision the target for the profile's service",
	Long: `Connects to the target (the local machine by default), derives the ordered
step plan from the profile and executes it fail-fast: the first failing
must-succeed step aborts the run and later steps are skipped. Every run is
recorded in the journal with per-step results.

Provisioning requires root privileges on the target; the preflight step
aborts the run before anything is changed otherwise.

Examples:
  # Provision this machine with the built-in profile
  sudo groundwork up

  # Show what would run, without touching anything
  groundwork up --dry-run

  # Provision a remote host with a custom profile
  groundwork up --profile ./notes-api.yaml --target root@203.0.113.10`,
	Args:    cobra.NoArgs,
	PreRunE: setupDefaultServices,
	Run: func(cmd *cobra.Command, args []string) {
		profilePath, _ := cmd.Flags().GetString("profile")
		target, _ := cmd.Flags().GetString("target")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		verify, _ := cmd.Flags().GetBool("verify")
		identity, _ := cmd.Flags().GetString("identity")

		if profilePath == "" {
			profilePath = appConfig.Profile
		}
		p, err := core.ResolveProfile(profilePath)
		if err != nil {
			log.Fatalf("%s", i18n.T("up.error_profile", err))
		}

		if dryRun {
			printPlan(p, verify)
			return
		}

		opts := core.ProvisionOptions{
			Profile: p,
			Target:  target,
			Runner:  runnerOptions(identity),
			Verify:  verify,
		}

		fmt.Println(i18n.T("up.starting", p.Service, target))
		res, rerr := core.RunProvision(cmd.Context(), opts, core.DefaultJournal(), &cliStepReporter{})
		if errors.Is(rerr, runner.ErrPassphraseRequired) {
			if pass, ok := promptPassphrase(identity); ok {
				state.PassphraseCache.Set(pass)
				opts.Runner = runnerOptions(identity)
				res, rerr = core.RunProvision(cmd.Context(), opts, core.DefaultJournal(), &cliStepReporter{})
			}
		}
		if rerr != nil {
			if errors.Is(rerr, engine.ErrInterrupted) {
				log.Fatalf("%s", i18n.T("up.interrupted"))
			}
			if res != nil && res.Run.FailedStep != "" {
				log.Fatalf("%s", i18n.T("up.failed", res.Run.FailedStep, rerr))
			}
			log.Fatalf("%s", i18n.T("up.error_connect", rerr))
		}
		fmt.Printf("%s\n", i18n.T("up.success", p.Service, res.Run.Target))
	},
}

// planCmd represents the 'plan' command. It prints the ordered steps the
// profile would produce without connecting to any target.
var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Print the provisioning plan for a profile",
	Long: `Derives the ordered step plan from the profile and prints it without
connecting to any target. Best-effort steps are marked; they warn on
failure instead of aborting the run.`,
	Args:    cobra.NoArgs,
	PreRunE: setupDefaultServices,
	Run: func(cmd *cobra.Command, args []string) {
		profilePath, _ := cmd.Flags().GetString("profile")
		verify, _ := cmd.Flags().GetBool("verify")

		if profilePath == "" {
			profilePath = appConfig.Profile
		}
		p, err := core.ResolveProfile(profilePath)
		if err != nil {
			log.Fatalf("%s", i18n.T("up.error_profile", err))
		}
		printPlan(p, verify)
	},
}

// printPlan renders the plan listing shared by `plan` and `up --dry-run`.
func printPlan(p *profile.Profile, verify bool) {
	steps := core.BuildProvisionPlan(p, verify)
	fmt.Println(i18n.T("plan.header", p.Service, len(steps)))
	for _, s := range steps {
		marker := ""
		if s.BestEffort {
			marker = " " + i18n.T("plan.best_effort")
		}
		fmt.Printf("  %2d. %-16s %s%s\n", s.Position+1, s.Name, s.Title, marker)
	}
}

// doctorCmd represents the 'doctor' command. It inspects a target read-only
// and reports layout, interpreter and environment-file drift findings.
var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Inspect a target without changing it",
	Long: `Connects to the target and checks the provisioned state against the
profile: project layout, virtual environment, dependency manifest, the
Python interpreter and environment-file drift. Nothing is modified;
detected drift is recorded in the audit trail.`,
	Args:    cobra.NoArgs,
	PreRunE: setupDefaultServices,
	Run: func(cmd *cobra.Command, args []string) {
		profilePath, _ := cmd.Flags().GetString("profile")
		target, _ := cmd.Flags().GetString("target")
		identity, _ := cmd.Flags().GetString("identity")

		if profilePath == "" {
			profilePath = appConfig.Profile
		}
		p, err := core.ResolveProfile(profilePath)
		if err != nil {
			log.Fatalf("%s", i18n.T("up.error_profile", err))
		}

		r, err := runner.ConnectFunc(target, runnerOptions(identity))
		if errors.Is(err, runner.ErrPassphraseRequired) {
			if pass, ok := promptPassphrase(identity); ok {
				state.PassphraseCache.Set(pass)
				r, err = runner.ConnectFunc(target, runnerOptions(identity))
			}
		}
		if err != nil {
			log.Fatalf("%s", i18n.T("doctor.error_connect", target, err))
		}
		defer func() { _ = r.Close() }()

		report, err := core.RunDoctorCmd(cmd.Context(), p, r)
		if err != nil {
			log.Fatalf("%s", i18n.T("doctor.error_inspect", err))
		}
		printDoctorReport(report)
		if !report.Healthy() {
			os.Exit(1)
		}
	},
}

// printDoctorReport renders a doctor report as a labeled checklist.
func printDoctorReport(d *core.DoctorReport) {
	const labelWidth = 16
	yesNo := func(ok bool) string {
		if ok {
			return i18n.T("doctor.check_ok")
		}
		return i18n.T("doctor.check_missing")
	}

	fmt.Println(core.FormatLabelPadding("Target", d.Target, labelWidth))
	fmt.Println(core.FormatLabelPadding("Service", d.Service, labelWidth))
	fmt.Println(core.FormatLabelPadding("Project dir", yesNo(d.ProjectDirExists), labelWidth))
	fmt.Println(core.FormatLabelPadding("App dir", yesNo(d.AppDirExists), labelWidth))
	fmt.Println(core.FormatLabelPadding("Virtualenv", yesNo(d.VenvExists), labelWidth))
	fmt.Println(core.FormatLabelPadding("Manifest", yesNo(d.ManifestExists), labelWidth))
	python := d.PythonVersion
	if python == "" {
		python = i18n.T("doctor.check_missing")
	}
	fmt.Println(core.FormatLabelPadding("Python", python, labelWidth))
	if d.Drift != nil {
		fmt.Println(core.FormatLabelPadding("Env file", d.Drift.Summary(), labelWidth))
	}

	if d.Healthy() {
		fmt.Printf("\n%s\n", i18n.T("doctor.healthy", d.Service))
	} else {
		fmt.Printf("\n%s\n", i18n.T("doctor.unhealthy", d.Service))
	}
}

// promptForConfirmation displays a prompt and reads one lowercased line
// from stdin.
func promptForConfirmation(prompt string) string {
	fmt.Print(prompt)
	reader := bufio.NewReader(os.Stdin)
	answer, _ := reader.ReadString('\n')
	return strings.TrimSpace(strings.ToLower(answer))
}

// defaultHostFetcher is swapped out in tests for a canned fetcher. The real
// one scans the host's SSH port.
var defaultHostFetcher = core.DefaultHostFetcher

// hostFromTarget strips a user@ prefix from a target argument.
func hostFromTarget(target string) string {
	if _, host, ok := strings.Cut(target, "@"); ok {
		return host
	}
	return target
}

// trustHostCmd fetches a host's public SSH key, shows its fingerprint and,
// on confirmation, pins it in the journal. Remote provisioning refuses
// hosts that have not been through this step.
var trustHostCmd = &cobra.Command{
	Use:   "trust-host <user@host>",
	Short: "Adds a host's public key to the list of known hosts",
	Long: `Connects to a host for the first time, retrieves its public key,
and prompts the user to save it to the journal. This is a required
step before Groundwork can provision a new remote host.`,
	Args:    cobra.ExactArgs(1),
	PreRunE: setupDefaultServices,
	Run: func(cmd *cobra.Command, args []string) {
		hostname := hostFromTarget(args[0])

		fmt.Printf("Attempting to retrieve host key from %s…\n", hostname)
		keyStr, err := core.RunTrustHostCmd(cmd.Context(), hostname, defaultHostFetcher(), core.DefaultJournal(), false)
		if err != nil {
			log.Fatalf("%s", i18n.T("trust_host.error_get_key", err))
		}

		// The dialog mirrors OpenSSH's first-contact prompt.
		if pubKey, _, _, _, perr := ssh.ParseAuthorizedKey([]byte(keyStr)); perr == nil {
			fmt.Printf("The authenticity of host '%s' can't be established.\n", hostname)
			fmt.Printf("Key fingerprint: %s\n", ssh.FingerprintSHA256(pubKey))
		}

		switch promptForConfirmation("Are you sure you want to continue connecting (yes/no)? ") {
		case "yes", "y":
		default:
			fmt.Println("Cancelled.")
			return
		}

		if err := core.DefaultJournal().AddKnownHostKey(hostname, keyStr); err != nil {
			log.Fatalf("%s", i18n.T("trust_host.error_save_key", err))
		}
		fmt.Printf("Warning: Permanently added '%s' to the list of known hosts.\n", hostname)
	},
}
