// Copyright (c) 2025 Groundwork Team
// Groundwork - server environment bootstrapper
// This source code is licensed under the MIT license found in the LICENSE file.

package engine

import (
	"context"
	"fmt"

	"github.com/groundwork-sh/groundwork/internal/envfile"
	"github.com/groundwork-sh/groundwork/internal/i18n"
	"github.com/groundwork-sh/groundwork/internal/profile"
	"github.com/groundwork-sh/groundwork/internal/runner"
)

// messageMax bounds step messages persisted to the journal.
const messageMax = 400

// BuildPlan assembles the provisioning plan for a profile. The order is
// fixed: nothing mutates the target before the privilege check passes, the
// environment file is in place before the virtual environment is rebuilt,
// and dependencies install only into a freshly created environment. When
// verify is true and the profile declares a health URL, a best-effort health
// probe runs last.
func BuildPlan(p *profile.Profile, verify bool) []Step {
	plan := []Step{
		{Name: "preflight", TitleKey: "step.preflight.title", Run: stepPreflight},
		{Name: "stop-service", TitleKey: "step.stop_service.title", BestEffort: true, Run: stepStopService(p)},
		{Name: "os-packages", TitleKey: "step.os_packages.title", Run: stepOSPackages(p)},
		{Name: "app-dir", TitleKey: "step.app_dir.title", Run: stepAppDir(p)},
		{Name: "env-file", TitleKey: "step.env_file.title", Run: stepEnvFile(p)},
		{Name: "runtime-env", TitleKey: "step.runtime_env.title", Run: stepRuntimeEnv(p)},
		{Name: "pip-tooling", TitleKey: "step.pip_tooling.title", Run: stepPipTooling(p)},
		{Name: "dependencies", TitleKey: "step.dependencies.title", Run: stepDependencies(p)},
		{Name: "directories", TitleKey: "step.directories.title", Run: stepDirectories(p)},
		{Name: "scripts", TitleKey: "step.scripts.title", Run: stepScripts(p)},
	}
	if verify && p.HealthURL != "" {
		plan = append(plan, Step{Name: "verify", TitleKey: "step.verify.title", BestEffort: true, Run: stepVerify(p)})
	}
	return plan
}

// stepPreflight confirms the run acts as root before anything mutates the
// target. It is always the first step; everything before it is read-only.
func stepPreflight(ctx context.Context, r runner.Runner) (string, error) {
	privileged, err := runner.IsPrivileged(ctx, r)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNotPrivileged, err)
	}
	if !privileged {
		return "", fmt.Errorf("%w on %s", ErrNotPrivileged, r.Name())
	}
	return i18n.T("step.preflight.ok"), nil
}

// stepStopService stops a previously running instance. Best effort: a target
// that has never run the service has nothing to stop, and pkill reports that
// with exit code 1.
func stepStopService(p *profile.Profile) func(context.Context, runner.Runner) (string, error) {
	return func(ctx context.Context, r runner.Runner) (string, error) {
		res, err := r.Run(ctx, "pkill", "-f", p.ProcessMatch)
		if err != nil {
			return "", err
		}
		switch res.ExitCode {
		case 0:
			return i18n.T("step.stop_service.stopped"), nil
		case 1:
			return i18n.T("step.stop_service.not_running"), nil
		default:
			return "", fmt.Errorf("pkill exited with %d: %s", res.ExitCode, tail(res.Output(), messageMax))
		}
	}
}

// stepOSPackages installs the profile's OS packages. The index refresh is
// tolerated to fail (mirrors go away); the install itself must succeed.
// apt-get install is idempotent, so rerunning on a prepared host is a no-op.
func stepOSPackages(p *profile.Profile) func(context.Context, runner.Runner) (string, error) {
	return func(ctx context.Context, r runner.Runner) (string, error) {
		// A failed index refresh is not fatal; install continues with
		// whatever the package cache has.
		if _, err := r.Run(ctx, "env", "DEBIAN_FRONTEND=noninteractive", "apt-get", "update", "-q"); err != nil {
			return "", err
		}

		args := []string{"DEBIAN_FRONTEND=noninteractive", "apt-get", "install", "-y", "-q"}
		args = append(args, p.Packages...)
		res, err := r.Run(ctx, "env", args...)
		if err != nil {
			return "", err
		}
		if res.ExitCode != 0 {
			return "", fmt.Errorf("apt-get install failed: %s", tail(res.Output(), messageMax))
		}
		return fmt.Sprintf(i18n.T("step.os_packages.installed"), len(p.Packages)), nil
	}
}

// stepAppDir verifies the project checkout and its runtime subfolder exist.
// Groundwork prepares environments; it does not fetch code, so a missing
// directory stops the run before any environment state is touched.
func stepAppDir(p *profile.Profile) func(context.Context, runner.Runner) (string, error) {
	return func(ctx context.Context, r runner.Runner) (string, error) {
		ok, err := r.DirExists(p.ProjectDir)
		if err != nil {
			return "", err
		}
		if !ok {
			return "", fmt.Errorf("%w: %s", ErrProjectDirMissing, p.ProjectDir)
		}
		ok, err = r.DirExists(p.AppPath())
		if err != nil {
			return "", err
		}
		if !ok {
			return "", fmt.Errorf("%w: %s", ErrProjectDirMissing, p.AppPath())
		}
		return p.AppPath(), nil
	}
}

// stepEnvFile writes the rendered environment file. The file is replaced
// wholesale on every run; values an operator wants to keep belong in the
// profile.
func stepEnvFile(p *profile.Profile) func(context.Context, runner.Runner) (string, error) {
	return func(ctx context.Context, r runner.Runner) (string, error) {
		content := envfile.Render(p)
		if err := r.WriteFile(p.EnvFilePath(), []byte(content), 0600); err != nil {
			return "", fmt.Errorf("could not write %s: %w", p.EnvFilePath(), err)
		}
		return fmt.Sprintf(i18n.T("step.env_file.written"), p.EnvFilePath(), len(p.Env)), nil
	}
}

// stepRuntimeEnv recreates the virtual environment from scratch. A stale or
// half-broken venv is worthless, so the old one is removed first.
func stepRuntimeEnv(p *profile.Profile) func(context.Context, runner.Runner) (string, error) {
	return func(ctx context.Context, r runner.Runner) (string, error) {
		if err := r.RemoveAll(p.VenvPath()); err != nil {
			return "", fmt.Errorf("%w: could not remove old environment: %v", ErrRuntimeCreate, err)
		}
		res, err := r.Run(ctx, p.Python, "-m", "venv", p.VenvPath())
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrRuntimeCreate, err)
		}
		if res.ExitCode != 0 {
			return "", fmt.Errorf("%w: %s", ErrRuntimeCreate, tail(res.Output(), messageMax))
		}
		ok, err := r.FileExists(p.PythonBin())
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrRuntimeCreate, err)
		}
		if !ok {
			return "", fmt.Errorf("%w: %s missing after venv creation", ErrRuntimeCreate, p.PythonBin())
		}
		return p.VenvPath(), nil
	}
}

// stepPipTooling upgrades pip, setuptools and wheel inside the fresh
// environment so manifest installation runs with current tooling.
func stepPipTooling(p *profile.Profile) func(context.Context, runner.Runner) (string, error) {
	return func(ctx context.Context, r runner.Runner) (string, error) {
		res, err := r.Run(ctx, p.PythonBin(), "-m", "pip", "install", "--upgrade", "--quiet", "pip", "setuptools", "wheel")
		if err != nil {
			return "", err
		}
		if res.ExitCode != 0 {
			return "", fmt.Errorf("pip tooling upgrade failed: %s", tail(res.Output(), messageMax))
		}
		return i18n.T("step.pip_tooling.upgraded"), nil
	}
}

// stepDependencies installs the dependency manifest into the environment.
func stepDependencies(p *profile.Profile) func(context.Context, runner.Runner) (string, error) {
	return func(ctx context.Context, r runner.Runner) (string, error) {
		ok, err := r.FileExists(p.ManifestPath())
		if err != nil {
			return "", err
		}
		if !ok {
			return "", fmt.Errorf("%w: manifest %s not found", ErrDependencyInstall, p.ManifestPath())
		}
		res, err := r.Run(ctx, p.PipBin(), "install", "--quiet", "-r", p.ManifestPath())
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrDependencyInstall, err)
		}
		if res.ExitCode != 0 {
			return "", fmt.Errorf("%w: %s", ErrDependencyInstall, tail(res.Output(), messageMax))
		}
		return fmt.Sprintf(i18n.T("step.dependencies.installed"), p.Manifest), nil
	}
}

// stepDirectories creates the working directories the service expects at
// startup. MkdirAll makes this idempotent.
func stepDirectories(p *profile.Profile) func(context.Context, runner.Runner) (string, error) {
	return func(ctx context.Context, r runner.Runner) (string, error) {
		dirs := p.DirectoryPaths()
		for _, dir := range dirs {
			if err := r.MkdirAll(dir, 0755); err != nil {
				return "", fmt.Errorf("could not create %s: %w", dir, err)
			}
		}
		return fmt.Sprintf(i18n.T("step.directories.created"), len(dirs)), nil
	}
}

// stepScripts marks the profile's helper scripts executable. A profile
// without scripts, or a glob with no matches, passes trivially.
func stepScripts(p *profile.Profile) func(context.Context, runner.Runner) (string, error) {
	return func(ctx context.Context, r runner.Runner) (string, error) {
		pattern := p.ScriptsPattern()
		if pattern == "" {
			return i18n.T("step.scripts.none_declared"), nil
		}
		matches, err := r.Glob(pattern)
		if err != nil {
			return "", fmt.Errorf("could not expand %s: %w", pattern, err)
		}
		for _, script := range matches {
			if err := r.Chmod(script, 0755); err != nil {
				return "", fmt.Errorf("could not chmod %s: %w", script, err)
			}
		}
		return fmt.Sprintf(i18n.T("step.scripts.marked"), len(matches)), nil
	}
}

// stepVerify probes the service health URL through the freshly built
// interpreter, so it checks exactly what the service will run with. Best
// effort: provisioning does not start the service, so the probe may find
// nothing listening.
func stepVerify(p *profile.Profile) func(context.Context, runner.Runner) (string, error) {
	return func(ctx context.Context, r runner.Runner) (string, error) {
		probe := fmt.Sprintf(
			"import sys, urllib.request\n"+
				"try:\n"+
				"    r = urllib.request.urlopen(%q, timeout=5)\n"+
				"    sys.exit(0 if r.status < 500 else 1)\n"+
				"except Exception as e:\n"+
				"    print(e)\n"+
				"    sys.exit(1)\n",
			p.HealthURL)
		res, err := r.Run(ctx, p.PythonBin(), "-c", probe)
		if err != nil {
			return "", err
		}
		if res.ExitCode != 0 {
			return "", fmt.Errorf("health probe %s failed: %s", p.HealthURL, tail(res.Output(), messageMax))
		}
		return fmt.Sprintf(i18n.T("step.verify.healthy"), p.HealthURL), nil
	}
}

// StepNames returns the plan's step names in execution order, for plan
// previews.
func StepNames(plan []Step) []string {
	names := make([]string, len(plan))
	for i, s := range plan {
		names[i] = s.Name
	}
	return names
}
