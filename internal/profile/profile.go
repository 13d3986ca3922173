// Copyright (c) 2025 Groundwork Team
// Groundwork - server environment bootstrapper
// This source code is licensed under the MIT license found in the LICENSE file.

// package profile defines the declarative provisioning profile that drives a
// Groundwork run. A profile describes what the target service needs: system
// packages, a Python toolchain, the project layout, an ordered environment
// schema, working directories and helper scripts. Profiles are YAML documents;
// the env schema is a list, not a map, because its order is contractual.
package profile

import (
	"fmt"
	"os"
	"path"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goccy/go-yaml"
)

// EnvVar is a single entry of the environment schema. Secret entries are
// rendered blank for manual completion and masked in UIs.
type EnvVar struct {
	Key    string `yaml:"key"`
	Value  string `yaml:"value"`
	Secret bool   `yaml:"secret,omitempty"`
}

// Profile describes everything needed to prepare a host for one service.
// All target paths are POSIX; Groundwork provisions Linux hosts.
type Profile struct {
	Service      string   `yaml:"service"`       // short name, e.g. gallery-backend
	ProcessMatch string   `yaml:"process_match"` // pattern for stopping a prior instance
	Python       string   `yaml:"python"`        // interpreter the venv is bound to
	Packages     []string `yaml:"packages"`      // OS packages to install
	ProjectDir   string   `yaml:"project_dir"`   // absolute path of the project checkout
	AppDir       string   `yaml:"app_dir"`       // runtime subfolder relative to project_dir
	VenvDir      string   `yaml:"venv_dir"`      // venv directory relative to the app dir
	Manifest     string   `yaml:"manifest"`      // dependency manifest relative to the app dir
	EnvFile      string   `yaml:"env_file"`      // environment file name relative to the app dir
	Env          []EnvVar `yaml:"env"`           // ordered environment schema
	Directories  []string `yaml:"directories"`   // working dirs to create relative to the app dir
	Scripts      string   `yaml:"scripts"`       // glob of helper scripts relative to the app dir
	HealthURL    string   `yaml:"health_url,omitempty"`
}

// Default returns the profile Groundwork ships with: the gallery backend this
// tool was first built for. The server address and port live here rather than
// in code so other deployments can override them.
func Default() *Profile {
	return &Profile{
		Service:      "gallery-backend",
		ProcessMatch: "uvicorn main:app",
		Python:       "python3.11",
		Packages: []string{
			"python3.11",
			"python3.11-venv",
			"python3.11-dev",
			"python3-pip",
			"build-essential",
			"libpq-dev",
		},
		ProjectDir: "/opt/gallery",
		AppDir:     "backend",
		VenvDir:    "venv",
		Manifest:   "requirements.txt",
		EnvFile:    ".env",
		Env: []EnvVar{
			{Key: "HOST", Value: "0.0.0.0"},
			{Key: "PORT", Value: "8000"},
			{Key: "SERVER_IP", Value: "203.0.113.10"},
			{Key: "GOOGLE_CLIENT_ID", Value: ""},
			{Key: "GOOGLE_CLIENT_SECRET", Value: "", Secret: true},
			{Key: "JWT_SECRET", Value: "", Secret: true},
			{Key: "ALLOWED_ORIGINS", Value: "http://localhost:3000"},
			{Key: "DATABASE_URL", Value: "postgresql://localhost:5432/gallery"},
			{Key: "DATABASE_USER", Value: ""},
			{Key: "DATABASE_PASSWORD", Value: "", Secret: true},
			{Key: "STORAGE_TOKEN", Value: "", Secret: true},
		},
		Directories: []string{"cache", "models", "uploads"},
		Scripts:     "*.sh",
	}
}

// Load reads and validates a profile from a YAML file.
func Load(filePath string) (*Profile, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("could not read profile %s: %w", filePath, err)
	}
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("could not parse profile %s: %w", filePath, err)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid profile %s: %w", filePath, err)
	}
	return &p, nil
}

// Save writes the profile as YAML. Used by `profile init` to drop a starter
// file an operator can edit.
func (p *Profile) Save(filePath string) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return err
	}
	return os.WriteFile(filePath, data, 0644)
}

var (
	serviceRe = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)
	pythonRe  = regexp.MustCompile(`^python3(\.\d+)?$`)
	envKeyRe  = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)
)

// Validate checks the profile for structural problems before a run starts.
func (p *Profile) Validate() error {
	return validation.ValidateStruct(p,
		validation.Field(&p.Service,
			validation.Required,
			validation.Match(serviceRe).Error("must be a lowercase name like gallery-backend"),
		),
		validation.Field(&p.Python,
			validation.Required,
			validation.Match(pythonRe).Error("must name a python3 interpreter, e.g. python3.11"),
		),
		validation.Field(&p.Packages,
			validation.Required,
			validation.Length(1, 0),
			validation.Each(validation.Required),
		),
		validation.Field(&p.ProjectDir,
			validation.Required,
			validation.By(validateAbsolutePath),
		),
		validation.Field(&p.AppDir,
			validation.Required,
			validation.By(validateRelativePath),
		),
		validation.Field(&p.VenvDir,
			validation.Required,
			validation.By(validateRelativePath),
		),
		validation.Field(&p.Manifest,
			validation.Required,
			validation.By(validateRelativePath),
		),
		validation.Field(&p.EnvFile,
			validation.Required,
			validation.By(validateRelativePath),
		),
		validation.Field(&p.Env,
			validation.Required,
			validation.Length(1, 0),
			validation.Each(validation.By(validateEnvVar)),
			validation.By(validateEnvKeysUnique),
		),
		validation.Field(&p.Directories,
			validation.Each(validation.By(validateRelativePath)),
		),
		validation.Field(&p.HealthURL,
			validation.By(validateHealthURL),
		),
	)
}

func validateAbsolutePath(value interface{}) error {
	s, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}
	if !strings.HasPrefix(s, "/") {
		return validation.NewError("validation_relative_path", "must be an absolute path")
	}
	return nil
}

func validateRelativePath(value interface{}) error {
	s, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}
	if s == "" {
		return nil // Required is checked separately where it applies.
	}
	if strings.HasPrefix(s, "/") {
		return validation.NewError("validation_absolute_path", "must be relative to the project")
	}
	for _, part := range strings.Split(path.Clean(s), "/") {
		if part == ".." {
			return validation.NewError("validation_path_escape", "must not escape the project directory")
		}
	}
	return nil
}

func validateEnvVar(value interface{}) error {
	ev, ok := value.(EnvVar)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be an EnvVar")
	}
	if ev.Key == "" {
		return validation.NewError("validation_empty_key", "env key cannot be empty")
	}
	if !envKeyRe.MatchString(ev.Key) {
		return validation.NewError("validation_invalid_key", "env key must be UPPER_SNAKE_CASE")
	}
	return nil
}

func validateEnvKeysUnique(value interface{}) error {
	env, ok := value.([]EnvVar)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be an env schema")
	}
	seen := make(map[string]struct{}, len(env))
	for _, ev := range env {
		if _, dup := seen[ev.Key]; dup {
			return validation.NewError("validation_duplicate_key", fmt.Sprintf("duplicate env key %s", ev.Key))
		}
		seen[ev.Key] = struct{}{}
	}
	return nil
}

func validateHealthURL(value interface{}) error {
	s, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}
	if s == "" {
		return nil
	}
	if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
		return validation.NewError("validation_invalid_scheme", "health URL must use http or https")
	}
	return nil
}

// AppPath returns the absolute path of the runtime subfolder.
func (p *Profile) AppPath() string {
	return path.Join(p.ProjectDir, p.AppDir)
}

// VenvPath returns the absolute path of the virtual environment directory.
func (p *Profile) VenvPath() string {
	return path.Join(p.AppPath(), p.VenvDir)
}

// ManifestPath returns the absolute path of the dependency manifest.
func (p *Profile) ManifestPath() string {
	return path.Join(p.AppPath(), p.Manifest)
}

// EnvFilePath returns the absolute path of the environment file.
func (p *Profile) EnvFilePath() string {
	return path.Join(p.AppPath(), p.EnvFile)
}

// DirectoryPaths returns the absolute paths of the working directories.
func (p *Profile) DirectoryPaths() []string {
	out := make([]string, 0, len(p.Directories))
	for _, d := range p.Directories {
		out = append(out, path.Join(p.AppPath(), d))
	}
	return out
}

// ScriptsPattern returns the absolute glob for helper scripts, or "" when the
// profile declares none.
func (p *Profile) ScriptsPattern() string {
	if p.Scripts == "" {
		return ""
	}
	return path.Join(p.AppPath(), p.Scripts)
}

// PythonBin returns the path of the interpreter inside the venv.
func (p *Profile) PythonBin() string {
	return path.Join(p.VenvPath(), "bin", "python")
}

// PipBin returns the path of pip inside the venv.
func (p *Profile) PipBin() string {
	return path.Join(p.VenvPath(), "bin", "pip")
}
