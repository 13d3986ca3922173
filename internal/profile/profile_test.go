// Copyright (c) 2025 Groundwork Team
// Groundwork - server environment bootstrapper
// This source code is licensed under the MIT license found in the LICENSE file.

package profile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultProfileIsValid(t *testing.T) {
	p := Default()
	if err := p.Validate(); err != nil {
		t.Fatalf("default profile should validate, got %v", err)
	}
	if p.Env[0].Key != "HOST" || p.Env[1].Key != "PORT" {
		t.Errorf("default env schema must start with HOST, PORT, got %s, %s", p.Env[0].Key, p.Env[1].Key)
	}
}

func TestSaveLoadRoundtrip(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "profile.yaml")

	p := Default()
	p.Service = "photo-api"
	p.HealthURL = "http://127.0.0.1:8000/health"
	if err := p.Save(file); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := Load(file)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded.Service != "photo-api" {
		t.Errorf("expected service photo-api, got %s", loaded.Service)
	}
	if loaded.HealthURL != "http://127.0.0.1:8000/health" {
		t.Errorf("health URL did not survive roundtrip: %s", loaded.HealthURL)
	}
	if len(loaded.Env) != len(p.Env) {
		t.Fatalf("env schema length changed: %d != %d", len(loaded.Env), len(p.Env))
	}
	for i := range p.Env {
		if loaded.Env[i].Key != p.Env[i].Key {
			t.Errorf("env order changed at %d: %s != %s", i, loaded.Env[i].Key, p.Env[i].Key)
		}
	}
}

func TestLoadRejectsInvalidProfile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "bad.yaml")
	content := "service: Bad Name\npython: python3.11\n"
	if err := os.WriteFile(file, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(file); err == nil {
		t.Fatal("expected validation error for invalid service name")
	}
}

func TestValidateRejectsRelativeProjectDir(t *testing.T) {
	p := Default()
	p.ProjectDir = "opt/gallery"
	err := p.Validate()
	if err == nil {
		t.Fatal("expected error for relative project_dir")
	}
	if !strings.Contains(err.Error(), "project_dir") {
		t.Errorf("error should name project_dir, got %v", err)
	}
}

func TestValidateRejectsEscapingAppDir(t *testing.T) {
	p := Default()
	p.AppDir = "../elsewhere"
	if err := p.Validate(); err == nil {
		t.Fatal("expected error for app_dir escaping the project")
	}
}

func TestValidateRejectsDuplicateEnvKeys(t *testing.T) {
	p := Default()
	p.Env = append(p.Env, EnvVar{Key: "PORT", Value: "9000"})
	err := p.Validate()
	if err == nil {
		t.Fatal("expected error for duplicate env key")
	}
	if !strings.Contains(err.Error(), "PORT") {
		t.Errorf("error should name the duplicate key, got %v", err)
	}
}

func TestValidateRejectsBadEnvKey(t *testing.T) {
	p := Default()
	p.Env = append(p.Env, EnvVar{Key: "lower_case", Value: "x"})
	if err := p.Validate(); err == nil {
		t.Fatal("expected error for lowercase env key")
	}
}

func TestValidateRejectsBadHealthURL(t *testing.T) {
	p := Default()
	p.HealthURL = "ftp://example.com/health"
	if err := p.Validate(); err == nil {
		t.Fatal("expected error for non-http health URL")
	}
}

func TestTargetPaths(t *testing.T) {
	p := Default()
	if got := p.AppPath(); got != "/opt/gallery/backend" {
		t.Errorf("AppPath = %s", got)
	}
	if got := p.VenvPath(); got != "/opt/gallery/backend/venv" {
		t.Errorf("VenvPath = %s", got)
	}
	if got := p.ManifestPath(); got != "/opt/gallery/backend/requirements.txt" {
		t.Errorf("ManifestPath = %s", got)
	}
	if got := p.EnvFilePath(); got != "/opt/gallery/backend/.env" {
		t.Errorf("EnvFilePath = %s", got)
	}
	if got := p.PipBin(); got != "/opt/gallery/backend/venv/bin/pip" {
		t.Errorf("PipBin = %s", got)
	}
	dirs := p.DirectoryPaths()
	if len(dirs) != 3 || dirs[0] != "/opt/gallery/backend/cache" {
		t.Errorf("DirectoryPaths = %v", dirs)
	}
	if got := p.ScriptsPattern(); got != "/opt/gallery/backend/*.sh" {
		t.Errorf("ScriptsPattern = %s", got)
	}
}
