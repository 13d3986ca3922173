// Copyright (c) 2025 Groundwork Team
// Groundwork - server environment bootstrapper
// This source code is licensed under the MIT license found in the LICENSE file.

// package model defines the data structures for environment drift detection.
package model

import "strings"

// DriftClassification grades how badly an environment file diverges from
// its profile schema.
type DriftClassification string

const (
	// DriftCritical blocks the provisioned service, e.g. the environment
	// file is gone entirely.
	DriftCritical DriftClassification = "critical"

	// DriftWarning needs attention before the next deploy, e.g. schema
	// keys missing from the file.
	DriftWarning DriftClassification = "warning"

	// DriftInfo is informational, e.g. extra keys Groundwork does not
	// manage.
	DriftInfo DriftClassification = "info"
)

// EnvDriftAnalysis describes how an environment file on disk diverges from
// the profile's declared schema.
type EnvDriftAnalysis struct {
	Classification DriftClassification

	// HasDrift is false only when the file matches the schema exactly.
	HasDrift bool

	// FileMissing: the environment file does not exist at all.
	FileMissing bool

	// HeaderMissing: the management header is absent, which usually means
	// the file was written by hand.
	HeaderMissing bool

	// MissingKeys are schema keys absent from the file.
	MissingKeys []string

	// ExtraKeys are file keys the schema does not declare.
	ExtraKeys []string

	// EmptySecrets are secret-valued schema keys still blank; they need
	// manual completion before the service can start.
	EmptySecrets []string

	// ChangedValues are non-secret schema keys whose file value differs
	// from the profile value.
	ChangedValues []string
}

// IsCritical reports whether the drift blocks the service.
func (d *EnvDriftAnalysis) IsCritical() bool {
	return d.Classification == DriftCritical
}

// IsWarning reports whether the drift needs attention.
func (d *EnvDriftAnalysis) IsWarning() bool {
	return d.Classification == DriftWarning
}

// Summary renders the analysis as a single line for logs and table cells.
func (d *EnvDriftAnalysis) Summary() string {
	if !d.HasDrift {
		return "No drift detected"
	}
	prefix := string(d.Classification) + " drift: "
	if d.FileMissing {
		return prefix + "environment file missing"
	}
	var findings []string
	if d.HeaderMissing {
		findings = append(findings, "management header missing")
	}
	if len(d.MissingKeys) > 0 {
		findings = append(findings, "missing keys")
	}
	if len(d.ExtraKeys) > 0 {
		findings = append(findings, "extra keys")
	}
	if len(d.EmptySecrets) > 0 {
		findings = append(findings, "unset secrets")
	}
	if len(d.ChangedValues) > 0 {
		findings = append(findings, "changed values")
	}
	return prefix + strings.Join(findings, ", ")
}
