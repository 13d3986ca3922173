// Copyright (c) 2025 Groundwork Team
// Groundwork - server environment bootstrapper
// This source code is licensed under the MIT license found in the LICENSE file.

// package envfile renders, parses and audits the environment file Groundwork
// manages on a target. The file is regenerated from the profile's env schema
// on every run; key order is part of the contract, manual edits are not
// preserved. Drift between the schema and what is actually on disk is
// reported through model.EnvDriftAnalysis.
package envfile

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/joho/godotenv"

	"github.com/groundwork-sh/groundwork/internal/model"
	"github.com/groundwork-sh/groundwork/internal/profile"
)

// managedMarker identifies a file Groundwork owns. Its absence on an existing
// file means someone else wrote it.
const managedMarker = "Managed by Groundwork"

// Render produces the full environment file content for a profile. The output
// is deterministic: same profile, same bytes. Secrets the operator has not
// filled in render as empty assignments.
func Render(p *profile.Profile) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("# %s for %s. Do not edit by hand.\n", managedMarker, p.Service))
	b.WriteString("# Values come from the provisioning profile; rerun `groundwork up` after changes.\n")

	for _, ev := range p.Env {
		b.WriteString(ev.Key)
		b.WriteString("=")
		b.WriteString(ev.Value)
		b.WriteString("\n")
	}

	return b.String()
}

// Parse reads environment file content into a key/value map. Order is lost;
// callers that care about order use the profile schema.
func Parse(content string) (map[string]string, error) {
	values, err := godotenv.Unmarshal(content)
	if err != nil {
		return nil, fmt.Errorf("could not parse environment file: %w", err)
	}
	return values, nil
}

// Analyze compares the environment file found on a target against the
// profile's schema. fileExists is false when the target has no file at all.
func Analyze(p *profile.Profile, content string, fileExists bool) *model.EnvDriftAnalysis {
	analysis := &model.EnvDriftAnalysis{
		Classification: model.DriftInfo,
	}

	if !fileExists {
		analysis.HasDrift = true
		analysis.FileMissing = true
		analysis.Classification = model.DriftCritical
		return analysis
	}

	normalized := strings.ReplaceAll(content, "\r\n", "\n")

	if !strings.Contains(normalized, managedMarker) {
		analysis.HasDrift = true
		analysis.HeaderMissing = true
		analysis.Classification = model.DriftCritical
	}

	actual, err := Parse(normalized)
	if err != nil {
		// Unparseable content counts as a missing header: the file is not ours.
		analysis.HasDrift = true
		analysis.HeaderMissing = true
		analysis.Classification = model.DriftCritical
		return analysis
	}

	schema := make(map[string]profile.EnvVar, len(p.Env))
	for _, ev := range p.Env {
		schema[ev.Key] = ev

		value, present := actual[ev.Key]
		if !present {
			analysis.MissingKeys = append(analysis.MissingKeys, ev.Key)
			continue
		}
		if ev.Secret {
			if value == "" {
				analysis.EmptySecrets = append(analysis.EmptySecrets, ev.Key)
			}
			// Secret values are never compared or reported beyond presence.
			continue
		}
		if value != ev.Value {
			analysis.ChangedValues = append(analysis.ChangedValues, ev.Key)
		}
	}

	for key := range actual {
		if _, known := schema[key]; !known {
			analysis.ExtraKeys = append(analysis.ExtraKeys, key)
		}
	}

	if len(analysis.MissingKeys) > 0 || len(analysis.ExtraKeys) > 0 ||
		len(analysis.EmptySecrets) > 0 || len(analysis.ChangedValues) > 0 {
		analysis.HasDrift = true
	}

	if analysis.Classification != model.DriftCritical {
		if len(analysis.MissingKeys) > 0 || len(analysis.EmptySecrets) > 0 {
			analysis.Classification = model.DriftWarning
		} else if len(analysis.ExtraKeys) > 0 || len(analysis.ChangedValues) > 0 {
			analysis.Classification = model.DriftInfo
		}
	}

	return analysis
}

// GenerateSecret returns a URL-safe random token suitable for JWT secrets and
// storage tokens. n is the number of random bytes before encoding; 32 gives a
// 256-bit secret.
func GenerateSecret(n int) (string, error) {
	if n <= 0 {
		n = 32
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("could not gather randomness: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
