// Copyright (c) 2025 Groundwork Team
// Groundwork - server environment bootstrapper
// This source code is licensed under the MIT license found in the LICENSE file.

package runner

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/crypto/ssh"

	"github.com/groundwork-sh/groundwork/internal/security"
)

func writeTestKey(t *testing.T, passphrase string) string {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}

	var block *pem.Block
	if passphrase == "" {
		block, err = ssh.MarshalPrivateKey(priv, "groundwork-test")
	} else {
		block, err = ssh.MarshalPrivateKeyWithPassphrase(priv, "groundwork-test", []byte(passphrase))
	}
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "id_ed25519")
	if err := os.WriteFile(path, pem.EncodeToMemory(block), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestNewRemoteMissingIdentityFile(t *testing.T) {
	target := Target{User: "root", Host: "198.51.100.1", Port: "22"}
	_, err := NewRemote(target, Options{IdentityFile: "/nonexistent/id_ed25519"})
	if err == nil {
		t.Fatal("expected error for missing identity file")
	}
}

func TestNewRemoteGarbageIdentityFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage")
	if err := os.WriteFile(path, []byte("not a key"), 0600); err != nil {
		t.Fatal(err)
	}
	target := Target{User: "root", Host: "198.51.100.1", Port: "22"}
	_, err := NewRemote(target, Options{IdentityFile: path})
	if err == nil {
		t.Fatal("expected error for unparseable identity file")
	}
}

func TestNewRemoteEncryptedKeyNeedsPassphrase(t *testing.T) {
	keyPath := writeTestKey(t, "hunter2")
	target := Target{User: "root", Host: "198.51.100.1", Port: "22"}

	_, err := NewRemote(target, Options{IdentityFile: keyPath})
	if !errors.Is(err, ErrPassphraseRequired) {
		t.Fatalf("expected ErrPassphraseRequired, got %v", err)
	}
}

func TestNewRemoteWrongPassphrase(t *testing.T) {
	keyPath := writeTestKey(t, "hunter2")
	target := Target{User: "root", Host: "198.51.100.1", Port: "22"}

	_, err := NewRemote(target, Options{IdentityFile: keyPath, Passphrase: security.FromString("wrong")})
	if err == nil {
		t.Fatal("expected error for wrong passphrase")
	}
	if errors.Is(err, ErrPassphraseRequired) {
		t.Fatal("wrong passphrase is not the same as missing passphrase")
	}
}

func TestFormatHostKey(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	sshPub, err := ssh.NewPublicKey(pub)
	if err != nil {
		t.Fatal(err)
	}

	formatted := FormatHostKey(sshPub)
	if formatted == "" {
		t.Fatal("formatted key should not be empty")
	}
	if formatted[len(formatted)-1] == '\n' {
		t.Error("formatted key should be trimmed")
	}

	parsed, _, _, _, err := ssh.ParseAuthorizedKey([]byte(formatted))
	if err != nil {
		t.Fatalf("formatted key should parse back: %v", err)
	}
	if string(parsed.Marshal()) != string(sshPub.Marshal()) {
		t.Error("roundtrip changed the key")
	}
}
