// Copyright (c) 2025 Groundwork Team
// Groundwork - server environment bootstrapper
// This source code is licensed under the MIT license found in the LICENSE file.

package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"github.com/groundwork-sh/groundwork/internal/db"
)

var (
	// ErrUnknownHostKey means the target presented a key the journal has
	// never seen. The operator must run `groundwork trust-host` first.
	ErrUnknownHostKey = errors.New("unknown host key")
	// ErrHostKeyMismatch means the target's key differs from the trusted
	// one. Groundwork refuses to continue.
	ErrHostKeyMismatch = errors.New("host key mismatch")
	// ErrPassphraseRequired means the identity file is encrypted and no
	// passphrase was supplied. UIs catch this to prompt the operator.
	ErrPassphraseRequired = errors.New("passphrase required for identity file")
)

// knownHostKey looks up the trusted key for a host. Overridable in tests.
var knownHostKey = func(host string) (string, error) {
	return db.GetKnownHostKey(host)
}

// Target is a parsed remote target spec.
type Target struct {
	User string
	Host string
	Port string
}

// ParseTarget parses [user@]host[:port]. The user defaults to root because
// provisioning needs to act as root anyway; the port defaults to 22.
func ParseTarget(spec string) (Target, error) {
	t := Target{User: "root", Port: "22"}

	rest := spec
	if at := strings.LastIndex(rest, "@"); at >= 0 {
		t.User = rest[:at]
		rest = rest[at+1:]
	}
	if host, port, err := net.SplitHostPort(rest); err == nil {
		t.Host = host
		t.Port = port
	} else {
		t.Host = rest
	}

	if t.User == "" || t.Host == "" {
		return Target{}, fmt.Errorf("invalid target %q: expected [user@]host[:port]", spec)
	}
	return t, nil
}

// Addr returns the dialable host:port.
func (t Target) Addr() string { return net.JoinHostPort(t.Host, t.Port) }

func (t Target) String() string { return t.User + "@" + t.Addr() }

// Remote runs commands and file operations on an SSH target. File transfer
// uses SFTP so it also works against restricted shells.
type Remote struct {
	client *ssh.Client
	sftp   *sftp.Client
	target Target
}

// NewRemote connects to a target and verifies its host key against the
// journal. Authentication tries the identity file first and falls back to a
// running SSH agent, mirroring what operators expect from plain ssh.
func NewRemote(target Target, opts Options) (*Remote, error) {
	hostKeyCallback := func(hostname string, remote net.Addr, key ssh.PublicKey) error {
		// The hostname passed to the callback can include the port; strip
		// it so the journal lookup uses the bare host.
		host, _, err := net.SplitHostPort(hostname)
		if err != nil {
			host = hostname
		}

		presented := FormatHostKey(key)

		trusted, err := knownHostKey(host)
		if err != nil {
			return fmt.Errorf("failed to query known hosts journal: %w", err)
		}
		if trusted == "" {
			return fmt.Errorf("%w for %s: run 'groundwork trust-host %s' first", ErrUnknownHostKey, host, host)
		}
		if strings.TrimSpace(trusted) != presented {
			return fmt.Errorf("%w for %s: remote presented %s; this could be a man-in-the-middle attack", ErrHostKeyMismatch, host, presented)
		}
		return nil
	}

	var signer ssh.Signer
	if opts.IdentityFile != "" {
		pem, err := os.ReadFile(opts.IdentityFile)
		if err != nil {
			return nil, fmt.Errorf("could not read identity file %s: %w", opts.IdentityFile, err)
		}
		signer, err = ssh.ParsePrivateKey(pem)
		if err != nil {
			var missing *ssh.PassphraseMissingError
			if !errors.As(err, &missing) {
				return nil, fmt.Errorf("unable to parse identity file %s: %w", opts.IdentityFile, err)
			}
			if opts.Passphrase.IsEmpty() {
				return nil, ErrPassphraseRequired
			}
			signer, err = ssh.ParsePrivateKeyWithPassphrase(pem, opts.Passphrase.Bytes())
			opts.Passphrase.Zero()
			if err != nil {
				return nil, fmt.Errorf("unable to decrypt identity file %s: %w", opts.IdentityFile, err)
			}
		}
	}

	var client *ssh.Client
	var keyErr error

	// Attempt 1: the identity file, when one was given.
	if signer != nil {
		config := &ssh.ClientConfig{
			User:            target.User,
			Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
			HostKeyCallback: hostKeyCallback,
			Timeout:         10 * time.Second,
		}
		client, keyErr = ssh.Dial("tcp", target.Addr(), config)
		if keyErr == nil {
			return newRemoteSession(client, target)
		}
		// Anything other than an auth failure is final: host key problems
		// and network errors will not improve with another auth method.
		if !strings.Contains(keyErr.Error(), "unable to authenticate") {
			return nil, fmt.Errorf("connection to %s failed: %w", target, keyErr)
		}
	}

	// Attempt 2: a running SSH agent.
	agentClient := getSSHAgent()
	if agentClient == nil {
		if keyErr != nil {
			return nil, fmt.Errorf("identity file authentication failed and no SSH agent available: %w", keyErr)
		}
		return nil, fmt.Errorf("no authentication method available for %s (no identity file and no SSH agent)", target)
	}

	config := &ssh.ClientConfig{
		User:            target.User,
		Auth:            []ssh.AuthMethod{ssh.PublicKeysCallback(agentClient.Signers)},
		HostKeyCallback: hostKeyCallback,
		Timeout:         10 * time.Second,
	}
	client, err := ssh.Dial("tcp", target.Addr(), config)
	if err != nil {
		return nil, fmt.Errorf("connection to %s with ssh agent failed: %w", target, err)
	}
	return newRemoteSession(client, target)
}

func newRemoteSession(client *ssh.Client, target Target) (*Remote, error) {
	sftpClient, err := sftp.NewClient(client)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to create sftp client: %w", err)
	}
	return &Remote{client: client, sftp: sftpClient, target: target}, nil
}

func (r *Remote) Name() string { return r.target.String() }

var safeArgRe = regexp.MustCompile(`^[a-zA-Z0-9_@%+=:,./-]+$`)

// shellQuote makes an argument safe for the remote shell line.
func shellQuote(s string) string {
	if s != "" && safeArgRe.MatchString(s) {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func (r *Remote) Run(ctx context.Context, command string, args ...string) (*Result, error) {
	session, err := r.client.NewSession()
	if err != nil {
		return nil, fmt.Errorf("failed to open ssh session: %w", err)
	}
	defer session.Close()

	parts := make([]string, 0, len(args)+1)
	parts = append(parts, shellQuote(command))
	for _, a := range args {
		parts = append(parts, shellQuote(a))
	}
	line := strings.Join(parts, " ")

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	// Tear the session down if the run is interrupted mid-command.
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			session.Close()
		case <-done:
		}
	}()

	err = session.Run(line)
	close(done)

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err != nil {
		var exitErr *ssh.ExitError
		if errors.As(err, &exitErr) {
			return &Result{
				Stdout:   stdout.String(),
				Stderr:   stderr.String(),
				ExitCode: exitErr.ExitStatus(),
			}, nil
		}
		return nil, fmt.Errorf("failed to run %q on %s: %w", line, r.target, err)
	}

	return &Result{Stdout: stdout.String(), Stderr: stderr.String()}, nil
}

func (r *Remote) ReadFile(filePath string) ([]byte, error) {
	f, err := r.sftp.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// WriteFile uploads to a temporary name in the target directory, sets
// permissions, then renames into place so partially written files are never
// observable.
func (r *Remote) WriteFile(filePath string, data []byte, perm os.FileMode) error {
	dir := path.Dir(filePath)
	tmpPath := path.Join(dir, fmt.Sprintf(".%s.groundwork.%d", path.Base(filePath), time.Now().UnixNano()))

	f, err := r.sftp.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary file on remote: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		_ = r.sftp.Remove(tmpPath)
		return fmt.Errorf("failed to write to temporary file on remote: %w", err)
	}
	f.Close()

	if err := r.sftp.Chmod(tmpPath, perm); err != nil {
		_ = r.sftp.Remove(tmpPath)
		return fmt.Errorf("failed to chmod temporary file: %w", err)
	}
	if err := r.sftp.PosixRename(tmpPath, filePath); err != nil {
		// Fall back to plain rename for servers without the POSIX extension.
		if err := r.sftp.Rename(tmpPath, filePath); err != nil {
			_ = r.sftp.Remove(tmpPath)
			return fmt.Errorf("failed to move file into place: %w", err)
		}
	}
	return nil
}

func (r *Remote) FileExists(filePath string) (bool, error) {
	info, err := r.sftp.Stat(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return !info.IsDir(), nil
}

func (r *Remote) DirExists(filePath string) (bool, error) {
	info, err := r.sftp.Stat(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.IsDir(), nil
}

func (r *Remote) MkdirAll(filePath string, perm os.FileMode) error {
	if err := r.sftp.MkdirAll(filePath); err != nil {
		return err
	}
	return r.sftp.Chmod(filePath, perm)
}

func (r *Remote) Chmod(filePath string, perm os.FileMode) error {
	return r.sftp.Chmod(filePath, perm)
}

func (r *Remote) RemoveAll(filePath string) error {
	err := r.sftp.RemoveAll(filePath)
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}

func (r *Remote) Glob(pattern string) ([]string, error) {
	return r.sftp.Glob(pattern)
}

// Close closes the underlying SSH and SFTP clients.
func (r *Remote) Close() error {
	if r.sftp != nil {
		r.sftp.Close()
	}
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// FormatHostKey renders a host key the way the journal stores it.
func FormatHostKey(key ssh.PublicKey) string {
	return strings.TrimSpace(string(ssh.MarshalAuthorizedKey(key)))
}

// GetRemoteHostKey connects to a host just to retrieve its public key, for
// `groundwork trust-host`.
func GetRemoteHostKey(host string) (ssh.PublicKey, error) {
	keyChan := make(chan ssh.PublicKey, 1)

	config := &ssh.ClientConfig{
		// No authentication needed; the handshake alone presents the key.
		User: "groundwork-probe",
		HostKeyCallback: func(hostname string, remote net.Addr, key ssh.PublicKey) error {
			keyChan <- key
			// Returning an error stops the handshake once we have the key.
			return fmt.Errorf("groundwork: successfully retrieved host key")
		},
		Timeout: 5 * time.Second,
	}

	addr := host
	if _, _, err := net.SplitHostPort(host); err != nil {
		addr = net.JoinHostPort(host, "22")
	}

	// ssh.Dial is expected to fail with our marker error.
	_, err := ssh.Dial("tcp", addr, config)
	if err != nil {
		if strings.Contains(err.Error(), "groundwork: successfully retrieved host key") {
			return <-keyChan, nil
		}
		return nil, fmt.Errorf("failed to connect to %s: %w", host, err)
	}

	return nil, fmt.Errorf("ssh.Dial succeeded unexpectedly, could not retrieve key")
}
