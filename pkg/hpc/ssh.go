// Package hpc launches and inspects Bifrost analyses on the HPC cluster over SSH.
package hpc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/yumyai/cgcompare/internal/config"
	"github.com/yumyai/cgcompare/logger"
)

// Output is what a remote command printed. ExitCode is -1 when the command
// ended without reporting a status.
type Output struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner executes one shell command on the cluster. A non-zero exit is not an
// error; err is reserved for failing to run the command at all.
type Runner interface {
	Run(ctx context.Context, command string) (Output, error)
}

var ErrNotConfigured = errors.New("HPC host is not configured")

// SSHRunner opens a fresh connection per command.
type SSHRunner struct {
	addr   string
	config *ssh.ClientConfig
}

func NewSSHRunner(cfg config.HPC) (*SSHRunner, error) {
	if !cfg.Enabled() {
		return nil, ErrNotConfigured
	}

	var auth []ssh.AuthMethod
	if cfg.KeyFile != "" {
		pem, err := os.ReadFile(cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("read HPC key: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(pem)
		if err != nil {
			return nil, fmt.Errorf("parse HPC key %s: %w", cfg.KeyFile, err)
		}
		auth = append(auth, ssh.PublicKeys(signer))
	}
	if cfg.Password != "" {
		auth = append(auth, ssh.Password(cfg.Password))
	}
	if len(auth) == 0 {
		return nil, errors.New("HPC needs HPC_PASSWORD or HPC_KEY_FILE")
	}

	hostKey := ssh.InsecureIgnoreHostKey()
	if cfg.KnownHosts != "" {
		cb, err := knownhosts.New(cfg.KnownHosts)
		if err != nil {
			return nil, fmt.Errorf("load known hosts: %w", err)
		}
		hostKey = cb
	} else {
		logger.Warn("HPC_KNOWN_HOSTS not set, the HPC host key is not verified", zap.String("host", cfg.Hostname))
	}

	port := cfg.Port
	if port == 0 {
		port = 22
	}
	return &SSHRunner{
		addr: net.JoinHostPort(cfg.Hostname, strconv.Itoa(port)),
		config: &ssh.ClientConfig{
			User:            cfg.Username,
			Auth:            auth,
			HostKeyCallback: hostKey,
			Timeout:         15 * time.Second,
		},
	}, nil
}

func (r *SSHRunner) Run(ctx context.Context, command string) (Output, error) {
	logger.Info("Running HPC command", zap.String("host", r.addr), zap.String("command", command))

	client, err := r.dial(ctx)
	if err != nil {
		return Output{}, fmt.Errorf("connect to %s: %w", r.addr, err)
	}
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return Output{}, fmt.Errorf("open session on %s: %w", r.addr, err)
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	done := make(chan error, 1)
	go func() { done <- session.Run(command) }()

	select {
	case <-ctx.Done():
		_ = session.Signal(ssh.SIGTERM)
		return Output{}, ctx.Err()
	case err = <-done:
	}

	out := Output{Stdout: stdout.String(), Stderr: stderr.String()}
	var exitErr *ssh.ExitError
	var missing *ssh.ExitMissingError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		out.ExitCode = exitErr.ExitStatus()
	case errors.As(err, &missing):
		out.ExitCode = -1
	default:
		return out, fmt.Errorf("run on %s: %w", r.addr, err)
	}
	return out, nil
}

func (r *SSHRunner) dial(ctx context.Context) (*ssh.Client, error) {
	d := net.Dialer{Timeout: r.config.Timeout}
	conn, err := d.DialContext(ctx, "tcp", r.addr)
	if err != nil {
		return nil, err
	}
	c, chans, reqs, err := ssh.NewClientConn(conn, r.addr, r.config)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return ssh.NewClient(c, chans, reqs), nil
}
