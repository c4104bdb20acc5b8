// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package sshexec

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"

	pkgerrors "github.com/tombee/actoriac/pkg/errors"
)

const dialTimeout = 10 * time.Second

// defaultIdentityFiles is the search order used when the target has no
// explicit IdentityFile and no usable ssh-agent, mirroring the openssh
// client's own default key list.
var defaultIdentityFiles = []string{
	"id_ed25519",
	"id_ecdsa",
	"id_rsa",
}

// SSHExecutor runs commands on a remote host over golang.org/x/crypto/ssh,
// optionally dialing through a single ProxyJump hop via an in-process TCP
// forward.
type SSHExecutor struct {
	target Target
	client *ssh.Client

	// proxyConn is the underlying net.Conn to the jump host, closed
	// alongside client on Close.
	proxyConn net.Conn

	mu sync.Mutex
}

// NewSSHExecutor dials target, optionally through its ProxyJump, and builds
// the auth method list per the documented precedence: ssh-agent, then an
// explicit/default IdentityFile, then password.
func NewSSHExecutor(target Target) (*SSHExecutor, error) {
	e := &SSHExecutor{target: target}

	config := &ssh.ClientConfig{
		User:            target.User,
		Auth:            authMethods(target.IdentityFile, target.Password),
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         dialTimeout,
	}

	addr := fmt.Sprintf("%s:%d", target.Address, target.Port)

	if target.ProxyJump != nil {
		client, conn, err := dialViaJump(*target.ProxyJump, addr, config)
		if err != nil {
			return nil, err
		}
		e.client = client
		e.proxyConn = conn
		return e, nil
	}

	client, err := ssh.Dial("tcp", addr, config)
	if err != nil {
		return nil, classifySSHError(target.Host, err)
	}
	e.client = client
	return e, nil
}

// dialViaJump dials the jump host, opens a direct-tcpip channel to addr
// through it, and completes the SSH handshake with the target over that
// channel.
func dialViaJump(jump ProxyJump, targetAddr string, targetConfig *ssh.ClientConfig) (*ssh.Client, net.Conn, error) {
	jumpConfig := &ssh.ClientConfig{
		User:            jump.User,
		Auth:            authMethods("", jump.Password),
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         dialTimeout,
	}

	jumpAddr := fmt.Sprintf("%s:%d", jump.Address, jump.Port)
	jumpClient, err := ssh.Dial("tcp", jumpAddr, jumpConfig)
	if err != nil {
		return nil, nil, classifySSHError(jump.Address, err)
	}

	conn, err := jumpClient.Dial("tcp", targetAddr)
	if err != nil {
		jumpClient.Close()
		return nil, nil, classifySSHError(targetAddr, err)
	}

	ncc, chans, reqs, err := ssh.NewClientConn(conn, targetAddr, targetConfig)
	if err != nil {
		conn.Close()
		jumpClient.Close()
		return nil, nil, classifySSHError(targetAddr, err)
	}

	client := ssh.NewClient(ncc, chans, reqs)
	return client, conn, nil
}

// authMethods builds the ssh-agent -> IdentityFile/default-keys -> password
// precedence chain. Keys requiring a passphrase are skipped rather than
// prompting, per spec.
func authMethods(identityFile, password string) []ssh.AuthMethod {
	var methods []ssh.AuthMethod

	if signers := agentSigners(); len(signers) > 0 {
		methods = append(methods, ssh.PublicKeysCallback(func() ([]ssh.Signer, error) {
			return signers, nil
		}))
	}

	if identityFile != "" {
		if signer, ok := loadKeyFile(identityFile); ok {
			methods = append(methods, ssh.PublicKeys(signer))
		}
	} else {
		home, _ := os.UserHomeDir()
		for _, name := range defaultIdentityFiles {
			path := filepath.Join(home, ".ssh", name)
			if signer, ok := loadKeyFile(path); ok {
				methods = append(methods, ssh.PublicKeys(signer))
			}
		}
	}

	if password != "" {
		methods = append(methods, ssh.Password(password))
	}

	return methods
}

func agentSigners() []ssh.Signer {
	socket := os.Getenv("SSH_AUTH_SOCK")
	if socket == "" {
		return nil
	}
	conn, err := net.Dial("unix", socket)
	if err != nil {
		return nil
	}
	signers, err := agent.NewClient(conn).Signers()
	if err != nil {
		return nil
	}
	return signers
}

// loadKeyFile loads and parses a private key, returning ok=false (never an
// error) when the file is missing, unreadable, or passphrase-protected --
// such keys are silently skipped rather than aborting the precedence chain.
func loadKeyFile(path string) (ssh.Signer, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	signer, err := ssh.ParsePrivateKey(data)
	if err != nil {
		return nil, false
	}
	return signer, true
}

func (e *SSHExecutor) Execute(ctx context.Context, command string, onLine LineCallback) (*Result, error) {
	return e.run(ctx, command, onLine)
}

func (e *SSHExecutor) ExecuteSudo(ctx context.Context, command, sudoPassword string, onLine LineCallback) (*Result, error) {
	if sudoPassword == "" {
		return nil, &pkgerrors.ValidationError{
			Field:      "SUDO_PASSWORD",
			Message:    "SUDO_PASSWORD not set",
			Suggestion: "export SUDO_PASSWORD before running sudo actions",
		}
	}
	return e.run(ctx, sudoCommand(command, sudoPassword), onLine)
}

func (e *SSHExecutor) run(ctx context.Context, command string, onLine LineCallback) (*Result, error) {
	e.mu.Lock()
	session, err := e.client.NewSession()
	e.mu.Unlock()
	if err != nil {
		return nil, classifySSHError(e.target.Host, err)
	}
	defer session.Close()

	stdoutPipe, err := session.StdoutPipe()
	if err != nil {
		return nil, &pkgerrors.TransportError{Kind: "io", Host: e.target.Host, Message: "failed to open stdout pipe", Cause: err}
	}
	stderrPipe, err := session.StderrPipe()
	if err != nil {
		return nil, &pkgerrors.TransportError{Kind: "io", Host: e.target.Host, Message: "failed to open stderr pipe", Cause: err}
	}

	if err := session.Start(command); err != nil {
		return nil, classifySSHError(e.target.Host, err)
	}

	var stdout, stderr strings.Builder
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		streamLines(stdoutPipe, StreamStdout, &stdout, onLine)
	}()
	go func() {
		defer wg.Done()
		streamLines(stderrPipe, StreamStderr, &stderr, onLine)
	}()
	wg.Wait()

	waitErr := session.Wait()

	if ctx.Err() != nil {
		return nil, &pkgerrors.TransportError{Kind: "io", Host: e.target.Host, Message: "ssh command interrupted", Cause: ctx.Err()}
	}

	exitCode := 0
	if waitErr != nil {
		var exitErr *ssh.ExitError
		if errors.As(waitErr, &exitErr) {
			exitCode = exitErr.ExitStatus()
		} else {
			return nil, classifySSHError(e.target.Host, waitErr)
		}
	}

	return &Result{Stdout: stdout.String(), Stderr: stderr.String(), ExitCode: exitCode}, nil
}

func (e *SSHExecutor) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	var err error
	if e.client != nil {
		err = e.client.Close()
	}
	if e.proxyConn != nil {
		_ = e.proxyConn.Close()
	}
	return err
}

// classifySSHError maps a dial/auth/session error into a TransportError with
// a Kind of "auth", "connect", "unknown_host", or "generic".
func classifySSHError(host string, err error) error {
	if err == nil {
		return nil
	}

	msg := err.Error()
	kind := "generic"
	hint := ""

	switch {
	case strings.Contains(msg, "unable to authenticate"), strings.Contains(msg, "no supported methods remain"):
		kind = "auth"
		hint = "check ssh-agent, identity file, or password for this host"
	case strings.Contains(msg, "connection refused"):
		kind = "connect"
		hint = "check the host is reachable and sshd is listening on the configured port"
	case isTimeout(err):
		kind = "connect"
		hint = "connection timed out; check network reachability and firewall rules"
	case strings.Contains(msg, "knownhosts") || strings.Contains(msg, "host key"):
		kind = "unknown_host"
	}

	message := msg
	if hint != "" {
		message = fmt.Sprintf("%s (%s)", msg, hint)
	}

	return &pkgerrors.TransportError{Kind: kind, Host: host, Message: message, Cause: err}
}

func isTimeout(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}
