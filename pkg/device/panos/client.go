// Package panos drives PAN-OS firewalls and Panorama appliances over the
// management CLI. Configuration runs inside a single interactive shell
// session because configure mode is stateful: candidate config set by one
// command is visible to the next and nothing is applied until commit.
package panos

import (
	"context"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/ssh"

	"github.com/panshift/panshift/pkg/device"
	"github.com/panshift/panshift/pkg/spec"
	"github.com/panshift/panshift/pkg/util"
)

const (
	defaultPort = 22
	dialTimeout = 30 * time.Second
	// promptTimeout bounds ordinary commands. Commits carry their own
	// timeout because they can run for many minutes.
	promptTimeout = 2 * time.Minute
)

// Client is a PAN-OS management CLI session over SSH. Firewalls and
// Panorama speak the same CLI dialect for everything handled here; Firewall
// and Panorama wrap this client with their role-specific commands.
type Client struct {
	host  string
	port  int
	creds device.Credentials
	log   logrus.FieldLogger

	mu        sync.Mutex
	conn      *ssh.Client
	session   *ssh.Session
	stdin     io.WriteCloser
	out       chan string
	connected bool
}

func newClient(host string, creds device.Credentials, log logrus.FieldLogger) *Client {
	if log == nil {
		log = util.Logger
	}
	h, port := splitHostPort(host)
	return &Client{
		host:  h,
		port:  port,
		creds: creds,
		log:   log.WithField("device", h),
	}
}

// splitHostPort splits an optional :port suffix off host, defaulting to 22.
func splitHostPort(host string) (string, int) {
	h, p, err := net.SplitHostPort(host)
	if err != nil {
		return host, defaultPort
	}
	if port, err := strconv.Atoi(p); err == nil && port > 0 {
		return h, port
	}
	return h, defaultPort
}

// Connect dials the management interface and opens an interactive CLI
// session, leaving it at the operational prompt with the pager disabled.
// Connecting twice is a no-op.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.connected {
		return nil
	}

	config := &ssh.ClientConfig{
		User: c.creds.Username,
		Auth: []ssh.AuthMethod{
			ssh.Password(c.creds.Password),
		},
		// Freshly provisioned devices present new host keys on every
		// deploy, so verification has nothing to pin against.
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         dialTimeout,
	}

	addr := fmt.Sprintf("%s:%d", c.host, c.port)
	c.log.Debugf("SSH to %s: host key verification disabled (InsecureIgnoreHostKey)", addr)
	conn, err := ssh.Dial("tcp", addr, config)
	if err != nil {
		return fmt.Errorf("panos: dial %s@%s: %w", c.creds.Username, addr, err)
	}

	sess, err := conn.NewSession()
	if err != nil {
		conn.Close()
		return fmt.Errorf("panos: session on %s: %w", addr, err)
	}

	modes := ssh.TerminalModes{
		ssh.ECHO:          0,
		ssh.TTY_OP_ISPEED: 14400,
		ssh.TTY_OP_OSPEED: 14400,
	}
	if err := sess.RequestPty("vt100", 24, 200, modes); err != nil {
		sess.Close()
		conn.Close()
		return fmt.Errorf("panos: pty on %s: %w", addr, err)
	}

	stdin, err := sess.StdinPipe()
	if err != nil {
		sess.Close()
		conn.Close()
		return fmt.Errorf("panos: stdin pipe on %s: %w", addr, err)
	}
	stdout, err := sess.StdoutPipe()
	if err != nil {
		sess.Close()
		conn.Close()
		return fmt.Errorf("panos: stdout pipe on %s: %w", addr, err)
	}
	if err := sess.Shell(); err != nil {
		sess.Close()
		conn.Close()
		return fmt.Errorf("panos: shell on %s: %w", addr, err)
	}

	c.conn = conn
	c.session = sess
	c.stdin = stdin
	c.out = make(chan string, 16)
	c.connected = true
	go readLoop(stdout, c.out)

	// Swallow the login banner, then disable the pager so command output
	// arrives in one piece.
	if _, err := c.readUntil(ctx, promptTimeout); err != nil {
		c.closeLocked()
		return fmt.Errorf("panos: login to %s: %w", addr, err)
	}
	if _, err := c.exec(ctx, "set cli pager off", promptTimeout); err != nil {
		c.closeLocked()
		return fmt.Errorf("panos: disable pager on %s: %w", addr, err)
	}

	c.log.Debug("CLI session established")
	return nil
}

// Disconnect logs out and tears the session down. Safe to call when not
// connected.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return nil
	}
	// Best effort logout so the device closes its side cleanly.
	io.WriteString(c.stdin, "exit\n")
	return c.closeLocked()
}

func (c *Client) closeLocked() error {
	if c.session != nil {
		c.session.Close()
		c.session = nil
	}
	var err error
	if c.conn != nil {
		err = c.conn.Close()
		c.conn = nil
	}
	c.stdin = nil
	c.out = nil
	c.connected = false
	return err
}

// IsConnected reports whether a CLI session is open.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Identity queries show system info and extracts the device identity.
func (c *Client) Identity(ctx context.Context) (*device.Identity, error) {
	out, err := c.run(ctx, "show system info")
	if err != nil {
		return nil, err
	}
	id := parseSystemInfo(out)
	if id.Serial == "" && id.Hostname == "" {
		return nil, fmt.Errorf("panos: %s: show system info returned no identity", c.host)
	}
	return id, nil
}

// Commit applies the candidate configuration and waits for the result. The
// CLI runs commits synchronously; timeout bounds the wait.
func (c *Client) Commit(ctx context.Context, timeout time.Duration) (*device.CommitResult, error) {
	if timeout <= 0 {
		timeout = device.DefaultCommitTimeout
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return nil, fmt.Errorf("panos: %s: %w", c.host, util.ErrNotConnected)
	}

	if _, err := c.exec(ctx, "configure", promptTimeout); err != nil {
		return nil, fmt.Errorf("panos: %s: %w", c.host, err)
	}
	out, err := c.exec(ctx, "commit", timeout)
	c.exec(ctx, "exit", promptTimeout)
	if err != nil {
		return nil, fmt.Errorf("panos: commit on %s: %w", c.host, err)
	}
	return parseCommitResult(out), nil
}

// ConfigureDevice pushes system settings: hostname, DNS, NTP, timezone and
// login banner.
func (c *Client) ConfigureDevice(ctx context.Context, settings spec.DeviceSettings) error {
	return c.applyConfig(ctx, deviceCommands(settings))
}

// run executes one operational mode command and returns its output.
func (c *Client) run(ctx context.Context, cmd string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return "", fmt.Errorf("panos: %s: %w", c.host, util.ErrNotConnected)
	}
	out, err := c.exec(ctx, cmd, promptTimeout)
	if err != nil {
		return out, fmt.Errorf("panos: %s: %w", c.host, err)
	}
	return out, nil
}

// runChecked executes an operational command and fails when the device
// reports an error in its output.
func (c *Client) runChecked(ctx context.Context, cmd string) error {
	out, err := c.run(ctx, cmd)
	if err != nil {
		return err
	}
	if line := responseError(out); line != "" {
		return fmt.Errorf("panos: %s: %q: %s", c.host, cmd, line)
	}
	return nil
}

// applyConfig enters configure mode, applies cmds in order and drops back
// to the operational prompt. The first rejected command aborts the batch;
// candidate config already set stays behind for the next commit.
func (c *Client) applyConfig(ctx context.Context, cmds []string) error {
	if len(cmds) == 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return fmt.Errorf("panos: %s: %w", c.host, util.ErrNotConnected)
	}

	if _, err := c.exec(ctx, "configure", promptTimeout); err != nil {
		return fmt.Errorf("panos: %s: %w", c.host, err)
	}
	for _, cmd := range cmds {
		out, err := c.exec(ctx, cmd, promptTimeout)
		if err != nil {
			c.exec(ctx, "exit", promptTimeout)
			return fmt.Errorf("panos: %s: %w", c.host, err)
		}
		if line := responseError(out); line != "" {
			c.exec(ctx, "exit", promptTimeout)
			return fmt.Errorf("panos: %s: %q rejected: %s", c.host, cmd, line)
		}
	}
	if _, err := c.exec(ctx, "exit", promptTimeout); err != nil {
		return fmt.Errorf("panos: %s: %w", c.host, err)
	}
	return nil
}

// exec sends one command and waits for the prompt to return, stripping the
// command echo and the prompt from the output. Callers hold c.mu.
func (c *Client) exec(ctx context.Context, cmd string, timeout time.Duration) (string, error) {
	if _, err := io.WriteString(c.stdin, cmd+"\n"); err != nil {
		return "", fmt.Errorf("send %q: %w", cmd, err)
	}
	out, err := c.readUntil(ctx, timeout)
	if err != nil {
		return out, fmt.Errorf("%q: %w", cmd, err)
	}
	return stripEcho(out, cmd), nil
}

// readUntil accumulates output until the CLI prompt is back, the timeout
// lapses or ctx is cancelled. Callers hold c.mu.
func (c *Client) readUntil(ctx context.Context, timeout time.Duration) (string, error) {
	var buf strings.Builder
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case chunk, ok := <-c.out:
			if !ok {
				return buf.String(), fmt.Errorf("session closed")
			}
			buf.WriteString(chunk)
			if atPrompt(buf.String()) {
				return buf.String(), nil
			}
		case <-ctx.Done():
			return buf.String(), ctx.Err()
		case <-timer.C:
			return buf.String(), fmt.Errorf("no prompt after %s", timeout)
		}
	}
}

func readLoop(r io.Reader, ch chan<- string) {
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			ch <- string(buf[:n])
		}
		if err != nil {
			close(ch)
			return
		}
	}
}
