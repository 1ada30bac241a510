package runtime

import (
	"bytes"
	"context"
	"fmt"
	"net"
	gopath "path"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"github.com/codeloft/codeloft/pkg/utils"
)

// SSHConfig describes how to reach a remote host.
type SSHConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	// PrivateKey is an optional PEM-encoded key; takes precedence over
	// Password when set.
	PrivateKey []byte
	// Workdir is the absolute workspace root on the remote host.
	Workdir string
}

// SSHRuntime executes against a remote host over SSH. File operations go
// through SFTP, commands through exec sessions. The SSH and SFTP clients
// are created lazily and reused; a keepalive failure forces a redial.
type SSHRuntime struct {
	cfg     SSHConfig
	workdir string

	mu       sync.Mutex
	sshCli   *ssh.Client
	sftpCli  *sftp.Client
	lastUsed time.Time
}

func NewSSHRuntime(cfg SSHConfig) (*SSHRuntime, error) {
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, errors.New("host is required")
	}
	if strings.TrimSpace(cfg.User) == "" {
		return nil, errors.New("user is required")
	}
	workdir := utils.NormalizePath(cfg.Workdir)
	if workdir == "" || !strings.HasPrefix(workdir, "/") {
		return nil, errors.Errorf("workdir must be absolute, got %q", cfg.Workdir)
	}
	if cfg.Port <= 0 {
		cfg.Port = 22
	}
	return &SSHRuntime{cfg: cfg, workdir: workdir}, nil
}

func (r *SSHRuntime) Workdir() string { return r.workdir }

func (r *SSHRuntime) remotePath(relPath string) (string, error) {
	relPath = strings.TrimSpace(relPath)
	if relPath == "" || relPath == "." {
		return "", errors.Errorf("invalid relative path %q", relPath)
	}
	joined := gopath.Join(r.workdir, relPath)
	if !utils.IsWithin(r.workdir, joined) || joined == r.workdir {
		return "", errors.Errorf("path %q escapes the workdir", relPath)
	}
	return joined, nil
}

func (r *SSHRuntime) WriteFile(ctx context.Context, relPath string, content []byte) error {
	rp, err := r.remotePath(relPath)
	if err != nil {
		return err
	}
	cli, err := r.sftp(ctx)
	if err != nil {
		return err
	}
	if err := cli.MkdirAll(gopath.Dir(rp)); err != nil {
		return errors.Wrapf(err, "create parent dirs for %s", relPath)
	}
	f, err := cli.Create(rp)
	if err != nil {
		return errors.Wrapf(err, "create remote file %s", relPath)
	}
	_, werr := f.Write(content)
	cerr := f.Close()
	if werr != nil {
		return errors.Wrapf(werr, "write remote file %s", relPath)
	}
	if cerr != nil {
		return errors.Wrapf(cerr, "close remote file %s", relPath)
	}
	return nil
}

func (r *SSHRuntime) MkdirAll(ctx context.Context, relPath string) error {
	rp, err := r.remotePath(relPath)
	if err != nil {
		return err
	}
	cli, err := r.sftp(ctx)
	if err != nil {
		return err
	}
	if err := cli.MkdirAll(rp); err != nil {
		return errors.Wrapf(err, "create remote dir %s", relPath)
	}
	return nil
}

func (r *SSHRuntime) Remove(ctx context.Context, relPath string, recursive bool) error {
	rp, err := r.remotePath(relPath)
	if err != nil {
		return err
	}
	if recursive {
		// sftp has no recursive remove; fall back to the shell.
		_, err = r.Exec(ctx, []string{"rm", "-rf", rp})
		return err
	}
	cli, err := r.sftp(ctx)
	if err != nil {
		return err
	}
	if err := cli.Remove(rp); err != nil {
		return errors.Wrapf(err, "remove remote path %s", relPath)
	}
	return nil
}

func (r *SSHRuntime) Exec(ctx context.Context, cmd []string) (string, error) {
	if len(cmd) == 0 {
		return "", errors.New("empty command")
	}
	cli, err := r.client(ctx)
	if err != nil {
		return "", err
	}
	session, err := cli.NewSession()
	if err != nil {
		return "", errors.Wrap(err, "open ssh session")
	}
	defer func() { _ = session.Close() }()

	quoted := make([]string, 0, len(cmd))
	for _, a := range cmd {
		quoted = append(quoted, shellQuote(a))
	}
	line := fmt.Sprintf("cd %s && %s", shellQuote(r.workdir), strings.Join(quoted, " "))

	var out bytes.Buffer
	var stderr bytes.Buffer
	session.Stdout = &out
	session.Stderr = &stderr
	if err := session.Run(line); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = strings.TrimSpace(out.String())
		}
		if msg == "" {
			msg = err.Error()
		}
		return "", errors.Errorf("remote command failed: %s", msg)
	}
	return out.String(), nil
}

// WatchPaths is unsupported over plain SSH.
func (r *SSHRuntime) WatchPaths(ctx context.Context, spec WatchSpec, cb WatchCallback) (func(), error) {
	return nil, ErrWatchUnsupported
}

// Close tears down any open connections.
func (r *SSHRuntime) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sftpCli != nil {
		_ = r.sftpCli.Close()
		r.sftpCli = nil
	}
	if r.sshCli != nil {
		_ = r.sshCli.Close()
		r.sshCli = nil
	}
}

// client returns a healthy ssh client, redialing when the cached one no
// longer answers keepalives.
func (r *SSHRuntime) client(ctx context.Context) (*ssh.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sshCli != nil {
		if _, _, err := r.sshCli.SendRequest("keepalive@openssh.com", true, nil); err == nil {
			r.lastUsed = time.Now()
			return r.sshCli, nil
		}
		if r.sftpCli != nil {
			_ = r.sftpCli.Close()
			r.sftpCli = nil
		}
		_ = r.sshCli.Close()
		r.sshCli = nil
	}

	auth := []ssh.AuthMethod{}
	if len(r.cfg.PrivateKey) > 0 {
		signer, err := ssh.ParsePrivateKey(r.cfg.PrivateKey)
		if err != nil {
			return nil, errors.Wrap(err, "parse private key")
		}
		auth = append(auth, ssh.PublicKeys(signer))
	} else if r.cfg.Password != "" {
		auth = append(auth, ssh.Password(r.cfg.Password))
	}
	if len(auth) == 0 {
		return nil, errors.New("no ssh auth method configured")
	}

	addr := net.JoinHostPort(r.cfg.Host, fmt.Sprintf("%d", r.cfg.Port))
	conf := &ssh.ClientConfig{
		User: r.cfg.User,
		Auth: auth,
		// Host key pinning is a deployment concern; the workbench talks
		// to hosts the operator configured.
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         10 * time.Second,
	}

	d := net.Dialer{Timeout: conf.Timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "dial %s", addr)
	}
	c, chans, reqs, err := ssh.NewClientConn(conn, addr, conf)
	if err != nil {
		_ = conn.Close()
		return nil, errors.Wrapf(err, "ssh handshake with %s", addr)
	}
	r.sshCli = ssh.NewClient(c, chans, reqs)
	r.lastUsed = time.Now()
	return r.sshCli, nil
}

// sftp returns a lazily created sftp client bound to the current ssh
// connection.
func (r *SSHRuntime) sftp(ctx context.Context) (*sftp.Client, error) {
	cli, err := r.client(ctx)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sftpCli != nil {
		return r.sftpCli, nil
	}
	sc, err := sftp.NewClient(cli)
	if err != nil {
		return nil, errors.Wrap(err, "open sftp channel")
	}
	r.sftpCli = sc
	return sc, nil
}

var _ Runtime = (*SSHRuntime)(nil)
