package runtime

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"os/exec"
	gopath "path"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/codeloft/codeloft/pkg/utils"
)

// DockerRuntime executes inside a running container via the local docker
// binary.
//
// NOTE: This intentionally avoids adding the Docker SDK as a dependency.
// It assumes the host running codeloft has access to the docker daemon.
// The container has no watcher; the mirror stays consistent through the
// write-through operations alone.
type DockerRuntime struct {
	bin       string
	container string
	user      string
	workdir   string
}

// NewDockerRuntime creates a runtime bound to a container and an absolute
// workdir inside it.
func NewDockerRuntime(container, user, workdir string) (*DockerRuntime, error) {
	container = strings.TrimSpace(container)
	if container == "" {
		return nil, errors.New("container is required")
	}
	workdir = utils.NormalizePath(workdir)
	if workdir == "" || !strings.HasPrefix(workdir, "/") {
		return nil, errors.Errorf("workdir must be absolute, got %q", workdir)
	}
	return &DockerRuntime{bin: "docker", container: container, user: user, workdir: workdir}, nil
}

func (d *DockerRuntime) Workdir() string { return d.workdir }

func (d *DockerRuntime) containerPath(relPath string) (string, error) {
	relPath = strings.TrimSpace(relPath)
	if relPath == "" || relPath == "." {
		return "", errors.Errorf("invalid relative path %q", relPath)
	}
	joined := gopath.Join(d.workdir, relPath)
	if !utils.IsWithin(d.workdir, joined) || joined == d.workdir {
		return "", errors.Errorf("path %q escapes the workdir", relPath)
	}
	return joined, nil
}

func (d *DockerRuntime) WriteFile(ctx context.Context, relPath string, content []byte) error {
	cp, err := d.containerPath(relPath)
	if err != nil {
		return err
	}
	// Route content through base64 so arbitrary bytes survive the shell.
	encoded := base64.StdEncoding.EncodeToString(content)
	script := fmt.Sprintf("mkdir -p %s && printf '%%s' %s | base64 -d > %s",
		shellQuote(gopath.Dir(cp)), shellQuote(encoded), shellQuote(cp))
	_, err = d.exec(ctx, []string{"sh", "-c", script})
	return err
}

func (d *DockerRuntime) MkdirAll(ctx context.Context, relPath string) error {
	cp, err := d.containerPath(relPath)
	if err != nil {
		return err
	}
	_, err = d.exec(ctx, []string{"mkdir", "-p", cp})
	return err
}

func (d *DockerRuntime) Remove(ctx context.Context, relPath string, recursive bool) error {
	cp, err := d.containerPath(relPath)
	if err != nil {
		return err
	}
	cmd := []string{"rm", cp}
	if recursive {
		cmd = []string{"rm", "-rf", cp}
	}
	_, err = d.exec(ctx, cmd)
	return err
}

func (d *DockerRuntime) Exec(ctx context.Context, cmd []string) (string, error) {
	if len(cmd) == 0 {
		return "", errors.New("empty command")
	}
	return d.exec(ctx, cmd)
}

// WatchPaths is unsupported: docker exec offers no change notification
// channel.
func (d *DockerRuntime) WatchPaths(ctx context.Context, spec WatchSpec, cb WatchCallback) (func(), error) {
	return nil, ErrWatchUnsupported
}

func (d *DockerRuntime) exec(ctx context.Context, cmd []string) (string, error) {
	args := []string{"exec", "-w", d.workdir}
	if strings.TrimSpace(d.user) != "" {
		args = append(args, "--user", d.user)
	}
	args = append(args, d.container)
	args = append(args, cmd...)

	c := exec.CommandContext(ctx, d.bin, args...)
	var out bytes.Buffer
	var stderr bytes.Buffer
	c.Stdout = &out
	c.Stderr = &stderr
	if err := c.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = strings.TrimSpace(out.String())
		}
		if msg == "" {
			msg = err.Error()
		}
		return "", errors.Errorf("docker exec failed: %s", msg)
	}
	return out.String(), nil
}

// EnsureAvailable pings the docker daemon.
func (d *DockerRuntime) EnsureAvailable(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	c := exec.CommandContext(ctx, d.bin, "version", "--format", "{{.Server.Version}}")
	var stderr bytes.Buffer
	c.Stdout = &bytes.Buffer{}
	c.Stderr = &stderr
	if err := c.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return errors.Errorf("docker is not available: %s", msg)
	}
	return nil
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}

var _ Runtime = (*DockerRuntime)(nil)
