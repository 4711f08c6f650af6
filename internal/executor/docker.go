package executor

import (
	"bytes"
	"context"
	"fmt"
	"golang-jobrunner/config"
	"golang-jobrunner/internal/model"
	"io"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
)

const DockerName = "Docker"

// Docker runs the command line in a throwaway container. Podman works as well
// through its Docker-compatible socket.
type Docker struct {
	outcome
	client *client.Client
	cfg    config.Docker
}

// NewDockerClient connects using DOCKER_HOST and friends unless a host is
// configured.
func NewDockerClient(cfg config.Docker) (*client.Client, error) {
	opts := []client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}
	if cfg.Host != "" {
		opts = append(opts, client.WithHost(cfg.Host))
	}
	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	return cli, nil
}

func NewDocker(cli *client.Client, cfg config.Docker, logDir string) *Docker {
	return &Docker{
		outcome: outcome{name: DockerName, logDir: logDir},
		client:  cli,
		cfg:     cfg,
	}
}

func (d *Docker) UsableForApp(app *model.Application) bool {
	return app != nil && (app.OCIImage != "" || d.cfg.DefaultImage != "")
}

func (d *Docker) image(cmd Command) string {
	if cmd.Image != "" {
		return cmd.Image
	}
	return d.cfg.DefaultImage
}

func (d *Docker) Launch(ctx context.Context, cmd Command) (int, error) {
	d.begin(cmd)

	if d.client == nil {
		d.finish(ExitCodeLaunchError, "", ErrBackendNotAvailable.Error())
		return ExitCodeLaunchError, ErrBackendNotAvailable
	}
	img := d.image(cmd)
	if img == "" {
		d.finish(ExitCodeLaunchError, "", ErrImageNotConfigured.Error())
		return ExitCodeLaunchError, ErrImageNotConfigured
	}

	if d.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.cfg.Timeout)
		defer cancel()
	}

	if err := d.ensureImage(ctx, img); err != nil {
		d.finish(ExitCodeLaunchError, "", err.Error())
		return ExitCodeLaunchError, err
	}

	created, err := d.client.ContainerCreate(ctx, &container.Config{
		Image: img,
		Cmd:   []string{"/bin/sh", "-c", cmd.Line()},
		Env:   cmd.EnvList(),
		Labels: map[string]string{
			"app.kubernetes.io/managed-by": "jobrunner",
			"jobrunner.job-uuid":           cmd.JobUUID,
		},
	}, nil, nil, nil, "")
	if err != nil {
		err = fmt.Errorf("failed to create container: %w", err)
		d.finish(ExitCodeLaunchError, "", err.Error())
		return ExitCodeLaunchError, err
	}
	defer func() {
		_ = d.client.ContainerRemove(context.WithoutCancel(ctx), created.ID, container.RemoveOptions{Force: true})
	}()

	if err := d.client.ContainerStart(ctx, created.ID, container.StartOptions{}); err != nil {
		err = fmt.Errorf("failed to start container: %w", err)
		d.finish(ExitCodeLaunchError, "", err.Error())
		return ExitCodeLaunchError, err
	}

	code, waitErr := d.wait(ctx, created.ID)
	stdout, stderr := d.collectLogs(ctx, created.ID)
	if waitErr != nil {
		d.finish(ExitCodeLaunchError, stdout, stderr)
		return ExitCodeLaunchError, waitErr
	}

	d.finish(code, stdout, stderr)
	return code, nil
}

func (d *Docker) ensureImage(ctx context.Context, img string) error {
	if _, err := d.client.ImageInspect(ctx, img); err == nil {
		return nil
	}
	reader, err := d.client.ImagePull(ctx, img, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("failed to pull image %s: %w", img, err)
	}
	defer reader.Close()
	_, _ = io.Copy(io.Discard, reader)
	return nil
}

func (d *Docker) wait(ctx context.Context, containerID string) (int, error) {
	statusCh, errCh := d.client.ContainerWait(ctx, containerID, container.WaitConditionNotRunning)
	select {
	case err := <-errCh:
		return ExitCodeLaunchError, fmt.Errorf("failed waiting for container: %w", err)
	case status := <-statusCh:
		if status.Error != nil {
			return int(status.StatusCode), fmt.Errorf("container wait: %s", status.Error.Message)
		}
		return int(status.StatusCode), nil
	case <-ctx.Done():
		return ExitCodeLaunchError, ctx.Err()
	}
}

func (d *Docker) collectLogs(ctx context.Context, containerID string) (string, string) {
	reader, err := d.client.ContainerLogs(context.WithoutCancel(ctx), containerID, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
	})
	if err != nil {
		return "", err.Error()
	}
	defer reader.Close()

	var stdout, stderr bytes.Buffer
	if _, err := stdcopy.StdCopy(&stdout, &stderr, reader); err != nil {
		stderr.WriteString(err.Error())
	}
	return stdout.String(), stderr.String()
}
