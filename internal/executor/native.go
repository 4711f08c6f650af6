package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"golang-jobrunner/config"
	"golang-jobrunner/internal/model"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

const NativeName = "Native"

// Native runs the command line through the local shell.
type Native struct {
	outcome
	shell string
	cfg   config.Native
}

func NewNative(cfg config.Native, logDir string) *Native {
	shell := cfg.Shell
	if shell == "" {
		shell = "/bin/sh"
	}
	return &Native{
		outcome: outcome{name: NativeName, logDir: logDir},
		shell:   shell,
		cfg:     cfg,
	}
}

func (n *Native) UsableForApp(app *model.Application) bool {
	return app != nil && app.Executable != ""
}

func (n *Native) Launch(ctx context.Context, cmd Command) (int, error) {
	n.begin(cmd)

	if err := lookupExecutable(cmd.Executable); err != nil {
		n.finish(ExitCodeNotFound, "", err.Error())
		return ExitCodeNotFound, err
	}

	if n.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.cfg.Timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	c := exec.CommandContext(ctx, n.shell, "-c", cmd.Line())
	c.Env = append(os.Environ(), cmd.EnvList()...)
	c.Stdout = &stdout
	c.Stderr = &stderr
	c.WaitDelay = 2 * time.Second

	err := c.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && ctx.Err() == nil {
			n.finish(exitErr.ExitCode(), stdout.String(), stderr.String())
			return n.exitCode, nil
		}
		n.finish(ExitCodeLaunchError, stdout.String(), stderr.String())
		if ctx.Err() != nil {
			return ExitCodeLaunchError, fmt.Errorf("command %q aborted: %w", cmd.Executable, ctx.Err())
		}
		return ExitCodeLaunchError, fmt.Errorf("failed to run %q: %w", cmd.Executable, err)
	}

	n.finish(0, stdout.String(), stderr.String())
	return 0, nil
}

func lookupExecutable(executable string) error {
	if executable == "" {
		return ErrExecutableNotFound
	}
	if filepath.IsAbs(executable) {
		info, err := os.Stat(executable)
		if err != nil || info.IsDir() {
			return fmt.Errorf("%w: %s", ErrExecutableNotFound, executable)
		}
		return nil
	}
	if _, err := exec.LookPath(executable); err != nil {
		return fmt.Errorf("%w: %s", ErrExecutableNotFound, executable)
	}
	return nil
}
