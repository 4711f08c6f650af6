package executor

import (
	"context"
	"golang-jobrunner/internal/model"
	"sync"
)

const FakeName = "Fake"

// Fake launches nothing and reports a configured result. It serves dry runs
// and tests.
type Fake struct {
	outcome
	mu       sync.Mutex
	result   int
	stdout   string
	stderr   string
	err      error
	launched []Command
}

func NewFake(exitCode int, stdout string) *Fake {
	return &Fake{
		outcome: outcome{name: FakeName},
		result:  exitCode,
		stdout:  stdout,
	}
}

// WithError makes every launch fail with err.
func (f *Fake) WithError(err error) *Fake {
	f.err = err
	return f
}

func (f *Fake) WithStderr(stderr string) *Fake {
	f.stderr = stderr
	return f
}

func (f *Fake) UsableForApp(_ *model.Application) bool {
	return true
}

func (f *Fake) Launch(_ context.Context, cmd Command) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.launched = append(f.launched, cmd)

	f.begin(cmd)
	if f.err != nil {
		f.finish(ExitCodeLaunchError, "", f.err.Error())
		return ExitCodeLaunchError, f.err
	}
	f.finish(f.result, f.stdout, f.stderr)
	return f.result, nil
}

// Launched returns the commands seen so far.
func (f *Fake) Launched() []Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Command, len(f.launched))
	copy(out, f.launched)
	return out
}
