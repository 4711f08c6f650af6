// Package executor runs a job's command line on a concrete backend and
// captures its exit code and output.
package executor

import (
	"context"
	"errors"
	"fmt"
	"golang-jobrunner/internal/model"
	"golang-jobrunner/pkg/utils"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

const (
	ExitCodeNotFound    = 127
	ExitCodeLaunchError = -1
)

var (
	ErrUnknownExecutor     = errors.New("unknown executor")
	ErrExecutableNotFound  = errors.New("executable not found")
	ErrImageNotConfigured  = errors.New("no container image configured")
	ErrBackendNotAvailable = errors.New("executor backend not available")
)

// Command is everything a backend needs to launch one job.
type Command struct {
	JobID      uint
	JobUUID    string
	Executable string
	// Params is the already expanded parameter string.
	Params string
	Env    map[string]string
	Image  string
}

// Line is the shell command line: executable followed by its parameters.
func (c Command) Line() string {
	return strings.TrimSpace(c.Executable + " " + c.Params)
}

// EnvList renders Env as sorted KEY=value pairs.
func (c Command) EnvList() []string {
	env := make([]string, 0, len(c.Env))
	for _, k := range utils.SortedKeys(c.Env) {
		env = append(env, fmt.Sprintf("%s=%s", k, c.Env[k]))
	}
	return env
}

type Executor interface {
	Name() string
	// Commandline returns the command line of the last launch.
	Commandline() string
	// Launch blocks until the command finished. A non-nil error means the
	// command could not be run at all.
	Launch(ctx context.Context, cmd Command) (int, error)
	Output() string
	ErrorOutput() string
	ExitCode() int
	StoreLogs(ctx context.Context) error
	UsableForApp(app *model.Application) bool
}

type Factory func() Executor

type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

func (r *Registry) Register(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Get returns a fresh executor instance for one launch.
func (r *Registry) Get(name string) (Executor, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownExecutor, name)
	}
	return factory(), nil
}

func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[name]
	return ok
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// outcome holds the captured result shared by all backends.
type outcome struct {
	name        string
	logDir      string
	jobUUID     string
	commandline string
	stdout      string
	stderr      string
	exitCode    int
}

func (o *outcome) Name() string {
	return o.name
}

func (o *outcome) Commandline() string {
	return o.commandline
}

func (o *outcome) Output() string {
	return o.stdout
}

func (o *outcome) ErrorOutput() string {
	return o.stderr
}

func (o *outcome) ExitCode() int {
	return o.exitCode
}

func (o *outcome) begin(cmd Command) {
	o.jobUUID = cmd.JobUUID
	o.commandline = cmd.Line()
	o.stdout = ""
	o.stderr = ""
	o.exitCode = 0
}

func (o *outcome) finish(code int, stdout, stderr string) {
	o.exitCode = code
	o.stdout = stdout
	o.stderr = stderr
}

// StoreLogs writes stdout and stderr to <log_dir>/<job uuid>.{stdout,stderr}.log.
// Without a log directory it does nothing.
func (o *outcome) StoreLogs(_ context.Context) error {
	if o.logDir == "" || o.jobUUID == "" {
		return nil
	}
	if err := os.MkdirAll(o.logDir, 0o755); err != nil {
		return fmt.Errorf("failed to create log dir %s: %w", o.logDir, err)
	}
	files := map[string]string{
		o.jobUUID + ".stdout.log": o.stdout,
		o.jobUUID + ".stderr.log": o.stderr,
	}
	for name, content := range files {
		path := filepath.Join(o.logDir, name)
		if err := os.WriteFile(path, []byte(content), 0o640); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
	}
	return nil
}
