// Package action implements the post-execution steps a run template enables
// for the success or failure of its jobs.
package action

import (
	"context"
	"errors"
	"fmt"
	"golang-jobrunner/internal/executor"
	"golang-jobrunner/internal/model"
	"golang-jobrunner/pkg/httpclient"
	"golang-jobrunner/pkg/logger"
	"golang-jobrunner/pkg/utils"
	"golang-jobrunner/pkg/zabbix"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
)

var ErrUnknownAction = errors.New("unknown action")

// Outcome is the finished job the actions react to. RunTemplate is expected
// with App and Company loaded.
type Outcome struct {
	Job         *model.Job
	RunTemplate *model.RunTemplate
	ExitCode    int
	Stdout      string
	Stderr      string
}

func (o Outcome) Success() bool {
	return o.ExitCode == 0
}

func (o Outcome) Mode() string {
	if o.Success() {
		return model.ActionModeSuccess
	}
	return model.ActionModeFail
}

// FollowUp is a job an action asks to queue. An empty Executor leaves the
// choice to the run template.
type FollowUp struct {
	RunTemplateID uint
	Env           map[string]string
	At            time.Time
	Executor      string
	ScheduleType  model.ScheduleType
}

// JobScheduler prepares and queues follow-up jobs.
type JobScheduler interface {
	Schedule(ctx context.Context, f FollowUp) (*model.Job, error)
}

// StateSwitcher enables or disables a run template.
type StateSwitcher interface {
	SetState(ctx context.Context, runTemplateID uint, enabled bool) (bool, error)
}

// Notifier delivers chat messages.
type Notifier interface {
	Enabled() bool
	Send(ctx context.Context, chatID int64, text string) error
}

// Deps are the long-lived collaborators shared by all actions.
type Deps struct {
	Log        *logger.Logger
	State      StateSwitcher
	Clock      utils.Clock
	HTTP       httpclient.HTTPClient
	MaxRetries uint64
	BackOff    func() backoff.BackOff
	Zabbix     zabbix.Sender
	Notifier   Notifier
	Executors  *executor.Registry
	// Sleep waits for d unless ctx ends first.
	Sleep      func(ctx context.Context, d time.Duration) error
}

func (d *Deps) now() time.Time {
	if d.Clock != nil {
		return d.Clock()
	}
	return utils.TimeNowUTC()
}

func (d *Deps) sleep(ctx context.Context, dur time.Duration) error {
	if d.Sleep != nil {
		return d.Sleep(ctx, dur)
	}
	timer := time.NewTimer(dur)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Request is one action invocation.
type Request struct {
	*Deps
	Outcome   Outcome
	Options   Options
	Scheduler JobScheduler
}

type Action interface {
	Name() string
	Description() string
	UsableForApp(app *model.Application) bool
	Perform(ctx context.Context, req *Request) error
}

// Options are the stored settings of one action.
type Options map[string]interface{}

func (o Options) String(key, def string) string {
	v, ok := o[key]
	if !ok || v == nil {
		return def
	}
	s := fmt.Sprint(v)
	if s == "" {
		return def
	}
	return s
}

func (o Options) Int(key string, def int) int {
	v, ok := o[key]
	if !ok || v == nil {
		return def
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	i, err := strconv.Atoi(fmt.Sprint(v))
	if err != nil {
		return def
	}
	return i
}

type Factory func() Action

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

func (r *Registry) Get(name string) (Action, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, name)
	}
	return factory(), nil
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

// NewDefaultRegistry registers the built-in actions.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(RescheduleName, func() Action { return &Reschedule{} })
	r.Register(ChainRuntemplateName, func() Action { return &ChainRuntemplate{} })
	r.Register(SleepName, func() Action { return &Sleep{} })
	r.Register(StopName, func() Action { return &Stop{} })
	r.Register(WebHookName, func() Action { return &WebHook{} })
	r.Register(GithubName, func() Action { return &Github{} })
	r.Register(RedmineIssueName, func() Action { return &RedmineIssue{} })
	r.Register(ToDoName, func() Action { return &ToDo{} })
	r.Register(ZabbixName, func() Action { return &Zabbix{} })
	r.Register(TelegramName, func() Action { return &Telegram{} })
	r.Register(CustomCommandName, func() Action { return &CustomCommand{} })
	return r
}
