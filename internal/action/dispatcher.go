package action

import (
	"context"
	"fmt"
	"golang-jobrunner/internal/model"
	"golang-jobrunner/internal/status"
	"golang-jobrunner/pkg/logger"
	"golang-jobrunner/pkg/metrics"
	"golang-jobrunner/pkg/utils"
)

// OptionLoader reads stored action settings.
type OptionLoader interface {
	GetActionConfig(ctx context.Context, runTemplateID uint, module, mode string, opts ...utils.DBOption) (*model.ActionConfig, error)
}

// Result is what happened to one enabled action.
type Result struct {
	Action string `json:"action"`
	Err    error  `json:"-"`
	Error  string `json:"error,omitempty"`
}

type Dispatcher struct {
	registry *Registry
	deps     *Deps
	options  OptionLoader
	metrics  *metrics.Metrics
}

func NewDispatcher(registry *Registry, deps *Deps, options OptionLoader, m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		deps:     deps,
		options:  options,
		metrics:  m,
	}
}

// Dispatch performs every enabled action of the outcome's map, one after the
// other in name order. A failing or panicking action is reported and the
// rest still run.
func (d *Dispatcher) Dispatch(ctx context.Context, outcome Outcome, scheduler JobScheduler) []Result {
	if outcome.RunTemplate == nil {
		return nil
	}
	actions := outcome.RunTemplate.Actions(outcome.Success())
	mode := outcome.Mode()

	var results []Result
	for _, name := range utils.SortedKeys(actions) {
		if !actions[name] {
			continue
		}
		err := d.perform(ctx, name, mode, outcome, scheduler)
		result := Result{Action: name, Err: err}
		if err != nil {
			result.Error = err.Error()
			status.Report(ctx, d.deps.Log, status.Error, name, "%s action failed: %v", name, err)
			d.observe(name, "error")
		} else {
			d.observe(name, "success")
		}
		results = append(results, result)
	}
	return results
}

func (d *Dispatcher) perform(ctx context.Context, name, mode string, outcome Outcome, scheduler JobScheduler) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	act, err := d.registry.Get(name)
	if err != nil {
		return err
	}
	if outcome.RunTemplate.App != nil && !act.UsableForApp(outcome.RunTemplate.App) {
		return fmt.Errorf("%s is not usable for application %s", name, outcome.RunTemplate.App.Name)
	}

	opts := Options{}
	if d.options != nil {
		cfg, err := d.options.GetActionConfig(ctx, outcome.RunTemplate.ID, name, mode)
		if err != nil {
			return fmt.Errorf("failed to load %s options: %w", name, err)
		}
		if cfg != nil {
			opts = Options(cfg.Options)
		}
	}

	d.deps.Log.DebugContext(ctx, "Performing action",
		logger.StringField("action", name),
		logger.StringField("mode", mode),
		logger.UintField("runtemplate_id", outcome.RunTemplate.ID),
	)
	return act.Perform(ctx, &Request{
		Deps:      d.deps,
		Outcome:   outcome,
		Options:   opts,
		Scheduler: scheduler,
	})
}

func (d *Dispatcher) observe(name, result string) {
	if d.metrics == nil {
		return
	}
	d.metrics.ActionsPerformed.WithLabelValues(name, result).Inc()
}
